package http

import (
	"net/http"
	"strings"

	"group-savings-engine/internal/adapter/middleware"

	"github.com/labstack/echo/v4"
)

// actor returns the calling member from the identity header.
func actor(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Request().Header.Get(middleware.HeaderMemberID))
	return id, reMemberID.MatchString(id)
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing or invalid " + middleware.HeaderMemberID})
}

// hexParam reads a 32-hex path parameter.
func hexParam(c echo.Context, name string) (string, bool) {
	v := c.Param(name)
	return v, reHex32.MatchString(v)
}

func memberParam(c echo.Context, name string) (string, bool) {
	v := c.Param(name)
	return v, reMemberID.MatchString(v)
}

func badParam(c echo.Context, name string) error {
	return badRequest(c, "invalid "+name+" path param")
}
