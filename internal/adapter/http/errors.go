package http

import (
	"errors"
	"net/http"

	"group-savings-engine/internal/domain/errs"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// StatusOf maps an engine error to its HTTP status.
func StatusOf(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case errs.KindValidation:
		return http.StatusUnprocessableEntity
	case errs.KindPolicy:
		switch e.Code {
		case errs.ErrForbidden.Code, errs.ErrNotMember.Code, errs.ErrSelfVoteForbidden.Code:
			return http.StatusForbidden
		}
		return http.StatusConflict
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindInfrastructure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// responder is embedded by every handler for uniform error bodies.
type responder struct{ log *zap.Logger }

// fail renders err as an ErrorResponse. Infrastructure details stay in the
// log; callers only see the code.
func (r responder) fail(c echo.Context, err error) error {
	status := StatusOf(err)
	code := errs.CodeOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		r.log.Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.Error(err))
		var e *errs.Error
		if errors.As(err, &e) {
			msg = e.Message
		} else {
			msg = "internal error"
		}
	}
	if code == errs.ErrBusy.Code {
		c.Response().Header().Set("Retry-After", "1")
	}
	return c.JSON(status, ErrorResponse{Error: msg, Code: code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// bindAndValidate decodes the JSON body into req and validates it.
// A non-nil return means the response has been written.
func bindAndValidate(c echo.Context, req any) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, badRequest(c, "invalid body")
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Code:    errs.ErrInvalidInput.Code,
			Details: ToFieldErrors(err),
		})
	}
	return true, nil
}
