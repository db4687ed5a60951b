package http

import (
	"net/http"
	"time"

	"group-savings-engine/internal/usecase/contribution"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ContributionHandler struct {
	responder
	uc *contribution.Usecase
}

func NewContributionHandler(uc *contribution.Usecase, log *zap.Logger) *ContributionHandler {
	return &ContributionHandler{responder: responder{log: log}, uc: uc}
}

// RequestCycle opens the current contribution period for the group.
func (h *ContributionHandler) RequestCycle(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	res, err := h.uc.RequestContributionCycle(c.Request().Context(), contribution.RequestCycleInput{
		GroupID: groupID,
		ActorID: caller,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type recordPaymentReq struct {
	Amount decimal.Decimal `json:"amount"  validate:"gt=0"`
	PaidAt *time.Time      `json:"paid_at"`
}

func (h *ContributionHandler) RecordPayment(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	contributionID, ok := hexParam(c, "contribution_id")
	if !ok {
		return badParam(c, "contribution_id")
	}
	var req recordPaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := contribution.RecordPaymentInput{
		ContributionID: contributionID,
		ActorID:        caller,
		Amount:         req.Amount,
	}
	if req.PaidAt != nil {
		in.PaidAt = req.PaidAt.UTC()
	}
	res, err := h.uc.RecordContributionPayment(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *ContributionHandler) MemberStatus(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	memberID, ok := memberParam(c, "member_id")
	if !ok {
		return badParam(c, "member_id")
	}
	dto, err := h.uc.GetMemberContributionStatus(c.Request().Context(), groupID, memberID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *ContributionHandler) ListOverdue(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	list, err := h.uc.ListOverdueContributions(c.Request().Context(), groupID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}
