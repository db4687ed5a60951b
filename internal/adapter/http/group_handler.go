package http

import (
	"net/http"
	"strconv"
	"time"

	groupDomain "group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/usecase/aggregate"
	"group-savings-engine/internal/usecase/group"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type GroupHandler struct {
	responder
	uc  *group.Usecase
	agg *aggregate.Usecase
	idp groupDomain.IdentityProvider
}

func NewGroupHandler(uc *group.Usecase, agg *aggregate.Usecase, idp groupDomain.IdentityProvider, log *zap.Logger) *GroupHandler {
	return &GroupHandler{responder: responder{log: log}, uc: uc, agg: agg, idp: idp}
}

type contributionSettingsReq struct {
	Amount       decimal.Decimal `json:"amount"        validate:"gt=0"`
	Frequency    string          `json:"frequency"     validate:"required,oneof=weekly biweekly monthly"`
	StartDate    string          `json:"start_date"    validate:"required,datetime=2006-01-02"`
	AllowPartial bool            `json:"allow_partial"`
}

type loanSettingsReq struct {
	Enabled           bool                `json:"enabled"`
	InterestRate      decimal.Decimal     `json:"interest_rate"       validate:"gte=0,lte=100"`
	MaxLoanMultiplier decimal.NullDecimal `json:"max_loan_multiplier" validate:"omitempty,gt=0"`
	MaxLoanPercentage decimal.NullDecimal `json:"max_loan_percentage" validate:"omitempty,gt=0,lte=100"`
	MaxLoanTermDays   int                 `json:"max_loan_term_days"  validate:"gte=0"`
	RequiresVoting    bool                `json:"requires_voting"`
	VoteThreshold     int                 `json:"vote_threshold"      validate:"gte=0"`
	TiesApprove       bool                `json:"ties_approve"`
}

func (r loanSettingsReq) settings() groupDomain.LoanSettings {
	return groupDomain.LoanSettings{
		Enabled:           r.Enabled,
		InterestRate:      r.InterestRate,
		MaxLoanMultiplier: r.MaxLoanMultiplier,
		MaxLoanPercentage: r.MaxLoanPercentage,
		MaxLoanTermDays:   r.MaxLoanTermDays,
		RequiresVoting:    r.RequiresVoting,
		VoteThreshold:     r.VoteThreshold,
		TiesApprove:       r.TiesApprove,
	}
}

// ManagerID defaults to the caller.
type createGroupReq struct {
	Name         string                  `json:"name"         validate:"required,max=128"`
	ManagerID    string                  `json:"manager_id"   validate:"omitempty,memberid"`
	Contribution contributionSettingsReq `json:"contribution"`
	Loans        loanSettingsReq         `json:"loans"`
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	var req createGroupReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	// already validated as a date
	start, _ := time.Parse("2006-01-02", req.Contribution.StartDate)
	manager := req.ManagerID
	if manager == "" {
		manager = caller
	}
	dto, err := h.uc.CreateGroup(c.Request().Context(), group.CreateGroupInput{
		Name:      req.Name,
		ManagerID: manager,
		Contribution: groupDomain.ContributionSettings{
			Amount:       req.Contribution.Amount,
			Frequency:    groupDomain.Frequency(req.Contribution.Frequency),
			StartDate:    start,
			AllowPartial: req.Contribution.AllowPartial,
		},
		Loans: req.Loans.settings(),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	dto, err := h.uc.GetGroup(c.Request().Context(), groupID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *GroupHandler) GetSummary(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	dto, err := h.agg.GetGroupSummary(c.Request().Context(), groupID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

// Reconcile compares the stored summary with a recompute; ?repair=true
// overwrites a drifted summary. Administrators only.
func (h *GroupHandler) Reconcile(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	repair := false
	if v := c.QueryParam("repair"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return badRequest(c, "invalid repair query param")
		}
		repair = b
	}
	ctx := c.Request().Context()
	if _, err := aggregate.Authorize(ctx, h.idp, groupID, caller, groupDomain.CanAdminister); err != nil {
		return h.fail(c, err)
	}
	rep, err := h.agg.Reconcile(ctx, groupID, repair)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *GroupHandler) ListMembers(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	members, err := h.uc.ListMembers(c.Request().Context(), groupID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, members)
}

type addMemberReq struct {
	MemberID string `json:"member_id" validate:"required,memberid"`
	Role     string `json:"role"      validate:"omitempty,oneof=member manager"`
}

func (h *GroupHandler) AddMember(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	var req addMemberReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.AddMember(c.Request().Context(), group.AddMemberInput{
		GroupID:  groupID,
		ActorID:  caller,
		MemberID: req.MemberID,
		Role:     groupDomain.Role(req.Role),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, dto)
}

func (h *GroupHandler) RemoveMember(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	memberID, ok := memberParam(c, "member_id")
	if !ok {
		return badParam(c, "member_id")
	}
	err := h.uc.RemoveMember(c.Request().Context(), group.RemoveMemberInput{
		GroupID:  groupID,
		ActorID:  caller,
		MemberID: memberID,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GroupHandler) UpdateLoanSettings(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	var req loanSettingsReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.UpdateLoanSettings(c.Request().Context(), group.UpdateLoanSettingsInput{
		GroupID: groupID,
		ActorID: caller,
		Loans:   req.settings(),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type changeStatusReq struct {
	Status string `json:"status" validate:"required,oneof=active inactive pending suspended closed"`
}

func (h *GroupHandler) ChangeStatus(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	var req changeStatusReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	dto, err := h.uc.ChangeStatus(c.Request().Context(), group.ChangeStatusInput{
		GroupID: groupID,
		ActorID: caller,
		Status:  groupDomain.Status(req.Status),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}
