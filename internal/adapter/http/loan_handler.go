package http

import (
	"net/http"
	"time"

	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/usecase/lending"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LoanHandler struct {
	responder
	uc *lending.Usecase
}

func NewLoanHandler(uc *lending.Usecase, log *zap.Logger) *LoanHandler {
	return &LoanHandler{responder: responder{log: log}, uc: uc}
}

type requestLoanReq struct {
	Amount   decimal.Decimal `json:"amount"    validate:"gt=0"`
	Purpose  string          `json:"purpose"   validate:"max=255"`
	TermDays int             `json:"term_days" validate:"gt=0"`
}

// RequestLoan files a loan for the caller.
func (h *LoanHandler) RequestLoan(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	var req requestLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.RequestLoan(c.Request().Context(), lending.RequestLoanInput{
		GroupID:  groupID,
		MemberID: caller,
		Amount:   req.Amount,
		Purpose:  req.Purpose,
		TermDays: req.TermDays,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *LoanHandler) GetLoan(c echo.Context) error {
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	dto, err := h.uc.GetLoan(c.Request().Context(), loanID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

func (h *LoanHandler) ListActive(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	list, err := h.uc.ListActiveLoans(c.Request().Context(), groupID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *LoanHandler) Eligibility(c echo.Context) error {
	groupID, ok := hexParam(c, "group_id")
	if !ok {
		return badParam(c, "group_id")
	}
	memberID, ok := memberParam(c, "member_id")
	if !ok {
		return badParam(c, "member_id")
	}
	dto, err := h.uc.GetLoanEligibility(c.Request().Context(), groupID, memberID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, dto)
}

type castVoteReq struct {
	Choice string `json:"choice" validate:"required,oneof=approve reject"`
}

func (h *LoanHandler) CastVote(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	var req castVoteReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.CastVote(c.Request().Context(), lending.CastVoteInput{
		LoanID:   loanID,
		MemberID: caller,
		Choice:   loan.Choice(req.Choice),
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) ListVotes(c echo.Context) error {
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	votes, err := h.uc.ListVotes(c.Request().Context(), loanID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, votes)
}

type decideLoanReq struct {
	Approve *bool `json:"approve" validate:"required"`
}

func (h *LoanHandler) Decide(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	var req decideLoanReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.uc.DecideLoan(c.Request().Context(), lending.DecideLoanInput{
		LoanID:     loanID,
		ApproverID: caller,
		Approve:    *req.Approve,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Activate disburses an approved loan.
func (h *LoanHandler) Activate(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	res, err := h.uc.ActivateLoan(c.Request().Context(), lending.ActivateLoanInput{LoanID: loanID, ActorID: caller})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type repaymentReq struct {
	Amount decimal.Decimal `json:"amount"  validate:"gt=0"`
	PaidAt *time.Time      `json:"paid_at"`
}

func (h *LoanHandler) Repay(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	var req repaymentReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	in := lending.RepaymentInput{LoanID: loanID, ActorID: caller, Amount: req.Amount}
	if req.PaidAt != nil {
		in.PaidAt = req.PaidAt.UTC()
	}
	res, err := h.uc.RecordLoanRepayment(c.Request().Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *LoanHandler) Cancel(c echo.Context) error {
	caller, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	loanID, ok := hexParam(c, "loan_id")
	if !ok {
		return badParam(c, "loan_id")
	}
	res, err := h.uc.CancelLoan(c.Request().Context(), lending.CancelLoanInput{LoanID: loanID, ActorID: caller})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
