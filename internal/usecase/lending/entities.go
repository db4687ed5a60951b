package lending

import (
	"time"

	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/usecase/aggregate"

	"github.com/shopspring/decimal"
)

type RequestLoanInput struct {
	GroupID  string          `json:"group_id"`
	MemberID string          `json:"member_id"`
	Amount   decimal.Decimal `json:"amount"`
	Purpose  string          `json:"purpose"`
	TermDays int             `json:"term_days"`
}

type CastVoteInput struct {
	LoanID   string      `json:"loan_id"`
	MemberID string      `json:"member_id"`
	Choice   loan.Choice `json:"choice"`
}

type DecideLoanInput struct {
	LoanID     string `json:"loan_id"`
	ApproverID string `json:"approver_id"`
	Approve    bool   `json:"approve"`
}

type ActivateLoanInput struct {
	LoanID  string `json:"loan_id"`
	ActorID string `json:"actor_id"`
}

type RepaymentInput struct {
	LoanID  string          `json:"loan_id"`
	ActorID string          `json:"actor_id"`
	Amount  decimal.Decimal `json:"amount"`
	PaidAt  time.Time       `json:"paid_at"`
}

type CancelLoanInput struct {
	LoanID  string `json:"loan_id"`
	ActorID string `json:"actor_id"`
}

type LoanDTO struct {
	LoanID          string          `json:"loan_id"`
	GroupID         string          `json:"group_id"`
	BorrowerID      string          `json:"borrower_id"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
	Purpose         string          `json:"purpose"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	TermDays        int             `json:"term_days"`
	Interest        decimal.Decimal `json:"interest"`
	TotalRepayment  decimal.Decimal `json:"total_repayment"`
	RepaidAmount    decimal.Decimal `json:"repaid_amount"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	State           loan.State      `json:"state"`
	RequestedAt     time.Time       `json:"requested_at"`
	DecisionAt      *time.Time      `json:"decision_at,omitempty"`
	DecidedBy       string          `json:"decided_by,omitempty"`
	DisbursedAt     *time.Time      `json:"disbursed_at,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	RepaidAt        *time.Time      `json:"repaid_at,omitempty"`
}

func toDTO(l *loan.Loan) LoanDTO {
	return LoanDTO{
		LoanID:          l.LoanID,
		GroupID:         l.GroupID,
		BorrowerID:      l.BorrowerID,
		RequestedAmount: l.RequestedAmount,
		Purpose:         l.Purpose,
		InterestRate:    l.InterestRate,
		TermDays:        l.TermDays,
		Interest:        l.Interest,
		TotalRepayment:  l.TotalRepayment,
		RepaidAmount:    l.RepaidAmount,
		Outstanding:     l.Outstanding(),
		State:           l.State,
		RequestedAt:     l.RequestedAt,
		DecisionAt:      l.DecisionAt,
		DecidedBy:       l.DecidedBy,
		DisbursedAt:     l.DisbursedAt,
		DueDate:         l.DueDate,
		RepaidAt:        l.RepaidAt,
	}
}

type TallyDTO struct {
	Approve   int `json:"approve"`
	Reject    int `json:"reject"`
	Eligible  int `json:"eligible"`
	Threshold int `json:"threshold"`
}

type LoanResult struct {
	Loan  LoanDTO            `json:"loan"`
	Tally *TallyDTO          `json:"tally,omitempty"`
	Group aggregate.Snapshot `json:"group"`
}

type VoteDTO struct {
	MemberID string      `json:"member_id"`
	Choice   loan.Choice `json:"choice"`
	CastAt   time.Time   `json:"cast_at"`
}

type EligibilityDTO struct {
	GroupID          string          `json:"group_id"`
	MemberID         string          `json:"member_id"`
	Eligible         bool            `json:"eligible"`
	Reasons          []string        `json:"reasons,omitempty"`
	MaxBorrowable    decimal.Decimal `json:"max_borrowable"`
	TotalContributed decimal.Decimal `json:"total_contributed"`
	AvailableFunds   decimal.Decimal `json:"available_funds"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	MaxLoanTermDays  int             `json:"max_loan_term_days"`
	RequiresVoting   bool            `json:"requires_voting"`
	OpenLoanID       string          `json:"open_loan_id,omitempty"`
}
