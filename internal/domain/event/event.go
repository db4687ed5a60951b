package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	ContributionDue     Type = "contribution.due"
	ContributionPaid    Type = "contribution.paid"
	ContributionOverdue Type = "contribution.overdue"
	LoanRequested       Type = "loan.requested"
	LoanVoteCast        Type = "loan.vote_cast"
	LoanApproved        Type = "loan.approved"
	LoanRejected        Type = "loan.rejected"
	LoanActivated       Type = "loan.activated"
	LoanRepayment       Type = "loan.repayment"
	LoanRepaid          Type = "loan.repaid"
	LoanOverdue         Type = "loan.overdue"
	LoanCancelled       Type = "loan.cancelled"
)

// Event is emitted after a financial commit succeeds.
type Event struct {
	Type           Type             `json:"type"`
	GroupID        string           `json:"group_id"`
	MemberID       string           `json:"member_id,omitempty"`
	LoanID         string           `json:"loan_id,omitempty"`
	ContributionID string           `json:"contribution_id,omitempty"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	At             time.Time        `json:"at"`
}

// Sink delivers events. Delivery is best-effort: a failing sink never
// affects the commit that produced the event.
type Sink interface {
	Notify(ctx context.Context, e Event) error
}

// Amount is a helper for the optional Event.Amount field.
func Amount(d decimal.Decimal) *decimal.Decimal { return &d }
