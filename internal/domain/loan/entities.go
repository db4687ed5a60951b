package loan

import (
	"time"

	"github.com/shopspring/decimal"
)

type State string

const (
	StatePending   State = "pending"
	StateVoting    State = "voting"
	StateApproved  State = "approved"
	StateActive    State = "active"
	StateOverdue   State = "overdue"
	StateRepaid    State = "repaid"
	StateRejected  State = "rejected"
	StateCancelled State = "cancelled"
)

var transitions = map[State][]State{
	StatePending:  {StateVoting, StateApproved, StateRejected, StateCancelled},
	StateVoting:   {StateApproved, StateRejected, StateCancelled},
	StateApproved: {StateActive, StateCancelled},
	StateActive:   {StateRepaid, StateOverdue},
	StateOverdue:  {StateRepaid},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool {
	return s == StateRepaid || s == StateRejected || s == StateCancelled
}

// Disbursed reports whether the principal is out with the borrower.
func (s State) Disbursed() bool { return s == StateActive || s == StateOverdue }

// Open reports whether the request is still awaiting a decision or disbursement.
func (s State) Open() bool {
	return s == StatePending || s == StateVoting || s == StateApproved
}

// Table: loans
type Loan struct {
	ID              uint64          `gorm:"primaryKey;column:id" json:"-"`
	LoanID          string          `gorm:"size:32;uniqueIndex:ux_loans_loan_id" json:"loan_id"`
	GroupID         string          `gorm:"size:32;index:idx_loans_group_state" json:"group_id"`
	BorrowerID      string          `gorm:"size:64;index:idx_loans_borrower" json:"borrower_id"`
	RequestedAmount decimal.Decimal `gorm:"type:decimal(18,2)" json:"requested_amount"`
	Purpose         string          `gorm:"type:text" json:"purpose"`
	InterestRate    decimal.Decimal `gorm:"type:decimal(9,4)" json:"interest_rate"`
	TermDays        int             `json:"term_days"`
	Interest        decimal.Decimal `gorm:"type:decimal(18,2)" json:"interest"`
	TotalRepayment  decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_repayment"`
	RepaidAmount    decimal.Decimal `gorm:"type:decimal(18,2)" json:"repaid_amount"`
	State           State           `gorm:"size:16;index:idx_loans_group_state" json:"state"`
	RequestedAt     time.Time       `json:"requested_at"`
	DecisionAt      *time.Time      `json:"decision_at,omitempty"`
	DecidedBy       string          `gorm:"size:64" json:"decided_by,omitempty"`
	DisbursedAt     *time.Time      `json:"disbursed_at,omitempty"`
	DueDate         *time.Time      `json:"due_date,omitempty"`
	RepaidAt        *time.Time      `json:"repaid_at,omitempty"`
	StateUpdatedAt  time.Time       `json:"state_updated_at"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Loan) TableName() string { return "loans" }

func (l *Loan) Outstanding() decimal.Decimal {
	return l.TotalRepayment.Sub(l.RepaidAmount)
}

// PastDue reports whether a disbursed loan has an unpaid balance after its due date.
func (l *Loan) PastDue(now time.Time) bool {
	return l.State.Disbursed() && l.DueDate != nil && now.After(*l.DueDate) &&
		l.RepaidAmount.LessThan(l.TotalRepayment)
}
