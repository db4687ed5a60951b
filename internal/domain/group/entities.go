package group

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusPending, StatusSuspended, StatusClosed:
		return true
	}
	return false
}

type Frequency string

const (
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	return f == Weekly || f == Biweekly || f == Monthly
}

type ContributionSettings struct {
	Amount       decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	Frequency    Frequency       `gorm:"size:16" json:"frequency"`
	StartDate    time.Time       `json:"start_date"`
	AllowPartial bool            `json:"allow_partial"`
}

// LoanSettings configures borrowing. Exactly one of MaxLoanMultiplier and
// MaxLoanPercentage is expected to be set; with neither, nothing can be borrowed.
type LoanSettings struct {
	Enabled           bool                `json:"enabled"`
	InterestRate      decimal.Decimal     `gorm:"type:decimal(9,4)" json:"interest_rate"`
	MaxLoanMultiplier decimal.NullDecimal `gorm:"type:decimal(9,4)" json:"max_loan_multiplier"`
	MaxLoanPercentage decimal.NullDecimal `gorm:"type:decimal(9,4)" json:"max_loan_percentage"`
	MaxLoanTermDays   int                 `json:"max_loan_term_days"`
	RequiresVoting    bool                `json:"requires_voting"`
	VoteThreshold     int                 `json:"vote_threshold"`
	TiesApprove       bool                `json:"ties_approve"`
}

// Table: savings_groups
type Group struct {
	ID           uint64               `gorm:"primaryKey;column:id" json:"-"`
	GroupID      string               `gorm:"size:32;uniqueIndex:ux_groups_group_id" json:"group_id"`
	Name         string               `gorm:"size:128" json:"name"`
	Contribution ContributionSettings `gorm:"embedded;embeddedPrefix:contrib_" json:"contribution"`
	Loans        LoanSettings         `gorm:"embedded;embeddedPrefix:loan_" json:"loans"`
	Summary      Summary              `gorm:"embedded;embeddedPrefix:summary_" json:"summary"`
	CycleNumber  int                  `json:"cycle_number"`
	Status       Status               `gorm:"size:16;index" json:"status"`
	Version      int64                `json:"version"`
	CreatedAt    time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Group) TableName() string { return "savings_groups" }

func (g *Group) Active() bool { return g.Status == StatusActive }
