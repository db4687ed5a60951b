package contribution

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusOverdue   Status = "overdue"
)

// Table: contributions. One row per member per period.
type Contribution struct {
	ID             uint64          `gorm:"primaryKey;column:id" json:"-"`
	ContributionID string          `gorm:"size:32;uniqueIndex:ux_contributions_contribution_id" json:"contribution_id"`
	GroupID        string          `gorm:"size:32;uniqueIndex:ux_contributions_period;index:idx_contributions_group_status" json:"group_id"`
	MemberID       string          `gorm:"size:64;uniqueIndex:ux_contributions_period" json:"member_id"`
	Period         int             `gorm:"uniqueIndex:ux_contributions_period" json:"period"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,2)" json:"amount"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(18,2)" json:"paid_amount"`
	DueDate        time.Time       `json:"due_date"`
	PaidDate       *time.Time      `json:"paid_date,omitempty"`
	Status         Status          `gorm:"size:16;index:idx_contributions_group_status" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contribution) TableName() string { return "contributions" }

func (c *Contribution) Completed() bool { return c.Status == StatusCompleted }

// Remaining is the amount still owed for the period.
func (c *Contribution) Remaining() decimal.Decimal {
	return c.Amount.Sub(c.PaidAmount)
}
