package contribution

import (
	"time"

	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/usecase/aggregate"

	"github.com/shopspring/decimal"
)

type RequestCycleInput struct {
	GroupID string    `json:"group_id"`
	ActorID string    `json:"actor_id"`
	AsOf    time.Time `json:"as_of"`
}

type RecordPaymentInput struct {
	ContributionID string          `json:"contribution_id"`
	ActorID        string          `json:"actor_id"`
	Amount         decimal.Decimal `json:"amount"`
	PaidAt         time.Time       `json:"paid_at"`
}

type ContributionDTO struct {
	ContributionID string              `json:"contribution_id"`
	GroupID        string              `json:"group_id"`
	MemberID       string              `json:"member_id"`
	Period         int                 `json:"period"`
	Amount         decimal.Decimal     `json:"amount"`
	PaidAmount     decimal.Decimal     `json:"paid_amount"`
	DueDate        time.Time           `json:"due_date"`
	PaidDate       *time.Time          `json:"paid_date,omitempty"`
	Status         contribution.Status `json:"status"`
}

func toDTO(c *contribution.Contribution, status contribution.Status) ContributionDTO {
	return ContributionDTO{
		ContributionID: c.ContributionID,
		GroupID:        c.GroupID,
		MemberID:       c.MemberID,
		Period:         c.Period,
		Amount:         c.Amount,
		PaidAmount:     c.PaidAmount,
		DueDate:        c.DueDate,
		PaidDate:       c.PaidDate,
		Status:         status,
	}
}

type CycleResult struct {
	Period  Period             `json:"period"`
	Created []ContributionDTO  `json:"created"`
	Group   aggregate.Snapshot `json:"group"`
}

type PaymentResult struct {
	Contribution ContributionDTO    `json:"contribution"`
	Group        aggregate.Snapshot `json:"group"`
}

type Standing string

const (
	StandingCurrent Standing = "current"
	StandingPending Standing = "pending"
	StandingOverdue Standing = "overdue"
)

type MemberStatusDTO struct {
	GroupID       string            `json:"group_id"`
	MemberID      string            `json:"member_id"`
	Standing      Standing          `json:"standing"`
	TotalDue      decimal.Decimal   `json:"total_due"`
	TotalPaid     decimal.Decimal   `json:"total_paid"`
	Outstanding   decimal.Decimal   `json:"outstanding"`
	Completed     int               `json:"completed"`
	Pending       int               `json:"pending"`
	Overdue       int               `json:"overdue"`
	Contributions []ContributionDTO `json:"contributions"`
}
