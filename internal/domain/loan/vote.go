package loan

import "time"

type Choice string

const (
	ChoiceApprove Choice = "approve"
	ChoiceReject  Choice = "reject"
)

func (c Choice) Valid() bool { return c == ChoiceApprove || c == ChoiceReject }

// Table: votes. At most one per (loan, member).
type Vote struct {
	ID        uint64    `gorm:"primaryKey;column:id" json:"-"`
	LoanID    string    `gorm:"size:32;uniqueIndex:ux_votes_loan_member" json:"loan_id"`
	MemberID  string    `gorm:"size:64;uniqueIndex:ux_votes_loan_member" json:"member_id"`
	Choice    Choice    `gorm:"size:16" json:"choice"`
	CastAt    time.Time `json:"cast_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Vote) TableName() string { return "votes" }
