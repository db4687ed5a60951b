package group

import (
	"time"

	groupDomain "group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/usecase/aggregate"
)

type CreateGroupInput struct {
	Name         string                           `json:"name"`
	ManagerID    string                           `json:"manager_id"`
	Contribution groupDomain.ContributionSettings `json:"contribution"`
	Loans        groupDomain.LoanSettings         `json:"loans"`
}

type AddMemberInput struct {
	GroupID  string           `json:"group_id"`
	ActorID  string           `json:"actor_id"`
	MemberID string           `json:"member_id"`
	Role     groupDomain.Role `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

type RemoveMemberInput struct {
	GroupID  string `json:"group_id"`
	ActorID  string `json:"actor_id"`
	MemberID string `json:"member_id"`
}

type UpdateLoanSettingsInput struct {
	GroupID string                   `json:"group_id"`
	ActorID string                   `json:"actor_id"`
	Loans   groupDomain.LoanSettings `json:"loans"`
}

type ChangeStatusInput struct {
	GroupID string             `json:"group_id"`
	ActorID string             `json:"actor_id"`
	Status  groupDomain.Status `json:"status"`
}

type GroupDTO struct {
	GroupID      string                           `json:"group_id"`
	Name         string                           `json:"name"`
	Contribution groupDomain.ContributionSettings `json:"contribution"`
	Loans        groupDomain.LoanSettings         `json:"loans"`
	Snapshot     aggregate.Snapshot               `json:"snapshot"`
	CreatedAt    time.Time                        `json:"created_at"`
}

func toDTO(g *groupDomain.Group) GroupDTO {
	return GroupDTO{
		GroupID:      g.GroupID,
		Name:         g.Name,
		Contribution: g.Contribution,
		Loans:        g.Loans,
		Snapshot:     aggregate.SnapshotOf(g),
		CreatedAt:    g.CreatedAt,
	}
}

type MemberDTO struct {
	MemberID string                   `json:"member_id"`
	Role     groupDomain.Role         `json:"role"`
	Status   groupDomain.MemberStatus `json:"status"`
	JoinedAt time.Time                `json:"joined_at"`
}
