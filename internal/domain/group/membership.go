package group

import (
	"context"
	"time"
)

type Role string

const (
	RoleMember  Role = "member"
	RoleManager Role = "manager"
)

func (r Role) Valid() bool { return r == RoleMember || r == RoleManager }

type MemberStatus string

const (
	MemberActive   MemberStatus = "active"
	MemberInactive MemberStatus = "inactive"
)

// Capability is a bit set of actions a membership grants.
type Capability uint8

const (
	CanContribute Capability = 1 << iota
	CanBorrow
	CanVote
	CanDecide
	CanDisburse
	CanAdminister
)

func (c Capability) Has(want Capability) bool { return c&want == want }

var roleCapabilities = map[Role]Capability{
	RoleMember:  CanContribute | CanBorrow | CanVote,
	RoleManager: CanContribute | CanBorrow | CanVote | CanDecide | CanDisburse | CanAdminister,
}

// Table: memberships (person <-> group edge)
type Membership struct {
	ID        uint64       `gorm:"primaryKey;column:id" json:"-"`
	GroupID   string       `gorm:"size:32;uniqueIndex:ux_memberships_group_member" json:"group_id"`
	MemberID  string       `gorm:"size:64;uniqueIndex:ux_memberships_group_member" json:"member_id"`
	Role      Role         `gorm:"size:16" json:"role"`
	Status    MemberStatus `gorm:"size:16" json:"status"`
	JoinedAt  time.Time    `json:"joined_at"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Membership) TableName() string { return "memberships" }

func (m *Membership) Active() bool { return m.Status == MemberActive }

// Capabilities is empty for inactive memberships.
func (m *Membership) Capabilities() Capability {
	if !m.Active() {
		return 0
	}
	return roleCapabilities[m.Role]
}

// IdentityProvider resolves who a member is within a group.
type IdentityProvider interface {
	ResolveMember(ctx context.Context, groupID, memberID string) (*Membership, error)
}
