package group

import "context"

type Repository interface {
	Create(ctx context.Context, g *Group) error
	GetByGroupID(ctx context.Context, groupID string) (*Group, error)
	// GetByGroupIDForUpdate locks the group row for the rest of the transaction.
	GetByGroupIDForUpdate(ctx context.Context, groupID string) (*Group, error)
	// Update persists g if its Version still matches the stored one and
	// increments Version on success.
	Update(ctx context.Context, g *Group) error
	ListIDsByStatus(ctx context.Context, status Status) ([]string, error)
}

type MemberRepository interface {
	Add(ctx context.Context, m *Membership) error
	Get(ctx context.Context, groupID, memberID string) (*Membership, error)
	Save(ctx context.Context, m *Membership) error
	ListActive(ctx context.Context, groupID string) ([]Membership, error)
}
