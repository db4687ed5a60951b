package groupmock

import (
	"context"

	domain "group-savings-engine/internal/domain/group"

	"gorm.io/gorm"
)

var (
	_ domain.Repository       = (*Repo)(nil)
	_ domain.MemberRepository = (*MemberRepo)(nil)
	_ domain.IdentityProvider = IdentityFunc(nil)
)

// Repo is a function-backed mock that satisfies domain.Repository.
type Repo struct {
	CreateFn                func(ctx context.Context, g *domain.Group) error
	GetByGroupIDFn          func(ctx context.Context, groupID string) (*domain.Group, error)
	GetByGroupIDForUpdateFn func(ctx context.Context, groupID string) (*domain.Group, error)
	UpdateFn                func(ctx context.Context, g *domain.Group) error
	ListIDsByStatusFn       func(ctx context.Context, status domain.Status) ([]string, error)
}

func (m *Repo) Create(ctx context.Context, g *domain.Group) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, g)
	}
	return nil
}

func (m *Repo) GetByGroupID(ctx context.Context, groupID string) (*domain.Group, error) {
	if m.GetByGroupIDFn != nil {
		return m.GetByGroupIDFn(ctx, groupID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) GetByGroupIDForUpdate(ctx context.Context, groupID string) (*domain.Group, error) {
	if m.GetByGroupIDForUpdateFn != nil {
		return m.GetByGroupIDForUpdateFn(ctx, groupID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) Update(ctx context.Context, g *domain.Group) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, g)
	}
	return nil
}

func (m *Repo) ListIDsByStatus(ctx context.Context, status domain.Status) ([]string, error) {
	if m.ListIDsByStatusFn != nil {
		return m.ListIDsByStatusFn(ctx, status)
	}
	return nil, nil
}

// MemberRepo is a function-backed mock that satisfies domain.MemberRepository.
type MemberRepo struct {
	AddFn        func(ctx context.Context, mb *domain.Membership) error
	GetFn        func(ctx context.Context, groupID, memberID string) (*domain.Membership, error)
	SaveFn       func(ctx context.Context, mb *domain.Membership) error
	ListActiveFn func(ctx context.Context, groupID string) ([]domain.Membership, error)
}

func (m *MemberRepo) Add(ctx context.Context, mb *domain.Membership) error {
	if m.AddFn != nil {
		return m.AddFn(ctx, mb)
	}
	return nil
}

func (m *MemberRepo) Get(ctx context.Context, groupID, memberID string) (*domain.Membership, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, groupID, memberID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MemberRepo) Save(ctx context.Context, mb *domain.Membership) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, mb)
	}
	return nil
}

func (m *MemberRepo) ListActive(ctx context.Context, groupID string) ([]domain.Membership, error) {
	if m.ListActiveFn != nil {
		return m.ListActiveFn(ctx, groupID)
	}
	return nil, nil
}

// IdentityFunc adapts a function to domain.IdentityProvider.
type IdentityFunc func(ctx context.Context, groupID, memberID string) (*domain.Membership, error)

func (f IdentityFunc) ResolveMember(ctx context.Context, groupID, memberID string) (*domain.Membership, error) {
	return f(ctx, groupID, memberID)
}

// Roles resolves every member listed in roles as active with that role.
// Anyone else is not found.
func Roles(roles map[string]domain.Role) IdentityFunc {
	return func(_ context.Context, groupID, memberID string) (*domain.Membership, error) {
		r, ok := roles[memberID]
		if !ok {
			return nil, gorm.ErrRecordNotFound
		}
		return &domain.Membership{GroupID: groupID, MemberID: memberID, Role: r, Status: domain.MemberActive}, nil
	}
}
