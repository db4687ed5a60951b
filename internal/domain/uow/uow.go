package uow

import (
	"context"

	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
)

// Repos bundles the ledger repositories. Inside a transaction every repo is
// bound to it; outside, each call runs on its own.
type Repos struct {
	Groups        group.Repository
	Members       group.MemberRepository
	Contributions contribution.Repository
	Loans         loan.Repository
	Votes         loan.VoteRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinGroupTx locks the group aggregate, passes it to fn and, when fn
	// succeeds, commits g with a version check. Returns errs.ErrGroupNotFound
	// for unknown groups and errs.ErrVersionConflict if g changed underneath.
	WithinGroupTx(ctx context.Context, groupID string, fn func(r Repos, g *group.Group) error) error
}
