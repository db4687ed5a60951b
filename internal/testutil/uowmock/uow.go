package uowmock

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"
)

// Ensure compile-time compliance
var _ uow.UnitOfWork = (*UoW)(nil)

var errUnimplemented = errors.New("uowmock: method not implemented")

// UoW is a function-backed mock that satisfies uow.UnitOfWork.
// Fill in the function fields you need in a test; unfilled ones return errUnimplemented.
type UoW struct {
	WithinTxFn      func(ctx context.Context, fn func(r uow.Repos) error) error
	WithinGroupTxFn func(ctx context.Context, groupID string, fn func(r uow.Repos, g *group.Group) error) error
}

// Convenience fluent setters
func New() *UoW { return &UoW{} }
func (m *UoW) WithWithinTx(fn func(context.Context, func(uow.Repos) error) error) *UoW {
	m.WithinTxFn = fn
	return m
}
func (m *UoW) WithWithinGroupTx(fn func(context.Context, string, func(uow.Repos, *group.Group) error) error) *UoW {
	m.WithinGroupTxFn = fn
	return m
}
func (m *UoW) Reset() { *m = UoW{} }

// Fixed runs every group transaction against repos and a copy of g, with no
// locking or version check. Handy for driving mutations in isolation.
func Fixed(repos uow.Repos, g group.Group) *UoW {
	return &UoW{
		WithinTxFn: func(_ context.Context, fn func(uow.Repos) error) error { return fn(repos) },
		WithinGroupTxFn: func(_ context.Context, groupID string, fn func(uow.Repos, *group.Group) error) error {
			cp := g
			cp.GroupID = groupID
			if err := fn(repos, &cp); err != nil {
				return err
			}
			cp.Version++
			return nil
		},
	}
}

// Methods implementing UnitOfWork
func (m *UoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if m.WithinTxFn != nil {
		return m.WithinTxFn(ctx, fn)
	}
	return errUnimplemented
}
func (m *UoW) WithinGroupTx(ctx context.Context, groupID string, fn func(r uow.Repos, g *group.Group) error) error {
	if m.WithinGroupTxFn != nil {
		return m.WithinGroupTxFn(ctx, groupID, fn)
	}
	return errUnimplemented
}
