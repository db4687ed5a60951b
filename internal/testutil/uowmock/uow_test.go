package uowmock

import (
	"context"
	"errors"
	"testing"

	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/testutil/loanmock"
)

func TestUoW_WithinTx_Happy(t *testing.T) {
	ctx := context.Background()

	loans := &loanmock.Repo{}
	votes := &loanmock.VoteRepo{}
	repos := uow.Repos{Loans: loans, Votes: votes}

	innerCalled := false
	m := &UoW{
		WithinTxFn: func(gotCtx context.Context, fn func(r uow.Repos) error) error {
			if gotCtx != ctx {
				t.Fatalf("WithinTx: ctx mismatch")
			}
			return fn(repos)
		},
	}

	err := m.WithinTx(ctx, func(r uow.Repos) error {
		innerCalled = true
		if r.Loans != loans || r.Votes != votes {
			t.Fatalf("WithinTx: repos not forwarded correctly")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx: unexpected err: %v", err)
	}
	if !innerCalled {
		t.Fatalf("WithinTx: inner fn not called")
	}
}

func TestUoW_WithinTx_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	m := &UoW{
		WithinTxFn: func(context.Context, func(uow.Repos) error) error { return sentinel },
	}
	if err := m.WithinTx(context.Background(), func(uow.Repos) error { return nil }); !errors.Is(err, sentinel) {
		t.Fatalf("WithinTx: want %v, got %v", sentinel, err)
	}
}

func TestUoW_Defaults_Unimplemented(t *testing.T) {
	ctx := context.Background()
	m := &UoW{}
	if err := m.WithinTx(ctx, func(uow.Repos) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinTx default: want errUnimplemented, got %v", err)
	}
	if err := m.WithinGroupTx(ctx, "G-X", func(uow.Repos, *group.Group) error { return nil }); !errors.Is(err, errUnimplemented) {
		t.Fatalf("WithinGroupTx default: want errUnimplemented, got %v", err)
	}
}

func TestUoW_WithinGroupTx_Happy(t *testing.T) {
	ctx := context.Background()
	repos := uow.Repos{Loans: &loanmock.Repo{}}
	locked := &group.Group{ID: 7, GroupID: "G-7"}

	m := &UoW{
		WithinGroupTxFn: func(_ context.Context, groupID string, fn func(r uow.Repos, g *group.Group) error) error {
			if groupID != "G-7" {
				t.Fatalf("WithinGroupTx: groupID mismatch, got %s", groupID)
			}
			return fn(repos, locked)
		},
	}
	err := m.WithinGroupTx(ctx, "G-7", func(r uow.Repos, g *group.Group) error {
		if g != locked {
			t.Fatalf("WithinGroupTx: group not forwarded: %+v", g)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithinGroupTx: unexpected err: %v", err)
	}
}

func TestFixed_BumpsVersionOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := Fixed(uow.Repos{}, group.Group{Version: 3})

	var seen *group.Group
	if err := m.WithinGroupTx(ctx, "G-1", func(_ uow.Repos, g *group.Group) error {
		seen = g
		return nil
	}); err != nil {
		t.Fatalf("WithinGroupTx: %v", err)
	}
	if seen.GroupID != "G-1" || seen.Version != 4 {
		t.Fatalf("Fixed: want G-1 v4, got %s v%d", seen.GroupID, seen.Version)
	}

	sentinel := errors.New("stop")
	if err := m.WithinGroupTx(ctx, "G-1", func(_ uow.Repos, g *group.Group) error {
		seen = g
		return sentinel
	}); !errors.Is(err, sentinel) {
		t.Fatalf("WithinGroupTx: want %v, got %v", sentinel, err)
	}
	if seen.Version != 3 {
		t.Fatalf("Fixed: failed tx must not bump version, got %d", seen.Version)
	}
}

func TestUoW_FluentSetters_And_Reset(t *testing.T) {
	m := New()
	if m.WithinTxFn != nil || m.WithinGroupTxFn != nil {
		t.Fatalf("New should start with nil funcs")
	}

	m.WithWithinTx(func(context.Context, func(uow.Repos) error) error { return nil }).
		WithWithinGroupTx(func(context.Context, string, func(uow.Repos, *group.Group) error) error { return nil })

	if m.WithinTxFn == nil || m.WithinGroupTxFn == nil {
		t.Fatalf("fluent setters didn't assign funcs")
	}

	m.Reset()
	if m.WithinTxFn != nil || m.WithinGroupTxFn != nil {
		t.Fatalf("Reset should clear function fields")
	}
}
