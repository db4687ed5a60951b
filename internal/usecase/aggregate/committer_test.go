package aggregate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/infrastructure/lock"
	"group-savings-engine/internal/testutil/groupmock"
	"group-savings-engine/internal/testutil/ledgertest"
	"group-savings-engine/internal/testutil/uowmock"
	"group-savings-engine/internal/usecase/aggregate"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingSink struct{}

func (failingSink) Notify(context.Context, event.Event) error { return errors.New("broker down") }

func TestCommit_PublishesAfterCommit(t *testing.T) {
	f := ledgertest.New(t)
	gid := f.SeedGroup(t, nil)

	g, err := f.Committer.Commit(context.Background(), gid, func(_ uow.Repos, g *group.Group) ([]event.Event, error) {
		g.CycleNumber = 4
		return []event.Event{{Type: event.ContributionDue, GroupID: g.GroupID}}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, g.CycleNumber)
	assert.Equal(t, int64(1), g.Version)
	assert.Equal(t, []event.Type{event.ContributionDue}, f.Sink.Types())

	stored := f.Group(t, gid)
	assert.Equal(t, int64(1), stored.Version)
	assert.Equal(t, 4, stored.CycleNumber)
}

func TestCommit_MutationErrorRollsBack(t *testing.T) {
	f := ledgertest.New(t)
	gid := f.SeedGroup(t, nil)

	_, err := f.Committer.Commit(context.Background(), gid, func(_ uow.Repos, g *group.Group) ([]event.Event, error) {
		g.CycleNumber = 9
		return []event.Event{{Type: event.LoanRequested}}, errs.ErrInsufficientFunds
	})
	require.ErrorIs(t, err, errs.ErrInsufficientFunds)

	stored := f.Group(t, gid)
	assert.Equal(t, 0, stored.CycleNumber)
	assert.Equal(t, int64(0), stored.Version)
	assert.Empty(t, f.Sink.Events())
}

func TestCommit_VerificationCatchesDrift(t *testing.T) {
	f := ledgertest.New(t)
	gid := f.SeedGroup(t, nil)

	_, err := f.Committer.Commit(context.Background(), gid, func(_ uow.Repos, g *group.Group) ([]event.Event, error) {
		// delta without a backing record
		g.Summary.ApplyContribution(ledgertest.D(500))
		return nil, nil
	})
	require.ErrorIs(t, err, errs.ErrLedgerDrift)
	assert.Equal(t, errs.KindInfrastructure, errs.KindOf(err))
	assert.True(t, f.Group(t, gid).Summary.TotalContributions.IsZero())
}

func TestCommit_UnknownGroup(t *testing.T) {
	f := ledgertest.New(t)
	_, err := f.Committer.Commit(context.Background(), "missing", func(uow.Repos, *group.Group) ([]event.Event, error) {
		t.Fatal("mutation must not run")
		return nil, nil
	})
	require.ErrorIs(t, err, errs.ErrGroupNotFound)
}

func TestCommit_SinkFailureIsLoggedNotReturned(t *testing.T) {
	f := ledgertest.New(t)
	gid := f.SeedGroup(t, nil)
	core, logs := observer.New(zapcore.WarnLevel)
	c := aggregate.NewCommitter(f.Store, f.Locker,
		aggregate.WithSink(failingSink{}),
		aggregate.WithLogger(zap.New(core)))

	_, err := c.Commit(context.Background(), gid, func(_ uow.Repos, g *group.Group) ([]event.Event, error) {
		return []event.Event{{Type: event.LoanApproved, GroupID: g.GroupID}}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("event delivery failed").Len())
	assert.Equal(t, int64(1), f.Group(t, gid).Version)
}

func TestCommit_BusyWhenLockHeld(t *testing.T) {
	f := ledgertest.New(t)
	gid := f.SeedGroup(t, nil)
	locker := lock.NewLocal(20 * time.Millisecond)
	c := aggregate.NewCommitter(f.Store, locker)

	release, err := locker.Acquire(context.Background(), gid)
	require.NoError(t, err)
	defer release()

	_, err = c.Commit(context.Background(), gid, func(uow.Repos, *group.Group) ([]event.Event, error) {
		t.Fatal("mutation must not run while the lock is held")
		return nil, nil
	})
	require.ErrorIs(t, err, errs.ErrBusy)
}

func TestCommit_StoreFailureIsUnavailable(t *testing.T) {
	boom := errors.New("connection reset")
	tx := uowmock.New().WithWithinGroupTx(func(context.Context, string, func(uow.Repos, *group.Group) error) error {
		return boom
	})
	c := aggregate.NewCommitter(tx, lock.NewLocal(time.Second))

	_, err := c.Commit(context.Background(), "G-1", func(uow.Repos, *group.Group) ([]event.Event, error) { return nil, nil })
	require.ErrorIs(t, err, errs.ErrUnavailable)
	require.ErrorIs(t, err, boom)
}

func TestCommit_WithFixedUoW(t *testing.T) {
	g := ledgertest.DefaultGroup()
	g.Version = 7
	members := &groupmock.MemberRepo{}
	c := aggregate.NewCommitter(uowmock.Fixed(uow.Repos{Members: members}, g), lock.NewLocal(time.Second))

	got, err := c.Commit(context.Background(), "G-1", func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		assert.Same(t, members, r.Members)
		g.Status = group.StatusSuspended
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "G-1", got.GroupID)
	assert.Equal(t, group.StatusSuspended, got.Status)
	assert.Equal(t, int64(8), got.Version)
}
