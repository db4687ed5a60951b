package aggregate

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/infrastructure/lock"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Mutation changes one group aggregate. It receives repositories bound to the
// transaction and the locked group, applies summary deltas to g, and returns
// the events to publish once the commit is durable.
type Mutation func(r uow.Repos, g *group.Group) ([]event.Event, error)

// Committer is the only path for state changes on a group:
// lock, transaction, optional ledger check, commit, then notify.
type Committer struct {
	tx     uow.UnitOfWork
	locker lock.Locker
	sink   event.Sink
	log    *zap.Logger
	verify bool
}

type CommitterOption func(*Committer)

// WithVerification recomputes the summary inside every transaction and
// rolls back with errs.ErrLedgerDrift when it disagrees with the deltas.
func WithVerification(on bool) CommitterOption {
	return func(c *Committer) { c.verify = on }
}

func WithSink(s event.Sink) CommitterOption {
	return func(c *Committer) { c.sink = s }
}

func WithLogger(l *zap.Logger) CommitterOption {
	return func(c *Committer) { c.log = l }
}

func NewCommitter(tx uow.UnitOfWork, locker lock.Locker, opts ...CommitterOption) *Committer {
	c := &Committer{tx: tx, locker: locker, log: zap.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Commit runs fn under the group's lock and transaction. The returned group
// is the committed state. Events are delivered after commit; delivery
// failures are logged and never undo the commit.
func (c *Committer) Commit(ctx context.Context, groupID string, fn Mutation) (*group.Group, error) {
	release, err := c.locker.Acquire(ctx, groupID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		locked *group.Group
		events []event.Event
	)
	err = c.tx.WithinGroupTx(ctx, groupID, func(r uow.Repos, g *group.Group) error {
		evs, err := fn(r, g)
		if err != nil {
			return err
		}
		if c.verify {
			if err := verifySummary(ctx, r, g); err != nil {
				return err
			}
		}
		events, locked = evs, g
		return nil
	})
	if err != nil {
		return nil, errs.Infra(err)
	}
	// WithinGroupTx bumped locked.Version on commit
	committed := *locked

	c.log.Debug("group committed",
		zap.String("group_id", groupID),
		zap.Int64("version", committed.Version),
		zap.Int("events", len(events)))
	c.publish(context.WithoutCancel(ctx), events)
	return &committed, nil
}

func (c *Committer) publish(ctx context.Context, events []event.Event) {
	if c.sink == nil {
		return
	}
	for _, e := range events {
		if err := c.sink.Notify(ctx, e); err != nil {
			c.log.Warn("event delivery failed",
				zap.String("type", string(e.Type)),
				zap.String("group_id", e.GroupID),
				zap.Error(err))
		}
	}
}

func verifySummary(ctx context.Context, r uow.Repos, g *group.Group) error {
	contribs, err := r.Contributions.ListByGroup(ctx, g.GroupID)
	if err != nil {
		return err
	}
	loans, err := r.Loans.ListByGroup(ctx, g.GroupID)
	if err != nil {
		return err
	}
	if want := Recompute(contribs, loans); !want.Equal(g.Summary) {
		return errs.ErrLedgerDrift.Withf("group %s: incremental %+v, recomputed %+v", g.GroupID, g.Summary, want)
	}
	return nil
}

// Lookup converts a repository read error: a missing record becomes notFound
// with key as detail, anything else is an infrastructure failure.
func Lookup(err error, notFound *errs.Error, key string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound.Withf("%s", key)
	}
	return errs.Infra(err)
}
