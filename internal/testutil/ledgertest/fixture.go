// Package ledgertest wires the engine against the in-memory store for usecase
// and handler tests.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"group-savings-engine/internal/adapter/identity"
	"group-savings-engine/internal/adapter/repository/memory"
	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/infrastructure/lock"
	"group-savings-engine/internal/usecase/aggregate"
	"group-savings-engine/pkg/clock"
	"group-savings-engine/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const Manager = "manager"

// Start is the fixture clock's initial time and every seeded group's start date.
var Start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Recorder is an event.Sink that keeps everything it is given.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *Recorder) Notify(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

func (r *Recorder) Types() []event.Type {
	var out []event.Type
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type Fixture struct {
	Store     *memory.Store
	Repos     uow.Repos
	Clock     *clock.Manual
	Sink      *Recorder
	Locker    *lock.Local
	Committer *aggregate.Committer
	IDP       *identity.Ledger
	Log       *zap.Logger
}

// New builds a fixture whose committer verifies every commit against a full
// recompute, so any drift between deltas and records fails the test.
func New(t testing.TB) *Fixture {
	t.Helper()
	f := &Fixture{
		Store:  memory.NewStore(),
		Clock:  clock.NewManual(Start),
		Sink:   &Recorder{},
		Locker: lock.NewLocal(time.Second),
		Log:    zaptest.NewLogger(t),
	}
	f.Repos = f.Store.Repos()
	f.IDP = identity.NewLedger(f.Repos.Members)
	f.Committer = aggregate.NewCommitter(f.Store, f.Locker,
		aggregate.WithVerification(true),
		aggregate.WithSink(f.Sink),
		aggregate.WithLogger(f.Log))
	return f
}

// DefaultGroup is a monthly 10000 group lending 3x contributions at 5% per
// 30 days for up to 90 days, decided by the manager.
func DefaultGroup() group.Group {
	return group.Group{
		Name: "test circle",
		Contribution: group.ContributionSettings{
			Amount:    decimal.NewFromInt(10000),
			Frequency: group.Monthly,
			StartDate: Start,
		},
		Loans: group.LoanSettings{
			Enabled:           true,
			InterestRate:      decimal.NewFromInt(5),
			MaxLoanMultiplier: decimal.NewNullDecimal(decimal.NewFromInt(3)),
			MaxLoanTermDays:   90,
		},
		Summary: group.Summary{
			TotalContributions:  decimal.Zero,
			OutstandingLoans:    decimal.Zero,
			AvailableFunds:      decimal.Zero,
			TotalInterestEarned: decimal.Zero,
		},
		Status: group.StatusActive,
	}
}

// SeedGroup stores g (DefaultGroup when mutate is nil) with Manager and the
// given plain members, all joined at Start. It returns the group id.
func (f *Fixture) SeedGroup(t testing.TB, mutate func(g *group.Group), members ...string) string {
	t.Helper()
	g := DefaultGroup()
	if mutate != nil {
		mutate(&g)
	}
	g.GroupID = id.NewID32()
	ctx := context.Background()
	err := f.Store.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Groups.Create(ctx, &g); err != nil {
			return err
		}
		add := func(memberID string, role group.Role) error {
			return r.Members.Add(ctx, &group.Membership{
				GroupID:  g.GroupID,
				MemberID: memberID,
				Role:     role,
				Status:   group.MemberActive,
				JoinedAt: Start,
			})
		}
		if err := add(Manager, group.RoleManager); err != nil {
			return err
		}
		for _, m := range members {
			if err := add(m, group.RoleMember); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed group: %v", err)
	}
	return g.GroupID
}

// Contribute books a completed contribution of amount for memberID through
// the committer, as a paid-up period record.
func (f *Fixture) Contribute(t testing.TB, groupID, memberID string, amount decimal.Decimal) {
	t.Helper()
	ctx := context.Background()
	_, err := f.Committer.Commit(ctx, groupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		existing, err := r.Contributions.ListByMember(ctx, groupID, memberID)
		if err != nil {
			return nil, err
		}
		paid := f.Clock.Now()
		c := &contribution.Contribution{
			ContributionID: id.NewID32(),
			GroupID:        groupID,
			MemberID:       memberID,
			Period:         len(existing),
			Amount:         amount,
			PaidAmount:     amount,
			DueDate:        paid,
			PaidDate:       &paid,
			Status:         contribution.StatusCompleted,
		}
		if err := r.Contributions.Create(ctx, c); err != nil {
			return nil, err
		}
		g.Summary.ApplyContribution(amount)
		return nil, nil
	})
	if err != nil {
		t.Fatalf("contribute %s for %s: %v", amount, memberID, err)
	}
}

func (f *Fixture) Group(t testing.TB, groupID string) *group.Group {
	t.Helper()
	g, err := f.Repos.Groups.GetByGroupID(context.Background(), groupID)
	if err != nil {
		t.Fatalf("load group %s: %v", groupID, err)
	}
	return g
}

// AssertInSync fails unless the stored summary equals a full recompute.
func (f *Fixture) AssertInSync(t testing.TB, groupID string) {
	t.Helper()
	ctx := context.Background()
	g := f.Group(t, groupID)
	contribs, err := f.Repos.Contributions.ListByGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	loans, err := f.Repos.Loans.ListByGroup(ctx, groupID)
	if err != nil {
		t.Fatalf("list loans: %v", err)
	}
	if want := aggregate.Recompute(contribs, loans); !want.Equal(g.Summary) {
		t.Fatalf("summary drift: stored %s, recomputed %s", describe(g.Summary), describe(want))
	}
	if g.Summary.AvailableFunds.IsNegative() {
		t.Fatalf("available funds went negative: %s", g.Summary.AvailableFunds)
	}
}

func describe(s group.Summary) string {
	return fmt.Sprintf("{contributions=%s outstanding=%s available=%s interest=%s}",
		s.TotalContributions, s.OutstandingLoans, s.AvailableFunds, s.TotalInterestEarned)
}

func D(v int64) decimal.Decimal { return decimal.NewFromInt(v) }
