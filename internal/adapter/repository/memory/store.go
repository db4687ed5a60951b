// Package memory is an in-process ledger store. Transactions run on a copy of
// the state and swap it in on success, so a failed command leaves no trace.
// Data does not survive a restart; use it for development and tests.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/domain/uow"

	"gorm.io/gorm"
)

type state struct {
	nextID        uint64
	groups        map[string]group.Group
	members       map[string]group.Membership
	contributions map[string]contribution.Contribution
	periods       map[string]string // group/member/period -> contribution id
	loans         map[string]loan.Loan
	votes         map[string]loan.Vote // loan/member -> vote
}

func newState() *state {
	return &state{
		groups:        make(map[string]group.Group),
		members:       make(map[string]group.Membership),
		contributions: make(map[string]contribution.Contribution),
		periods:       make(map[string]string),
		loans:         make(map[string]loan.Loan),
		votes:         make(map[string]loan.Vote),
	}
}

// clone copies every record by value. Records hold decimals and time
// pointers that are replaced, never mutated, so a shallow copy is enough.
func (s *state) clone() *state {
	c := &state{
		nextID:        s.nextID,
		groups:        make(map[string]group.Group, len(s.groups)),
		members:       make(map[string]group.Membership, len(s.members)),
		contributions: make(map[string]contribution.Contribution, len(s.contributions)),
		periods:       make(map[string]string, len(s.periods)),
		loans:         make(map[string]loan.Loan, len(s.loans)),
		votes:         make(map[string]loan.Vote, len(s.votes)),
	}
	for k, v := range s.groups {
		c.groups[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.contributions {
		c.contributions[k] = v
	}
	for k, v := range s.periods {
		c.periods[k] = v
	}
	for k, v := range s.loans {
		c.loans[k] = v
	}
	for k, v := range s.votes {
		c.votes[k] = v
	}
	return c
}

func (s *state) id() uint64 {
	s.nextID++
	return s.nextID
}

// access is how repositories reach the state: directly on the store, or on
// a private copy inside a transaction.
type access interface {
	read(fn func(st *state))
	write(fn func(st *state) error) error
}

// Store is safe for concurrent use. Writers are serialized; readers see the
// last committed state.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *state
}

func NewStore() *Store { return &Store{st: newState()} }

func (s *Store) read(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

func (s *Store) write(fn func(st *state) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// txState is owned by a single transaction, no locking needed.
type txState struct{ st *state }

func (t *txState) read(fn func(st *state))              { fn(t.st) }
func (t *txState) write(fn func(st *state) error) error { return fn(t.st) }

// Repos returns repositories that operate on the committed state.
func (s *Store) Repos() uow.Repos { return newRepos(s) }

func newRepos(a access) uow.Repos {
	return uow.Repos{
		Groups:        &GroupRepository{a: a},
		Members:       &MemberRepository{a: a},
		Contributions: &ContributionRepository{a: a},
		Loans:         &LoanRepository{a: a},
		Votes:         &VoteRepository{a: a},
	}
}

var _ uow.UnitOfWork = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	tx := &txState{st: s.st.clone()}
	s.mu.RUnlock()

	if err := fn(newRepos(tx)); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = tx.st
	s.mu.Unlock()
	return nil
}

func (s *Store) WithinGroupTx(ctx context.Context, groupID string, fn func(r uow.Repos, g *group.Group) error) error {
	return s.WithinTx(ctx, func(r uow.Repos) error {
		g, err := r.Groups.GetByGroupIDForUpdate(ctx, groupID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrGroupNotFound.Withf("%s", groupID)
		}
		if err != nil {
			return err
		}
		if err := fn(r, g); err != nil {
			return err
		}
		return r.Groups.Update(ctx, g)
	})
}

func now() time.Time { return time.Now().UTC() }

func sortLoans(ls []loan.Loan) {
	sort.Slice(ls, func(i, j int) bool {
		if !ls[i].RequestedAt.Equal(ls[j].RequestedAt) {
			return ls[i].RequestedAt.Before(ls[j].RequestedAt)
		}
		return ls[i].ID < ls[j].ID
	})
}

func sortContributions(cs []contribution.Contribution) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Period != cs[j].Period {
			return cs[i].Period < cs[j].Period
		}
		return cs[i].MemberID < cs[j].MemberID
	})
}
