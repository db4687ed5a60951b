package memory

import (
	"context"
	"fmt"
	"sort"

	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"

	"gorm.io/gorm"
)

// Lookups report gorm.ErrRecordNotFound and unique violations
// gorm.ErrDuplicatedKey, the same as the gorm repositories.

func memberKey(groupID, memberID string) string { return groupID + "/" + memberID }

func periodKey(groupID, memberID string, period int) string {
	return fmt.Sprintf("%s/%s/%d", groupID, memberID, period)
}

type GroupRepository struct{ a access }

func (r *GroupRepository) Create(_ context.Context, g *group.Group) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.groups[g.GroupID]; ok {
			return gorm.ErrDuplicatedKey
		}
		g.ID = st.id()
		g.CreatedAt, g.UpdatedAt = now(), now()
		st.groups[g.GroupID] = *g
		return nil
	})
}

func (r *GroupRepository) GetByGroupID(_ context.Context, groupID string) (*group.Group, error) {
	var (
		out group.Group
		ok  bool
	)
	r.a.read(func(st *state) { out, ok = st.groups[groupID] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

// GetByGroupIDForUpdate needs no lock: transactions are already serialized.
func (r *GroupRepository) GetByGroupIDForUpdate(ctx context.Context, groupID string) (*group.Group, error) {
	return r.GetByGroupID(ctx, groupID)
}

func (r *GroupRepository) Update(_ context.Context, g *group.Group) error {
	return r.a.write(func(st *state) error {
		cur, ok := st.groups[g.GroupID]
		if !ok || cur.Version != g.Version {
			return errs.ErrVersionConflict.Withf("group %s at version %d", g.GroupID, g.Version)
		}
		g.Version++
		g.UpdatedAt = now()
		g.ID, g.CreatedAt = cur.ID, cur.CreatedAt
		st.groups[g.GroupID] = *g
		return nil
	})
}

func (r *GroupRepository) ListIDsByStatus(_ context.Context, status group.Status) ([]string, error) {
	var gs []group.Group
	r.a.read(func(st *state) {
		for _, g := range st.groups {
			if g.Status == status {
				gs = append(gs, g)
			}
		}
	})
	sort.Slice(gs, func(i, j int) bool { return gs[i].ID < gs[j].ID })
	ids := make([]string, 0, len(gs))
	for _, g := range gs {
		ids = append(ids, g.GroupID)
	}
	return ids, nil
}

type MemberRepository struct{ a access }

func (r *MemberRepository) Add(_ context.Context, m *group.Membership) error {
	return r.a.write(func(st *state) error {
		k := memberKey(m.GroupID, m.MemberID)
		if _, ok := st.members[k]; ok {
			return gorm.ErrDuplicatedKey
		}
		m.ID = st.id()
		m.CreatedAt, m.UpdatedAt = now(), now()
		st.members[k] = *m
		return nil
	})
}

func (r *MemberRepository) Get(_ context.Context, groupID, memberID string) (*group.Membership, error) {
	var (
		out group.Membership
		ok  bool
	)
	r.a.read(func(st *state) { out, ok = st.members[memberKey(groupID, memberID)] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (r *MemberRepository) Save(_ context.Context, m *group.Membership) error {
	return r.a.write(func(st *state) error {
		m.UpdatedAt = now()
		st.members[memberKey(m.GroupID, m.MemberID)] = *m
		return nil
	})
}

func (r *MemberRepository) ListActive(_ context.Context, groupID string) ([]group.Membership, error) {
	var out []group.Membership
	r.a.read(func(st *state) {
		for _, m := range st.members {
			if m.GroupID == groupID && m.Active() {
				out = append(out, m)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type ContributionRepository struct{ a access }

func (r *ContributionRepository) Create(_ context.Context, c *contribution.Contribution) error {
	return r.a.write(func(st *state) error {
		pk := periodKey(c.GroupID, c.MemberID, c.Period)
		if _, ok := st.periods[pk]; ok {
			return gorm.ErrDuplicatedKey
		}
		if _, ok := st.contributions[c.ContributionID]; ok {
			return gorm.ErrDuplicatedKey
		}
		c.ID = st.id()
		c.CreatedAt, c.UpdatedAt = now(), now()
		st.contributions[c.ContributionID] = *c
		st.periods[pk] = c.ContributionID
		return nil
	})
}

func (r *ContributionRepository) GetByContributionID(_ context.Context, contributionID string) (*contribution.Contribution, error) {
	var (
		out contribution.Contribution
		ok  bool
	)
	r.a.read(func(st *state) { out, ok = st.contributions[contributionID] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (r *ContributionRepository) GetByPeriod(_ context.Context, groupID, memberID string, period int) (*contribution.Contribution, error) {
	var (
		out contribution.Contribution
		ok  bool
	)
	r.a.read(func(st *state) {
		var id string
		if id, ok = st.periods[periodKey(groupID, memberID, period)]; ok {
			out = st.contributions[id]
		}
	})
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (r *ContributionRepository) Save(_ context.Context, c *contribution.Contribution) error {
	return r.a.write(func(st *state) error {
		c.UpdatedAt = now()
		st.contributions[c.ContributionID] = *c
		return nil
	})
}

func (r *ContributionRepository) list(match func(c *contribution.Contribution) bool) []contribution.Contribution {
	var out []contribution.Contribution
	r.a.read(func(st *state) {
		for _, c := range st.contributions {
			if match(&c) {
				out = append(out, c)
			}
		}
	})
	sortContributions(out)
	return out
}

func (r *ContributionRepository) ListByGroup(_ context.Context, groupID string) ([]contribution.Contribution, error) {
	return r.list(func(c *contribution.Contribution) bool { return c.GroupID == groupID }), nil
}

func (r *ContributionRepository) ListByMember(_ context.Context, groupID, memberID string) ([]contribution.Contribution, error) {
	return r.list(func(c *contribution.Contribution) bool {
		return c.GroupID == groupID && c.MemberID == memberID
	}), nil
}

func (r *ContributionRepository) ListByStatus(_ context.Context, groupID string, statuses ...contribution.Status) ([]contribution.Contribution, error) {
	return r.list(func(c *contribution.Contribution) bool {
		if c.GroupID != groupID {
			return false
		}
		for _, s := range statuses {
			if c.Status == s {
				return true
			}
		}
		return false
	}), nil
}

type LoanRepository struct{ a access }

func (r *LoanRepository) Create(_ context.Context, l *loan.Loan) error {
	return r.a.write(func(st *state) error {
		if _, ok := st.loans[l.LoanID]; ok {
			return gorm.ErrDuplicatedKey
		}
		l.ID = st.id()
		l.CreatedAt, l.UpdatedAt = now(), now()
		st.loans[l.LoanID] = *l
		return nil
	})
}

func (r *LoanRepository) GetByLoanID(_ context.Context, loanID string) (*loan.Loan, error) {
	var (
		out loan.Loan
		ok  bool
	)
	r.a.read(func(st *state) { out, ok = st.loans[loanID] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (r *LoanRepository) Save(_ context.Context, l *loan.Loan) error {
	return r.a.write(func(st *state) error {
		l.UpdatedAt = now()
		st.loans[l.LoanID] = *l
		return nil
	})
}

func (r *LoanRepository) list(match func(l *loan.Loan) bool) []loan.Loan {
	var out []loan.Loan
	r.a.read(func(st *state) {
		for _, l := range st.loans {
			if match(&l) {
				out = append(out, l)
			}
		}
	})
	sortLoans(out)
	return out
}

func (r *LoanRepository) ListByGroup(_ context.Context, groupID string) ([]loan.Loan, error) {
	return r.list(func(l *loan.Loan) bool { return l.GroupID == groupID }), nil
}

func (r *LoanRepository) ListByState(_ context.Context, groupID string, states ...loan.State) ([]loan.Loan, error) {
	return r.list(func(l *loan.Loan) bool {
		if l.GroupID != groupID {
			return false
		}
		for _, s := range states {
			if l.State == s {
				return true
			}
		}
		return false
	}), nil
}

func (r *LoanRepository) GetOpenByBorrower(_ context.Context, groupID, borrowerID string) (*loan.Loan, error) {
	open := r.list(func(l *loan.Loan) bool {
		return l.GroupID == groupID && l.BorrowerID == borrowerID && l.State.Open()
	})
	if len(open) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	newest := open[0]
	for _, l := range open[1:] {
		if l.StateUpdatedAt.After(newest.StateUpdatedAt) ||
			(l.StateUpdatedAt.Equal(newest.StateUpdatedAt) && l.ID > newest.ID) {
			newest = l
		}
	}
	return &newest, nil
}

type VoteRepository struct{ a access }

func (r *VoteRepository) Create(_ context.Context, v *loan.Vote) error {
	return r.a.write(func(st *state) error {
		k := memberKey(v.LoanID, v.MemberID)
		if _, ok := st.votes[k]; ok {
			return errs.ErrDuplicateVote.Withf("member %s on loan %s", v.MemberID, v.LoanID)
		}
		v.ID = st.id()
		v.CreatedAt = now()
		st.votes[k] = *v
		return nil
	})
}

func (r *VoteRepository) ListByLoan(_ context.Context, loanID string) ([]loan.Vote, error) {
	var out []loan.Vote
	r.a.read(func(st *state) {
		for _, v := range st.votes {
			if v.LoanID == loanID {
				out = append(out, v)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CastAt.Equal(out[j].CastAt) {
			return out[i].CastAt.Before(out[j].CastAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
