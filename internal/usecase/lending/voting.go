package lending

import (
	"context"
	"time"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/usecase/aggregate"
)

// votingPolicy counts votes against the active members other than the borrower.
func votingPolicy(g *group.Group, l *loan.Loan, active []group.Membership, votes []loan.Vote) (loan.VotePolicy, loan.Tally) {
	var t loan.Tally
	for _, m := range active {
		if m.MemberID != l.BorrowerID {
			t.Eligible++
		}
	}
	for _, v := range votes {
		switch v.Choice {
		case loan.ChoiceApprove:
			t.Approve++
		case loan.ChoiceReject:
			t.Reject++
		}
	}
	p := loan.NewVotePolicy(g.Loans.VoteThreshold, len(active), t.Eligible, g.Loans.TiesApprove)
	return p, t
}

func tallyDTO(t loan.Tally, p loan.VotePolicy) *TallyDTO {
	return &TallyDTO{Approve: t.Approve, Reject: t.Reject, Eligible: t.Eligible, Threshold: p.Threshold}
}

func decisionEvent(l *loan.Loan, at time.Time) event.Event {
	t := event.LoanRejected
	if l.State == loan.StateApproved {
		t = event.LoanApproved
	}
	return loanEvent(t, l, l.DecidedBy, event.Amount(l.RequestedAmount), at)
}

// CastVote records a member's vote. The vote that reaches the threshold, or
// the last outstanding one, decides the loan in the same commit.
func (u *Usecase) CastVote(ctx context.Context, in CastVoteInput) (*LoanResult, error) {
	if !in.Choice.Valid() {
		return nil, errs.Invalid("choice must be approve or reject")
	}
	current, err := u.loadLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if _, err := aggregate.Authorize(ctx, u.idp, current.GroupID, in.MemberID, group.CanVote); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	var res LoanResult
	g, err := u.committer.Commit(ctx, current.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		if err := aggregate.RequireActive(g); err != nil {
			return nil, err
		}
		l, err := lockedLoan(ctx, r, in.LoanID)
		if err != nil {
			return nil, err
		}
		if l.State != loan.StateVoting {
			return nil, errs.ErrLoanNotVoting.Withf("loan %s is %s", l.LoanID, l.State)
		}
		if in.MemberID == l.BorrowerID {
			return nil, errs.ErrSelfVoteForbidden.Withf("%s", in.MemberID)
		}
		if err := r.Votes.Create(ctx, &loan.Vote{
			LoanID:   l.LoanID,
			MemberID: in.MemberID,
			Choice:   in.Choice,
			CastAt:   now,
		}); err != nil {
			return nil, err
		}

		votes, err := r.Votes.ListByLoan(ctx, l.LoanID)
		if err != nil {
			return nil, err
		}
		active, err := r.Members.ListActive(ctx, g.GroupID)
		if err != nil {
			return nil, err
		}
		policy, tally := votingPolicy(g, l, active, votes)
		res.Tally = tallyDTO(tally, policy)

		events := []event.Event{loanEvent(event.LoanVoteCast, l, in.MemberID, nil, now)}
		if decided, ok := policy.Resolve(tally); ok {
			if err := transition(l, decided, now); err != nil {
				return nil, err
			}
			l.DecisionAt = &now
			if err := r.Loans.Save(ctx, l); err != nil {
				return nil, err
			}
			events = append(events, decisionEvent(l, now))
		}
		res.Loan = toDTO(l)
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	return &res, nil
}

// DecideLoan is the manager's direct decision on a loan that does not go to a vote.
func (u *Usecase) DecideLoan(ctx context.Context, in DecideLoanInput) (*LoanResult, error) {
	current, err := u.loadLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if _, err := aggregate.Authorize(ctx, u.idp, current.GroupID, in.ApproverID, group.CanDecide); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	var res LoanResult
	g, err := u.committer.Commit(ctx, current.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		if err := aggregate.RequireActive(g); err != nil {
			return nil, err
		}
		l, err := lockedLoan(ctx, r, in.LoanID)
		if err != nil {
			return nil, err
		}
		if l.State != loan.StatePending {
			return nil, errs.ErrInvalidTransition.Withf("loan %s is %s, direct decisions need pending", l.LoanID, l.State)
		}
		if in.ApproverID == l.BorrowerID {
			return nil, errs.ErrSelfVoteForbidden.Withf("%s", in.ApproverID)
		}
		to := loan.StateRejected
		if in.Approve {
			to = loan.StateApproved
		}
		if err := transition(l, to, now); err != nil {
			return nil, err
		}
		l.DecisionAt = &now
		l.DecidedBy = in.ApproverID
		if err := r.Loans.Save(ctx, l); err != nil {
			return nil, err
		}
		res.Loan = toDTO(l)
		return []event.Event{decisionEvent(l, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	return &res, nil
}

func (u *Usecase) ListVotes(ctx context.Context, loanID string) ([]VoteDTO, error) {
	if _, err := u.loadLoan(ctx, loanID); err != nil {
		return nil, err
	}
	votes, err := u.repos.Votes.ListByLoan(ctx, loanID)
	if err != nil {
		return nil, errs.Infra(err)
	}
	out := make([]VoteDTO, 0, len(votes))
	for _, v := range votes {
		out = append(out, VoteDTO{MemberID: v.MemberID, Choice: v.Choice, CastAt: v.CastAt})
	}
	return out, nil
}
