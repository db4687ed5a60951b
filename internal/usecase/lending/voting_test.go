package lending_test

import (
	"context"
	"testing"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/testutil/ledgertest"
	"group-savings-engine/internal/usecase/lending"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func voting(g *group.Group) { g.Loans.RequiresVoting = true }

func vote(t *testing.T, uc *lending.Usecase, loanID, member string, c loan.Choice) *lending.LoanResult {
	t.Helper()
	res, err := uc.CastVote(context.Background(), lending.CastVoteInput{LoanID: loanID, MemberID: member, Choice: c})
	require.NoError(t, err)
	return res
}

// Five members, majority of three: the third approval decides.
func TestScenario_MajorityVoteApproves(t *testing.T) {
	f, uc, gid := newLending(t, voting, "alice", "bob", "carol", "dave")
	f.Contribute(t, gid, "alice", ledgertest.D(10000))
	ctx := context.Background()

	req := request(t, uc, gid, "alice", 10000, 30)
	require.Equal(t, loan.StateVoting, req.Loan.State)
	require.NotNil(t, req.Tally)
	assert.Equal(t, 3, req.Tally.Threshold)
	assert.Equal(t, 4, req.Tally.Eligible)
	id := req.Loan.LoanID

	_, err := uc.CastVote(ctx, lending.CastVoteInput{LoanID: id, MemberID: "alice", Choice: loan.ChoiceApprove})
	require.ErrorIs(t, err, errs.ErrSelfVoteForbidden)

	res := vote(t, uc, id, "bob", loan.ChoiceApprove)
	assert.Equal(t, loan.StateVoting, res.Loan.State)
	_, err = uc.CastVote(ctx, lending.CastVoteInput{LoanID: id, MemberID: "bob", Choice: loan.ChoiceReject})
	require.ErrorIs(t, err, errs.ErrDuplicateVote)

	vote(t, uc, id, "carol", loan.ChoiceApprove)
	res = vote(t, uc, id, ledgertest.Manager, loan.ChoiceApprove)
	assert.Equal(t, loan.StateApproved, res.Loan.State)
	require.NotNil(t, res.Loan.DecisionAt)
	assert.Equal(t, 3, res.Tally.Approve)

	_, err = uc.CastVote(ctx, lending.CastVoteInput{LoanID: id, MemberID: "dave", Choice: loan.ChoiceApprove})
	require.ErrorIs(t, err, errs.ErrLoanNotVoting)

	votes, err := uc.ListVotes(ctx, id)
	require.NoError(t, err)
	assert.Len(t, votes, 3)

	assert.Contains(t, f.Sink.Types(), event.LoanApproved)
	f.AssertInSync(t, gid)
}

func TestCastVote_RejectMajority(t *testing.T) {
	f, uc, gid := newLending(t, voting, "alice", "bob", "carol", "dave")
	f.Contribute(t, gid, "alice", ledgertest.D(10000))
	id := request(t, uc, gid, "alice", 10000, 30).Loan.LoanID

	vote(t, uc, id, "bob", loan.ChoiceReject)
	vote(t, uc, id, "carol", loan.ChoiceApprove)
	vote(t, uc, id, "dave", loan.ChoiceReject)
	res := vote(t, uc, id, ledgertest.Manager, loan.ChoiceReject)
	assert.Equal(t, loan.StateRejected, res.Loan.State)

	// a rejected loan no longer blocks a new request
	request(t, uc, gid, "alice", 5000, 30)
}

func TestCastVote_Ties(t *testing.T) {
	for _, tc := range []struct {
		name        string
		tiesApprove bool
		want        loan.State
	}{
		{"reject by default", false, loan.StateRejected},
		{"approve when configured", true, loan.StateApproved},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f, uc, gid := newLending(t, func(g *group.Group) {
				g.Loans.RequiresVoting = true
				g.Loans.VoteThreshold = 2
				g.Loans.TiesApprove = tc.tiesApprove
			}, "alice", "bob")
			f.Contribute(t, gid, "alice", ledgertest.D(10000))
			id := request(t, uc, gid, "alice", 1000, 30).Loan.LoanID

			res := vote(t, uc, id, "bob", loan.ChoiceApprove)
			assert.Equal(t, loan.StateVoting, res.Loan.State)
			res = vote(t, uc, id, ledgertest.Manager, loan.ChoiceReject)
			assert.Equal(t, tc.want, res.Loan.State)
		})
	}
}

func TestRequestLoan_NoEligibleVotersResolvesImmediately(t *testing.T) {
	f, uc, gid := newLending(t, func(g *group.Group) {
		g.Loans.RequiresVoting = true
		g.Loans.TiesApprove = true
	})
	f.Contribute(t, gid, ledgertest.Manager, ledgertest.D(10000))

	res := request(t, uc, gid, ledgertest.Manager, 1000, 30)
	assert.Equal(t, loan.StateApproved, res.Loan.State)
	assert.Equal(t, 0, res.Tally.Eligible)
	assert.Equal(t, []event.Type{event.LoanRequested, event.LoanApproved}, f.Sink.Types())
}

func TestCastVote_Guards(t *testing.T) {
	f, uc, gid := newLending(t, voting, "alice", "bob")
	f.Contribute(t, gid, "alice", ledgertest.D(10000))
	ctx := context.Background()
	id := request(t, uc, gid, "alice", 1000, 30).Loan.LoanID

	_, err := uc.CastVote(ctx, lending.CastVoteInput{LoanID: id, MemberID: "bob", Choice: "maybe"})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = uc.CastVote(ctx, lending.CastVoteInput{LoanID: id, MemberID: "stranger", Choice: loan.ChoiceApprove})
	require.ErrorIs(t, err, errs.ErrNotMember)
	_, err = uc.CastVote(ctx, lending.CastVoteInput{LoanID: "missing", MemberID: "bob", Choice: loan.ChoiceApprove})
	require.ErrorIs(t, err, errs.ErrLoanNotFound)

	_, err = uc.DecideLoan(ctx, lending.DecideLoanInput{LoanID: id, ApproverID: ledgertest.Manager, Approve: true})
	require.ErrorIs(t, err, errs.ErrInvalidTransition, "voting loans are not decided directly")
}

func TestDecideLoan(t *testing.T) {
	f, uc, gid := newLending(t, nil, "alice", "bob")
	f.Contribute(t, gid, "alice", ledgertest.D(10000))
	f.Contribute(t, gid, ledgertest.Manager, ledgertest.D(10000))
	ctx := context.Background()
	id := request(t, uc, gid, "alice", 1000, 30).Loan.LoanID

	_, err := uc.DecideLoan(ctx, lending.DecideLoanInput{LoanID: id, ApproverID: "bob", Approve: true})
	require.ErrorIs(t, err, errs.ErrForbidden)

	res, err := uc.DecideLoan(ctx, lending.DecideLoanInput{LoanID: id, ApproverID: ledgertest.Manager})
	require.NoError(t, err)
	assert.Equal(t, loan.StateRejected, res.Loan.State)
	assert.Equal(t, ledgertest.Manager, res.Loan.DecidedBy)

	_, err = uc.DecideLoan(ctx, lending.DecideLoanInput{LoanID: id, ApproverID: ledgertest.Manager, Approve: true})
	require.ErrorIs(t, err, errs.ErrInvalidTransition)

	own := request(t, uc, gid, ledgertest.Manager, 1000, 30).Loan.LoanID
	_, err = uc.DecideLoan(ctx, lending.DecideLoanInput{LoanID: own, ApproverID: ledgertest.Manager, Approve: true})
	require.ErrorIs(t, err, errs.ErrSelfVoteForbidden)
}
