package lending_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/testutil/ledgertest"
	"group-savings-engine/internal/usecase/lending"

	"github.com/stretchr/testify/require"
)

// Random command sequences must keep the incrementally maintained summary
// equal to a full recompute. The fixture's committer verifies every commit,
// so any drift surfaces as ErrLedgerDrift on the offending command.
func TestLedger_RandomCommandsStayInSync(t *testing.T) {
	members := []string{ledgertest.Manager, "alice", "bob", "carol"}

	for seed := int64(1); seed <= 5; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f, uc, gid := newLending(t, func(g *group.Group) {
			g.Loans.RequiresVoting = seed%2 == 0
		}, members[1:]...)
		ctx := context.Background()

		pick := func() string { return members[rng.Intn(len(members))] }
		loansOf := func(states ...loan.State) []loan.Loan {
			ls, err := f.Repos.Loans.ListByState(ctx, gid, states...)
			require.NoError(t, err)
			return ls
		}

		for step := 0; step < 200; step++ {
			// policy refusals are expected; infrastructure failures are not
			check := func(err error) {
				if err != nil {
					require.NotEqual(t, errs.KindInfrastructure, errs.KindOf(err), "seed %d step %d: %v", seed, step, err)
				}
			}
			var err error
			switch rng.Intn(7) {
			case 0:
				f.Contribute(t, gid, pick(), ledgertest.D(int64(1+rng.Intn(20))*1000))
			case 1:
				_, err = uc.RequestLoan(ctx, lending.RequestLoanInput{
					GroupID:  gid,
					MemberID: pick(),
					Amount:   ledgertest.D(int64(1+rng.Intn(40)) * 500),
					TermDays: 1 + rng.Intn(90),
				})
			case 2:
				if ls := loansOf(loan.StatePending); len(ls) > 0 {
					_, err = uc.DecideLoan(ctx, lending.DecideLoanInput{
						LoanID:     ls[rng.Intn(len(ls))].LoanID,
						ApproverID: ledgertest.Manager,
						Approve:    rng.Intn(4) > 0,
					})
					check(err)
				}
				if ls := loansOf(loan.StateVoting); len(ls) > 0 {
					choice := loan.ChoiceApprove
					if rng.Intn(3) == 0 {
						choice = loan.ChoiceReject
					}
					_, err = uc.CastVote(ctx, lending.CastVoteInput{LoanID: ls[rng.Intn(len(ls))].LoanID, MemberID: pick(), Choice: choice})
				}
			case 3:
				if ls := loansOf(loan.StateApproved); len(ls) > 0 {
					_, err = uc.ActivateLoan(ctx, lending.ActivateLoanInput{LoanID: ls[rng.Intn(len(ls))].LoanID, ActorID: ledgertest.Manager})
				}
			case 4, 5:
				if ls := loansOf(loan.StateActive, loan.StateOverdue); len(ls) > 0 {
					l := ls[rng.Intn(len(ls))]
					amount := l.Outstanding()
					if rng.Intn(2) == 0 {
						amount = ledgertest.D(int64(1 + rng.Intn(int(amount.IntPart()))))
					}
					_, err = uc.RecordLoanRepayment(ctx, lending.RepaymentInput{LoanID: l.LoanID, Amount: amount})
				}
			case 6:
				f.Clock.Advance(time.Duration(1+rng.Intn(20)) * 24 * time.Hour)
				_, err = uc.SweepOverdueLoans(ctx, gid)
				check(err)
				if ls := loansOf(loan.StatePending, loan.StateVoting); err == nil && len(ls) > 0 && rng.Intn(3) == 0 {
					_, err = uc.CancelLoan(ctx, lending.CancelLoanInput{LoanID: ls[0].LoanID, ActorID: ledgertest.Manager})
				}
			}
			check(err)
		}
		f.AssertInSync(t, gid)
	}
}
