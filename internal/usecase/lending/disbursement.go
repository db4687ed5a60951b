package lending

import (
	"context"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/usecase/aggregate"

	"go.uber.org/zap"
)

// ActivateLoan disburses an approved loan. Funds are checked again under the
// group lock; on shortfall the loan stays approved and can be retried.
func (u *Usecase) ActivateLoan(ctx context.Context, in ActivateLoanInput) (*LoanResult, error) {
	current, err := u.loadLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if _, err := aggregate.Authorize(ctx, u.idp, current.GroupID, in.ActorID, group.CanDisburse); err != nil {
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
		if l.State != loan.StateApproved {
			return nil, errs.ErrInvalidTransition.Withf("loan %s is %s, only approved loans can be activated", l.LoanID, l.State)
		}
		if !g.Summary.CanDisburse(l.RequestedAmount) {
			return nil, errs.ErrInsufficientFunds.Withf("available %s, requested %s", g.Summary.AvailableFunds, l.RequestedAmount)
		}
		if err := transition(l, loan.StateActive, now); err != nil {
			return nil, err
		}
		due := now.AddDate(0, 0, l.TermDays)
		l.DisbursedAt = &now
		l.DueDate = &due
		if err := r.Loans.Save(ctx, l); err != nil {
			return nil, err
		}
		g.Summary.ApplyDisbursement(l.RequestedAmount)

		res.Loan = toDTO(l)
		return []event.Event{loanEvent(event.LoanActivated, l, l.BorrowerID, event.Amount(l.RequestedAmount), now)}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	u.log.Info("loan activated",
		zap.String("group_id", current.GroupID),
		zap.String("loan_id", in.LoanID),
		zap.String("available_funds", g.Summary.AvailableFunds.String()))
	return &res, nil
}

// RecordLoanRepayment credits a repayment. The payment that clears the
// balance settles the loan and books its interest.
func (u *Usecase) RecordLoanRepayment(ctx context.Context, in RepaymentInput) (*LoanResult, error) {
	if err := u.validAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	current, err := u.loadLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	if in.ActorID != "" {
		want := group.CanAdminister
		if in.ActorID == current.BorrowerID {
			want = group.CanBorrow
		}
		if _, err := aggregate.Authorize(ctx, u.idp, current.GroupID, in.ActorID, want); err != nil {
			return nil, err
		}
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = u.clock.Now()
	}

	var res LoanResult
	g, err := u.committer.Commit(ctx, current.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		l, err := lockedLoan(ctx, r, in.LoanID)
		if err != nil {
			return nil, err
		}
		if !l.State.Disbursed() {
			return nil, errs.ErrInvalidTransition.Withf("loan %s is %s, repayments need active or overdue", l.LoanID, l.State)
		}
		if l.RepaidAmount.Add(in.Amount).GreaterThan(l.TotalRepayment) {
			return nil, errs.ErrOverpayment.Withf("outstanding %s, paid %s", l.Outstanding(), in.Amount)
		}

		l.RepaidAmount = l.RepaidAmount.Add(in.Amount)
		g.Summary.ApplyRepayment(in.Amount)
		events := []event.Event{loanEvent(event.LoanRepayment, l, l.BorrowerID, event.Amount(in.Amount), paidAt)}

		if l.RepaidAmount.Equal(l.TotalRepayment) {
			if err := transition(l, loan.StateRepaid, paidAt); err != nil {
				return nil, err
			}
			l.RepaidAt = &paidAt
			interest := l.TotalRepayment.Sub(l.RequestedAmount)
			g.Summary.ApplySettlement(l.RequestedAmount, interest)
			events = append(events, loanEvent(event.LoanRepaid, l, l.BorrowerID, event.Amount(interest), paidAt))
		}
		if err := r.Loans.Save(ctx, l); err != nil {
			return nil, err
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

// SweepOverdueLoans marks active loans past their due date with a balance
// left as overdue. Overdue loans still accept repayments.
func (u *Usecase) SweepOverdueLoans(ctx context.Context, groupID string) (int, error) {
	now := u.clock.Now()
	active, err := u.repos.Loans.ListByState(ctx, groupID, loan.StateActive)
	if err != nil {
		return 0, errs.Infra(err)
	}
	due := false
	for i := range active {
		if active[i].PastDue(now) {
			due = true
			break
		}
	}
	if !due {
		return 0, nil
	}

	var marked int
	_, err = u.committer.Commit(ctx, groupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		loans, err := r.Loans.ListByState(ctx, groupID, loan.StateActive)
		if err != nil {
			return nil, err
		}
		var events []event.Event
		for i := range loans {
			l := &loans[i]
			if !l.PastDue(now) {
				continue
			}
			if err := transition(l, loan.StateOverdue, now); err != nil {
				return nil, err
			}
			if err := r.Loans.Save(ctx, l); err != nil {
				return nil, err
			}
			events = append(events, loanEvent(event.LoanOverdue, l, l.BorrowerID, event.Amount(l.Outstanding()), now))
		}
		marked = len(events)
		return events, nil
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		u.log.Info("loans marked overdue", zap.String("group_id", groupID), zap.Int("count", marked))
	}
	return marked, nil
}
