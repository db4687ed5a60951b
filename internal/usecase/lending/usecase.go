package lending

import (
	"context"
	"errors"
	"time"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/finance"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/usecase/aggregate"
	"group-savings-engine/pkg/clock"
	"group-savings-engine/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Usecase runs the loan lifecycle: request, decision (direct or by vote),
// disbursement, repayment and overdue tracking.
type Usecase struct {
	repos     uow.Repos
	committer *aggregate.Committer
	idp       group.IdentityProvider
	clock     clock.Clock
	precision int32
	log       *zap.Logger
}

type Option func(*Usecase)

// WithPrecision sets the number of fractional digits money is rounded to.
func WithPrecision(p int32) Option { return func(u *Usecase) { u.precision = p } }

func WithClock(c clock.Clock) Option { return func(u *Usecase) { u.clock = c } }

func WithLogger(l *zap.Logger) Option { return func(u *Usecase) { u.log = l } }

func NewUsecase(repos uow.Repos, c *aggregate.Committer, idp group.IdentityProvider, opts ...Option) *Usecase {
	u := &Usecase{
		repos:     repos,
		committer: c,
		idp:       idp,
		clock:     clock.System{},
		precision: finance.DefaultPrecision,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func transition(l *loan.Loan, to loan.State, at time.Time) error {
	if !loan.CanTransition(l.State, to) {
		return errs.ErrInvalidTransition.Withf("loan %s is %s, cannot become %s", l.LoanID, l.State, to)
	}
	l.State = to
	l.StateUpdatedAt = at
	return nil
}

func (u *Usecase) validAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return errs.Invalid("%s must be positive", field)
	}
	if !finance.FitsPrecision(d, u.precision) {
		return errs.Invalid("%s has more than %d decimal places", field, u.precision)
	}
	return nil
}

// loadLoan reads the loan outside the group lock to find its group. The
// mutation re-reads it inside the transaction.
func (u *Usecase) loadLoan(ctx context.Context, loanID string) (*loan.Loan, error) {
	if loanID == "" {
		return nil, errs.Invalid("loan id is required")
	}
	l, err := u.repos.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, aggregate.Lookup(err, errs.ErrLoanNotFound, loanID)
	}
	return l, nil
}

func lockedLoan(ctx context.Context, r uow.Repos, loanID string) (*loan.Loan, error) {
	l, err := r.Loans.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, aggregate.Lookup(err, errs.ErrLoanNotFound, loanID)
	}
	return l, nil
}

func totalContributed(ctx context.Context, r uow.Repos, groupID, memberID string) (decimal.Decimal, error) {
	records, err := r.Contributions.ListByMember(ctx, groupID, memberID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, c := range records {
		sum = sum.Add(c.PaidAmount)
	}
	return sum, nil
}

func loanEvent(t event.Type, l *loan.Loan, memberID string, amount *decimal.Decimal, at time.Time) event.Event {
	return event.Event{Type: t, GroupID: l.GroupID, MemberID: memberID, LoanID: l.LoanID, Amount: amount, At: at}
}

// RequestLoan records a borrower's request with a binding repayment quote.
// The loan starts in voting when the group decides by vote, pending otherwise.
func (u *Usecase) RequestLoan(ctx context.Context, in RequestLoanInput) (*LoanResult, error) {
	if in.GroupID == "" {
		return nil, errs.Invalid("group id is required")
	}
	if err := u.validAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	if in.TermDays <= 0 {
		return nil, errs.Invalid("term days must be positive")
	}
	if _, err := aggregate.Authorize(ctx, u.idp, in.GroupID, in.MemberID, group.CanBorrow); err != nil {
		return nil, err
	}

	var (
		res   LoanResult
		now   = u.clock.Now()
		quote finance.Quote
	)
	g, err := u.committer.Commit(ctx, in.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		if err := aggregate.RequireActive(g); err != nil {
			return nil, err
		}
		if !g.Loans.Enabled {
			return nil, errs.ErrLoanSettingsDisabled.Withf("group %s", g.GroupID)
		}
		open, err := r.Loans.GetOpenByBorrower(ctx, g.GroupID, in.MemberID)
		switch {
		case err == nil:
			return nil, errs.ErrOpenLoanExists.Withf("%s has loan %s (%s)", in.MemberID, open.LoanID, open.State)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}

		contributed, err := totalContributed(ctx, r, g.GroupID, in.MemberID)
		if err != nil {
			return nil, err
		}
		limit := finance.MaxBorrowable(g.Loans, g.Summary.AvailableFunds, contributed, u.precision)
		if in.Amount.GreaterThan(limit) {
			return nil, errs.ErrAmountExceedsLimit.Withf("requested %s, limit %s", in.Amount, limit)
		}
		if in.TermDays > g.Loans.MaxLoanTermDays {
			return nil, errs.ErrTermExceedsLimit.Withf("requested %d days, limit %d", in.TermDays, g.Loans.MaxLoanTermDays)
		}

		quote = finance.NewQuote(in.Amount, g.Loans.InterestRate, in.TermDays, u.precision)
		l := &loan.Loan{
			LoanID:          id.NewID32(),
			GroupID:         g.GroupID,
			BorrowerID:      in.MemberID,
			RequestedAmount: quote.Principal,
			Purpose:         in.Purpose,
			InterestRate:    quote.InterestRate,
			TermDays:        quote.TermDays,
			Interest:        quote.Interest,
			TotalRepayment:  quote.TotalRepayment,
			RepaidAmount:    decimal.Zero,
			State:           loan.StatePending,
			RequestedAt:     now,
			StateUpdatedAt:  now,
		}
		events := []event.Event{loanEvent(event.LoanRequested, l, in.MemberID, event.Amount(l.RequestedAmount), now)}

		if g.Loans.RequiresVoting {
			if err := transition(l, loan.StateVoting, now); err != nil {
				return nil, err
			}
			active, err := r.Members.ListActive(ctx, g.GroupID)
			if err != nil {
				return nil, err
			}
			policy, tally := votingPolicy(g, l, active, nil)
			res.Tally = tallyDTO(tally, policy)
			// nobody can vote: settle now instead of waiting forever
			if tally.Eligible == 0 {
				decided, _ := policy.Resolve(tally)
				if err := transition(l, decided, now); err != nil {
					return nil, err
				}
				l.DecisionAt = &now
				events = append(events, decisionEvent(l, now))
			}
		}

		if err := r.Loans.Create(ctx, l); err != nil {
			return nil, err
		}
		res.Loan = toDTO(l)
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	u.log.Info("loan requested",
		zap.String("group_id", in.GroupID),
		zap.String("loan_id", res.Loan.LoanID),
		zap.String("state", string(res.Loan.State)),
		zap.String("total_repayment", quote.TotalRepayment.String()))
	return &res, nil
}

// CancelLoan withdraws a loan that has not been disbursed. The borrower may
// cancel their own request; anyone else needs the decide capability.
func (u *Usecase) CancelLoan(ctx context.Context, in CancelLoanInput) (*LoanResult, error) {
	current, err := u.loadLoan(ctx, in.LoanID)
	if err != nil {
		return nil, err
	}
	want := group.CanDecide
	if in.ActorID == current.BorrowerID {
		want = group.CanBorrow
	}
	if _, err := aggregate.Authorize(ctx, u.idp, current.GroupID, in.ActorID, want); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	var res LoanResult
	g, err := u.committer.Commit(ctx, current.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		l, err := lockedLoan(ctx, r, in.LoanID)
		if err != nil {
			return nil, err
		}
		if err := transition(l, loan.StateCancelled, now); err != nil {
			return nil, err
		}
		l.DecisionAt = &now
		l.DecidedBy = in.ActorID
		if err := r.Loans.Save(ctx, l); err != nil {
			return nil, err
		}
		res.Loan = toDTO(l)
		return []event.Event{loanEvent(event.LoanCancelled, l, in.ActorID, nil, now)}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	return &res, nil
}
