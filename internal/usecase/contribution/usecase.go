package contribution

import (
	"context"
	"errors"
	"sort"
	"time"

	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/finance"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/usecase/aggregate"
	"group-savings-engine/pkg/clock"
	"group-savings-engine/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Usecase schedules member dues and records their payment.
type Usecase struct {
	repos     uow.Repos
	committer *aggregate.Committer
	idp       group.IdentityProvider
	clock     clock.Clock
	precision int32
	log       *zap.Logger
}

type Option func(*Usecase)

// WithPrecision sets the number of fractional digits a payment may carry.
func WithPrecision(p int32) Option { return func(u *Usecase) { u.precision = p } }

func NewUsecase(repos uow.Repos, c *aggregate.Committer, idp group.IdentityProvider, clk clock.Clock, log *zap.Logger, opts ...Option) *Usecase {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	u := &Usecase{repos: repos, committer: c, idp: idp, clock: clk, precision: finance.DefaultPrecision, log: log}
	for _, o := range opts {
		o(u)
	}
	return u
}

// GenerateDueContributions creates the pending record of the period
// containing asOf for every active member who joined before its due date.
// Existing records are left alone, so repeated calls create nothing new.
func GenerateDueContributions(ctx context.Context, r uow.Repos, g *group.Group, asOf time.Time) (Period, []contribution.Contribution, error) {
	p, ok := PeriodAt(g.Contribution, asOf)
	if !ok {
		return Period{}, nil, errs.Invalid("contribution schedule starts %s", g.Contribution.StartDate.Format(time.RFC3339))
	}
	members, err := r.Members.ListActive(ctx, g.GroupID)
	if err != nil {
		return p, nil, err
	}

	var created []contribution.Contribution
	for _, m := range members {
		if !m.JoinedAt.Before(p.Due) {
			continue
		}
		_, err := r.Contributions.GetByPeriod(ctx, g.GroupID, m.MemberID, p.Index)
		switch {
		case err == nil:
			continue
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return p, nil, err
		}
		c := contribution.Contribution{
			ContributionID: id.NewID32(),
			GroupID:        g.GroupID,
			MemberID:       m.MemberID,
			Period:         p.Index,
			Amount:         g.Contribution.Amount,
			PaidAmount:     decimal.Zero,
			DueDate:        p.Due,
			Status:         contribution.StatusPending,
		}
		if err := r.Contributions.Create(ctx, &c); err != nil {
			return p, nil, err
		}
		created = append(created, c)
	}
	if g.CycleNumber < p.Index+1 {
		g.CycleNumber = p.Index + 1
	}
	return p, created, nil
}

// RequestContributionCycle opens the current period for the group. Without
// an actor it runs as the scheduler; with one, the actor must administer the group.
func (u *Usecase) RequestContributionCycle(ctx context.Context, in RequestCycleInput) (*CycleResult, error) {
	if in.GroupID == "" {
		return nil, errs.Invalid("group id is required")
	}
	if in.ActorID != "" {
		if _, err := aggregate.Authorize(ctx, u.idp, in.GroupID, in.ActorID, group.CanAdminister); err != nil {
			return nil, err
		}
	}
	asOf := in.AsOf
	if asOf.IsZero() {
		asOf = u.clock.Now()
	}

	var res CycleResult
	g, err := u.committer.Commit(ctx, in.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		if err := aggregate.RequireActive(g); err != nil {
			return nil, err
		}
		p, created, err := GenerateDueContributions(ctx, r, g, asOf)
		if err != nil {
			return nil, err
		}
		res.Period = p
		res.Created = make([]ContributionDTO, 0, len(created))
		events := make([]event.Event, 0, len(created))
		for i := range created {
			c := &created[i]
			res.Created = append(res.Created, toDTO(c, c.Status))
			events = append(events, event.Event{
				Type:           event.ContributionDue,
				GroupID:        c.GroupID,
				MemberID:       c.MemberID,
				ContributionID: c.ContributionID,
				Amount:         event.Amount(c.Amount),
				At:             asOf,
			})
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	u.log.Info("contribution cycle requested",
		zap.String("group_id", in.GroupID),
		zap.Int("period", res.Period.Index),
		zap.Int("created", len(res.Created)))
	return &res, nil
}

// RecordContributionPayment applies a payment to a pending or overdue record.
// The record completes once fully paid; partial amounts are accepted only
// when the group allows them.
func (u *Usecase) RecordContributionPayment(ctx context.Context, in RecordPaymentInput) (*PaymentResult, error) {
	if in.ContributionID == "" {
		return nil, errs.Invalid("contribution id is required")
	}
	if !in.Amount.IsPositive() {
		return nil, errs.Invalid("amount must be positive")
	}
	if !finance.FitsPrecision(in.Amount, u.precision) {
		return nil, errs.Invalid("amount has more than %d decimal places", u.precision)
	}
	current, err := u.repos.Contributions.GetByContributionID(ctx, in.ContributionID)
	if err != nil {
		return nil, aggregate.Lookup(err, errs.ErrContributionNotFound, in.ContributionID)
	}
	if in.ActorID != "" {
		m, err := aggregate.Authorize(ctx, u.idp, current.GroupID, in.ActorID, group.CanContribute)
		if err != nil {
			return nil, err
		}
		if m.MemberID != current.MemberID && !m.Capabilities().Has(group.CanAdminister) {
			return nil, errs.ErrForbidden.Withf("%s cannot pay for %s", in.ActorID, current.MemberID)
		}
	}
	paidAt := in.PaidAt
	if paidAt.IsZero() {
		paidAt = u.clock.Now()
	}

	var res PaymentResult
	g, err := u.committer.Commit(ctx, current.GroupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		if err := aggregate.RequireActive(g); err != nil {
			return nil, err
		}
		c, err := r.Contributions.GetByContributionID(ctx, in.ContributionID)
		if err != nil {
			return nil, aggregate.Lookup(err, errs.ErrContributionNotFound, in.ContributionID)
		}
		if c.Completed() {
			return nil, errs.ErrAlreadyPaid.Withf("%s", c.ContributionID)
		}
		remaining := c.Remaining()
		if !g.Contribution.AllowPartial && !in.Amount.Equal(remaining) {
			return nil, errs.ErrAmountMismatch.Withf("due %s, got %s", remaining, in.Amount)
		}
		if in.Amount.GreaterThan(remaining) {
			return nil, errs.ErrAmountMismatch.Withf("remaining %s, got %s", remaining, in.Amount)
		}

		c.PaidAmount = c.PaidAmount.Add(in.Amount)
		if c.PaidAmount.Equal(c.Amount) {
			c.Status = contribution.StatusCompleted
			c.PaidDate = &paidAt
		}
		if err := r.Contributions.Save(ctx, c); err != nil {
			return nil, err
		}
		g.Summary.ApplyContribution(in.Amount)

		res.Contribution = toDTO(c, c.Status)
		return []event.Event{{
			Type:           event.ContributionPaid,
			GroupID:        c.GroupID,
			MemberID:       c.MemberID,
			ContributionID: c.ContributionID,
			Amount:         event.Amount(in.Amount),
			At:             paidAt,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Group = aggregate.SnapshotOf(g)
	return &res, nil
}

// MarkOverdue persists the overdue status of pending records past due and
// returns how many changed.
func (u *Usecase) MarkOverdue(ctx context.Context, groupID string) (int, error) {
	now := u.clock.Now()
	pending, err := u.repos.Contributions.ListByStatus(ctx, groupID, contribution.StatusPending)
	if err != nil {
		return 0, errs.Infra(err)
	}
	due := false
	for i := range pending {
		if Classify(&pending[i], now) == contribution.StatusOverdue {
			due = true
			break
		}
	}
	if !due {
		return 0, nil
	}

	var marked int
	_, err = u.committer.Commit(ctx, groupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
		pending, err := r.Contributions.ListByStatus(ctx, groupID, contribution.StatusPending)
		if err != nil {
			return nil, err
		}
		var events []event.Event
		for i := range pending {
			c := &pending[i]
			if Classify(c, now) != contribution.StatusOverdue {
				continue
			}
			c.Status = contribution.StatusOverdue
			if err := r.Contributions.Save(ctx, c); err != nil {
				return nil, err
			}
			events = append(events, event.Event{
				Type:           event.ContributionOverdue,
				GroupID:        groupID,
				MemberID:       c.MemberID,
				ContributionID: c.ContributionID,
				Amount:         event.Amount(c.Remaining()),
				At:             now,
			})
		}
		marked = len(events)
		return events, nil
	})
	if err != nil {
		return 0, err
	}
	return marked, nil
}

func (u *Usecase) GetMemberContributionStatus(ctx context.Context, groupID, memberID string) (*MemberStatusDTO, error) {
	if _, err := u.repos.Groups.GetByGroupID(ctx, groupID); err != nil {
		return nil, aggregate.Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	// inactive members keep their history
	if _, err := u.idp.ResolveMember(ctx, groupID, memberID); err != nil {
		return nil, err
	}
	records, err := u.repos.Contributions.ListByMember(ctx, groupID, memberID)
	if err != nil {
		return nil, errs.Infra(err)
	}

	now := u.clock.Now()
	out := &MemberStatusDTO{
		GroupID:       groupID,
		MemberID:      memberID,
		Standing:      StandingCurrent,
		TotalDue:      decimal.Zero,
		TotalPaid:     decimal.Zero,
		Contributions: make([]ContributionDTO, 0, len(records)),
	}
	for i := range records {
		c := &records[i]
		st := Classify(c, now)
		switch st {
		case contribution.StatusCompleted:
			out.Completed++
		case contribution.StatusOverdue:
			out.Overdue++
		default:
			out.Pending++
		}
		out.TotalDue = out.TotalDue.Add(c.Amount)
		out.TotalPaid = out.TotalPaid.Add(c.PaidAmount)
		out.Contributions = append(out.Contributions, toDTO(c, st))
	}
	out.Outstanding = out.TotalDue.Sub(out.TotalPaid)
	switch {
	case out.Overdue > 0:
		out.Standing = StandingOverdue
	case out.Pending > 0:
		out.Standing = StandingPending
	}
	return out, nil
}

// ListOverdueContributions includes pending records already past due that
// the sweep has not marked yet.
func (u *Usecase) ListOverdueContributions(ctx context.Context, groupID string) ([]ContributionDTO, error) {
	if _, err := u.repos.Groups.GetByGroupID(ctx, groupID); err != nil {
		return nil, aggregate.Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	records, err := u.repos.Contributions.ListByStatus(ctx, groupID, contribution.StatusPending, contribution.StatusOverdue)
	if err != nil {
		return nil, errs.Infra(err)
	}
	now := u.clock.Now()
	out := make([]ContributionDTO, 0, len(records))
	for i := range records {
		if st := Classify(&records[i], now); st == contribution.StatusOverdue {
			out = append(out, toDTO(&records[i], st))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}
