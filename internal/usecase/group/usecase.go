package group

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/finance"
	groupDomain "group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/domain/uow"
	"group-savings-engine/internal/usecase/aggregate"
	"group-savings-engine/pkg/clock"
	"group-savings-engine/pkg/id"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Usecase holds the administrative commands: group formation, membership,
// settings and status. Financial state is never touched here.
type Usecase struct {
	tx        uow.UnitOfWork
	repos     uow.Repos
	committer *aggregate.Committer
	idp       groupDomain.IdentityProvider
	clock     clock.Clock
	precision int32
	log       *zap.Logger
}

type Option func(*Usecase)

// WithPrecision sets the number of fractional digits a contribution amount may carry.
func WithPrecision(p int32) Option { return func(u *Usecase) { u.precision = p } }

func NewUsecase(tx uow.UnitOfWork, repos uow.Repos, c *aggregate.Committer, idp groupDomain.IdentityProvider, clk clock.Clock, log *zap.Logger, opts ...Option) *Usecase {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	u := &Usecase{tx: tx, repos: repos, committer: c, idp: idp, clock: clk, precision: finance.DefaultPrecision, log: log}
	for _, o := range opts {
		o(u)
	}
	return u
}

func validateContribution(s groupDomain.ContributionSettings, precision int32) error {
	switch {
	case !s.Amount.IsPositive():
		return errs.Invalid("contribution amount must be positive")
	case !finance.FitsPrecision(s.Amount, precision):
		return errs.Invalid("contribution amount has more than %d decimal places", precision)
	case !s.Frequency.Valid():
		return errs.Invalid("frequency %q is not weekly, biweekly or monthly", s.Frequency)
	case s.StartDate.IsZero():
		return errs.Invalid("contribution start date is required")
	}
	return nil
}

func validateLoans(s groupDomain.LoanSettings) error {
	switch {
	case s.InterestRate.IsNegative():
		return errs.Invalid("interest rate cannot be negative")
	case s.MaxLoanTermDays < 0:
		return errs.Invalid("max loan term cannot be negative")
	case s.VoteThreshold < 0:
		return errs.Invalid("vote threshold cannot be negative")
	case s.MaxLoanMultiplier.Valid && s.MaxLoanMultiplier.Decimal.IsNegative():
		return errs.Invalid("max loan multiplier cannot be negative")
	case s.MaxLoanPercentage.Valid && (s.MaxLoanPercentage.Decimal.IsNegative() || s.MaxLoanPercentage.Decimal.GreaterThan(decimal.NewFromInt(100))):
		return errs.Invalid("max loan percentage must be between 0 and 100")
	case s.MaxLoanMultiplier.Valid && s.MaxLoanPercentage.Valid:
		return errs.Invalid("set either max loan multiplier or max loan percentage, not both")
	}
	return nil
}

// CreateGroup forms an active group with its founding manager.
func (u *Usecase) CreateGroup(ctx context.Context, in CreateGroupInput) (*GroupDTO, error) {
	if in.Name == "" {
		return nil, errs.Invalid("name is required")
	}
	if in.ManagerID == "" {
		return nil, errs.Invalid("manager id is required")
	}
	if err := validateContribution(in.Contribution, u.precision); err != nil {
		return nil, err
	}
	if err := validateLoans(in.Loans); err != nil {
		return nil, err
	}

	now := u.clock.Now()
	g := &groupDomain.Group{
		GroupID:      id.NewID32(),
		Name:         in.Name,
		Contribution: in.Contribution,
		Loans:        in.Loans,
		Summary: groupDomain.Summary{
			TotalContributions:  decimal.Zero,
			OutstandingLoans:    decimal.Zero,
			AvailableFunds:      decimal.Zero,
			TotalInterestEarned: decimal.Zero,
		},
		Status: groupDomain.StatusActive,
	}
	err := u.tx.WithinTx(ctx, func(r uow.Repos) error {
		if err := r.Groups.Create(ctx, g); err != nil {
			return err
		}
		return r.Members.Add(ctx, &groupDomain.Membership{
			GroupID:  g.GroupID,
			MemberID: in.ManagerID,
			Role:     groupDomain.RoleManager,
			Status:   groupDomain.MemberActive,
			JoinedAt: now,
		})
	})
	if err != nil {
		return nil, errs.Infra(err)
	}
	u.log.Info("group created", zap.String("group_id", g.GroupID), zap.String("manager_id", in.ManagerID))
	dto := toDTO(g)
	return &dto, nil
}

// AddMember admits a member, or reactivates and re-roles an existing one.
// It runs under the group lock because membership changes a vote's quorum.
func (u *Usecase) AddMember(ctx context.Context, in AddMemberInput) (*MemberDTO, error) {
	if in.MemberID == "" {
		return nil, errs.Invalid("member id is required")
	}
	if in.Role == "" {
		in.Role = groupDomain.RoleMember
	}
	if !in.Role.Valid() {
		return nil, errs.Invalid("role %q is not member or manager", in.Role)
	}
	if _, err := aggregate.Authorize(ctx, u.idp, in.GroupID, in.ActorID, groupDomain.CanAdminister); err != nil {
		return nil, err
	}
	joined := in.JoinedAt
	if joined.IsZero() {
		joined = u.clock.Now()
	}

	var out MemberDTO
	_, err := u.committer.Commit(ctx, in.GroupID, func(r uow.Repos, g *groupDomain.Group) ([]event.Event, error) {
		if g.Status == groupDomain.StatusClosed {
			return nil, errs.ErrGroupNotActive.Withf("%s is closed", g.GroupID)
		}
		m, err := r.Members.Get(ctx, g.GroupID, in.MemberID)
		switch {
		case err == nil:
			m.Role = in.Role
			m.Status = groupDomain.MemberActive
			if err := r.Members.Save(ctx, m); err != nil {
				return nil, err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			m = &groupDomain.Membership{
				GroupID:  g.GroupID,
				MemberID: in.MemberID,
				Role:     in.Role,
				Status:   groupDomain.MemberActive,
				JoinedAt: joined,
			}
			if err := r.Members.Add(ctx, m); err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
		out = MemberDTO{MemberID: m.MemberID, Role: m.Role, Status: m.Status, JoinedAt: m.JoinedAt}
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoveMember deactivates a membership. Records stay; the member simply
// stops counting towards quorums and loses every capability.
func (u *Usecase) RemoveMember(ctx context.Context, in RemoveMemberInput) error {
	if _, err := aggregate.Authorize(ctx, u.idp, in.GroupID, in.ActorID, groupDomain.CanAdminister); err != nil {
		return err
	}
	_, err := u.committer.Commit(ctx, in.GroupID, func(r uow.Repos, g *groupDomain.Group) ([]event.Event, error) {
		m, err := r.Members.Get(ctx, g.GroupID, in.MemberID)
		if err != nil {
			return nil, aggregate.Lookup(err, errs.ErrNotMember, in.MemberID)
		}
		m.Status = groupDomain.MemberInactive
		return nil, r.Members.Save(ctx, m)
	})
	return err
}

// UpdateLoanSettings replaces the group's loan policy. Loans already
// requested keep the rate and quote they were given.
func (u *Usecase) UpdateLoanSettings(ctx context.Context, in UpdateLoanSettingsInput) (*GroupDTO, error) {
	if err := validateLoans(in.Loans); err != nil {
		return nil, err
	}
	if _, err := aggregate.Authorize(ctx, u.idp, in.GroupID, in.ActorID, groupDomain.CanAdminister); err != nil {
		return nil, err
	}
	g, err := u.committer.Commit(ctx, in.GroupID, func(_ uow.Repos, g *groupDomain.Group) ([]event.Event, error) {
		if g.Status == groupDomain.StatusClosed {
			return nil, errs.ErrGroupNotActive.Withf("%s is closed", g.GroupID)
		}
		g.Loans = in.Loans
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(g)
	return &dto, nil
}

// ChangeStatus moves the group between statuses. Closing is final and needs
// every loan settled or withdrawn.
func (u *Usecase) ChangeStatus(ctx context.Context, in ChangeStatusInput) (*GroupDTO, error) {
	if !in.Status.Valid() {
		return nil, errs.Invalid("status %q is not valid", in.Status)
	}
	if _, err := aggregate.Authorize(ctx, u.idp, in.GroupID, in.ActorID, groupDomain.CanAdminister); err != nil {
		return nil, err
	}
	g, err := u.committer.Commit(ctx, in.GroupID, func(r uow.Repos, g *groupDomain.Group) ([]event.Event, error) {
		if g.Status == groupDomain.StatusClosed {
			return nil, errs.ErrGroupNotActive.Withf("%s is closed", g.GroupID)
		}
		if in.Status == groupDomain.StatusClosed {
			open, err := r.Loans.ListByState(ctx, g.GroupID,
				loan.StatePending, loan.StateVoting, loan.StateApproved, loan.StateActive, loan.StateOverdue)
			if err != nil {
				return nil, err
			}
			if len(open) > 0 {
				return nil, errs.ErrInvalidTransition.Withf("group %s has %d unsettled loans", g.GroupID, len(open))
			}
		}
		g.Status = in.Status
		return nil, nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info("group status changed", zap.String("group_id", in.GroupID), zap.String("status", string(in.Status)))
	dto := toDTO(g)
	return &dto, nil
}

func (u *Usecase) GetGroup(ctx context.Context, groupID string) (*GroupDTO, error) {
	g, err := u.repos.Groups.GetByGroupID(ctx, groupID)
	if err != nil {
		return nil, aggregate.Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	dto := toDTO(g)
	return &dto, nil
}

func (u *Usecase) ListMembers(ctx context.Context, groupID string) ([]MemberDTO, error) {
	if _, err := u.repos.Groups.GetByGroupID(ctx, groupID); err != nil {
		return nil, aggregate.Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	members, err := u.repos.Members.ListActive(ctx, groupID)
	if err != nil {
		return nil, errs.Infra(err)
	}
	out := make([]MemberDTO, 0, len(members))
	for _, m := range members {
		out = append(out, MemberDTO{MemberID: m.MemberID, Role: m.Role, Status: m.Status, JoinedAt: m.JoinedAt})
	}
	return out, nil
}
