package jobs

import (
	"context"
	"errors"
	"time"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/usecase/contribution"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type GroupLister interface {
	ListIDsByStatus(ctx context.Context, status group.Status) ([]string, error)
}

type Contributions interface {
	RequestContributionCycle(ctx context.Context, in contribution.RequestCycleInput) (*contribution.CycleResult, error)
	MarkOverdue(ctx context.Context, groupID string) (int, error)
}

type LoanSweeper interface {
	SweepOverdueLoans(ctx context.Context, groupID string) (int, error)
}

// Report summarises one pass over the active groups.
type Report struct {
	Groups  int
	Changed int
	Failed  int
}

// Scheduler runs the periodic ledger maintenance: the overdue sweep over
// contributions and loans, and opening contribution cycles for active
// groups. A pass keeps going when one group fails.
type Scheduler struct {
	groups   GroupLister
	contribs Contributions
	loans    LoanSweeper
	log      *zap.Logger
	timeout  time.Duration

	cron *cron.Cron
}

func NewScheduler(groups GroupLister, contribs Contributions, loans LoanSweeper, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("jobs")
	cl := cron.PrintfLogger(zap.NewStdLog(log))
	return &Scheduler{
		groups:   groups,
		contribs: contribs,
		loans:    loans,
		log:      log,
		timeout:  5 * time.Minute,
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
	}
}

// Start registers both jobs and starts the cron loop. An empty spec
// disables that job.
func (s *Scheduler) Start(sweepSpec, cycleSpec string) error {
	if sweepSpec != "" {
		if _, err := s.cron.AddFunc(sweepSpec, func() { s.run("sweep", s.Sweep) }); err != nil {
			return err
		}
	}
	if cycleSpec != "" {
		if _, err := s.cron.AddFunc(cycleSpec, func() { s.run("cycle", s.OpenCycles) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop halts scheduling; the returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) run(name string, job func(context.Context) (Report, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	start := time.Now()
	rep, err := job(ctx)
	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Info("job finished",
		zap.String("job", name),
		zap.Int("groups", rep.Groups),
		zap.Int("changed", rep.Changed),
		zap.Int("failed", rep.Failed),
		zap.Duration("took", time.Since(start)))
}

// Loans and dues keep falling past due while a group is not active, so the
// sweep covers every group that is not closed.
var sweepStatuses = []group.Status{
	group.StatusActive,
	group.StatusSuspended,
	group.StatusInactive,
	group.StatusPending,
}

func (s *Scheduler) each(ctx context.Context, statuses []group.Status, fn func(ctx context.Context, groupID string) (int, error)) (Report, error) {
	var ids []string
	for _, st := range statuses {
		batch, err := s.groups.ListIDsByStatus(ctx, st)
		if err != nil {
			return Report{}, errs.Infra(err)
		}
		ids = append(ids, batch...)
	}
	rep := Report{Groups: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		n, err := fn(ctx, id)
		switch {
		case err == nil:
			rep.Changed += n
		case errors.Is(err, errs.ErrGroupNotActive):
			// status changed since the listing
		default:
			rep.Failed++
			s.log.Warn("group maintenance failed", zap.String("group_id", id), zap.Error(err))
		}
	}
	return rep, nil
}

// Sweep marks past-due contributions and loans overdue in every group that
// is not closed. Changed counts records moved to overdue.
func (s *Scheduler) Sweep(ctx context.Context) (Report, error) {
	return s.each(ctx, sweepStatuses, func(ctx context.Context, groupID string) (int, error) {
		c, err := s.contribs.MarkOverdue(ctx, groupID)
		if err != nil {
			return 0, err
		}
		l, err := s.loans.SweepOverdueLoans(ctx, groupID)
		return c + l, err
	})
}

// OpenCycles requests the current contribution cycle for every active
// group. Changed counts contribution records created.
func (s *Scheduler) OpenCycles(ctx context.Context) (Report, error) {
	return s.each(ctx, []group.Status{group.StatusActive}, func(ctx context.Context, groupID string) (int, error) {
		res, err := s.contribs.RequestContributionCycle(ctx, contribution.RequestCycleInput{GroupID: groupID})
		if err != nil {
			return 0, err
		}
		return len(res.Created), nil
	})
}
