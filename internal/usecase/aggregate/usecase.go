package aggregate

import (
	"context"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/event"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"

	"go.uber.org/zap"
)

// Usecase serves the group summary and keeps it honest against the ledger.
type Usecase struct {
	repos     uow.Repos
	committer *Committer
	log       *zap.Logger
}

func NewUsecase(repos uow.Repos, c *Committer, log *zap.Logger) *Usecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &Usecase{repos: repos, committer: c, log: log}
}

func (u *Usecase) GetGroupSummary(ctx context.Context, groupID string) (*Snapshot, error) {
	g, err := u.repos.Groups.GetByGroupID(ctx, groupID)
	if err != nil {
		return nil, Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	s := SnapshotOf(g)
	return &s, nil
}

// Recompute rebuilds the summary from the committed records without
// touching the stored one.
func (u *Usecase) Recompute(ctx context.Context, groupID string) (group.Summary, error) {
	if _, err := u.repos.Groups.GetByGroupID(ctx, groupID); err != nil {
		return group.Summary{}, Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	contribs, err := u.repos.Contributions.ListByGroup(ctx, groupID)
	if err != nil {
		return group.Summary{}, errs.Infra(err)
	}
	loans, err := u.repos.Loans.ListByGroup(ctx, groupID)
	if err != nil {
		return group.Summary{}, errs.Infra(err)
	}
	return Recompute(contribs, loans), nil
}

// Reconcile compares the stored summary with a rebuild. With repair set, a
// drifted summary is overwritten by a rebuild taken under the group lock.
func (u *Usecase) Reconcile(ctx context.Context, groupID string, repair bool) (*ReconcileReport, error) {
	g, err := u.repos.Groups.GetByGroupID(ctx, groupID)
	if err != nil {
		return nil, Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	recomputed, err := u.Recompute(ctx, groupID)
	if err != nil {
		return nil, err
	}
	rep := &ReconcileReport{GroupID: groupID, Stored: g.Summary, Recomputed: recomputed}
	rep.InSync = rep.Stored.Equal(rep.Recomputed)
	if rep.InSync {
		return rep, nil
	}

	if repair {
		_, err = u.committer.Commit(ctx, groupID, func(r uow.Repos, g *group.Group) ([]event.Event, error) {
			contribs, err := r.Contributions.ListByGroup(ctx, groupID)
			if err != nil {
				return nil, err
			}
			loans, err := r.Loans.ListByGroup(ctx, groupID)
			if err != nil {
				return nil, err
			}
			rep.Stored = g.Summary
			rep.Recomputed = Recompute(contribs, loans)
			g.Summary = rep.Recomputed
			rep.Repaired = true
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
	}
	u.log.Warn("group summary drift",
		zap.String("group_id", groupID),
		zap.Any("stored", rep.Stored),
		zap.Any("recomputed", rep.Recomputed),
		zap.Bool("repaired", rep.Repaired))
	return rep, nil
}
