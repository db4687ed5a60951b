package mysql

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/uow"

	"gorm.io/gorm"
)

// NewRepos binds every ledger repository to db.
func NewRepos(db *gorm.DB) uow.Repos {
	return uow.Repos{
		Groups:        &GroupRepository{db: db},
		Members:       &MemberRepository{db: db},
		Contributions: &ContributionRepository{db: db},
		Loans:         &LoanRepository{db: db},
		Votes:         &VoteRepository{db: db},
	}
}

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

var _ uow.UnitOfWork = (*GormUoW)(nil)

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r uow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepos(tx))
	})
}

func (u *GormUoW) WithinGroupTx(ctx context.Context, groupID string, fn func(r uow.Repos, g *group.Group) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := NewRepos(tx)
		// lock the group row up-front to prevent races on the summary
		g, err := r.Groups.GetByGroupIDForUpdate(ctx, groupID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.ErrGroupNotFound.Withf("%s", groupID)
		}
		if err != nil {
			return err
		}
		if err := fn(r, g); err != nil {
			return err
		}
		return r.Groups.Update(ctx, g)
	})
}
