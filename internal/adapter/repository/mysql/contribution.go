package mysql

import (
	"context"

	contribDomain "group-savings-engine/internal/domain/contribution"

	"gorm.io/gorm"
)

type ContributionRepository struct{ db *gorm.DB }

func NewContributionRepository(db *gorm.DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

func (r *ContributionRepository) Create(ctx context.Context, c *contribDomain.Contribution) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *ContributionRepository) Save(ctx context.Context, c *contribDomain.Contribution) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *ContributionRepository) GetByContributionID(ctx context.Context, contributionID string) (*contribDomain.Contribution, error) {
	var out contribDomain.Contribution
	res := r.db.WithContext(ctx).Where("contribution_id = ?", contributionID).First(&out)
	return &out, res.Error
}

func (r *ContributionRepository) GetByPeriod(ctx context.Context, groupID, memberID string, period int) (*contribDomain.Contribution, error) {
	var out contribDomain.Contribution
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND member_id = ? AND period = ?", groupID, memberID, period).
		First(&out)
	return &out, res.Error
}

func (r *ContributionRepository) ListByGroup(ctx context.Context, groupID string) ([]contribDomain.Contribution, error) {
	var out []contribDomain.Contribution
	res := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("period, member_id").
		Find(&out)
	return out, res.Error
}

func (r *ContributionRepository) ListByMember(ctx context.Context, groupID, memberID string) ([]contribDomain.Contribution, error) {
	var out []contribDomain.Contribution
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		Order("period").
		Find(&out)
	return out, res.Error
}

func (r *ContributionRepository) ListByStatus(ctx context.Context, groupID string, statuses ...contribDomain.Status) ([]contribDomain.Contribution, error) {
	var out []contribDomain.Contribution
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND status IN ?", groupID, statuses).
		Order("period, member_id").
		Find(&out)
	return out, res.Error
}
