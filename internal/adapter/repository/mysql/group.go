package mysql

import (
	"context"
	"time"

	"group-savings-engine/internal/domain/errs"
	groupDomain "group-savings-engine/internal/domain/group"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GroupRepository struct{ db *gorm.DB }

func NewGroupRepository(db *gorm.DB) *GroupRepository { return &GroupRepository{db: db} }

func (r *GroupRepository) Create(ctx context.Context, g *groupDomain.Group) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *GroupRepository) GetByGroupID(ctx context.Context, groupID string) (*groupDomain.Group, error) {
	var out groupDomain.Group
	res := r.db.WithContext(ctx).Where("group_id = ?", groupID).First(&out)
	return &out, res.Error
}

// GetByGroupIDForUpdate takes a row lock (SELECT ... FOR UPDATE). SQLite ignores it.
func (r *GroupRepository) GetByGroupIDForUpdate(ctx context.Context, groupID string) (*groupDomain.Group, error) {
	var out groupDomain.Group
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("group_id = ?", groupID).
		First(&out)
	return &out, res.Error
}

func (r *GroupRepository) Update(ctx context.Context, g *groupDomain.Group) error {
	now := time.Now().UTC()
	cols := map[string]any{
		"name":                          g.Name,
		"status":                        g.Status,
		"cycle_number":                  g.CycleNumber,
		"contrib_amount":                g.Contribution.Amount,
		"contrib_frequency":             g.Contribution.Frequency,
		"contrib_start_date":            g.Contribution.StartDate,
		"contrib_allow_partial":         g.Contribution.AllowPartial,
		"loan_enabled":                  g.Loans.Enabled,
		"loan_interest_rate":            g.Loans.InterestRate,
		"loan_max_loan_multiplier":      g.Loans.MaxLoanMultiplier,
		"loan_max_loan_percentage":      g.Loans.MaxLoanPercentage,
		"loan_max_loan_term_days":       g.Loans.MaxLoanTermDays,
		"loan_requires_voting":          g.Loans.RequiresVoting,
		"loan_vote_threshold":           g.Loans.VoteThreshold,
		"loan_ties_approve":             g.Loans.TiesApprove,
		"summary_total_contributions":   g.Summary.TotalContributions,
		"summary_outstanding_loans":     g.Summary.OutstandingLoans,
		"summary_available_funds":       g.Summary.AvailableFunds,
		"summary_total_interest_earned": g.Summary.TotalInterestEarned,
		"version":                       g.Version + 1,
		"updated_at":                    now,
	}
	res := r.db.WithContext(ctx).
		Model(&groupDomain.Group{}).
		Where("group_id = ? AND version = ?", g.GroupID, g.Version).
		Updates(cols)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrVersionConflict.Withf("group %s at version %d", g.GroupID, g.Version)
	}
	g.Version++
	g.UpdatedAt = now
	return nil
}

func (r *GroupRepository) ListIDsByStatus(ctx context.Context, status groupDomain.Status) ([]string, error) {
	var ids []string
	res := r.db.WithContext(ctx).
		Model(&groupDomain.Group{}).
		Where("status = ?", status).
		Order("id").
		Pluck("group_id", &ids)
	return ids, res.Error
}

type MemberRepository struct{ db *gorm.DB }

func NewMemberRepository(db *gorm.DB) *MemberRepository { return &MemberRepository{db: db} }

func (r *MemberRepository) Add(ctx context.Context, m *groupDomain.Membership) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *MemberRepository) Get(ctx context.Context, groupID, memberID string) (*groupDomain.Membership, error) {
	var out groupDomain.Membership
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND member_id = ?", groupID, memberID).
		First(&out)
	return &out, res.Error
}

func (r *MemberRepository) Save(ctx context.Context, m *groupDomain.Membership) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *MemberRepository) ListActive(ctx context.Context, groupID string) ([]groupDomain.Membership, error) {
	var out []groupDomain.Membership
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND status = ?", groupID, groupDomain.MemberActive).
		Order("joined_at, id").
		Find(&out)
	return out, res.Error
}
