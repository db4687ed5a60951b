package mysql

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	loanDomain "group-savings-engine/internal/domain/loan"

	"gorm.io/gorm"
)

type LoanRepository struct{ db *gorm.DB }

func NewLoanRepository(db *gorm.DB) *LoanRepository { return &LoanRepository{db: db} }

func (r *LoanRepository) Create(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *LoanRepository) Save(ctx context.Context, l *loanDomain.Loan) error {
	return r.db.WithContext(ctx).Save(l).Error
}

func (r *LoanRepository) GetByLoanID(ctx context.Context, loanID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	res := r.db.WithContext(ctx).Where("loan_id = ?", loanID).First(&out)
	return &out, res.Error
}

func (r *LoanRepository) ListByGroup(ctx context.Context, groupID string) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("requested_at, id").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) ListByState(ctx context.Context, groupID string, states ...loanDomain.State) ([]loanDomain.Loan, error) {
	var out []loanDomain.Loan
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND state IN ?", groupID, states).
		Order("requested_at, id").
		Find(&out)
	return out, res.Error
}

func (r *LoanRepository) GetOpenByBorrower(ctx context.Context, groupID, borrowerID string) (*loanDomain.Loan, error) {
	var out loanDomain.Loan
	open := []loanDomain.State{loanDomain.StatePending, loanDomain.StateVoting, loanDomain.StateApproved}
	res := r.db.WithContext(ctx).
		Where("group_id = ? AND borrower_id = ? AND state IN ?", groupID, borrowerID, open).
		Order("state_updated_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}

type VoteRepository struct{ db *gorm.DB }

func NewVoteRepository(db *gorm.DB) *VoteRepository { return &VoteRepository{db: db} }

// Create relies on ux_votes_loan_member; the gorm config must translate errors.
func (r *VoteRepository) Create(ctx context.Context, v *loanDomain.Vote) error {
	err := r.db.WithContext(ctx).Create(v).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.ErrDuplicateVote.Withf("member %s on loan %s", v.MemberID, v.LoanID)
	}
	return err
}

func (r *VoteRepository) ListByLoan(ctx context.Context, loanID string) ([]loanDomain.Vote, error) {
	var out []loanDomain.Vote
	res := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("cast_at, id").
		Find(&out)
	return out, res.Error
}
