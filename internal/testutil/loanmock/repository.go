package loanmock

import (
	"context"

	domain "group-savings-engine/internal/domain/loan"

	"gorm.io/gorm"
)

var (
	_ domain.Repository     = (*Repo)(nil)
	_ domain.VoteRepository = (*VoteRepo)(nil)
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Writes default to no-ops; reads default to gorm.ErrRecordNotFound or empty.
type Repo struct {
	CreateFn            func(ctx context.Context, l *domain.Loan) error
	GetByLoanIDFn       func(ctx context.Context, loanID string) (*domain.Loan, error)
	SaveFn              func(ctx context.Context, l *domain.Loan) error
	ListByGroupFn       func(ctx context.Context, groupID string) ([]domain.Loan, error)
	ListByStateFn       func(ctx context.Context, groupID string, states ...domain.State) ([]domain.Loan, error)
	GetOpenByBorrowerFn func(ctx context.Context, groupID, borrowerID string) (*domain.Loan, error)
}

func (m *Repo) Create(ctx context.Context, l *domain.Loan) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, l)
	}
	return nil
}

func (m *Repo) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	if m.GetByLoanIDFn != nil {
		return m.GetByLoanIDFn(ctx, loanID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *Repo) Save(ctx context.Context, l *domain.Loan) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, l)
	}
	return nil
}

func (m *Repo) ListByGroup(ctx context.Context, groupID string) ([]domain.Loan, error) {
	if m.ListByGroupFn != nil {
		return m.ListByGroupFn(ctx, groupID)
	}
	return nil, nil
}

func (m *Repo) ListByState(ctx context.Context, groupID string, states ...domain.State) ([]domain.Loan, error) {
	if m.ListByStateFn != nil {
		return m.ListByStateFn(ctx, groupID, states...)
	}
	return nil, nil
}

func (m *Repo) GetOpenByBorrower(ctx context.Context, groupID, borrowerID string) (*domain.Loan, error) {
	if m.GetOpenByBorrowerFn != nil {
		return m.GetOpenByBorrowerFn(ctx, groupID, borrowerID)
	}
	return nil, gorm.ErrRecordNotFound
}

// VoteRepo is a function-backed mock that satisfies domain.VoteRepository.
type VoteRepo struct {
	CreateFn     func(ctx context.Context, v *domain.Vote) error
	ListByLoanFn func(ctx context.Context, loanID string) ([]domain.Vote, error)
}

func (m *VoteRepo) Create(ctx context.Context, v *domain.Vote) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, v)
	}
	return nil
}

func (m *VoteRepo) ListByLoan(ctx context.Context, loanID string) ([]domain.Vote, error) {
	if m.ListByLoanFn != nil {
		return m.ListByLoanFn(ctx, loanID)
	}
	return nil, nil
}
