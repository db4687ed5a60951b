package loan

import "context"

type Repository interface {
	Create(ctx context.Context, l *Loan) error
	GetByLoanID(ctx context.Context, loanID string) (*Loan, error)
	Save(ctx context.Context, l *Loan) error
	ListByGroup(ctx context.Context, groupID string) ([]Loan, error)
	ListByState(ctx context.Context, groupID string, states ...State) ([]Loan, error)
	// GetOpenByBorrower returns the newest pending/voting/approved loan of the borrower.
	GetOpenByBorrower(ctx context.Context, groupID, borrowerID string) (*Loan, error)
}

type VoteRepository interface {
	// Create fails with errs.ErrDuplicateVote when the member already voted.
	Create(ctx context.Context, v *Vote) error
	ListByLoan(ctx context.Context, loanID string) ([]Vote, error)
}
