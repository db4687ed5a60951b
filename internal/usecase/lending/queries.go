package lending

import (
	"context"
	"errors"

	"group-savings-engine/internal/domain/errs"
	"group-savings-engine/internal/domain/finance"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"
	"group-savings-engine/internal/usecase/aggregate"

	"gorm.io/gorm"
)

// GetLoanEligibility reports what the member could borrow right now. It reads
// without the group lock; RequestLoan checks everything again at commit.
func (u *Usecase) GetLoanEligibility(ctx context.Context, groupID, memberID string) (*EligibilityDTO, error) {
	g, err := u.repos.Groups.GetByGroupID(ctx, groupID)
	if err != nil {
		return nil, aggregate.Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	m, err := u.idp.ResolveMember(ctx, groupID, memberID)
	if err != nil {
		return nil, err
	}
	contributed, err := totalContributed(ctx, u.repos, groupID, memberID)
	if err != nil {
		return nil, errs.Infra(err)
	}

	out := &EligibilityDTO{
		GroupID:          groupID,
		MemberID:         memberID,
		MaxBorrowable:    finance.MaxBorrowable(g.Loans, g.Summary.AvailableFunds, contributed, u.precision),
		TotalContributed: contributed,
		AvailableFunds:   g.Summary.AvailableFunds,
		InterestRate:     g.Loans.InterestRate,
		MaxLoanTermDays:  g.Loans.MaxLoanTermDays,
		RequiresVoting:   g.Loans.RequiresVoting,
	}
	if !g.Active() {
		out.Reasons = append(out.Reasons, errs.ErrGroupNotActive.Code)
	}
	if !g.Loans.Enabled {
		out.Reasons = append(out.Reasons, errs.ErrLoanSettingsDisabled.Code)
	}
	if !m.Capabilities().Has(group.CanBorrow) {
		out.Reasons = append(out.Reasons, errs.ErrForbidden.Code)
	}
	open, err := u.repos.Loans.GetOpenByBorrower(ctx, groupID, memberID)
	switch {
	case err == nil:
		out.OpenLoanID = open.LoanID
		out.Reasons = append(out.Reasons, errs.ErrOpenLoanExists.Code)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, errs.Infra(err)
	}
	if !out.MaxBorrowable.IsPositive() {
		out.Reasons = append(out.Reasons, errs.ErrAmountExceedsLimit.Code)
	}
	out.Eligible = len(out.Reasons) == 0
	return out, nil
}

// ListActiveLoans lists disbursed loans, overdue ones included.
func (u *Usecase) ListActiveLoans(ctx context.Context, groupID string) ([]LoanDTO, error) {
	if _, err := u.repos.Groups.GetByGroupID(ctx, groupID); err != nil {
		return nil, aggregate.Lookup(err, errs.ErrGroupNotFound, groupID)
	}
	loans, err := u.repos.Loans.ListByState(ctx, groupID, loan.StateActive, loan.StateOverdue)
	if err != nil {
		return nil, errs.Infra(err)
	}
	out := make([]LoanDTO, 0, len(loans))
	for i := range loans {
		out = append(out, toDTO(&loans[i]))
	}
	return out, nil
}

func (u *Usecase) GetLoan(ctx context.Context, loanID string) (*LoanDTO, error) {
	l, err := u.loadLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(l)
	return &dto, nil
}
