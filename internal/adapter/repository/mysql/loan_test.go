package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	contribDomain "group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/errs"
	groupDomain "group-savings-engine/internal/domain/group"
	domain "group-savings-engine/internal/domain/loan"
	"group-savings-engine/pkg/id"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// openTestDB creates an in-memory sqlite DB with the ledger schema.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&groupDomain.Group{},
		&groupDomain.Membership{},
		&contribDomain.Contribution{},
		&domain.Loan{},
		&domain.Vote{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

func makeLoan(loanID, groupID, borrowerID string, state domain.State) *domain.Loan {
	return &domain.Loan{
		LoanID:          loanID,
		GroupID:         groupID,
		BorrowerID:      borrowerID,
		RequestedAmount: decimal.NewFromInt(300000),
		InterestRate:    decimal.NewFromInt(5),
		TermDays:        30,
		Interest:        decimal.NewFromInt(15000),
		TotalRepayment:  decimal.NewFromInt(315000),
		RepaidAmount:    decimal.Zero,
		State:           state,
		RequestedAt:     time.Now().UTC(),
		StateUpdatedAt:  time.Now().UTC(),
	}
}

func TestCreateAndGetByLoanID(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	loanID := id.NewID32()
	borrower := id.NewID32()

	l := makeLoan(loanID, "g1", borrower, domain.StatePending)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if l.ID == 0 {
		t.Fatalf("Create did not set auto-increment ID")
	}

	got, err := repo.GetByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.LoanID != loanID || got.BorrowerID != borrower {
		t.Errorf("unexpected loan: %+v", got)
	}
	if !got.TotalRepayment.Equal(decimal.NewFromInt(315000)) {
		t.Errorf("TotalRepayment round-trip: got %s", got.TotalRepayment)
	}
	if got.DueDate != nil {
		t.Errorf("DueDate should stay nil until activation, got %v", got.DueDate)
	}
}

func TestSaveUpdates(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	loanID := id.NewID32()
	l := makeLoan(loanID, "g1", "dddddddddddddddddddddddddddddddd", domain.StateApproved)
	if err := repo.Create(ctx, l); err != nil {
		t.Fatalf("Create: %v", err)
	}

	due := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(time.Second)
	l.State = domain.StateActive
	l.DueDate = &due
	l.RepaidAmount = decimal.NewFromInt(1000)
	if err := repo.Save(ctx, l); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.GetByLoanID(ctx, loanID)
	if err != nil {
		t.Fatalf("GetByLoanID: %v", err)
	}
	if got.State != domain.StateActive || got.DueDate == nil || !got.DueDate.Equal(due) {
		t.Errorf("loan not updated: state=%s due=%v", got.State, got.DueDate)
	}
	if !got.RepaidAmount.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("RepaidAmount = %s", got.RepaidAmount)
	}
}

func TestGetByLoanID_NotFound(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)

	_, err := repo.GetByLoanID(context.Background(), "eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestListByStateAndOpenByBorrower(t *testing.T) {
	db := openTestDB(t)
	repo := NewLoanRepository(db)
	ctx := context.Background()

	b1 := "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	seed := []*domain.Loan{
		makeLoan("l-active", "g1", b1, domain.StateActive),
		makeLoan("l-overdue", "g1", "other", domain.StateOverdue),
		makeLoan("l-repaid", "g1", b1, domain.StateRepaid),
		makeLoan("l-voting", "g1", b1, domain.StateVoting),
		makeLoan("l-elsewhere", "g2", b1, domain.StateActive),
	}
	for i, l := range seed {
		l.StateUpdatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		if err := repo.Create(ctx, l); err != nil {
			t.Fatal(err)
		}
	}

	got, err := repo.ListByState(ctx, "g1", domain.StateActive, domain.StateOverdue)
	if err != nil {
		t.Fatalf("ListByState: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListByState len = %d, want 2 (%+v)", len(got), got)
	}

	open, err := repo.GetOpenByBorrower(ctx, "g1", b1)
	if err != nil {
		t.Fatalf("GetOpenByBorrower: %v", err)
	}
	if open.LoanID != "l-voting" {
		t.Fatalf("open loan = %s, want l-voting", open.LoanID)
	}
	if _, err := repo.GetOpenByBorrower(ctx, "g2", b1); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected no open loan in g2, got %v", err)
	}

	all, err := repo.ListByGroup(ctx, "g1")
	if err != nil || len(all) != 4 {
		t.Fatalf("ListByGroup = %d, %v", len(all), err)
	}
}

func TestVoteRepository_DuplicateVote(t *testing.T) {
	db := openTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	v := &domain.Vote{LoanID: "l1", MemberID: "m1", Choice: domain.ChoiceApprove, CastAt: time.Now().UTC()}
	if err := repo.Create(ctx, v); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, &domain.Vote{LoanID: "l1", MemberID: "m1", Choice: domain.ChoiceReject, CastAt: time.Now().UTC()})
	if !errors.Is(err, errs.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if err := repo.Create(ctx, &domain.Vote{LoanID: "l1", MemberID: "m2", Choice: domain.ChoiceReject, CastAt: time.Now().UTC()}); err != nil {
		t.Fatalf("second member vote: %v", err)
	}

	votes, err := repo.ListByLoan(ctx, "l1")
	if err != nil || len(votes) != 2 {
		t.Fatalf("ListByLoan = %d, %v", len(votes), err)
	}
}
