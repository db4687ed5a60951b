package group

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestSummary_Deltas(t *testing.T) {
	var s Summary
	s.ApplyContribution(d(100000))
	if !s.CanDisburse(d(100000)) || s.CanDisburse(d(100001)) {
		t.Fatalf("CanDisburse wrong for available %s", s.AvailableFunds)
	}
	s.ApplyDisbursement(d(60000))
	s.ApplyRepayment(d(30000))
	s.ApplyRepayment(d(33000))
	s.ApplySettlement(d(60000), d(3000))

	want := Summary{
		TotalContributions:  d(100000),
		OutstandingLoans:    d(0),
		AvailableFunds:      d(103000),
		TotalInterestEarned: d(3000),
	}
	if !s.Equal(want) {
		t.Fatalf("summary = %+v, want %+v", s, want)
	}
}

func TestMembership_Capabilities(t *testing.T) {
	member := Membership{Role: RoleMember, Status: MemberActive}
	manager := Membership{Role: RoleManager, Status: MemberActive}
	gone := Membership{Role: RoleManager, Status: MemberInactive}

	if !member.Capabilities().Has(CanVote | CanBorrow) {
		t.Fatal("member should vote and borrow")
	}
	if member.Capabilities().Has(CanDecide) || member.Capabilities().Has(CanDisburse) {
		t.Fatal("member must not decide or disburse")
	}
	if !manager.Capabilities().Has(CanDecide | CanDisburse | CanAdminister) {
		t.Fatal("manager should hold every capability")
	}
	if gone.Capabilities() != 0 {
		t.Fatalf("inactive membership capabilities = %b", gone.Capabilities())
	}
}

func TestEnums(t *testing.T) {
	if !Monthly.Valid() || Frequency("daily").Valid() {
		t.Fatal("frequency validation")
	}
	if !StatusClosed.Valid() || Status("deleted").Valid() {
		t.Fatal("status validation")
	}
	if !RoleManager.Valid() || Role("admin").Valid() {
		t.Fatal("role validation")
	}
}
