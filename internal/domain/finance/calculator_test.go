package finance

import (
	"testing"

	"github.com/shopspring/decimal"

	"group-savings-engine/internal/domain/group"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func nullDec(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: dec(s), Valid: true}
}

func TestMaxBorrowable(t *testing.T) {
	cases := []struct {
		name        string
		settings    group.LoanSettings
		available   string
		contributed string
		want        string
	}{
		{"multiplier", group.LoanSettings{MaxLoanMultiplier: nullDec("3")}, "900000", "100000", "300000"},
		{"percentage", group.LoanSettings{MaxLoanPercentage: nullDec("50")}, "250001", "100000", "125000"},
		{"percentage wins when both set", group.LoanSettings{MaxLoanPercentage: nullDec("10"), MaxLoanMultiplier: nullDec("3")}, "500000", "100000", "50000"},
		{"no basis", group.LoanSettings{}, "500000", "100000", "0"},
		{"negative funds clamp", group.LoanSettings{MaxLoanPercentage: nullDec("50")}, "-10", "0", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := MaxBorrowable(tc.settings, dec(tc.available), dec(tc.contributed), DefaultPrecision)
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("MaxBorrowable = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestComputeInterest(t *testing.T) {
	cases := []struct {
		principal string
		rate      string
		termDays  int
		precision int32
		want      string
	}{
		{"300000", "5", 30, 0, "15000"},
		{"300000", "5", 60, 0, "30000"},
		{"100000", "2.5", 45, 0, "3750"},
		{"1000", "1", 1, 0, "0"},    // 0.333.. rounds down
		{"1500", "1", 1, 0, "1"},    // 0.5 rounds half up
		{"1000", "1", 1, 2, "0.33"}, // two minor digits
		{"100000", "0", 30, 0, "0"},
		{"100000", "5", 0, 0, "0"},
	}
	for _, tc := range cases {
		got := ComputeInterest(dec(tc.principal), dec(tc.rate), tc.termDays, tc.precision)
		if !got.Equal(dec(tc.want)) {
			t.Errorf("ComputeInterest(%s, %s, %d, %d) = %s, want %s",
				tc.principal, tc.rate, tc.termDays, tc.precision, got, tc.want)
		}
	}
}

func TestRoundHalfUp(t *testing.T) {
	cases := map[string]string{
		"2.5":  "3",
		"2.49": "2",
		"3.5":  "4",
		"0":    "0",
	}
	for in, want := range cases {
		if got := RoundHalfUp(dec(in), 0); !got.Equal(dec(want)) {
			t.Errorf("RoundHalfUp(%s) = %s, want %s", in, got, want)
		}
	}
	if got := RoundHalfUp(dec("1.005"), 2); !got.Equal(dec("1.01")) {
		t.Errorf("RoundHalfUp(1.005, 2) = %s", got)
	}
}

func TestNewQuote(t *testing.T) {
	q := NewQuote(dec("300000"), dec("5"), 30, DefaultPrecision)
	if !q.Interest.Equal(dec("15000")) || !q.TotalRepayment.Equal(dec("315000")) {
		t.Fatalf("quote = %+v", q)
	}
	if !TotalRepayment(dec("10"), dec("2")).Equal(dec("12")) {
		t.Fatal("TotalRepayment")
	}
}

func TestFitsPrecision(t *testing.T) {
	cases := []struct {
		amount    string
		precision int32
		want      bool
	}{
		{"100", 0, true},
		{"100.00", 0, true},
		{"0.005", 0, false},
		{"10.5", 0, false},
		{"10.5", 2, true},
		{"10.505", 2, false},
	}
	for _, tc := range cases {
		if got := FitsPrecision(dec(tc.amount), tc.precision); got != tc.want {
			t.Errorf("FitsPrecision(%s, %d) = %v, want %v", tc.amount, tc.precision, got, tc.want)
		}
	}
}
