// Package finance holds the pure eligibility and interest arithmetic. Nothing
// here performs I/O or reads the clock.
package finance

import (
	"github.com/shopspring/decimal"

	"group-savings-engine/internal/domain/group"
)

// DefaultPrecision rounds money to whole minor units.
const DefaultPrecision int32 = 0

var (
	hundred    = decimal.NewFromInt(100)
	thirtyDays = decimal.NewFromInt(30)
	half       = decimal.NewFromFloat(0.5)
)

// RoundHalfUp rounds to precision fractional digits, ties toward +infinity.
func RoundHalfUp(d decimal.Decimal, precision int32) decimal.Decimal {
	return d.Shift(precision).Add(half).Floor().Shift(-precision)
}

// FitsPrecision reports whether d has no digits below the currency's minor unit.
func FitsPrecision(d decimal.Decimal, precision int32) bool {
	return d.Equal(d.Truncate(precision))
}

// MaxBorrowable is the largest principal a member may request.
// A percentage basis caps against the group's available funds, a multiplier
// basis against the member's own contributions. Without either it is zero.
func MaxBorrowable(s group.LoanSettings, availableFunds, totalContributed decimal.Decimal, precision int32) decimal.Decimal {
	var limit decimal.Decimal
	switch {
	case s.MaxLoanPercentage.Valid:
		limit = s.MaxLoanPercentage.Decimal.Div(hundred).Mul(availableFunds)
	case s.MaxLoanMultiplier.Valid:
		limit = s.MaxLoanMultiplier.Decimal.Mul(totalContributed)
	default:
		return decimal.Zero
	}
	if limit.IsNegative() {
		return decimal.Zero
	}
	return limit.Truncate(precision)
}

// ComputeInterest charges rate percent per 30 days, pro rata over termDays.
func ComputeInterest(principal, rate decimal.Decimal, termDays int, precision int32) decimal.Decimal {
	if termDays <= 0 || rate.IsZero() {
		return decimal.Zero
	}
	interest := principal.Mul(rate).Div(hundred).
		Mul(decimal.NewFromInt(int64(termDays))).Div(thirtyDays)
	return RoundHalfUp(interest, precision)
}

func TotalRepayment(principal, interest decimal.Decimal) decimal.Decimal {
	return principal.Add(interest)
}

// Quote is the binding repayment figure shown to a borrower.
type Quote struct {
	Principal      decimal.Decimal `json:"principal"`
	InterestRate   decimal.Decimal `json:"interest_rate"`
	TermDays       int             `json:"term_days"`
	Interest       decimal.Decimal `json:"interest"`
	TotalRepayment decimal.Decimal `json:"total_repayment"`
}

func NewQuote(principal, rate decimal.Decimal, termDays int, precision int32) Quote {
	interest := ComputeInterest(principal, rate, termDays, precision)
	return Quote{
		Principal:      principal,
		InterestRate:   rate,
		TermDays:       termDays,
		Interest:       interest,
		TotalRepayment: TotalRepayment(principal, interest),
	}
}
