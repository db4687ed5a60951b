package group

import "github.com/shopspring/decimal"

// Summary is the group's financial projection. Commands adjust it through the
// Apply* deltas; the aggregator can rebuild it from the record streams.
type Summary struct {
	TotalContributions  decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_contributions"`
	OutstandingLoans    decimal.Decimal `gorm:"type:decimal(18,2)" json:"outstanding_loans"`
	AvailableFunds      decimal.Decimal `gorm:"type:decimal(18,2)" json:"available_funds"`
	TotalInterestEarned decimal.Decimal `gorm:"type:decimal(18,2)" json:"total_interest_earned"`
}

func (s *Summary) ApplyContribution(amount decimal.Decimal) {
	s.TotalContributions = s.TotalContributions.Add(amount)
	s.AvailableFunds = s.AvailableFunds.Add(amount)
}

// CanDisburse reports whether principal fits in the available funds.
func (s Summary) CanDisburse(principal decimal.Decimal) bool {
	return s.AvailableFunds.GreaterThanOrEqual(principal)
}

// ApplyDisbursement moves principal from available funds to outstanding loans.
// Callers must check CanDisburse first.
func (s *Summary) ApplyDisbursement(principal decimal.Decimal) {
	s.AvailableFunds = s.AvailableFunds.Sub(principal)
	s.OutstandingLoans = s.OutstandingLoans.Add(principal)
}

// ApplyRepayment returns repaid cash to the pool.
func (s *Summary) ApplyRepayment(amount decimal.Decimal) {
	s.AvailableFunds = s.AvailableFunds.Add(amount)
}

// ApplySettlement closes a fully repaid loan.
func (s *Summary) ApplySettlement(principal, interest decimal.Decimal) {
	s.OutstandingLoans = s.OutstandingLoans.Sub(principal)
	s.TotalInterestEarned = s.TotalInterestEarned.Add(interest)
}

func (s Summary) Equal(o Summary) bool {
	return s.TotalContributions.Equal(o.TotalContributions) &&
		s.OutstandingLoans.Equal(o.OutstandingLoans) &&
		s.AvailableFunds.Equal(o.AvailableFunds) &&
		s.TotalInterestEarned.Equal(o.TotalInterestEarned)
}
