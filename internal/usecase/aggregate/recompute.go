package aggregate

import (
	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/group"
	"group-savings-engine/internal/domain/loan"

	"github.com/shopspring/decimal"
)

// Recompute rebuilds a group summary from its records alone.
// It must agree with the summary maintained by the Apply* deltas.
func Recompute(contribs []contribution.Contribution, loans []loan.Loan) group.Summary {
	s := group.Summary{
		TotalContributions:  decimal.Zero,
		OutstandingLoans:    decimal.Zero,
		AvailableFunds:      decimal.Zero,
		TotalInterestEarned: decimal.Zero,
	}
	for _, c := range contribs {
		s.TotalContributions = s.TotalContributions.Add(c.PaidAmount)
	}

	inFlight := decimal.Zero // repaid so far on loans still out
	for _, l := range loans {
		switch {
		case l.State.Disbursed():
			s.OutstandingLoans = s.OutstandingLoans.Add(l.RequestedAmount)
			inFlight = inFlight.Add(l.RepaidAmount)
		case l.State == loan.StateRepaid:
			s.TotalInterestEarned = s.TotalInterestEarned.Add(l.TotalRepayment.Sub(l.RequestedAmount))
		}
	}

	s.AvailableFunds = s.TotalContributions.
		Sub(s.OutstandingLoans).
		Add(inFlight).
		Add(s.TotalInterestEarned)
	return s
}
