package contribution

import (
	"time"

	"group-savings-engine/internal/domain/contribution"
	"group-savings-engine/internal/domain/group"
)

// Period is one contribution cycle. Index 0 starts at the group's start
// date; a period's dues fall on the start of the next one.
type Period struct {
	Index int       `json:"index"`
	Start time.Time `json:"start"`
	Due   time.Time `json:"due"`
}

func periodStart(s group.ContributionSettings, k int) time.Time {
	switch s.Frequency {
	case group.Weekly:
		return s.StartDate.AddDate(0, 0, 7*k)
	case group.Biweekly:
		return s.StartDate.AddDate(0, 0, 14*k)
	default:
		return addMonthsClamped(s.StartDate, k)
	}
}

// addMonthsClamped keeps the start day of month, falling back to the last
// day of shorter months, so a schedule starting on the 31st never drifts.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

// PeriodAt returns the period containing asOf, or false before the schedule starts.
func PeriodAt(s group.ContributionSettings, asOf time.Time) (Period, bool) {
	if asOf.Before(s.StartDate) {
		return Period{}, false
	}

	var k int
	switch s.Frequency {
	case group.Weekly:
		k = int(asOf.Sub(s.StartDate) / (7 * 24 * time.Hour))
	case group.Biweekly:
		k = int(asOf.Sub(s.StartDate) / (14 * 24 * time.Hour))
	default:
		k = (asOf.Year()-s.StartDate.Year())*12 + int(asOf.Month()) - int(s.StartDate.Month())
	}
	// month arithmetic can overshoot by one around month ends
	for k > 0 && periodStart(s, k).After(asOf) {
		k--
	}
	for !periodStart(s, k+1).After(asOf) {
		k++
	}
	return Period{Index: k, Start: periodStart(s, k), Due: periodStart(s, k+1)}, true
}

// Classify reports overdue for a pending record past its due date; any other
// record keeps its status.
func Classify(c *contribution.Contribution, asOf time.Time) contribution.Status {
	if c.Status == contribution.StatusPending && asOf.After(c.DueDate) {
		return contribution.StatusOverdue
	}
	return c.Status
}
