package loan

// Tally counts the votes cast on a loan against the members entitled to vote.
type Tally struct {
	Approve  int
	Reject   int
	Eligible int
}

func (t Tally) Remaining() int {
	r := t.Eligible - t.Approve - t.Reject
	if r < 0 {
		return 0
	}
	return r
}

// VotePolicy resolves a tally into a decision.
type VotePolicy struct {
	// Threshold is the number of matching votes that decides the loan.
	Threshold int
	// TiesApprove decides an exhausted, evenly split vote.
	TiesApprove bool
}

// MajorityThreshold is a simple majority of the active membership.
func MajorityThreshold(activeMembers int) int { return activeMembers/2 + 1 }

// NewVotePolicy builds the policy for a group. A configured threshold of 0
// means simple majority. The threshold never exceeds the eligible voters, so
// small groups can still reach a decision.
func NewVotePolicy(configured, activeMembers, eligible int, tiesApprove bool) VotePolicy {
	th := configured
	if th <= 0 {
		th = MajorityThreshold(activeMembers)
	}
	if th > eligible {
		th = eligible
	}
	if th < 1 {
		th = 1
	}
	return VotePolicy{Threshold: th, TiesApprove: tiesApprove}
}

// Resolve returns the decided state, or false while voting should continue.
func (p VotePolicy) Resolve(t Tally) (State, bool) {
	switch {
	case t.Approve >= p.Threshold:
		return StateApproved, true
	case t.Reject >= p.Threshold:
		return StateRejected, true
	case t.Remaining() > 0:
		return StateVoting, false
	case t.Approve == t.Reject && p.TiesApprove:
		return StateApproved, true
	default:
		return StateRejected, true
	}
}
