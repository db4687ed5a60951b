package aggregate

import (
	"group-savings-engine/internal/domain/group"
)

// Snapshot is the group state returned with every command result.
type Snapshot struct {
	GroupID     string        `json:"group_id"`
	Status      group.Status  `json:"status"`
	CycleNumber int           `json:"cycle_number"`
	Version     int64         `json:"version"`
	Summary     group.Summary `json:"summary"`
}

func SnapshotOf(g *group.Group) Snapshot {
	return Snapshot{
		GroupID:     g.GroupID,
		Status:      g.Status,
		CycleNumber: g.CycleNumber,
		Version:     g.Version,
		Summary:     g.Summary,
	}
}

type ReconcileReport struct {
	GroupID    string        `json:"group_id"`
	Stored     group.Summary `json:"stored"`
	Recomputed group.Summary `json:"recomputed"`
	InSync     bool          `json:"in_sync"`
	Repaired   bool          `json:"repaired"`
}
