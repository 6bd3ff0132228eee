package scheduler

import (
	"sort"
	"time"
)

// Slot is a time range occupied by an event, identified by the event ID.
type Slot struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Conflict details an existing slot overlapping the candidate, together with
// the shared window.
type Conflict struct {
	WithID string
	Start  time.Time
	End    time.Time
}

// DetectConflicts reports every existing slot whose half-open range
// [Start, End) intersects the candidate's. Slots sharing the candidate's ID and
// empty or inverted ranges never conflict. Results are ordered by start time.
func DetectConflicts(existing []Slot, candidate Slot) []Conflict {
	if !candidate.End.After(candidate.Start) {
		return nil
	}

	var conflicts []Conflict
	for _, slot := range existing {
		if slot.ID == candidate.ID || !slot.End.After(slot.Start) {
			continue
		}
		start := latest(slot.Start, candidate.Start)
		end := earliest(slot.End, candidate.End)
		if !end.After(start) {
			continue
		}
		conflicts = append(conflicts, Conflict{WithID: slot.ID, Start: start, End: end})
	}

	sort.SliceStable(conflicts, func(i, j int) bool {
		return conflicts[i].Start.Before(conflicts[j].Start)
	})
	return conflicts
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
