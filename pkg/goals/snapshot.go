package goals

import (
	"sort"
	"time"
)

// ChangeKind names the operation that produced a snapshot.
type ChangeKind string

const (
	ChangeLoaded    ChangeKind = "loaded"
	ChangeAdded     ChangeKind = "added"
	ChangeMoved     ChangeKind = "moved"
	ChangeReordered ChangeKind = "reordered"
	ChangeUpdated   ChangeKind = "updated"
	ChangeDeleted   ChangeKind = "deleted"
)

// Change describes the mutation behind a snapshot.
type Change struct {
	Kind   ChangeKind
	GoalID string
	From   Status
	To     Status
	Index  int
}

// Snapshot is a consistent, caller-owned copy of every bucket.
type Snapshot struct {
	Active    []Goal
	Backlog   []Goal
	Completed []Goal
	Change    Change
}

// Bucket returns the ordered goals for st.
func (s Snapshot) Bucket(st Status) []Goal {
	switch st {
	case StatusActive:
		return s.Active
	case StatusBacklog:
		return s.Backlog
	case StatusCompleted:
		return s.Completed
	}
	return nil
}

// Counts returns the number of goals per status.
func (s Snapshot) Counts() map[Status]int {
	return map[Status]int{
		StatusActive:    len(s.Active),
		StatusBacklog:   len(s.Backlog),
		StatusCompleted: len(s.Completed),
	}
}

// Len returns the total number of goals.
func (s Snapshot) Len() int {
	return len(s.Active) + len(s.Backlog) + len(s.Completed)
}

// Observer receives a snapshot after every successful mutation. It is
// called with the Store's operation lock held, so calling a Store
// mutation from inside an Observer deadlocks.
type Observer func(Snapshot)

// sortCompleted orders completed goals newest first, using the completion
// stamp and falling back to creation time.
func sortCompleted(list []Goal) {
	sort.SliceStable(list, func(i, j int) bool {
		return completedKey(&list[i]).After(completedKey(&list[j]))
	})
}

func completedKey(g *Goal) time.Time {
	if g.CompletedAt != nil {
		return *g.CompletedAt
	}
	return g.Created
}
