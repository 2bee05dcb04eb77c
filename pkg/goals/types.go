package goals

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status is the bucket a goal currently lives in.
type Status string

const (
	StatusBacklog   Status = "backlog"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Statuses lists every bucket in display order.
var Statuses = []Status{StatusActive, StatusBacklog, StatusCompleted}

// Valid reports whether s is one of the known buckets.
func (s Status) Valid() bool {
	switch s {
	case StatusBacklog, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// ParseStatus converts user input into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if st == "done" || st == "complete" {
		st = StatusCompleted
	}
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
	return st, nil
}

// Category classifies what area of life a goal belongs to.
type Category string

const (
	CategoryPersonal      Category = "personal"
	CategoryCareer        Category = "career"
	CategoryHealth        Category = "health"
	CategoryFitness       Category = "fitness"
	CategoryFinance       Category = "finance"
	CategoryLearning      Category = "learning"
	CategoryRelationships Category = "relationships"
	CategoryOther         Category = "other"
)

// Categories lists every known category.
var Categories = []Category{
	CategoryPersonal, CategoryCareer, CategoryHealth, CategoryFitness,
	CategoryFinance, CategoryLearning, CategoryRelationships, CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Milestone is a checkpoint on the way to a goal.
type Milestone struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	CompletedAt *time.Time `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// IsComplete returns true if the milestone has a completion timestamp.
func (m Milestone) IsComplete() bool {
	return m.CompletedAt != nil
}

// Goal is a single tracked goal. Status, Progress and Position are owned by
// the Store and should only change through its operations.
type Goal struct {
	ID             string      `yaml:"id" json:"id"`
	Title          string      `yaml:"title" json:"title"`
	Category       Category    `yaml:"category" json:"category"`
	Status         Status      `yaml:"status" json:"status"`
	Progress       int         `yaml:"progress" json:"progress"`
	Position       int         `yaml:"position" json:"position"`
	TargetDate     *time.Time  `yaml:"target_date,omitempty" json:"target_date,omitempty"`
	LinkedValueIDs []string    `yaml:"linked_values,omitempty" json:"linked_values,omitempty"`
	Milestones     []Milestone `yaml:"milestones,omitempty" json:"milestones,omitempty"`
	Created        time.Time   `yaml:"created" json:"created"`
	Updated        time.Time   `yaml:"updated" json:"updated"`
	CompletedAt    *time.Time  `yaml:"completed_at,omitempty" json:"completed_at,omitempty"`

	// Free-form markdown, stored as the body of the goal file.
	Notes string `yaml:"-" json:"notes,omitempty"`
}

// IsComplete returns true if the goal is in the completed bucket.
func (g *Goal) IsComplete() bool {
	return g.Status == StatusCompleted
}

// IsActive returns true if the goal is one of the focused goals.
func (g *Goal) IsActive() bool {
	return g.Status == StatusActive
}

// MilestonesDone counts completed milestones.
func (g *Goal) MilestonesDone() int {
	n := 0
	for _, m := range g.Milestones {
		if m.IsComplete() {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of g.
func (g *Goal) Clone() *Goal {
	c := *g
	c.TargetDate = cloneTime(g.TargetDate)
	c.CompletedAt = cloneTime(g.CompletedAt)
	if g.LinkedValueIDs != nil {
		c.LinkedValueIDs = append([]string(nil), g.LinkedValueIDs...)
	}
	if g.Milestones != nil {
		c.Milestones = make([]Milestone, len(g.Milestones))
		for i, m := range g.Milestones {
			m.CompletedAt = cloneTime(m.CompletedAt)
			c.Milestones[i] = m
		}
	}
	return &c
}

// Draft holds the caller-supplied fields for a new goal.
type Draft struct {
	Title          string
	Category       Category
	Progress       int
	TargetDate     *time.Time
	LinkedValueIDs []string
	Milestones     []string
	Notes          string
}

// ClampProgress limits p to the [0,100] range.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// normalizeValueIDs trims, de-duplicates and sorts a set of value IDs.
func normalizeValueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
