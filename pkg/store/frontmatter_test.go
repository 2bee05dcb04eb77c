package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

func TestParseFrontmatter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(t *testing.T, g *goals.Goal)
	}{
		{
			name: "full frontmatter with body",
			input: `---
id: run-10k
title: "Run a 10k"
category: fitness
status: active
progress: 40
position: 1
target_date: 2026-06-01T00:00:00Z
linked_values: [health, discipline]
milestones:
  - id: m1
    title: "5k without stopping"
    completed_at: 2026-03-01T08:00:00Z
  - id: m2
    title: "8k"
created: 2026-02-08T10:00:00Z
updated: 2026-02-08T14:30:00Z
---

# Training

Three runs a week.
`,
			check: func(t *testing.T, g *goals.Goal) {
				assert.Equal(t, "run-10k", g.ID)
				assert.Equal(t, "Run a 10k", g.Title)
				assert.Equal(t, goals.CategoryFitness, g.Category)
				assert.Equal(t, goals.StatusActive, g.Status)
				assert.Equal(t, 40, g.Progress)
				assert.Equal(t, 1, g.Position)
				require.NotNil(t, g.TargetDate)
				assert.Equal(t, 2026, g.TargetDate.Year())
				assert.Equal(t, []string{"health", "discipline"}, g.LinkedValueIDs)
				require.Len(t, g.Milestones, 2)
				assert.True(t, g.Milestones[0].IsComplete())
				assert.False(t, g.Milestones[1].IsComplete())
				assert.Contains(t, g.Notes, "# Training")
				assert.Contains(t, g.Notes, "Three runs a week.")
			},
		},
		{
			name:  "no frontmatter",
			input: "Just some notes without frontmatter.",
			check: func(t *testing.T, g *goals.Goal) {
				assert.Equal(t, "", g.Title)
				assert.Equal(t, "Just some notes without frontmatter.", g.Notes)
			},
		},
		{
			name:    "unclosed frontmatter",
			input:   "---\ntitle: broken\n",
			wantErr: true,
		},
		{
			name:    "invalid yaml",
			input:   "---\ntitle: [unterminated\n---\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseFrontmatter(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, g)
		})
	}
}

func TestSerializeFrontmatterRoundTrip(t *testing.T) {
	created := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	done := created.Add(48 * time.Hour)
	original := &goals.Goal{
		ID:          "g1",
		Title:       "Read 12 books",
		Category:    goals.CategoryLearning,
		Status:      goals.StatusCompleted,
		Progress:    100,
		Milestones:  []goals.Milestone{{ID: "m1", Title: "First book", CompletedAt: &done}},
		Created:     created,
		Updated:     done,
		CompletedAt: &done,
		Notes:       "Mostly fiction.\n",
	}

	content, err := SerializeFrontmatter(original)
	require.NoError(t, err)
	assert.Contains(t, content, "---\n")
	assert.Contains(t, content, "title: Read 12 books")
	assert.NotContains(t, content, "target_date")

	parsed, err := ParseFrontmatter(content)
	require.NoError(t, err)
	assert.Equal(t, original.Title, parsed.Title)
	assert.Equal(t, original.Status, parsed.Status)
	assert.Equal(t, original.Milestones[0].Title, parsed.Milestones[0].Title)
	assert.True(t, original.CompletedAt.Equal(*parsed.CompletedAt))
	assert.Equal(t, "Mostly fiction.", parsed.Notes)
}

func TestSerializeFrontmatterWithoutNotes(t *testing.T) {
	content, err := SerializeFrontmatter(&goals.Goal{ID: "g2", Title: "Empty"})
	require.NoError(t, err)
	assert.True(t, len(content) > 0)
	assert.Equal(t, "---\n", content[len(content)-4:])
}
