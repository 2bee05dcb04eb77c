package tui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

func TestBuildColumnsFollowsStatusOrder(t *testing.T) {
	snap := goals.Snapshot{
		Active:  []goals.Goal{{ID: "a", Status: goals.StatusActive}},
		Backlog: []goals.Goal{{ID: "b"}, {ID: "c"}},
	}
	cols := BuildColumns(snap)
	assert.Len(t, cols, 3)
	assert.Equal(t, goals.StatusActive, cols[0].Status)
	assert.Len(t, cols[0].Goals, 1)
	assert.Equal(t, goals.StatusBacklog, cols[1].Status)
	assert.Len(t, cols[1].Goals, 2)
	assert.Empty(t, cols[2].Goals)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, 10, lipgloss.Width(progressBar(50, 10)))
	assert.Equal(t, 10, lipgloss.Width(progressBar(150, 10)))
	assert.Equal(t, "", progressBar(50, 0))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefghij", 5))
	assert.Equal(t, "", truncate("abc", 0))
}

func TestLayoutHitTesting(t *testing.T) {
	l := newLayout(120, 40)

	col, ok := l.columnAt(0)
	assert.True(t, ok)
	assert.Equal(t, 0, col)
	col, ok = l.columnAt(l.colWidth + 1)
	assert.True(t, ok)
	assert.Equal(t, 1, col)
	_, ok = l.columnAt(l.boardWidth + 2)
	assert.False(t, ok)

	assert.Equal(t, 0, l.cardIndexAt(itemsTop, 0, 4))
	assert.Equal(t, 1, l.cardIndexAt(itemsTop+cardHeight, 0, 4))
	assert.Equal(t, 2, l.cardIndexAt(itemsTop, 2, 4), "scroll shifts the index")
	assert.Equal(t, -1, l.cardIndexAt(itemsTop+10*cardHeight, 0, 4))
	assert.Equal(t, -1, l.cardIndexAt(0, 0, 4))

	assert.Equal(t, 4.0, l.offsetY(itemsTop+4, 0))
	assert.Equal(t, 7.0, l.offsetY(itemsTop+1, 2))
}

func TestClampScroll(t *testing.T) {
	assert.Equal(t, 0, clampScroll(0, 2, 5, 10))
	assert.Equal(t, 3, clampScroll(0, 7, 5, 10))
	assert.Equal(t, 2, clampScroll(4, 2, 5, 10))
	assert.Equal(t, 0, clampScroll(3, 1, 5, 3))
}

func TestNextCategoryWraps(t *testing.T) {
	assert.Equal(t, goals.CategoryCareer, nextCategory(goals.CategoryPersonal))
	last := goals.Categories[len(goals.Categories)-1]
	assert.Equal(t, goals.Categories[0], nextCategory(last))
	assert.Equal(t, goals.Categories[0], nextCategory("bogus"))
}
