package tui

import (
	"context"
	"fmt"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/wellspring/pkg/goals"
	"github.com/stefanpenner/wellspring/pkg/metrics"
)

const (
	testWidth  = 120
	testHeight = 40
)

func setupModel(t *testing.T, titles ...string) (Model, *goals.Store) {
	t.Helper()
	n := 0
	s := goals.New(nil, goals.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}))
	for _, title := range titles {
		_, err := s.AddGoal(context.Background(), goals.Draft{Title: title})
		require.NoError(t, err)
	}
	m := NewModel(s, Options{Metrics: metrics.NewRecorder()})
	m = update(t, m, tea.WindowSizeMsg{Width: testWidth, Height: testHeight})
	return m, s
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next.(Model)
}

func press(t *testing.T, m Model, keys string) Model {
	t.Helper()
	for _, r := range keys {
		m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func titlesOf(gs []goals.Goal) []string {
	var out []string
	for _, g := range gs {
		out = append(out, g.Title)
	}
	return out
}

// columnX returns a screen x inside column i.
func columnX(i int) int {
	l := newLayout(testWidth, testHeight)
	return i*l.colWidth + 2
}

func TestNewModelStartsOnActiveColumn(t *testing.T) {
	m, _ := setupModel(t, "A", "B")
	assert.Equal(t, 0, m.column)
	_, ok := m.selected()
	assert.False(t, ok)

	m = press(t, m, "l")
	g, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "A", g.Title)
}

func TestFocusKeyMovesToActive(t *testing.T) {
	m, s := setupModel(t, "A", "B", "C")
	m = press(t, m, "l") // backlog
	m = press(t, m, "f")

	assert.Equal(t, []string{"A"}, titlesOf(s.GoalsByStatus(goals.StatusActive)))
	g, _ := m.selected()
	assert.Equal(t, "A", g.Title, "selection follows the moved goal")
	assert.Equal(t, 0, m.column)
}

func TestFocusCapShowsNotice(t *testing.T) {
	m, s := setupModel(t, "A", "B", "C")
	m = press(t, m, "l")
	m = press(t, m, "f") // A -> active
	m = press(t, m, "l")
	m = press(t, m, "f") // B -> active
	m = press(t, m, "l")
	m = press(t, m, "f") // C refused

	assert.Len(t, s.GoalsByStatus(goals.StatusActive), 2)
	assert.Equal(t, []string{"C"}, titlesOf(s.GoalsByStatus(goals.StatusBacklog)))
	assert.Contains(t, m.statusMsg, "Only 2 goals can be active")
}

func TestSpaceCompletesAndReopens(t *testing.T) {
	m, s := setupModel(t, "A")
	m = press(t, m, "l")
	m = press(t, m, " ")
	assert.Equal(t, []string{"A"}, titlesOf(s.GoalsByStatus(goals.StatusCompleted)))
	assert.Equal(t, 2, m.column)

	m = press(t, m, " ")
	assert.Equal(t, []string{"A"}, titlesOf(s.GoalsByStatus(goals.StatusBacklog)))
	g, _ := s.Goal("g1")
	assert.Nil(t, g.CompletedAt)
}

func TestProgressKeysClamp(t *testing.T) {
	m, s := setupModel(t, "A")
	m = press(t, m, "l")
	for i := 0; i < 12; i++ {
		m = press(t, m, "+")
	}
	g, _ := s.Goal("g1")
	assert.Equal(t, 100, g.Progress)

	_ = press(t, m, "-")
	g, _ = s.Goal("g1")
	assert.Equal(t, 90, g.Progress)
}

func TestAddGoalThroughInput(t *testing.T) {
	m, s := setupModel(t)
	m = press(t, m, "a")
	assert.Equal(t, inputAdd, m.input)

	m = press(t, m, "Learn Go")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, inputNone, m.input)
	assert.Equal(t, []string{"Learn Go"}, titlesOf(s.GoalsByStatus(goals.StatusBacklog)))
	g, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "Learn Go", g.Title)
}

func TestAddGoalEscapeCancels(t *testing.T) {
	m, s := setupModel(t)
	m = press(t, m, "a")
	m = press(t, m, "x")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, inputNone, m.input)
	assert.Empty(t, s.Goals())
}

func TestMilestoneToggleFromDetailPane(t *testing.T) {
	m, s := setupModel(t, "A")
	m = press(t, m, "l")
	m = press(t, m, "M")
	m = press(t, m, "first")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	g, _ := s.Goal("g1")
	require.Len(t, g.Milestones, 1)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	_ = press(t, m, " ")
	g, _ = s.Goal("g1")
	assert.True(t, g.Milestones[0].IsComplete())
}

func TestMoveModeReordersAndShifts(t *testing.T) {
	m, s := setupModel(t, "A", "B", "C")
	m = press(t, m, "l")
	m = press(t, m, "m")
	require.True(t, m.isMoveMode)

	m = press(t, m, "jj")
	assert.Equal(t, []string{"B", "C", "A"}, titlesOf(s.GoalsByStatus(goals.StatusBacklog)))

	m = press(t, m, "h")
	assert.Equal(t, []string{"A"}, titlesOf(s.GoalsByStatus(goals.StatusActive)))

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.isMoveMode)
}

func TestMouseDragReordersWithinColumn(t *testing.T) {
	m, s := setupModel(t, "A", "B", "C", "D")
	x := columnX(1)

	m = update(t, m, tea.MouseMsg{X: x, Y: itemsTop, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.NotNil(t, m.drag)
	assert.Equal(t, "g1", m.drag.GoalID)

	// Offset 10 rows into the column resolves to slot 3.
	m = update(t, m, tea.MouseMsg{X: x, Y: itemsTop + 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	h, ok := m.drag.Hovered()
	require.True(t, ok)
	assert.Equal(t, 3, h.Index)

	next, cmd := m.Update(tea.MouseMsg{X: x, Y: itemsTop + 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Nil(t, m.drag)

	m = update(t, m, cmd())
	assert.Equal(t, []string{"B", "C", "A", "D"}, titlesOf(s.GoalsByStatus(goals.StatusBacklog)))
	g, _ := m.selected()
	assert.Equal(t, "A", g.Title)
}

func TestMouseDragAcrossColumns(t *testing.T) {
	m, s := setupModel(t, "A", "B")

	m = update(t, m, tea.MouseMsg{X: columnX(1), Y: itemsTop + cardHeight, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	require.NotNil(t, m.drag)
	assert.Equal(t, "g2", m.drag.GoalID)

	next, cmd := m.Update(tea.MouseMsg{X: columnX(0), Y: itemsTop, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = update(t, m, cmd())

	assert.Equal(t, []string{"B"}, titlesOf(s.GoalsByStatus(goals.StatusActive)))
	assert.Equal(t, 0, m.column)
}

func TestMouseReleaseOutsideBoardCancels(t *testing.T) {
	m, s := setupModel(t, "A", "B")
	m = update(t, m, tea.MouseMsg{X: columnX(1), Y: itemsTop, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})

	l := newLayout(testWidth, testHeight)
	next, cmd := m.Update(tea.MouseMsg{X: l.boardWidth + 5, Y: itemsTop, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = next.(Model)
	assert.Nil(t, cmd)
	assert.Nil(t, m.drag)
	assert.Equal(t, []string{"A", "B"}, titlesOf(s.GoalsByStatus(goals.StatusBacklog)))
}

func TestDropOnCompletedColumnReorderIsRefused(t *testing.T) {
	m, s := setupModel(t, "A", "B")
	ctx := context.Background()
	require.NoError(t, s.MoveGoalToStatus(ctx, "g1", goals.StatusCompleted, 0))
	require.NoError(t, s.MoveGoalToStatus(ctx, "g2", goals.StatusCompleted, 0))
	m = update(t, m, SnapshotMsg{})

	x := columnX(2)
	m = update(t, m, tea.MouseMsg{X: x, Y: itemsTop, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	next, cmd := m.Update(tea.MouseMsg{X: x, Y: itemsTop + 2*cardHeight, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	m = next.(Model)
	require.NotNil(t, cmd)
	m = update(t, m, cmd())
	assert.Contains(t, m.statusMsg, "completed goals are ordered by completion time")
}

func TestDeleteConfirm(t *testing.T) {
	m, s := setupModel(t, "A")
	m = press(t, m, "l")
	m = press(t, m, "d")
	require.True(t, m.showDeleteConfirm)
	assert.Contains(t, m.View(), "Delete 'A'?")

	m = press(t, m, "y")
	assert.False(t, m.showDeleteConfirm)
	assert.Empty(t, s.Goals())
}

func TestViewRendersColumns(t *testing.T) {
	m, _ := setupModel(t, "Run a marathon")
	v := m.View()
	assert.Contains(t, v, "ACTIVE 0/2")
	assert.Contains(t, v, "BACKLOG 1")
	assert.Contains(t, v, "COMPLETED 0")
	assert.Contains(t, v, "Run a marathon")
}

func TestSnapshotMsgRefreshesBoard(t *testing.T) {
	m, s := setupModel(t)
	_, err := s.AddGoal(context.Background(), goals.Draft{Title: "External"})
	require.NoError(t, err)

	m = update(t, m, SnapshotMsg{})
	assert.Len(t, m.columns[1].Goals, 1)
}
