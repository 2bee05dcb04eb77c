package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

func setupSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), DBFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := setupSQLiteStore(t)
	require.NoError(t, Migrate(s.db))

	var n int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestMigrateNilDB(t *testing.T) {
	assert.Error(t, Migrate(nil))
}

func TestSQLiteSaveAndLoad(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()
	now := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	target := now.Add(30 * 24 * time.Hour)
	done := now.Add(time.Hour)

	g := &goals.Goal{
		ID:             "a",
		Title:          "Save an emergency fund",
		Category:       goals.CategoryFinance,
		Status:         goals.StatusActive,
		Progress:       25,
		TargetDate:     &target,
		LinkedValueIDs: []string{"security"},
		Milestones:     []goals.Milestone{{ID: "m1", Title: "First month", CompletedAt: &done}},
		Created:        now,
		Updated:        now,
		Notes:          "Automate transfers.",
	}
	require.NoError(t, s.Save(ctx, g))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	got := loaded[0]
	assert.Equal(t, g.Title, got.Title)
	assert.Equal(t, goals.CategoryFinance, got.Category)
	assert.Equal(t, goals.StatusActive, got.Status)
	assert.Equal(t, 25, got.Progress)
	assert.True(t, target.Equal(*got.TargetDate))
	assert.Equal(t, []string{"security"}, got.LinkedValueIDs)
	require.Len(t, got.Milestones, 1)
	assert.True(t, got.Milestones[0].IsComplete())
	assert.True(t, now.Equal(got.Created))
	assert.Nil(t, got.CompletedAt)
	assert.Equal(t, "Automate transfers.", got.Notes)
}

func TestSQLiteSaveUpserts(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	g := &goals.Goal{ID: "a", Title: "First", Category: goals.CategoryOther, Status: goals.StatusBacklog}
	require.NoError(t, s.Save(ctx, g))
	g.Title = "Second"
	g.Status = goals.StatusCompleted
	require.NoError(t, s.Save(ctx, g))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Second", loaded[0].Title)
	assert.Equal(t, goals.StatusCompleted, loaded[0].Status)
	assert.Empty(t, loaded[0].LinkedValueIDs)
}

func TestSQLiteDelete(t *testing.T) {
	s := setupSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, &goals.Goal{ID: "a", Title: "A", Status: goals.StatusBacklog}))
	require.NoError(t, s.Delete(ctx, "a"))
	assert.Error(t, s.Delete(ctx, "a"))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSQLiteBacksGoalStore(t *testing.T) {
	db := setupSQLiteStore(t)
	ctx := context.Background()

	s, err := goals.Open(ctx, db)
	require.NoError(t, err)
	for _, title := range []string{"A", "B", "C"} {
		_, err := s.AddGoal(ctx, goals.Draft{Title: title})
		require.NoError(t, err)
	}
	b := s.GoalsByStatus(goals.StatusBacklog)[1]
	require.NoError(t, s.MoveGoalToStatus(ctx, b.ID, goals.StatusActive, 0))

	reopened, err := goals.Open(ctx, db)
	require.NoError(t, err)
	counts := reopened.Counts()
	assert.Equal(t, 1, counts[goals.StatusActive])
	assert.Equal(t, 2, counts[goals.StatusBacklog])
	assert.Equal(t, "B", reopened.GoalsByStatus(goals.StatusActive)[0].Title)
}
