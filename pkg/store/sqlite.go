package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

// DBFile is the database file name inside the data directory.
const DBFile = "wellspring.db"

// SQLiteStore keeps goals in a single SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// modernc's driver is safe for one writer at a time.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectGoals = `SELECT id, title, category, status, progress, position, target_date,
	linked_values, milestones, notes, created_at, updated_at, completed_at
	FROM goals ORDER BY status, position, created_at`

// Load returns every stored goal.
func (s *SQLiteStore) Load(ctx context.Context) ([]*goals.Goal, error) {
	rows, err := s.db.QueryContext(ctx, selectGoals)
	if err != nil {
		return nil, fmt.Errorf("load goals: query: %w", err)
	}
	defer rows.Close()

	var loaded []*goals.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("load goals: %w", err)
		}
		loaded = append(loaded, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load goals: rows: %w", err)
	}
	return loaded, nil
}

func scanGoal(rows *sql.Rows) (*goals.Goal, error) {
	var (
		g                       goals.Goal
		category, status        string
		targetDate, completedAt sql.NullString
		linked, milestones      string
		createdAt, updatedAt    string
	)
	err := rows.Scan(&g.ID, &g.Title, &category, &status, &g.Progress, &g.Position, &targetDate,
		&linked, &milestones, &g.Notes, &createdAt, &updatedAt, &completedAt)
	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	g.Category = goals.Category(category)
	g.Status = goals.Status(status)

	if g.Created, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("goal %s created_at: %w", g.ID, err)
	}
	if g.Updated, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("goal %s updated_at: %w", g.ID, err)
	}
	if g.TargetDate, err = parseNullTime(targetDate); err != nil {
		return nil, fmt.Errorf("goal %s target_date: %w", g.ID, err)
	}
	if g.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("goal %s completed_at: %w", g.ID, err)
	}
	if err := json.Unmarshal([]byte(linked), &g.LinkedValueIDs); err != nil {
		return nil, fmt.Errorf("goal %s linked_values: %w", g.ID, err)
	}
	if err := json.Unmarshal([]byte(milestones), &g.Milestones); err != nil {
		return nil, fmt.Errorf("goal %s milestones: %w", g.ID, err)
	}
	return &g, nil
}

const upsertGoal = `INSERT INTO goals (id, title, category, status, progress, position, target_date,
	linked_values, milestones, notes, created_at, updated_at, completed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		category = excluded.category,
		status = excluded.status,
		progress = excluded.progress,
		position = excluded.position,
		target_date = excluded.target_date,
		linked_values = excluded.linked_values,
		milestones = excluded.milestones,
		notes = excluded.notes,
		updated_at = excluded.updated_at,
		completed_at = excluded.completed_at`

// Save upserts the goals in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, gs ...*goals.Goal) error {
	if len(gs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save goals: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, upsertGoal)
	if err != nil {
		return fmt.Errorf("save goals: prepare: %w", err)
	}
	defer stmt.Close()

	for _, g := range gs {
		linked, err := json.Marshal(nonNil(g.LinkedValueIDs))
		if err != nil {
			return fmt.Errorf("save goal %s: linked_values: %w", g.ID, err)
		}
		milestones := g.Milestones
		if milestones == nil {
			milestones = []goals.Milestone{}
		}
		ms, err := json.Marshal(milestones)
		if err != nil {
			return fmt.Errorf("save goal %s: milestones: %w", g.ID, err)
		}
		_, err = stmt.ExecContext(ctx,
			g.ID, g.Title, string(g.Category), string(g.Status), g.Progress, g.Position,
			formatNullTime(g.TargetDate), string(linked), string(ms), g.Notes,
			formatTime(g.Created), formatTime(g.Updated), formatNullTime(g.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("save goal %s: upsert: %w", g.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save goals: commit: %w", err)
	}
	return nil
}

// Delete removes a goal row.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete goal %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("goal %s not found", id)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
