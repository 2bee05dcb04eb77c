package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

const goalExt = ".md"

// FileStore keeps one markdown file per goal under <root>/goals, with the
// goal's fields in YAML frontmatter and its notes as the body.
type FileStore struct {
	Root string
}

// NewFileStore creates a FileStore rooted at the given directory.
// It creates the directory structure if it doesn't exist.
func NewFileStore(root string) (*FileStore, error) {
	goalsDir := filepath.Join(root, "goals")
	if err := os.MkdirAll(goalsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating goals directory: %w", err)
	}
	return &FileStore{Root: root}, nil
}

// GoalsDir returns the path to the goals directory.
func (s *FileStore) GoalsDir() string {
	return filepath.Join(s.Root, "goals")
}

// GoalPath returns the file path for a goal ID.
func (s *FileStore) GoalPath(id string) string {
	return filepath.Join(s.GoalsDir(), id+goalExt)
}

// Load reads every goal file. Files that fail to parse are skipped.
func (s *FileStore) Load(ctx context.Context) ([]*goals.Goal, error) {
	entries, err := os.ReadDir(s.GoalsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading goals directory: %w", err)
	}

	var loaded []*goals.Goal
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, goalExt) || strings.HasPrefix(name, ".") {
			continue
		}
		g, err := s.loadFile(filepath.Join(s.GoalsDir(), name))
		if err != nil {
			continue // skip broken goals
		}
		if g.ID == "" {
			g.ID = strings.TrimSuffix(name, goalExt)
		}
		loaded = append(loaded, g)
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })
	return loaded, nil
}

func (s *FileStore) loadFile(path string) (*goals.Goal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading goal %s: %w", path, err)
	}
	g, err := ParseFrontmatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("parsing goal %s: %w", path, err)
	}
	return g, nil
}

// Save writes each goal to its file.
func (s *FileStore) Save(ctx context.Context, gs ...*goals.Goal) error {
	for _, g := range gs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if g.ID == "" || strings.ContainsAny(g.ID, `/\`) {
			return fmt.Errorf("saving goal: invalid id %q", g.ID)
		}
		content, err := SerializeFrontmatter(g)
		if err != nil {
			return fmt.Errorf("serializing goal %s: %w", g.ID, err)
		}
		if err := writeFileAtomic(s.GoalPath(g.ID), []byte(content)); err != nil {
			return fmt.Errorf("writing goal %s: %w", g.ID, err)
		}
	}
	return nil
}

// Delete removes a goal's file.
func (s *FileStore) Delete(ctx context.Context, id string) error {
	err := os.Remove(s.GoalPath(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("goal %s not found", id)
	}
	return err
}

// writeFileAtomic writes through a temp file so a watcher never sees a
// half-written goal.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".goal-*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
