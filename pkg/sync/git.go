// Package sync keeps the data directory in a git repository and
// synchronizes it with a remote.
package sync

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotRepo is returned when the data directory has no git repository.
var ErrNotRepo = errors.New("not a git repository. Run 'wellspring init' first")

// gitignore keeps machine-local files out of the repository.
const gitignore = "wellspring.db\nwellspring.db-*\nwellspring.log\n"

// Repo runs git commands against a data directory.
type Repo struct {
	Dir string
	Out io.Writer
	Log logrus.FieldLogger

	now func() time.Time
}

// New returns a Repo for dir writing git output to out.
func New(dir string, out io.Writer, log logrus.FieldLogger) *Repo {
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Repo{Dir: dir, Out: out, Log: log, now: time.Now}
}

func (r *Repo) git(args ...string) *exec.Cmd {
	cmd := exec.Command("git", append([]string{"-C", r.Dir}, args...)...)
	cmd.Stdout = r.Out
	cmd.Stderr = r.Out
	return cmd
}

// IsRepo reports whether the data directory is a git repository.
func (r *Repo) IsRepo() bool {
	_, err := os.Stat(filepath.Join(r.Dir, ".git"))
	return err == nil
}

// Init makes the data directory a git repository if it isn't one and
// points origin at remote when remote is non-empty.
func (r *Repo) Init(remote string) error {
	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}
	if !r.IsRepo() {
		if err := r.git("init").Run(); err != nil {
			return fmt.Errorf("git init: %w", err)
		}
		r.Log.WithField("dir", r.Dir).Info("initialized git repository")
	}

	ignorePath := filepath.Join(r.Dir, ".gitignore")
	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(ignorePath, []byte(gitignore), 0644); err != nil {
			return fmt.Errorf("writing .gitignore: %w", err)
		}
	}

	if remote == "" {
		return nil
	}

	// Remove existing origin first (ignore error if doesn't exist)
	_ = r.git("remote", "remove", "origin").Run()

	if err := r.git("remote", "add", "origin", remote).Run(); err != nil {
		return fmt.Errorf("setting remote: %w", err)
	}
	r.Log.WithField("remote", remote).Info("remote set")
	return nil
}

// Commit stages everything and commits if anything changed. It reports
// whether a commit was made.
func (r *Repo) Commit() (bool, error) {
	if !r.IsRepo() {
		return false, ErrNotRepo
	}
	if err := r.git("add", "-A").Run(); err != nil {
		return false, fmt.Errorf("staging changes: %w", err)
	}
	if err := r.git("diff", "--cached", "--quiet").Run(); err == nil {
		return false, nil
	}
	msg := "sync " + r.now().Format("2006-01-02 15:04:05")
	if err := r.git("commit", "-m", msg).Run(); err != nil {
		return false, fmt.Errorf("committing changes: %w", err)
	}
	return true, nil
}

// Sync synchronizes the data directory with the remote.
// Strategy: commit local changes, rebase, fallback to merge, push.
func (r *Repo) Sync() error {
	log := r.Log.WithField("dir", r.Dir)

	log.Info("staging changes")
	if _, err := r.Commit(); err != nil {
		return err
	}

	log.Info("pulling")
	if err := r.git("pull", "--rebase").Run(); err != nil {
		log.WithError(err).Warn("rebase failed, trying merge")
		_ = r.git("rebase", "--abort").Run()

		if err := r.git("pull", "--no-rebase").Run(); err != nil {
			_ = r.git("merge", "--abort").Run()
			return fmt.Errorf("sync failed: could not rebase or merge. Resolve conflicts manually")
		}
	}

	log.Info("pushing")
	if err := r.git("push").Run(); err != nil {
		return fmt.Errorf("push failed: %w", err)
	}

	log.Info("sync complete")
	return nil
}
