package goals

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FocusCap is the maximum number of goals allowed in the active bucket.
const FocusCap = 2

// Persistence is the durable storage behind a Store.
type Persistence interface {
	Load(ctx context.Context) ([]*Goal, error)
	Save(ctx context.Context, goals ...*Goal) error
	Delete(ctx context.Context, id string) error
}

// Store owns every goal and the per-status ordering indexes.
//
// Mutations run one at a time and are applied in memory first. Observers
// are notified with the new snapshot, then the changed goals are written to
// the Persistence. A failed write is returned as a *PersistenceError and the
// in-memory state is kept.
type Store struct {
	opMu sync.Mutex // serializes mutations, first caller wins

	mu      sync.RWMutex // guards goals and indexes
	goals   map[string]*Goal
	indexes map[Status]*Index

	obsMu     sync.Mutex
	observers []observerEntry
	nextObs   int

	persist Persistence
	log     logrus.FieldLogger
	now     func() time.Time
	newID   func() string
}

type observerEntry struct {
	id int
	fn Observer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for mutation and failure logging.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides the UUID generator used for new goals and milestones.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New creates an empty Store. p may be nil for a purely in-memory store.
func New(p Persistence, opts ...Option) *Store {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	s := &Store{
		goals:   make(map[string]*Goal),
		indexes: newIndexes(),
		persist: p,
		log:     discard,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a Store and loads its goals from p.
func Open(ctx context.Context, p Persistence, opts ...Option) (*Store, error) {
	s := New(p, opts...)
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func newIndexes() map[Status]*Index {
	return map[Status]*Index{
		StatusActive:    NewIndex(),
		StatusBacklog:   NewIndex(),
		StatusCompleted: NewIndex(),
	}
}

// Subscribe registers fn to receive a snapshot after every mutation.
// The returned func removes the subscription.
//
// Observers run synchronously while the mutation still holds the
// operation lock. They may read the Store but must not mutate it; an
// observer that needs to react with a mutation has to hand it off to
// another goroutine.
func (s *Store) Subscribe(fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(snap Snapshot) {
	s.obsMu.Lock()
	obs := make([]Observer, len(s.observers))
	for i, o := range s.observers {
		obs[i] = o.fn
	}
	s.obsMu.Unlock()

	for _, fn := range obs {
		fn(snap)
	}
}

// txn collects the effects of one mutation while the state lock is held.
type txn struct {
	now     time.Time
	change  Change
	dirty   map[string]bool
	deleted []string
	noop    bool
}

func (t *txn) touch(g *Goal) {
	g.Updated = t.now
	t.dirty[g.ID] = true
}

// apply runs fn under the state lock. fn must validate before mutating so
// that a returned error leaves the state untouched.
func (s *Store) apply(ctx context.Context, op string, fn func(t *txn) error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.applyLocked(ctx, op, fn)
}

// applyLocked is apply for callers already holding opMu.
func (s *Store) applyLocked(ctx context.Context, op string, fn func(t *txn) error) error {
	t := &txn{now: s.now(), dirty: make(map[string]bool)}

	s.mu.Lock()
	if err := fn(t); err != nil {
		s.mu.Unlock()
		s.logRejected(op, err)
		return err
	}
	if t.noop {
		s.mu.Unlock()
		return nil
	}
	s.renumberLocked(t)
	toSave := make([]*Goal, 0, len(t.dirty))
	for id := range t.dirty {
		if g, ok := s.goals[id]; ok {
			toSave = append(toSave, g.Clone())
		}
	}
	sort.Slice(toSave, func(i, j int) bool { return toSave[i].ID < toSave[j].ID })
	snap := s.snapshotLocked(t.change)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"op":      op,
		"goal_id": t.change.GoalID,
		"active":  len(snap.Active),
		"backlog": len(snap.Backlog),
	}).Debug("goal store mutated")

	s.notify(snap)
	return s.write(ctx, op, t.deleted, toSave)
}

func (s *Store) write(ctx context.Context, op string, deleted []string, toSave []*Goal) error {
	if s.persist == nil {
		return nil
	}
	// Shifted siblings are saved even when a delete fails, so their
	// persisted positions keep matching memory.
	var (
		failed []string
		errs   []error
	)
	for _, id := range deleted {
		if err := s.persist.Delete(ctx, id); err != nil {
			failed = append(failed, id)
			errs = append(errs, err)
		}
	}
	if len(toSave) > 0 {
		if err := s.persist.Save(ctx, toSave...); err != nil {
			for _, g := range toSave {
				failed = append(failed, g.ID)
			}
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return s.persistFailed(op, failed, errors.Join(errs...))
}

func (s *Store) persistFailed(op string, ids []string, err error) error {
	perr := &PersistenceError{Op: op, IDs: ids, Err: err}
	s.log.WithField("op", op).WithField("goal_ids", strings.Join(ids, ",")).
		WithError(err).Error("persisting goal change failed; keeping in-memory state")
	return perr
}

func (s *Store) logRejected(op string, err error) {
	entry := s.log.WithField("op", op).WithError(err)
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrOutOfRange):
		entry.Warn("goal store out of sync with caller")
	default:
		entry.Info("goal change rejected")
	}
}

// renumberLocked keeps each goal's Position equal to its index slot.
func (s *Store) renumberLocked(t *txn) {
	for _, idx := range s.indexes {
		for i, id := range idx.ids {
			g := s.goals[id]
			if g.Position != i {
				g.Position = i
				t.dirty[id] = true
			}
		}
	}
}

func (s *Store) snapshotLocked(change Change) Snapshot {
	snap := Snapshot{
		Active:    s.bucketLocked(StatusActive),
		Backlog:   s.bucketLocked(StatusBacklog),
		Completed: s.bucketLocked(StatusCompleted),
		Change:    change,
	}
	return snap
}

func (s *Store) bucketLocked(st Status) []Goal {
	idx := s.indexes[st]
	list := make([]Goal, 0, idx.Len())
	for _, id := range idx.ids {
		list = append(list, *s.goals[id].Clone())
	}
	if st == StatusCompleted {
		sortCompleted(list)
	}
	return list
}

func (s *Store) goalLocked(id string) (*Goal, error) {
	g, ok := s.goals[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return g, nil
}

// Reload replaces the in-memory state with what the Persistence holds.
// Goals with an unknown status land in backlog, duplicate IDs keep the
// first copy, and active goals beyond FocusCap are moved to the head of
// the backlog. Any goal repaired this way is written back.
func (s *Store) Reload(ctx context.Context) error {
	if s.persist == nil {
		return nil
	}
	// Held across Load so no mutation can land between reading the
	// goals and installing them.
	s.opMu.Lock()
	defer s.opMu.Unlock()

	loaded, err := s.persist.Load(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	return s.applyLocked(ctx, "load", func(t *txn) error {
		buckets := make(map[Status][]*Goal)
		goals := make(map[string]*Goal, len(loaded))
		for _, g := range loaded {
			if g == nil || g.ID == "" {
				continue
			}
			if _, dup := goals[g.ID]; dup {
				s.log.WithField("goal_id", g.ID).Warn("duplicate goal id on load; keeping first")
				continue
			}
			g = g.Clone()
			if !g.Status.Valid() {
				s.log.WithField("goal_id", g.ID).WithField("status", g.Status).Warn("unknown status on load; using backlog")
				g.Status = StatusBacklog
				t.dirty[g.ID] = true
			}
			if !g.Category.Valid() {
				g.Category = CategoryOther
			}
			if p := ClampProgress(g.Progress); p != g.Progress {
				g.Progress = p
				t.dirty[g.ID] = true
			}
			if g.Status == StatusCompleted && g.CompletedAt == nil {
				c := g.Updated
				g.CompletedAt = &c
			}
			goals[g.ID] = g
			buckets[g.Status] = append(buckets[g.Status], g)
		}

		for _, list := range buckets {
			sort.SliceStable(list, func(i, j int) bool {
				if list[i].Position != list[j].Position {
					return list[i].Position < list[j].Position
				}
				return list[i].Created.Before(list[j].Created)
			})
		}

		if active := buckets[StatusActive]; len(active) > FocusCap {
			extras := active[FocusCap:]
			buckets[StatusActive] = active[:FocusCap]
			for _, g := range extras {
				s.log.WithField("goal_id", g.ID).Warn("too many active goals on load; moving to backlog")
				g.Status = StatusBacklog
				t.dirty[g.ID] = true
			}
			buckets[StatusBacklog] = append(append([]*Goal(nil), extras...), buckets[StatusBacklog]...)
		}

		indexes := newIndexes()
		for st, list := range buckets {
			for _, g := range list {
				indexes[st].Append(g.ID)
			}
		}
		s.goals = goals
		s.indexes = indexes
		t.change = Change{Kind: ChangeLoaded}
		return nil
	})
}

// Goal returns a copy of the goal with the given id.
func (s *Store) Goal(id string) (Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, err := s.goalLocked(id)
	if err != nil {
		return Goal{}, err
	}
	return *g.Clone(), nil
}

// Goals returns every goal: active, then backlog, then completed.
func (s *Store) Goals() []Goal {
	snap := s.Snapshot()
	all := make([]Goal, 0, snap.Len())
	all = append(all, snap.Active...)
	all = append(all, snap.Backlog...)
	return append(all, snap.Completed...)
}

// GoalsByStatus returns the goals in st in display order. Completed goals
// are newest first.
func (s *Store) GoalsByStatus(st Status) []Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !st.Valid() {
		return nil
	}
	return s.bucketLocked(st)
}

// Counts returns the number of goals per status.
func (s *Store) Counts() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[Status]int, len(s.indexes))
	for st, idx := range s.indexes {
		counts[st] = idx.Len()
	}
	return counts
}

// Snapshot returns a consistent copy of all buckets.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(Change{})
}

// AddGoal creates a goal in the backlog, appended at the end.
// The returned goal is valid even when a *PersistenceError is returned.
func (s *Store) AddGoal(ctx context.Context, d Draft) (Goal, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return Goal{}, fmt.Errorf("%w: title is empty", ErrValidation)
	}
	category := d.Category
	if category == "" {
		category = CategoryOther
	}
	if !category.Valid() {
		return Goal{}, fmt.Errorf("%w: unknown category %q", ErrValidation, d.Category)
	}

	var created Goal
	err := s.apply(ctx, "add", func(t *txn) error {
		g := &Goal{
			ID:             s.newID(),
			Title:          title,
			Category:       category,
			Status:         StatusBacklog,
			Progress:       ClampProgress(d.Progress),
			TargetDate:     cloneTime(d.TargetDate),
			LinkedValueIDs: normalizeValueIDs(d.LinkedValueIDs),
			Created:        t.now,
			Notes:          d.Notes,
		}
		for _, m := range d.Milestones {
			if m = strings.TrimSpace(m); m != "" {
				g.Milestones = append(g.Milestones, Milestone{ID: s.newID(), Title: m})
			}
		}
		if _, exists := s.goals[g.ID]; exists {
			return fmt.Errorf("%w: duplicate id %s", ErrValidation, g.ID)
		}
		backlog := s.indexes[StatusBacklog]
		g.Position = backlog.Len()
		s.goals[g.ID] = g
		backlog.Append(g.ID)
		t.touch(g)
		t.change = Change{Kind: ChangeAdded, GoalID: g.ID, To: StatusBacklog, Index: g.Position}
		created = *g.Clone()
		return nil
	})
	return created, err
}

// MoveGoalToStatus moves a goal into target, inserting it at index
// (clamped to the bucket length). Moving to the goal's current status is
// a no-op; use ReorderGoals instead. Moving into a full active bucket fails
// with ErrCapacityExceeded and changes nothing.
func (s *Store) MoveGoalToStatus(ctx context.Context, id string, target Status, index int) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, target)
	}
	return s.apply(ctx, "move", func(t *txn) error {
		g, err := s.goalLocked(id)
		if err != nil {
			return err
		}
		from := g.Status
		if from == target {
			t.noop = true
			return nil
		}
		active := s.indexes[StatusActive]
		if target == StatusActive && active.Len() >= FocusCap && !active.Contains(id) {
			return fmt.Errorf("%w: %d of %d active", ErrCapacityExceeded, active.Len(), FocusCap)
		}

		s.indexes[from].Remove(id)
		at := s.indexes[target].Insert(id, index)
		g.Status = target
		switch {
		case target == StatusCompleted:
			done := t.now
			g.CompletedAt = &done
		case from == StatusCompleted:
			g.CompletedAt = nil
		}
		t.touch(g)
		t.change = Change{Kind: ChangeMoved, GoalID: id, From: from, To: target, Index: at}
		return nil
	})
}

// ReorderGoals moves the goal at oldIndex to newIndex within one bucket.
// The goal is removed first and re-inserted against the shortened list.
// Completed goals cannot be reordered.
func (s *Store) ReorderGoals(ctx context.Context, st Status, oldIndex, newIndex int) error {
	if !st.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, st)
	}
	if st == StatusCompleted {
		return fmt.Errorf("%w: completed goals are ordered by completion time", ErrValidation)
	}
	return s.apply(ctx, "reorder", func(t *txn) error {
		idx := s.indexes[st]
		n := idx.Len()
		if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
			return fmt.Errorf("%w: %s reorder %d -> %d with %d goals", ErrOutOfRange, st, oldIndex, newIndex, n)
		}
		if oldIndex == newIndex {
			t.noop = true
			return nil
		}
		id := idx.At(oldIndex)
		if err := idx.Move(oldIndex, newIndex); err != nil {
			return err
		}
		t.touch(s.goals[id])
		t.change = Change{Kind: ChangeReordered, GoalID: id, From: st, To: st, Index: newIndex}
		return nil
	})
}

// update applies a field change to one goal.
func (s *Store) update(ctx context.Context, op, id string, fn func(g *Goal) (changed bool, err error)) error {
	return s.apply(ctx, op, func(t *txn) error {
		g, err := s.goalLocked(id)
		if err != nil {
			return err
		}
		// Work on a copy so a rejected change leaves g untouched.
		next := g.Clone()
		changed, err := fn(next)
		if err != nil {
			return err
		}
		if !changed {
			t.noop = true
			return nil
		}
		*g = *next
		t.touch(g)
		t.change = Change{Kind: ChangeUpdated, GoalID: id, From: g.Status, To: g.Status, Index: g.Position}
		return nil
	})
}

// UpdateProgress sets a goal's progress, clamped to [0,100].
func (s *Store) UpdateProgress(ctx context.Context, id string, progress int) error {
	progress = ClampProgress(progress)
	return s.update(ctx, "progress", id, func(g *Goal) (bool, error) {
		if g.Progress == progress {
			return false, nil
		}
		g.Progress = progress
		return true, nil
	})
}

// SetTitle renames a goal.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title is empty", ErrValidation)
	}
	return s.update(ctx, "title", id, func(g *Goal) (bool, error) {
		if g.Title == title {
			return false, nil
		}
		g.Title = title
		return true, nil
	})
}

// SetCategory changes a goal's category.
func (s *Store) SetCategory(ctx context.Context, id string, c Category) error {
	if !c.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrValidation, c)
	}
	return s.update(ctx, "category", id, func(g *Goal) (bool, error) {
		if g.Category == c {
			return false, nil
		}
		g.Category = c
		return true, nil
	})
}

// SetTargetDate sets or clears (nil) a goal's target date.
func (s *Store) SetTargetDate(ctx context.Context, id string, date *time.Time) error {
	return s.update(ctx, "target_date", id, func(g *Goal) (bool, error) {
		g.TargetDate = cloneTime(date)
		return true, nil
	})
}

// SetLinkedValues replaces the set of value IDs linked to a goal.
func (s *Store) SetLinkedValues(ctx context.Context, id string, valueIDs []string) error {
	valueIDs = normalizeValueIDs(valueIDs)
	return s.update(ctx, "linked_values", id, func(g *Goal) (bool, error) {
		g.LinkedValueIDs = valueIDs
		return true, nil
	})
}

// SetNotes replaces a goal's markdown notes.
func (s *Store) SetNotes(ctx context.Context, id, notes string) error {
	return s.update(ctx, "notes", id, func(g *Goal) (bool, error) {
		if g.Notes == notes {
			return false, nil
		}
		g.Notes = notes
		return true, nil
	})
}

// AddMilestone appends a milestone to a goal.
func (s *Store) AddMilestone(ctx context.Context, id, title string) (Milestone, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Milestone{}, fmt.Errorf("%w: milestone title is empty", ErrValidation)
	}
	m := Milestone{ID: s.newID(), Title: title}
	err := s.update(ctx, "milestone_add", id, func(g *Goal) (bool, error) {
		g.Milestones = append(g.Milestones, m)
		return true, nil
	})
	if err != nil && !errors.Is(err, ErrPersistence) {
		return Milestone{}, err
	}
	return m, err
}

// ToggleMilestone flips a milestone between done and not done.
func (s *Store) ToggleMilestone(ctx context.Context, id, milestoneID string) error {
	now := s.now()
	return s.update(ctx, "milestone_toggle", id, func(g *Goal) (bool, error) {
		for i := range g.Milestones {
			m := &g.Milestones[i]
			if m.ID != milestoneID {
				continue
			}
			if m.CompletedAt != nil {
				m.CompletedAt = nil
			} else {
				done := now
				m.CompletedAt = &done
			}
			return true, nil
		}
		return false, fmt.Errorf("%w: milestone %s on goal %s", ErrNotFound, milestoneID, id)
	})
}

// DeleteGoal removes a goal from its bucket and the collection.
func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return s.apply(ctx, "delete", func(t *txn) error {
		g, err := s.goalLocked(id)
		if err != nil {
			return err
		}
		s.indexes[g.Status].Remove(id)
		delete(s.goals, id)
		t.deleted = append(t.deleted, id)
		t.change = Change{Kind: ChangeDeleted, GoalID: id, From: g.Status}
		return nil
	})
}
