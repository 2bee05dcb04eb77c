package goals

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errMockStorage = errors.New("mock storage error")

// mockPersistence keeps goals in memory and records every call.
type mockPersistence struct {
	mu       sync.Mutex
	goals    map[string]*Goal
	saves    [][]string
	deletes  []string
	failSave   bool
	failLoad   bool
	failDelete bool

	// When set, Load closes loadStarted and waits for loadGate.
	loadStarted chan struct{}
	loadGate    chan struct{}
}

func newMockPersistence(seed ...*Goal) *mockPersistence {
	m := &mockPersistence{goals: make(map[string]*Goal)}
	for _, g := range seed {
		m.goals[g.ID] = g.Clone()
	}
	return m
}

func (m *mockPersistence) Load(ctx context.Context) ([]*Goal, error) {
	m.mu.Lock()
	started, gate := m.loadStarted, m.loadGate
	m.loadStarted, m.loadGate = nil, nil
	m.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failLoad {
		return nil, errMockStorage
	}
	var out []*Goal
	for _, g := range m.goals {
		out = append(out, g.Clone())
	}
	return out, nil
}

func (m *mockPersistence) Save(ctx context.Context, goals ...*Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, g := range goals {
		ids = append(ids, g.ID)
	}
	m.saves = append(m.saves, ids)
	if m.failSave {
		return errMockStorage
	}
	for _, g := range goals {
		m.goals[g.ID] = g.Clone()
	}
	return nil
}

func (m *mockPersistence) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, id)
	if m.failSave || m.failDelete {
		return errMockStorage
	}
	delete(m.goals, id)
	return nil
}

// sequentialIDs returns an ID generator producing g1, g2, ...
func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("g%d", n)
	}
}

// steppingClock returns a clock that advances one minute per call.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Minute)
		return t
	}
}
