// Package drag turns a pointer drag over the goal board into a discrete
// reorder or move on the goal store.
package drag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

// DefaultItemHeight is the estimated height of one rendered goal, in the
// same units as the pointer offset (terminal rows for the TUI).
const DefaultItemHeight = 3.0

// ErrDropInFlight is returned when a drop touches a bucket that another
// drop is still applying to.
var ErrDropInFlight = errors.New("another move is in progress for this bucket")

// Mover is the part of the goal store a drop needs.
type Mover interface {
	ReorderGoals(ctx context.Context, st goals.Status, oldIndex, newIndex int) error
	MoveGoalToStatus(ctx context.Context, id string, target goals.Status, index int) error
}

// ResolveIndex estimates the insertion slot for a pointer offsetY below
// the top of a bucket holding bucketLen goals. The result is in
// [0, bucketLen]. A non-positive or NaN itemHeight uses DefaultItemHeight.
func ResolveIndex(offsetY, itemHeight float64, bucketLen int) int {
	if itemHeight <= 0 || math.IsNaN(itemHeight) {
		itemHeight = DefaultItemHeight
	}
	if bucketLen < 0 {
		bucketLen = 0
	}
	if math.IsNaN(offsetY) || offsetY <= 0 {
		return 0
	}
	candidate := math.Floor(offsetY / itemHeight)
	if candidate >= float64(bucketLen) {
		return bucketLen
	}
	return int(candidate)
}

// Hover is where the pointer currently is while dragging.
type Hover struct {
	Bucket goals.Status
	Index  int
}

// Drag is the transient, UI-owned state of one drag gesture. It is not
// part of the store's model.
type Drag struct {
	GoalID      string
	Source      goals.Status
	OriginIndex int
	ItemHeight  float64

	hover *Hover
}

// Begin starts dragging the goal at originIndex in source.
func Begin(goalID string, source goals.Status, originIndex int, itemHeight float64) *Drag {
	return &Drag{
		GoalID:      goalID,
		Source:      source,
		OriginIndex: originIndex,
		ItemHeight:  itemHeight,
	}
}

// HoverAt records the pointer over bucket at offsetY from the bucket top.
func (d *Drag) HoverAt(bucket goals.Status, offsetY float64, bucketLen int) Hover {
	h := Hover{Bucket: bucket, Index: ResolveIndex(offsetY, d.ItemHeight, bucketLen)}
	d.hover = &h
	return h
}

// ClearHover forgets the hover, e.g. when the pointer leaves the board.
func (d *Drag) ClearHover() {
	d.hover = nil
}

// Hovered returns the current hover, if any.
func (d *Drag) Hovered() (Hover, bool) {
	if d.hover == nil {
		return Hover{}, false
	}
	return *d.hover, true
}

// EffectiveIndex is the index a drop onto target would use.
//
// Within the source bucket a hover past the original slot is decremented,
// since removing the dragged goal shifts later goals up by one. Across
// buckets the hover index is used as is, or the end of the target bucket
// when the pointer never hovered over it.
func (d *Drag) EffectiveIndex(target goals.Status, targetLen int) int {
	h, ok := d.Hovered()
	if !ok || h.Bucket != target {
		if target == d.Source {
			return d.OriginIndex
		}
		return targetLen
	}
	if target == d.Source && h.Index > d.OriginIndex {
		return h.Index - 1
	}
	return h.Index
}

// Resolver applies drops to a Mover, one at a time per bucket.
type Resolver struct {
	mover Mover
	log   logrus.FieldLogger

	mu   sync.Mutex
	busy map[goals.Status]bool
}

// NewResolver returns a Resolver dispatching to m.
func NewResolver(m Mover, log logrus.FieldLogger) *Resolver {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Resolver{mover: m, log: log, busy: make(map[goals.Status]bool)}
}

// Drop finishes d over target, whose bucket currently holds targetLen goals.
// Same-bucket drops reorder; cross-bucket drops move.
func (r *Resolver) Drop(ctx context.Context, d *Drag, target goals.Status, targetLen int) error {
	buckets := []goals.Status{d.Source}
	if target != d.Source {
		buckets = append(buckets, target)
	}
	if !r.acquire(buckets) {
		return fmt.Errorf("%w: %s", ErrDropInFlight, target)
	}
	defer r.release(buckets)

	index := d.EffectiveIndex(target, targetLen)
	entry := r.log.WithFields(logrus.Fields{
		"goal_id": d.GoalID,
		"from":    d.Source,
		"to":      target,
		"index":   index,
	})

	var err error
	if target == d.Source {
		if index == d.OriginIndex {
			return nil
		}
		entry.Debug("drop reorders goal")
		err = r.mover.ReorderGoals(ctx, d.Source, d.OriginIndex, index)
	} else {
		entry.Debug("drop moves goal")
		err = r.mover.MoveGoalToStatus(ctx, d.GoalID, target, index)
	}
	if err != nil {
		entry.WithError(err).Debug("drop rejected")
	}
	return err
}

func (r *Resolver) acquire(buckets []goals.Status) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range buckets {
		if r.busy[b] {
			return false
		}
	}
	for _, b := range buckets {
		r.busy[b] = true
	}
	return true
}

func (r *Resolver) release(buckets []goals.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range buckets {
		delete(r.busy, b)
	}
}
