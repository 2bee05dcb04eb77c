package goals

import "fmt"

// Index is the ordered list of goal IDs for one bucket.
// It never holds duplicates. The zero value is an empty index.
type Index struct {
	ids []string
}

// NewIndex builds an index from ids, dropping duplicates after the first.
func NewIndex(ids ...string) *Index {
	idx := &Index{}
	for _, id := range ids {
		if !idx.Contains(id) {
			idx.ids = append(idx.ids, id)
		}
	}
	return idx
}

// Len returns the number of IDs in the index.
func (x *Index) Len() int {
	return len(x.ids)
}

// IDs returns a copy of the ordered IDs.
func (x *Index) IDs() []string {
	return append([]string(nil), x.ids...)
}

// At returns the ID at position i.
func (x *Index) At(i int) string {
	return x.ids[i]
}

// IndexOf returns the position of id, or -1.
func (x *Index) IndexOf(id string) int {
	for i, v := range x.ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is in the index.
func (x *Index) Contains(id string) bool {
	return x.IndexOf(id) >= 0
}

// Insert places id at position at, clamped to [0, Len()].
// Returns the position actually used. Inserting an ID that is already
// present is a programming error and panics.
func (x *Index) Insert(id string, at int) int {
	if x.Contains(id) {
		panic(fmt.Sprintf("goals: index already contains %s", id))
	}
	at = clamp(at, 0, len(x.ids))
	x.ids = append(x.ids, "")
	copy(x.ids[at+1:], x.ids[at:])
	x.ids[at] = id
	return at
}

// Append places id at the end of the index.
func (x *Index) Append(id string) {
	x.Insert(id, len(x.ids))
}

// Remove deletes id and returns the position it held, or -1.
func (x *Index) Remove(id string) int {
	i := x.IndexOf(id)
	if i < 0 {
		return -1
	}
	x.ids = append(x.ids[:i], x.ids[i+1:]...)
	return i
}

// Move removes the ID at from and re-inserts it at to, measured against
// the shortened list. Both positions must be in range.
func (x *Index) Move(from, to int) error {
	n := len(x.ids)
	if from < 0 || from >= n {
		return fmt.Errorf("%w: index %d not in [0,%d)", ErrOutOfRange, from, n)
	}
	if to < 0 || to >= n {
		return fmt.Errorf("%w: index %d not in [0,%d)", ErrOutOfRange, to, n)
	}
	if from == to {
		return nil
	}
	id := x.ids[from]
	x.ids = append(x.ids[:from], x.ids[from+1:]...)
	x.Insert(id, to)
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
