package goals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIndexDropsDuplicates(t *testing.T) {
	idx := NewIndex("a", "b", "a", "c")
	assert.Equal(t, []string{"a", "b", "c"}, idx.IDs())
}

func TestIndexInsertClamps(t *testing.T) {
	idx := NewIndex("a", "b")

	assert.Equal(t, 2, idx.Insert("c", 99))
	assert.Equal(t, 0, idx.Insert("d", -4))
	assert.Equal(t, []string{"d", "a", "b", "c"}, idx.IDs())
}

func TestIndexInsertDuplicatePanics(t *testing.T) {
	idx := NewIndex("a")
	assert.Panics(t, func() { idx.Insert("a", 0) })
}

func TestIndexRemove(t *testing.T) {
	idx := NewIndex("a", "b", "c")

	assert.Equal(t, 1, idx.Remove("b"))
	assert.Equal(t, -1, idx.Remove("zzz"))
	assert.Equal(t, []string{"a", "c"}, idx.IDs())
}

func TestIndexMove(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{name: "forward", from: 0, to: 2, want: []string{"B", "C", "A", "D"}},
		{name: "backward", from: 3, to: 1, want: []string{"A", "D", "B", "C"}},
		{name: "to end", from: 1, to: 3, want: []string{"A", "C", "D", "B"}},
		{name: "same", from: 2, to: 2, want: []string{"A", "B", "C", "D"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := NewIndex("A", "B", "C", "D")
			require.NoError(t, idx.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, idx.IDs())
		})
	}
}

func TestIndexMoveOutOfRange(t *testing.T) {
	idx := NewIndex("A", "B")

	assert.ErrorIs(t, idx.Move(-1, 0), ErrOutOfRange)
	assert.ErrorIs(t, idx.Move(0, 2), ErrOutOfRange)
	assert.Equal(t, []string{"A", "B"}, idx.IDs())
}

func TestIndexIDsIsCopy(t *testing.T) {
	idx := NewIndex("A", "B")
	ids := idx.IDs()
	ids[0] = "Z"
	assert.Equal(t, "A", idx.At(0))
}
