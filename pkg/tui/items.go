package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stefanpenner/wellspring/pkg/drag"
	"github.com/stefanpenner/wellspring/pkg/goals"
)

// cardHeight is the number of rows one goal card takes, matching the
// drag resolver's item height estimate.
const cardHeight = int(drag.DefaultItemHeight)

// Rows above the first card: header, separator, column titles.
const itemsTop = 3

// Column is one bucket of the board, in display order.
type Column struct {
	Status goals.Status
	Goals  []goals.Goal
}

// BuildColumns lays a snapshot out as board columns.
func BuildColumns(snap goals.Snapshot) []Column {
	cols := make([]Column, len(goals.Statuses))
	for i, st := range goals.Statuses {
		cols[i] = Column{Status: st, Goals: snap.Bucket(st)}
	}
	return cols
}

// columnTitle renders the label above a column.
func columnTitle(st goals.Status, count int) string {
	switch st {
	case goals.StatusActive:
		return ActiveColumnStyle.Render(fmt.Sprintf("ACTIVE %d/%d", count, goals.FocusCap))
	case goals.StatusBacklog:
		return BacklogColumnStyle.Render(fmt.Sprintf("BACKLOG %d", count))
	default:
		return CompletedColumnStyle.Render(fmt.Sprintf("COMPLETED %d", count))
	}
}

// statusIcon picks the icon for a goal.
func statusIcon(g goals.Goal) string {
	switch {
	case g.IsComplete():
		return CompleteStyle.Render(IconComplete)
	case g.Progress > 0:
		return InProgressStyle.Render(IconInProgress)
	default:
		return IncompleteStyle.Render(IconIncomplete)
	}
}

// progressBar renders p percent as a bar width cells wide.
func progressBar(p, width int) string {
	if width < 1 {
		return ""
	}
	p = goals.ClampProgress(p)
	filled := p * width / 100
	return ProgressFillStyle.Render(strings.Repeat("█", filled)) +
		ProgressEmptyStyle.Render(strings.Repeat("░", width-filled))
}

// cardLines renders the two content rows of a goal card. The third row
// of the card is left blank as spacing.
func cardLines(g goals.Goal, width int) (string, string) {
	title := truncate(g.Title, width-2)
	first := statusIcon(g) + " " + title

	meta := fmt.Sprintf(" %3d%%", g.Progress)
	if n := len(g.Milestones); n > 0 {
		meta += fmt.Sprintf(" %d/%d", g.MilestonesDone(), n)
	}
	cat := CategoryStyle.Render(" " + string(g.Category))
	barWidth := width - 2 - lipgloss.Width(meta) - lipgloss.Width(cat)
	if barWidth > 12 {
		barWidth = 12
	}
	second := "  "
	if barWidth > 0 {
		second += progressBar(g.Progress, barWidth)
	}
	second += DimStyle.Render(meta) + cat
	return first, second
}

// truncate shortens s to at most width cells, marking the cut with "…".
func truncate(s string, width int) string {
	if width < 1 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// boardLayout is the geometry of one frame, shared by View and the mouse
// hit-testing so they agree on where cards are.
type boardLayout struct {
	width, height int
	boardWidth    int
	colWidth      int
	detailWidth   int
	contentHeight int
}

func newLayout(width, height int) boardLayout {
	if width < minWidth {
		width = minWidth
	}
	if height < minHeight {
		height = minHeight
	}
	detail := width / 3
	if detail < 24 {
		detail = 24
	}
	board := width - detail - 1 // 1 char for divider
	if board < 3*12 {
		board = 3 * 12
	}
	return boardLayout{
		width:         width,
		height:        height,
		boardWidth:    board,
		colWidth:      board / len(goals.Statuses),
		detailWidth:   detail,
		contentHeight: height - 4, // header, separator, separator, footer
	}
}

// cardsVisible is how many cards fit in a column.
func (l boardLayout) cardsVisible() int {
	n := (l.contentHeight - 1) / cardHeight
	if n < 1 {
		n = 1
	}
	return n
}

// columnAt maps a screen x to a column index.
func (l boardLayout) columnAt(x int) (int, bool) {
	if x < 0 || x >= l.colWidth*len(goals.Statuses) {
		return 0, false
	}
	return x / l.colWidth, true
}

// offsetY converts a screen row into a pointer offset from the top of a
// column's first card, accounting for the column's scroll.
func (l boardLayout) offsetY(y, scroll int) float64 {
	return float64(y-itemsTop) + float64(scroll*cardHeight)
}

// inBoard reports whether the row is inside the card area.
func (l boardLayout) inBoard(y int) bool {
	return y >= itemsTop && y < 2+l.contentHeight
}

// cardIndexAt returns the index of the card under row y, or -1.
func (l boardLayout) cardIndexAt(y, scroll, n int) int {
	if !l.inBoard(y) {
		return -1
	}
	i := (y-itemsTop)/cardHeight + scroll
	if i >= n {
		return -1
	}
	return i
}

// clampScroll keeps cursor inside the visible window of a column.
func clampScroll(scroll, cursor, visible, n int) int {
	if cursor < scroll {
		scroll = cursor
	}
	if cursor >= scroll+visible {
		scroll = cursor - visible + 1
	}
	if limit := n - visible; scroll > limit {
		scroll = limit
	}
	if scroll < 0 {
		scroll = 0
	}
	return scroll
}
