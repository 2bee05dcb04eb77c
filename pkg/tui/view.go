package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/stefanpenner/wellspring/pkg/goals"
)

const minWidth = 60
const minHeight = 12

// View implements tea.Model.
func (m Model) View() string {
	l := newLayout(m.width, m.height)

	if m.showHelpModal {
		return placeOverlay(m.renderHelpModal(), l.width, l.height)
	}

	if m.showDeleteConfirm {
		return placeOverlay(m.renderDeleteModal(), l.width, l.height)
	}

	var b strings.Builder

	b.WriteString(m.renderHeader(l.width))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", l.width))
	b.WriteString("\n")

	board := m.renderBoard(l)
	detail := m.renderDetailPanel(l.detailWidth, l.contentHeight)

	sepColor := ColorGrayDim
	if m.focusedPane == 1 || m.isEditing {
		sepColor = ColorPurple
	}
	sep := lipgloss.NewStyle().Foreground(sepColor).Render("│")
	for i := 0; i < l.contentHeight; i++ {
		b.WriteString(getLine(board, i, l.boardWidth))
		b.WriteString(sep)
		b.WriteString(getLine(detail, i, l.detailWidth))
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("─", l.width))
	b.WriteString("\n")
	b.WriteString(m.renderFooter(l.width))

	return b.String()
}

func (m Model) renderHeader(width int) string {
	title := HeaderStyle.Render("Wellspring")

	var counts []int
	for _, c := range m.columns {
		counts = append(counts, len(c.Goals))
	}
	stats := ""
	if len(counts) == 3 {
		stats = HeaderCountStyle.Render(fmt.Sprintf("%d active · %d backlog · %d completed", counts[0], counts[1], counts[2]))
	}

	status := ""
	if m.statusMsg != "" && time.Now().Before(m.statusTimeout) {
		status = "  " + lipgloss.NewStyle().Foreground(ColorCyan).Render(m.statusMsg)
	}

	gap := width - lipgloss.Width(title) - lipgloss.Width(stats) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}

	return title + status + strings.Repeat(" ", gap) + stats
}

// renderBoard renders the three columns side by side.
func (m Model) renderBoard(l boardLayout) string {
	blocks := make([]string, len(m.columns))
	for i := range m.columns {
		blocks[i] = m.renderColumn(i, l)
	}

	var rows []string
	for r := 0; r < l.contentHeight; r++ {
		var row strings.Builder
		for i := range blocks {
			row.WriteString(getLine(blocks[i], r, l.colWidth))
		}
		rows = append(rows, row.String())
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderColumn(ci int, l boardLayout) string {
	c := m.columns[ci]
	width := l.colWidth - 1 // one column of gutter

	hoverIndex := -1
	if m.drag != nil {
		if h, ok := m.drag.Hovered(); ok && h.Bucket == c.Status {
			hoverIndex = h.Index
		}
	}

	title := columnTitle(c.Status, len(c.Goals))
	if hoverIndex == 0 {
		title += DropMarkerStyle.Render(" ▼")
	}
	lines := []string{" " + title}

	if len(c.Goals) == 0 {
		lines = append(lines, DimStyle.Render(" "+emptyColumnHint(c.Status)))
		if hoverIndex == 0 {
			lines = append(lines, DropMarkerStyle.Render(" "+strings.Repeat("─", width-2)))
		}
		return strings.Join(lines, "\n")
	}

	start := m.scrolls[ci]
	end := start + l.cardsVisible()
	if end > len(c.Goals) {
		end = len(c.Goals)
	}
	for i := start; i < end; i++ {
		g := c.Goals[i]
		first, second := cardLines(g, width-1)
		first = " " + first
		second = " " + second

		isSelected := ci == m.column && i == m.cursors[ci] && m.focusedPane == 0
		isMoveTarget := m.isMoveMode && g.ID == m.moveTarget
		isDragged := m.drag != nil && g.ID == m.drag.GoalID

		switch {
		case isMoveTarget:
			first = MoveStyle.Render(pad(IconMove+first, width))
			second = MoveStyle.Render(pad(second, width))
		case isDragged:
			first = DimStyle.Render(pad(IconDrag+first, width))
		case isSelected:
			first = SelectedStyle.Render(pad(first, width))
			second = SelectedStyle.Render(pad(second, width))
		}

		spacer := ""
		if hoverIndex == i+1 {
			spacer = DropMarkerStyle.Render(" " + strings.Repeat("─", width-2))
		}
		lines = append(lines, first, second, spacer)
	}

	return strings.Join(lines, "\n")
}

func emptyColumnHint(st goals.Status) string {
	switch st {
	case goals.StatusActive:
		return "Nothing in focus. Press f."
	case goals.StatusBacklog:
		return "No goals yet. Press a."
	default:
		return "Nothing completed yet."
	}
}

func (m Model) renderDetailPanel(width, height int) string {
	g, ok := m.selected()
	if !ok {
		return FooterStyle.Render(" Select a goal to view details")
	}

	header := m.renderGoalHeader(g)

	if m.isEditing {
		headerRendered := m.renderMarkdown(header)
		var lines []string
		lines = append(lines, strings.Split(headerRendered, "\n")...)
		lines = append(lines, strings.Split(m.noteEditor.View(), "\n")...)
		if len(lines) > height {
			lines = lines[:height]
		}
		return strings.Join(lines, "\n")
	}

	var md strings.Builder
	md.WriteString(header)
	md.WriteString(m.renderMilestones(g))
	if g.Notes != "" {
		md.WriteString("## Notes\n\n")
		md.WriteString(g.Notes)
		if !strings.HasSuffix(g.Notes, "\n") {
			md.WriteString("\n")
		}
	}

	lines := strings.Split(m.renderMarkdown(md.String()), "\n")

	scroll := m.notesScroll
	if scroll > len(lines)-1 {
		scroll = len(lines) - 1
	}
	if scroll < 0 {
		scroll = 0
	}
	lines = lines[scroll:]
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderMarkdown(md string) string {
	rendered := md
	if m.glamourRenderer != nil {
		if out, err := m.glamourRenderer.Render(md); err == nil {
			rendered = out
		}
	}
	return strings.TrimRight(rendered, "\n ")
}

// renderGoalHeader builds the markdown header (title and metadata) for a goal.
func (m Model) renderGoalHeader(g goals.Goal) string {
	var md strings.Builder

	md.WriteString("# " + g.Title + "\n\n")

	meta := []string{
		"**Status:** " + string(g.Status),
		"**Category:** " + string(g.Category),
		fmt.Sprintf("**Progress:** %d%%", g.Progress),
	}
	md.WriteString(strings.Join(meta, " | ") + "\n\n")

	var extra []string
	if g.TargetDate != nil {
		extra = append(extra, "**Target:** "+g.TargetDate.Format("2006-01-02"))
	}
	if g.CompletedAt != nil {
		extra = append(extra, "**Completed:** "+g.CompletedAt.Format("2006-01-02"))
	}
	if len(g.LinkedValueIDs) > 0 {
		extra = append(extra, "**Values:** "+strings.Join(g.LinkedValueIDs, ", "))
	}
	if len(extra) > 0 {
		md.WriteString(strings.Join(extra, " | ") + "\n\n")
	}

	return md.String()
}

func (m Model) renderMilestones(g goals.Goal) string {
	if len(g.Milestones) == 0 {
		return ""
	}
	var md strings.Builder
	md.WriteString(fmt.Sprintf("## Milestones (%d/%d)\n\n", g.MilestonesDone(), len(g.Milestones)))
	for i, ms := range g.Milestones {
		box := "[ ]"
		if ms.IsComplete() {
			box = "[x]"
		}
		marker := ""
		if m.focusedPane == 1 && i == m.msCursor {
			marker = "▸ "
		}
		md.WriteString("- " + box + " " + marker + ms.Title + "\n")
	}
	md.WriteString("\n")
	return md.String()
}

func (m Model) renderFooter(width int) string {
	if m.input != inputNone {
		prompt := InputPromptStyle.Render("> ")
		return prompt + m.textInput.View() + FooterStyle.Render("  enter confirm  esc cancel")
	}
	help := m.keys.ShortHelp()
	switch {
	case m.isEditing:
		help = "esc save & exit  ctrl+s save  ctrl+c cancel"
	case m.isMoveMode:
		help = "↑↓ reorder  ←→ change column  enter/esc exit move"
	case m.drag != nil:
		help = "release over a column to drop, outside the board to cancel"
	case m.focusedPane == 1:
		help = "↑↓ milestones  space toggle  tab board  e edit  E $EDITOR  ? help"
	}
	return FooterStyle.Render(help)
}

func (m Model) renderHelpModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	for _, binding := range m.keys.FullHelp() {
		b.WriteString(ModalKeyStyle.Render(binding[0]))
		b.WriteString(ModalDescStyle.Render(binding[1]))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("Press Esc or ? to close"))

	return ModalStyle.Render(b.String())
}

func (m Model) renderDeleteModal() string {
	var b strings.Builder

	b.WriteString(ModalTitleStyle.Render("Delete Goal"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Delete '%s'?\n\n", m.deleteTitle))
	b.WriteString(lipgloss.NewStyle().Foreground(ColorGreen).Render("[y]") + " Yes  ")
	b.WriteString(lipgloss.NewStyle().Foreground(ColorRed).Render("[n]") + " No")

	return ModalStyle.Render(b.String())
}

// Helper functions

func pad(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func getLine(block string, idx int, width int) string {
	lines := strings.Split(block, "\n")
	if idx < len(lines) {
		return pad(lines[idx], width)
	}
	return strings.Repeat(" ", width)
}

func placeOverlay(modal string, width, height int) string {
	modalLines := strings.Split(modal, "\n")

	topPadding := (height - len(modalLines)) / 2
	if topPadding < 0 {
		topPadding = 0
	}

	leftPadding := (width - lipgloss.Width(modalLines[0])) / 2
	if leftPadding < 0 {
		leftPadding = 0
	}

	var result strings.Builder
	for i := 0; i < topPadding; i++ {
		result.WriteString("\n")
	}

	for _, line := range modalLines {
		result.WriteString(strings.Repeat(" ", leftPadding))
		result.WriteString(line)
		result.WriteString("\n")
	}

	return result.String()
}
