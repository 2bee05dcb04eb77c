package tui

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/sirupsen/logrus"

	"github.com/stefanpenner/wellspring/pkg/drag"
	"github.com/stefanpenner/wellspring/pkg/goals"
	"github.com/stefanpenner/wellspring/pkg/metrics"
	gsync "github.com/stefanpenner/wellspring/pkg/sync"
)

// progressStep is how much +/- changes progress.
const progressStep = 10

// FileChangedMsg is sent when the file watcher detects changes.
type FileChangedMsg struct{}

// SnapshotMsg is sent when the store commits a change.
type SnapshotMsg struct {
	Snapshot goals.Snapshot
}

// ReloadDoneMsg is sent when a store reload finishes.
type ReloadDoneMsg struct {
	Err error
}

// DropDoneMsg is sent when a drag drop has been applied.
type DropDoneMsg struct {
	GoalID string
	Err    error
}

// SyncDoneMsg is sent when git sync completes.
type SyncDoneMsg struct {
	Err error
}

// EditorFinishedMsg is sent when $EDITOR returns.
type EditorFinishedMsg struct {
	Err error
}

type inputKind int

const (
	inputNone inputKind = iota
	inputAdd
	inputRename
	inputMilestone
)

// Options wires optional collaborators into the model.
type Options struct {
	Log     logrus.FieldLogger
	Metrics *metrics.Recorder
	Repo    *gsync.Repo

	// GoalPath returns the file backing a goal. It enables $EDITOR
	// editing and is only set for the files backend.
	GoalPath func(id string) string
}

// Model is the Bubble Tea model for the goal board.
type Model struct {
	store    *goals.Store
	resolver *drag.Resolver
	opts     Options
	log      logrus.FieldLogger
	ctx      context.Context
	keys     KeyMap
	width    int
	height   int

	columns     []Column
	column      int
	cursors     []int
	scrolls     []int
	focusedPane int // 0 = board, 1 = detail
	msCursor    int // selected milestone in the detail pane
	notesScroll int

	// Modal state
	showHelpModal     bool
	showDeleteConfirm bool
	deleteTarget      string
	deleteTitle       string

	// Move mode
	isMoveMode bool
	moveTarget string // id of the goal being moved

	// Input mode (add, rename, milestone)
	input       inputKind
	textInput   textinput.Model
	inputGoalID string

	// Inline edit mode
	isEditing  bool
	noteEditor textarea.Model
	editGoalID string

	// Pointer drag in progress, if any
	drag *drag.Drag

	// Status message
	statusMsg     string
	statusTimeout time.Time

	// Cached glamour renderer (expensive to create)
	glamourRenderer *glamour.TermRenderer
	glamourWidth    int
}

// NewModel creates a new TUI model over s.
func NewModel(s *goals.Store, opts Options) Model {
	if opts.Log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Log = l
	}

	ti := textinput.New()
	ti.CharLimit = 120
	ti.Prompt = ""
	ti.TextStyle = InputStyle

	m := Model{
		store:     s,
		resolver:  drag.NewResolver(s, opts.Log),
		opts:      opts,
		log:       opts.Log,
		ctx:       context.Background(),
		keys:      DefaultKeyMap(),
		textInput: ti,
		cursors:   make([]int, len(goals.Statuses)),
		scrolls:   make([]int, len(goals.Statuses)),
	}
	m.refresh()
	return m
}

// Subscribe forwards store notifications to the program. Send runs on
// its own goroutine because the store notifies synchronously, often from
// inside Update.
func Subscribe(s *goals.Store, p *tea.Program) func() {
	return s.Subscribe(func(snap goals.Snapshot) {
		go p.Send(SnapshotMsg{Snapshot: snap})
	})
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.WindowSize()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		l := newLayout(m.width, m.height)
		m.getGlamourRenderer(l.detailWidth - 2)
		if m.isEditing {
			m.sizeEditor()
		}
		m.refresh()
		return m, tea.ClearScreen

	case FileChangedMsg:
		return m, m.reloadCmd()

	case SnapshotMsg:
		// The snapshot may be stale by the time it arrives; read fresh.
		m.refresh()
		return m, nil

	case ReloadDoneMsg:
		if msg.Err != nil {
			m.report("reload", msg.Err)
		}
		m.refresh()
		return m, nil

	case DropDoneMsg:
		m.refresh()
		if msg.Err != nil {
			m.report("drop", msg.Err)
		} else {
			m.selectGoal(msg.GoalID)
		}
		return m, nil

	case SyncDoneMsg:
		if msg.Err != nil {
			m.setStatus("Sync failed: " + msg.Err.Error())
			return m, nil
		}
		m.setStatus("Synced successfully")
		return m, m.reloadCmd()

	case EditorFinishedMsg:
		return m, m.reloadCmd()

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	if m.input != inputNone {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}

	if m.isEditing {
		var cmd tea.Cmd
		m.noteEditor, cmd = m.noteEditor.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input != inputNone {
		return m.handleInput(msg)
	}

	if m.isEditing {
		return m.handleEditMode(msg)
	}

	if m.showHelpModal {
		switch msg.String() {
		case "esc", "enter", "?", "q":
			m.showHelpModal = false
		}
		return m, nil
	}

	if m.isMoveMode {
		return m.handleMoveMode(msg)
	}

	if m.showDeleteConfirm {
		switch msg.String() {
		case "y", "Y":
			if err := m.store.DeleteGoal(m.ctx, m.deleteTarget); err != nil {
				m.report("delete", err)
			} else {
				m.setStatus("Deleted: " + m.deleteTitle)
			}
			m.refresh()
			m.showDeleteConfirm = false
		case "n", "N", "esc":
			m.showDeleteConfirm = false
		}
		return m, nil
	}

	if m.focusedPane == 1 {
		if handled, cmd := m.handleDetailKey(msg); handled {
			return m, cmd
		}
	}

	g, hasGoal := m.selected()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursors[m.column] > 0 {
			m.cursors[m.column]--
		}
		m.selectionChanged()

	case key.Matches(msg, m.keys.Down):
		if m.cursors[m.column] < len(m.columns[m.column].Goals)-1 {
			m.cursors[m.column]++
		}
		m.selectionChanged()

	case key.Matches(msg, m.keys.Left):
		if m.column > 0 {
			m.column--
		}
		m.selectionChanged()

	case key.Matches(msg, m.keys.Right):
		if m.column < len(m.columns)-1 {
			m.column++
		}
		m.selectionChanged()

	case key.Matches(msg, m.keys.Tab):
		m.focusedPane = (m.focusedPane + 1) % 2
		m.msCursor = 0

	case key.Matches(msg, m.keys.Space):
		if hasGoal {
			m.toggleComplete(g)
		}

	case key.Matches(msg, m.keys.Focus):
		if hasGoal {
			m.toggleFocus(g)
		}

	case key.Matches(msg, m.keys.ProgressUp):
		if hasGoal {
			m.report("progress", m.store.UpdateProgress(m.ctx, g.ID, g.Progress+progressStep))
			m.refresh()
		}

	case key.Matches(msg, m.keys.ProgressDown):
		if hasGoal {
			m.report("progress", m.store.UpdateProgress(m.ctx, g.ID, g.Progress-progressStep))
			m.refresh()
		}

	case key.Matches(msg, m.keys.Category):
		if hasGoal {
			next := nextCategory(g.Category)
			m.report("category", m.store.SetCategory(m.ctx, g.ID, next))
			m.refresh()
		}

	case key.Matches(msg, m.keys.InlineEdit):
		if hasGoal {
			m.enterEditMode(g)
			return m, textarea.Blink
		}

	case key.Matches(msg, m.keys.ExternalEdit):
		if hasGoal {
			return m, m.openEditor(g)
		}

	case key.Matches(msg, m.keys.Add):
		return m, m.startInput(inputAdd, "", "", "new goal title")

	case key.Matches(msg, m.keys.AddMilestone):
		if hasGoal {
			return m, m.startInput(inputMilestone, g.ID, "", "milestone for "+g.Title)
		}

	case key.Matches(msg, m.keys.Rename):
		if hasGoal {
			return m, m.startInput(inputRename, g.ID, g.Title, "new title")
		}

	case key.Matches(msg, m.keys.Delete):
		if hasGoal {
			m.deleteTarget = g.ID
			m.deleteTitle = g.Title
			m.showDeleteConfirm = true
		}

	case key.Matches(msg, m.keys.Reload):
		m.setStatus("Reloaded")
		return m, m.reloadCmd()

	case key.Matches(msg, m.keys.Sync):
		return m, m.doSync()

	case key.Matches(msg, m.keys.Move):
		if hasGoal {
			m.isMoveMode = true
			m.moveTarget = g.ID
			m.setStatus("Move mode: j/k reorder, h/l change column, enter/esc exit")
		}

	case key.Matches(msg, m.keys.Help):
		m.showHelpModal = !m.showHelpModal
	}

	return m, nil
}

// handleDetailKey handles keys that mean something different while the
// detail pane has focus. It reports whether the key was consumed.
func (m *Model) handleDetailKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	g, ok := m.selected()
	if !ok {
		return false, nil
	}
	switch {
	case key.Matches(msg, m.keys.Up):
		if len(g.Milestones) > 0 {
			if m.msCursor > 0 {
				m.msCursor--
			}
		} else if m.notesScroll > 0 {
			m.notesScroll--
		}
		return true, nil

	case key.Matches(msg, m.keys.Down):
		if len(g.Milestones) > 0 {
			if m.msCursor < len(g.Milestones)-1 {
				m.msCursor++
			}
		} else {
			m.notesScroll++
		}
		return true, nil

	case key.Matches(msg, m.keys.Space):
		if m.msCursor < len(g.Milestones) {
			ms := g.Milestones[m.msCursor]
			m.report("milestone", m.store.ToggleMilestone(m.ctx, g.ID, ms.ID))
			m.refresh()
		}
		return true, nil
	}
	return false, nil
}

func (m *Model) toggleComplete(g goals.Goal) {
	var err error
	if g.IsComplete() {
		backlog := len(m.store.GoalsByStatus(goals.StatusBacklog))
		err = m.store.MoveGoalToStatus(m.ctx, g.ID, goals.StatusBacklog, backlog)
		if err == nil {
			m.setStatus("Reopened: " + g.Title)
		}
	} else {
		err = m.store.MoveGoalToStatus(m.ctx, g.ID, goals.StatusCompleted, 0)
		if err == nil {
			m.setStatus("Completed: " + g.Title)
		}
	}
	m.refresh()
	if err != nil {
		m.report("complete", err)
		return
	}
	m.selectGoal(g.ID)
}

// toggleFocus promotes a goal into the active bucket, or parks an active
// goal at the head of the backlog.
func (m *Model) toggleFocus(g goals.Goal) {
	var err error
	if g.IsActive() {
		err = m.store.MoveGoalToStatus(m.ctx, g.ID, goals.StatusBacklog, 0)
		if err == nil {
			m.setStatus("Parked: " + g.Title)
		}
	} else {
		active := len(m.store.GoalsByStatus(goals.StatusActive))
		err = m.store.MoveGoalToStatus(m.ctx, g.ID, goals.StatusActive, active)
		if err == nil {
			m.setStatus("Focused: " + g.Title)
		}
	}
	m.refresh()
	if err != nil {
		m.report("focus", err)
		return
	}
	m.selectGoal(g.ID)
}

func (m *Model) startInput(kind inputKind, goalID, value, placeholder string) tea.Cmd {
	m.input = kind
	m.inputGoalID = goalID
	m.textInput.Reset()
	m.textInput.SetValue(value)
	m.textInput.Placeholder = placeholder
	m.textInput.Focus()
	return textinput.Blink
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input = inputNone
		m.textInput.Blur()
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.textInput.Value())
		kind := m.input
		m.input = inputNone
		m.textInput.Blur()
		if value == "" {
			return m, nil
		}
		switch kind {
		case inputAdd:
			g, err := m.store.AddGoal(m.ctx, goals.Draft{Title: value})
			m.refresh()
			if g.ID != "" {
				m.selectGoal(g.ID)
			}
			if err != nil {
				m.report("add", err)
			} else {
				m.setStatus("Added: " + value)
			}
		case inputRename:
			if err := m.store.SetTitle(m.ctx, m.inputGoalID, value); err != nil {
				m.report("rename", err)
			} else {
				m.setStatus("Renamed to: " + value)
			}
			m.refresh()
		case inputMilestone:
			if _, err := m.store.AddMilestone(m.ctx, m.inputGoalID, value); err != nil {
				m.report("milestone", err)
			} else {
				m.setStatus("Milestone added: " + value)
			}
			m.refresh()
		}
		return m, nil

	default:
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
}

// handleEditMode handles key messages while inline editing.
func (m Model) handleEditMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		// Save and exit
		m.saveInlineEdit()
		m.isEditing = false
		m.noteEditor.Blur()
		m.refresh()
		return m, nil

	case tea.KeyCtrlS:
		// Save but stay in edit mode
		m.saveInlineEdit()
		m.refresh()
		return m, nil

	case tea.KeyCtrlC:
		// Cancel without saving
		m.isEditing = false
		m.noteEditor.Blur()
		m.setStatus("Edit cancelled")
		return m, nil

	default:
		var cmd tea.Cmd
		m.noteEditor, cmd = m.noteEditor.Update(msg)
		return m, cmd
	}
}

// enterEditMode sets up the textarea for inline editing of a goal's notes.
func (m *Model) enterEditMode(g goals.Goal) {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.SetValue(g.Notes)
	ta.Focus()

	m.isEditing = true
	m.noteEditor = ta
	m.editGoalID = g.ID
	m.focusedPane = 1
	m.sizeEditor()
}

func (m *Model) sizeEditor() {
	l := newLayout(m.width, m.height)
	m.noteEditor.SetWidth(l.detailWidth - 2)
	editorHeight := l.contentHeight - 4 // title and meta lines above
	if editorHeight < 3 {
		editorHeight = 3
	}
	m.noteEditor.SetHeight(editorHeight)
}

// saveInlineEdit writes the textarea content to the goal's notes.
func (m *Model) saveInlineEdit() {
	if err := m.store.SetNotes(m.ctx, m.editGoalID, m.noteEditor.Value()); err != nil {
		m.report("notes", err)
		return
	}
	m.setStatus("Saved")
}

func (m Model) handleMoveMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), msg.Type == tea.KeyEsc, msg.Type == tea.KeyEnter:
		m.isMoveMode = false
		m.moveTarget = ""
		m.setStatus("Move complete")

	case key.Matches(msg, m.keys.Down):
		m.reorderTarget(1)

	case key.Matches(msg, m.keys.Up):
		m.reorderTarget(-1)

	case key.Matches(msg, m.keys.Left):
		m.shiftTarget(-1)

	case key.Matches(msg, m.keys.Right):
		m.shiftTarget(1)
	}

	return m, nil
}

// reorderTarget moves the move target one slot within its column.
func (m *Model) reorderTarget(delta int) {
	col, idx, ok := m.locate(m.moveTarget)
	if !ok {
		m.isMoveMode = false
		return
	}
	newIdx := idx + delta
	if newIdx < 0 || newIdx >= len(m.columns[col].Goals) {
		return
	}
	err := m.store.ReorderGoals(m.ctx, m.columns[col].Status, idx, newIdx)
	m.refresh()
	if err != nil {
		m.report("reorder", err)
	}
	m.selectGoal(m.moveTarget)
}

// shiftTarget moves the move target into the neighbouring column, at the
// row the cursor is on.
func (m *Model) shiftTarget(delta int) {
	col, idx, ok := m.locate(m.moveTarget)
	if !ok {
		m.isMoveMode = false
		return
	}
	next := col + delta
	if next < 0 || next >= len(m.columns) {
		return
	}
	target := m.columns[next]
	index := idx
	if index > len(target.Goals) {
		index = len(target.Goals)
	}
	err := m.store.MoveGoalToStatus(m.ctx, m.moveTarget, target.Status, index)
	m.refresh()
	if err != nil {
		m.report("move", err)
	} else {
		m.setStatus("Moved to " + string(target.Status))
	}
	m.selectGoal(m.moveTarget)
}

// handleMouse turns press/motion/release into a drag gesture. Press on a
// card begins, motion hovers, release over a column drops.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.modalOpen() {
		return m, nil
	}
	l := newLayout(m.width, m.height)
	col, inColumn := l.columnAt(msg.X)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft || !inColumn {
			return m, nil
		}
		c := m.columns[col]
		i := l.cardIndexAt(msg.Y, m.scrolls[col], len(c.Goals))
		if i < 0 {
			return m, nil
		}
		m.column = col
		m.cursors[col] = i
		m.focusedPane = 0
		m.drag = drag.Begin(c.Goals[i].ID, c.Status, i, float64(cardHeight))

	case tea.MouseActionMotion:
		if m.drag == nil {
			return m, nil
		}
		if !inColumn || !l.inBoard(msg.Y) {
			m.drag.ClearHover()
			return m, nil
		}
		c := m.columns[col]
		m.drag.HoverAt(c.Status, l.offsetY(msg.Y, m.scrolls[col]), len(c.Goals))

	case tea.MouseActionRelease:
		if m.drag == nil {
			return m, nil
		}
		d := m.drag
		m.drag = nil
		if !inColumn {
			// Released outside the board: cancel.
			return m, nil
		}
		c := m.columns[col]
		if l.inBoard(msg.Y) {
			d.HoverAt(c.Status, l.offsetY(msg.Y, m.scrolls[col]), len(c.Goals))
		} else {
			d.ClearHover()
		}
		return m, m.dropCmd(d, c.Status, len(c.Goals))
	}

	return m, nil
}

func (m Model) dropCmd(d *drag.Drag, target goals.Status, targetLen int) tea.Cmd {
	r, ctx := m.resolver, m.ctx
	return func() tea.Msg {
		return DropDoneMsg{GoalID: d.GoalID, Err: r.Drop(ctx, d, target, targetLen)}
	}
}

func (m Model) reloadCmd() tea.Cmd {
	s, ctx := m.store, m.ctx
	return func() tea.Msg {
		return ReloadDoneMsg{Err: s.Reload(ctx)}
	}
}

func (m Model) modalOpen() bool {
	return m.showHelpModal || m.showDeleteConfirm || m.input != inputNone || m.isEditing || m.isMoveMode
}

// refresh re-reads the board from the store, keeping the selection on
// the same goal where possible.
func (m *Model) refresh() {
	var selectedID string
	if g, ok := m.selected(); ok {
		selectedID = g.ID
	}
	m.columns = BuildColumns(m.store.Snapshot())
	if selectedID != "" {
		m.selectGoal(selectedID)
	}
	m.clampCursors()
}

func (m *Model) clampCursors() {
	visible := newLayout(m.width, m.height).cardsVisible()
	for i, c := range m.columns {
		if m.cursors[i] >= len(c.Goals) {
			m.cursors[i] = len(c.Goals) - 1
		}
		if m.cursors[i] < 0 {
			m.cursors[i] = 0
		}
		m.scrolls[i] = clampScroll(m.scrolls[i], m.cursors[i], visible, len(c.Goals))
	}
}

func (m *Model) selectionChanged() {
	m.msCursor = 0
	m.notesScroll = 0
	m.clampCursors()
}

// selected returns the goal under the cursor.
func (m Model) selected() (goals.Goal, bool) {
	if m.column >= len(m.columns) {
		return goals.Goal{}, false
	}
	c := m.columns[m.column]
	i := m.cursors[m.column]
	if i < 0 || i >= len(c.Goals) {
		return goals.Goal{}, false
	}
	return c.Goals[i], true
}

// locate finds a goal's column and row on the board.
func (m Model) locate(id string) (int, int, bool) {
	for ci, c := range m.columns {
		for i, g := range c.Goals {
			if g.ID == id {
				return ci, i, true
			}
		}
	}
	return 0, 0, false
}

// selectGoal moves the cursor onto the goal with id, if it is on the board.
func (m *Model) selectGoal(id string) {
	col, i, ok := m.locate(id)
	if !ok {
		return
	}
	m.column = col
	m.cursors[col] = i
	m.clampCursors()
}

// report shows an operation error to the user. Errors that point to the
// board being out of date trigger a resync.
func (m *Model) report(op string, err error) {
	if err == nil {
		return
	}
	if m.opts.Metrics != nil {
		m.opts.Metrics.RecordRejection(op, err)
	}
	if errors.Is(err, drag.ErrDropInFlight) {
		m.setStatus("Still applying the previous move")
		return
	}
	notice, show := goals.Notice(err)
	if !show {
		m.log.WithError(err).WithField("op", op).Warn("board out of sync with store")
		m.refresh()
	}
	m.setStatus(notice)
}

func nextCategory(c goals.Category) goals.Category {
	for i, known := range goals.Categories {
		if known == c {
			return goals.Categories[(i+1)%len(goals.Categories)]
		}
	}
	return goals.Categories[0]
}

// getGlamourRenderer returns a cached glamour renderer, creating one if needed
// or if the width changed.
func (m *Model) getGlamourRenderer(width int) *glamour.TermRenderer {
	if width < 20 {
		width = 20
	}
	if m.glamourRenderer != nil && m.glamourWidth == width {
		return m.glamourRenderer
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	m.glamourRenderer = r
	m.glamourWidth = width
	return r
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusTimeout = time.Now().Add(3 * time.Second)
}

func (m *Model) openEditor(g goals.Goal) tea.Cmd {
	if m.opts.GoalPath == nil {
		m.setStatus("External editing needs the files backend")
		return nil
	}
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "vim"
	}
	c := exec.Command(editor, m.opts.GoalPath(g.ID))
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return EditorFinishedMsg{Err: err}
	})
}

func (m *Model) doSync() tea.Cmd {
	repo := m.opts.Repo
	if repo == nil {
		m.setStatus("Git sync needs the files backend")
		return nil
	}
	m.setStatus("Syncing...")
	return func() tea.Msg {
		return SyncDoneMsg{Err: repo.Sync()}
	}
}
