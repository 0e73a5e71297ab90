// internal/tui/app.go
//
// The kanban board UI. It uses bubbletea's Elm-style loop:
//
// 1. Model: the App struct below holds all UI state
// 2. Update: reacts to key presses, snapshots, and reconciler events
// 3. View: renders the columns to a string
//
// The UI never mutates board state directly. Every edit becomes an intent
// handed to the reconciler, and the screen re-renders from the snapshots and
// notifications the reconciler sends back.

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"driftboard/internal/board"
	"driftboard/internal/schema"
)

// uiMode represents which input mode the board is in.
type uiMode int

const (
	modeBrowse    uiMode = iota // Normal navigation
	modeMove                    // Next direction key moves the selected task
	modeEdit                    // Renaming the selected task
	modeCreate                  // Naming a new task for the focused column
	modeField                   // Picking a custom field of the selected task
	modeFieldEdit               // Typing a text/number field value
)

const uiCallTimeout = 5 * time.Second

// Controller is the slice of the reconciler the UI depends on.
type Controller interface {
	Apply(ctx context.Context, intent board.Intent) (uint64, error)
	CreateTask(ctx context.Context, name, sectionGID string) error
	Snapshot(ctx context.Context) (board.Snapshot, error)
	Reload(ctx context.Context) error
	Notifications() <-chan board.Notification
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithShowCompleted sets the initial completed-task visibility.
func WithShowCompleted(show bool) AppOption {
	return func(a *App) {
		a.showCompleted = show
	}
}

// WithUILogger routes UI diagnostics to a log sink.
func WithUILogger(logf func(format string, args ...any)) AppOption {
	return func(a *App) {
		if logf != nil {
			a.logf = logf
		}
	}
}

type snapshotMsg struct {
	snap board.Snapshot
	err  error
}

type noteMsg struct {
	note board.Notification
	ok   bool
}

type applyErrMsg struct {
	err error
}

// App is the bubbletea model for the board.
type App struct {
	ctrl Controller
	logf func(format string, args ...any)

	mode          uiMode
	snap          board.Snapshot
	columns       []board.Column
	colIdx        int
	rowIdx        int
	fieldIdx      int
	editFieldGID  string
	showCompleted bool

	input   textinput.Model
	spin    spinner.Model
	loading bool

	statusMsg string

	width  int
	height int
}

// NewApp builds the board UI on top of a running reconciler.
func NewApp(ctrl Controller, opts ...AppOption) *App {
	input := textinput.New()
	input.CharLimit = 200
	input.Prompt = "name> "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	app := &App{
		ctrl:      ctrl,
		logf:      func(string, ...any) {},
		input:     input,
		spin:      spin,
		loading:   true,
		statusMsg: "Loading board...",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	return app
}

// Init kicks off the initial reload and starts pumping reconciler events.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.requestReload(), a.awaitNote())
}

// Update is called for every message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if !a.loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case snapshotMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("snapshot failed: %v", msg.err)
			return a, nil
		}
		a.applySnapshot(msg.snap)
		return a, nil

	case noteMsg:
		if !msg.ok {
			// Reconciler is gone; nothing left to pump.
			return a, nil
		}
		a.handleNote(msg.note)
		return a, tea.Batch(a.fetchSnapshot(), a.awaitNote())

	case applyErrMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("edit rejected: %v", msg.err)
			a.logf("tui: apply rejected: %v", msg.err)
		}
		return a, a.fetchSnapshot()

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleNote(note board.Notification) {
	switch note.Kind {
	case board.NoteCommitted:
		a.statusMsg = "Saved"
	case board.NoteRolledBack:
		a.statusMsg = fmt.Sprintf("Edit reverted: %s", note.Reason)
	case board.NoteReloaded:
		a.loading = false
		a.statusMsg = "Board reloaded"
	case board.NoteReloadFailed:
		a.loading = false
		a.statusMsg = fmt.Sprintf("Reload failed: %s", note.Reason)
	case board.NoteDefinitionsRefreshed:
		a.statusMsg = "Field definitions refreshed"
	case board.NoteCreated:
		a.statusMsg = "Task created"
	case board.NoteCreateFailed:
		a.statusMsg = fmt.Sprintf("Create failed: %s", note.Reason)
	}
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.mode {
	case modeEdit:
		return a.handleEditKey(msg)
	case modeCreate:
		return a.handleCreateKey(msg)
	case modeFieldEdit:
		return a.handleFieldEditKey(msg)
	}

	key := msg.String()
	switch a.mode {
	case modeMove:
		return a.handleMoveKey(key)
	case modeField:
		return a.handleFieldKey(key)
	}

	switch key {
	case "ctrl+c", "q":
		return a, tea.Quit
	case "r":
		a.loading = true
		a.statusMsg = "Reloading..."
		return a, tea.Batch(a.spin.Tick, a.requestReload())
	case "c":
		a.showCompleted = !a.showCompleted
		a.rebuildColumns()
		if a.showCompleted {
			a.statusMsg = "Showing completed tasks"
		} else {
			a.statusMsg = "Hiding completed tasks"
		}
		return a, nil
	case "left", "h":
		a.moveCursor(-1, 0)
		return a, nil
	case "right", "l":
		a.moveCursor(1, 0)
		return a, nil
	case "up", "k":
		a.moveCursor(0, -1)
		return a, nil
	case "down", "j":
		a.moveCursor(0, 1)
		return a, nil
	case " ":
		if task, ok := a.selectedTask(); ok {
			a.statusMsg = "Toggling completion..."
			return a, a.apply(board.SetCompleted{Task: task.GID, Completed: !task.Completed})
		}
		return a, nil
	case "m":
		if _, ok := a.selectedTask(); ok {
			a.mode = modeMove
			a.statusMsg = "Move: h/l → other column, j/k → within column, esc → cancel"
		}
		return a, nil
	case "e", "enter":
		if task, ok := a.selectedTask(); ok {
			a.mode = modeEdit
			a.input.Prompt = "name> "
			a.input.SetValue(task.Name)
			a.input.CursorEnd()
			a.input.Focus()
			a.statusMsg = "Rename: enter → save, esc → cancel"
			return a, textinput.Blink
		}
		return a, nil
	case "n":
		if len(a.columns) == 0 {
			return a, nil
		}
		a.mode = modeCreate
		a.input.Prompt = "new task> "
		a.input.SetValue("")
		a.input.Focus()
		a.statusMsg = fmt.Sprintf("New task in %s: enter → create, esc → cancel", a.columns[a.colIdx].Section.Name)
		return a, textinput.Blink
	case "f":
		if _, ok := a.selectedTask(); ok && len(a.snap.DefinitionOrder) > 0 {
			a.mode = modeField
			a.fieldIdx = 0
			a.statusMsg = a.fieldStatus()
		}
		return a, nil
	}
	return a, nil
}

func (a *App) handleMoveKey(key string) (tea.Model, tea.Cmd) {
	task, ok := a.selectedTask()
	if !ok {
		a.mode = modeBrowse
		return a, nil
	}
	a.mode = modeBrowse
	switch key {
	case "esc":
		a.statusMsg = "Move cancelled"
		return a, nil
	case "left", "h":
		if a.colIdx > 0 {
			dest := a.columns[a.colIdx-1].Section
			a.colIdx--
			a.rowIdx = 0
			a.statusMsg = fmt.Sprintf("Moving to %s...", dest.Name)
			return a, a.apply(board.Move{Task: task.GID, ToSection: dest.GID, Index: 0})
		}
	case "right", "l":
		if a.colIdx < len(a.columns)-1 {
			dest := a.columns[a.colIdx+1].Section
			a.colIdx++
			a.rowIdx = 0
			a.statusMsg = fmt.Sprintf("Moving to %s...", dest.Name)
			return a, a.apply(board.Move{Task: task.GID, ToSection: dest.GID, Index: 0})
		}
	case "up", "k":
		if a.rowIdx > 0 {
			sec := a.columns[a.colIdx].Section
			a.rowIdx--
			a.statusMsg = "Moving up..."
			return a, a.apply(board.Move{Task: task.GID, ToSection: sec.GID, Index: a.orderIndex(task.GID, -1)})
		}
	case "down", "j":
		if a.rowIdx < len(a.columns[a.colIdx].Tasks)-1 {
			sec := a.columns[a.colIdx].Section
			a.rowIdx++
			a.statusMsg = "Moving down..."
			return a, a.apply(board.Move{Task: task.GID, ToSection: sec.GID, Index: a.orderIndex(task.GID, 1)})
		}
	}
	a.statusMsg = "Move cancelled"
	return a, nil
}

// orderIndex maps the task's position in the full section order (which may
// include hidden completed tasks) to its new position after a one-step move.
func (a *App) orderIndex(taskGID string, delta int) int {
	sec := a.sectionByGID(a.columns[a.colIdx].Section.GID)
	if sec == nil {
		return 0
	}
	for i, gid := range sec.TaskOrder {
		if gid == taskGID {
			idx := i + delta
			if idx < 0 {
				idx = 0
			}
			return idx
		}
	}
	return 0
}

func (a *App) sectionByGID(gid string) *board.Section {
	for i := range a.snap.Sections {
		if a.snap.Sections[i].GID == gid {
			return &a.snap.Sections[i]
		}
	}
	return nil
}

func (a *App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBrowse
		a.input.Blur()
		a.statusMsg = "Rename cancelled"
		return a, nil
	case "enter":
		a.mode = modeBrowse
		a.input.Blur()
		name := strings.TrimSpace(a.input.Value())
		task, ok := a.selectedTask()
		if !ok || name == "" || name == task.Name {
			a.statusMsg = "Rename cancelled"
			return a, nil
		}
		a.statusMsg = "Renaming..."
		return a, a.apply(board.SetName{Task: task.GID, Name: name})
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) handleCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBrowse
		a.input.Blur()
		a.statusMsg = "New task cancelled"
		return a, nil
	case "enter":
		a.mode = modeBrowse
		a.input.Blur()
		name := strings.TrimSpace(a.input.Value())
		if name == "" || len(a.columns) == 0 {
			a.statusMsg = "New task cancelled"
			return a, nil
		}
		section := a.columns[a.colIdx].Section
		a.statusMsg = fmt.Sprintf("Creating %q in %s...", name, section.Name)
		return a, a.createTask(name, section.GID)
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleFieldKey drives the field picker: j/k select a field, enter edits
// it (text/number open the input, enum cycles to the next option).
func (a *App) handleFieldKey(key string) (tea.Model, tea.Cmd) {
	task, ok := a.selectedTask()
	if !ok {
		a.mode = modeBrowse
		return a, nil
	}
	switch key {
	case "esc":
		a.mode = modeBrowse
		a.statusMsg = "Field edit cancelled"
		return a, nil
	case "down", "j":
		if a.fieldIdx < len(a.snap.DefinitionOrder)-1 {
			a.fieldIdx++
		}
		a.statusMsg = a.fieldStatus()
		return a, nil
	case "up", "k":
		if a.fieldIdx > 0 {
			a.fieldIdx--
		}
		a.statusMsg = a.fieldStatus()
		return a, nil
	case "enter":
		gid := a.snap.DefinitionOrder[a.fieldIdx]
		def, ok := a.snap.Definitions[gid]
		if !ok {
			a.mode = modeBrowse
			return a, nil
		}
		switch def.Type {
		case schema.TypeText, schema.TypeNumber:
			a.mode = modeFieldEdit
			a.editFieldGID = gid
			a.input.Prompt = fmt.Sprintf("%s> ", def.Name)
			a.input.SetValue(a.currentFieldText(task, def))
			a.input.CursorEnd()
			a.input.Focus()
			a.statusMsg = "Field: enter → save, esc → cancel (empty clears)"
			return a, textinput.Blink
		case schema.TypeEnum, schema.TypeMultiEnum:
			a.mode = modeBrowse
			return a, a.cycleEnumField(task, def)
		}
		a.mode = modeBrowse
		return a, nil
	}
	return a, nil
}

func (a *App) handleFieldEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeBrowse
		a.input.Blur()
		a.statusMsg = "Field edit cancelled"
		return a, nil
	case "enter":
		a.mode = modeBrowse
		a.input.Blur()
		task, ok := a.selectedTask()
		def, hasDef := a.snap.Definitions[a.editFieldGID]
		if !ok || !hasDef {
			a.statusMsg = "Field edit cancelled"
			return a, nil
		}
		value, err := parseFieldInput(def, a.input.Value())
		if err != nil {
			a.statusMsg = fmt.Sprintf("Invalid %s value: %v", def.Name, err)
			return a, nil
		}
		a.statusMsg = fmt.Sprintf("Updating %s...", def.Name)
		return a, a.apply(board.SetField{Task: task.GID, Value: value})
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// parseFieldInput turns typed input into a field value. An empty input
// clears the field.
func parseFieldInput(def schema.FieldDefinition, raw string) (schema.FieldValue, error) {
	switch def.Type {
	case schema.TypeText:
		if raw == "" {
			return schema.EmptyValue(def), nil
		}
		return schema.TextValue(def, raw)
	case schema.TypeNumber:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return schema.EmptyValue(def), nil
		}
		n, err := decimal.NewFromString(trimmed)
		if err != nil {
			return schema.FieldValue{}, fmt.Errorf("not a number")
		}
		return schema.NumberValue(def, n)
	}
	return schema.FieldValue{}, fmt.Errorf("field type %s is not typed input", def.Type)
}

// cycleEnumField advances an enum field to the next enabled option, wrapping
// through empty after the last one.
func (a *App) cycleEnumField(task board.Task, def schema.FieldDefinition) tea.Cmd {
	current := ""
	if state, ok := task.Fields[def.GID]; ok && !state.Degraded && state.Value.IsSet() {
		if def.Type == schema.TypeEnum {
			current = state.Value.Option()
		} else if opts := state.Value.Options(); len(opts) > 0 {
			current = opts[0]
		}
	}
	next := nextEnumOption(def, current)

	var (
		value schema.FieldValue
		err   error
	)
	switch {
	case next == "":
		value = schema.EmptyValue(def)
	case def.Type == schema.TypeEnum:
		value, err = schema.EnumValue(def, next)
	default:
		value, err = schema.MultiEnumValue(def, []string{next})
	}
	if err != nil {
		a.statusMsg = fmt.Sprintf("Cannot set %s: %v", def.Name, err)
		return nil
	}
	if next == "" {
		a.statusMsg = fmt.Sprintf("%s cleared", def.Name)
	} else if opt, ok := def.Option(next); ok {
		a.statusMsg = fmt.Sprintf("%s → %s", def.Name, opt.Name)
	}
	return a.apply(board.SetField{Task: task.GID, Value: value})
}

// nextEnumOption returns the enabled option after the current one, or empty
// once the list wraps.
func nextEnumOption(def schema.FieldDefinition, current string) string {
	var enabled []string
	for _, opt := range def.Options {
		if opt.Enabled {
			enabled = append(enabled, opt.GID)
		}
	}
	if len(enabled) == 0 {
		return ""
	}
	if current == "" {
		return enabled[0]
	}
	for i, gid := range enabled {
		if gid == current {
			if i+1 < len(enabled) {
				return enabled[i+1]
			}
			return ""
		}
	}
	return enabled[0]
}

func (a *App) fieldStatus() string {
	if a.fieldIdx >= len(a.snap.DefinitionOrder) {
		return ""
	}
	gid := a.snap.DefinitionOrder[a.fieldIdx]
	def, ok := a.snap.Definitions[gid]
	if !ok {
		return ""
	}
	current := "(empty)"
	if task, ok := a.selectedTask(); ok {
		if state, ok := task.Fields[gid]; ok && !state.Degraded && state.Value.IsSet() {
			current = state.Value.String(def)
		}
	}
	return fmt.Sprintf("Field %s: %s    j/k → next field, enter → edit, esc → done", def.Name, current)
}

func (a *App) currentFieldText(task board.Task, def schema.FieldDefinition) string {
	state, ok := task.Fields[def.GID]
	if !ok || state.Degraded || !state.Value.IsSet() {
		return ""
	}
	return state.Value.String(def)
}

// applySnapshot swaps in fresh state and keeps the cursor on a valid cell.
func (a *App) applySnapshot(snap board.Snapshot) {
	a.snap = snap
	a.rebuildColumns()
}

func (a *App) rebuildColumns() {
	cols := a.snap.Columns()
	if !a.showCompleted {
		for i := range cols {
			kept := cols[i].Tasks[:0:0]
			for _, task := range cols[i].Tasks {
				if !task.Completed {
					kept = append(kept, task)
				}
			}
			cols[i].Tasks = kept
		}
	}
	a.columns = cols
	a.clampCursor()
}

func (a *App) clampCursor() {
	if len(a.columns) == 0 {
		a.colIdx, a.rowIdx = 0, 0
		return
	}
	if a.colIdx >= len(a.columns) {
		a.colIdx = len(a.columns) - 1
	}
	if a.colIdx < 0 {
		a.colIdx = 0
	}
	tasks := a.columns[a.colIdx].Tasks
	if a.rowIdx >= len(tasks) {
		a.rowIdx = len(tasks) - 1
	}
	if a.rowIdx < 0 {
		a.rowIdx = 0
	}
}

func (a *App) moveCursor(dCol, dRow int) {
	if len(a.columns) == 0 {
		return
	}
	a.colIdx += dCol
	a.rowIdx += dRow
	a.clampCursor()
}

func (a *App) selectedTask() (board.Task, bool) {
	if a.colIdx >= len(a.columns) {
		return board.Task{}, false
	}
	tasks := a.columns[a.colIdx].Tasks
	if a.rowIdx >= len(tasks) {
		return board.Task{}, false
	}
	return tasks[a.rowIdx], true
}

func (a *App) apply(intent board.Intent) tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()
		_, err := ctrl.Apply(ctx, intent)
		return applyErrMsg{err: err}
	}
}

func (a *App) createTask(name, sectionGID string) tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()
		return applyErrMsg{err: ctrl.CreateTask(ctx, name, sectionGID)}
	}
}

func (a *App) fetchSnapshot() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()
		snap, err := ctrl.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (a *App) requestReload() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), uiCallTimeout)
		defer cancel()
		if err := ctrl.Reload(ctx); err != nil {
			return applyErrMsg{err: err}
		}
		return nil
	}
}

// awaitNote blocks on the reconciler's notification stream and re-arms
// itself after every event.
func (a *App) awaitNote() tea.Cmd {
	ctrl := a.ctrl
	return func() tea.Msg {
		note, ok := <-ctrl.Notifications()
		return noteMsg{note: note, ok: ok}
	}
}

// View renders the whole board.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 120
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		MarginBottom(1).
		Render("⬡ DRIFTBOARD")

	var body string
	switch {
	case a.loading && !a.snap.Loaded:
		body = fmt.Sprintf("%s Loading board...", a.spin.View())
	case len(a.columns) == 0:
		body = "No sections in this project."
	default:
		body = a.renderColumns(width)
	}

	sections := []string{header, body}
	switch a.mode {
	case modeEdit, modeCreate, modeFieldEdit:
		sections = append(sections, a.input.View())
	}
	if pending := a.renderPendingLine(); pending != "" {
		sections = append(sections, pending)
	}
	footer := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		MarginTop(1).
		Render(a.footerText())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) footerText() string {
	hints := "h/l → column    j/k → task    space → toggle done    m → move    e → rename    f → fields    n → new    r → reload    c → completed    q → quit"
	if a.statusMsg == "" {
		return hints
	}
	return fmt.Sprintf("%s\n%s", a.statusMsg, hints)
}

func (a *App) renderPendingLine() string {
	inflight := 0
	for _, p := range a.snap.Pending {
		if p.Status == board.StatusInFlight {
			inflight++
		}
	}
	if inflight == 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E5C07B")).
		Render(fmt.Sprintf("⟳ %d edit(s) syncing", inflight))
}

func (a *App) renderColumns(width int) string {
	count := len(a.columns)
	colWidth := width/count - 2
	if colWidth < 24 {
		colWidth = 24
	}
	rendered := make([]string, 0, count)
	for i, col := range a.columns {
		rendered = append(rendered, a.renderColumn(col, i == a.colIdx, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (a *App) renderColumn(col board.Column, focused bool, width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	if focused {
		titleStyle = titleStyle.Foreground(lipgloss.Color("#5B8DEF"))
	}
	title := titleStyle.Render(fmt.Sprintf("%s (%d)", col.Section.Name, len(col.Tasks)))

	var rows []string
	if len(col.Tasks) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render("empty"))
	}
	for i, task := range col.Tasks {
		selected := focused && i == a.rowIdx
		rows = append(rows, a.renderTask(task, selected, width-4))
	}

	borderColor := lipgloss.Color("#444444")
	if focused {
		borderColor = lipgloss.Color("#5B8DEF")
	}
	content := lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, rows...)...)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(width).
		Render(content)
}

func (a *App) renderTask(task board.Task, selected bool, width int) string {
	name := task.Name
	if task.Completed {
		name = "✓ " + name
	}
	lines := []string{name}
	for _, gid := range task.FieldOrder {
		state, ok := task.Fields[gid]
		if !ok {
			continue
		}
		def, hasDef := a.snap.Definitions[gid]
		label := gid
		if hasDef {
			label = def.Name
		}
		if state.Degraded {
			lines = append(lines, fmt.Sprintf("  ⚠ %s: %s", label, state.Reason))
			continue
		}
		if !state.Value.IsSet() {
			continue
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", label, state.Value.String(def)))
	}
	if a.pendingFor(task.GID) {
		lines[0] += " ⟳"
	}

	style := lipgloss.NewStyle().Width(maxInt(16, width)).Padding(0, 0, 1, 0)
	if selected {
		style = style.Bold(true).Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (a *App) pendingFor(taskGID string) bool {
	for _, p := range a.snap.Pending {
		if p.TaskGID == taskGID && p.Status == board.StatusInFlight {
			return true
		}
	}
	return false
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
