package terminal

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/valerio/go-arp/arp/backend"
	"github.com/valerio/go-arp/arp/backend/terminal/render"
	"github.com/valerio/go-arp/arp/bit"
	"github.com/valerio/go-arp/arp/controller"
	"github.com/valerio/go-arp/arp/engine"
	"github.com/valerio/go-arp/arp/input"
	"github.com/valerio/go-arp/arp/input/action"
	"github.com/valerio/go-arp/arp/input/event"
	"github.com/valerio/go-arp/arp/notestack"
)

const (
	minTermWidth  = 60
	minTermHeight = 16

	gridX      = 2
	gridY      = 2
	cellWidth  = 3
	statusY    = gridY + 3
	statusRows = 5
	logsY      = statusY + statusRows + 2

	logCapacity = 200
)

// Terminals only report key presses and auto repeats, a note is released
// once its key stops repeating. The timeout must outlast the initial repeat
// delay of common keyboards.
const noteKeyTimeout = 600 * time.Millisecond

// Backend implements the Backend interface using tcell for terminal rendering
type Backend struct {
	screen    tcell.Screen
	logBuffer *render.LogBuffer
	logLevel  slog.LevelVar
	config    backend.BackendConfig

	mu         sync.Mutex
	running    bool
	eventQueue []backend.InputEvent // Collect events to return

	keyStates  map[action.Action]time.Time // Last time each note key was seen
	activeKeys map[action.Action]bool      // Notes active in previous update

	now     func() time.Time
	signals bool
}

// New creates a new terminal backend drawing on the controlling terminal.
func New() *Backend {
	return &Backend{now: time.Now, signals: true}
}

// NewWithScreen creates a backend drawing on an existing screen, such as a
// tcell simulation screen. No signal handlers are installed.
func NewWithScreen(screen tcell.Screen) *Backend {
	return &Backend{screen: screen, now: time.Now}
}

// Init initializes the terminal backend
func (t *Backend) Init(config backend.BackendConfig) error {
	t.config = config
	t.eventQueue = nil
	t.keyStates = make(map[action.Action]time.Time)
	t.activeKeys = make(map[action.Action]bool)
	t.logLevel.Set(slog.LevelInfo)

	if t.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("failed to initialize terminal: %w", err)
		}
		t.screen = screen
	}
	if err := t.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	t.running = true

	// Everything logged from now on goes to the log pane. The buffer keeps
	// debug records so lowering the filter shows recent history.
	t.logBuffer = render.NewLogBuffer(logCapacity)
	handler := render.NewLogBufferHandler(t.logBuffer, slog.LevelDebug)
	slog.SetDefault(slog.New(handler))

	slog.Info("Terminal backend initialized", "midi_in", config.MIDIIn, "midi_out", config.MIDIOut)

	t.screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	t.screen.Clear()

	if t.signals {
		go t.handleSignals()
	}

	return nil
}

// Update draws the state and returns the input gathered since the last call.
func (t *Backend) Update(state engine.State) ([]backend.InputEvent, error) {
	var events []backend.InputEvent
	now := t.now()

	// Poll for input events synchronously
	for t.screen.HasPendingEvent() {
		ev := t.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			t.processKeyEvent(ev, now)
		case *tcell.EventResize:
			t.screen.Sync()
		}
	}

	currentlyActive := make(map[action.Action]bool)

	for act, lastSeen := range t.keyStates {
		if now.Sub(lastSeen) >= noteKeyTimeout {
			delete(t.keyStates, act)
			continue
		}
		currentlyActive[act] = true
		if !t.activeKeys[act] {
			slog.Debug("Key press", "action", action.GetInfo(act).Description)
			events = append(events, backend.InputEvent{Action: act, Type: event.Press})
		} else {
			events = append(events, backend.InputEvent{Action: act, Type: event.Hold})
		}
	}

	for act := range t.activeKeys {
		if !currentlyActive[act] {
			slog.Debug("Key release", "action", action.GetInfo(act).Description)
			events = append(events, backend.InputEvent{Action: act, Type: event.Release})
		}
	}
	t.activeKeys = currentlyActive

	t.mu.Lock()
	events = append(events, t.eventQueue...)
	t.eventQueue = nil
	running := t.running
	t.mu.Unlock()

	if !running {
		return events, nil
	}

	t.render(state)
	t.screen.Show()

	return events, nil
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

// HandleAction processes backend-specific actions
func (t *Backend) HandleAction(act action.Action) {
	switch act {
	case action.DebugLogLevelIncrease:
		t.changeLogLevel(1)
	case action.DebugLogLevelDecrease:
		t.changeLogLevel(-1)
	}
}

// LogLevel returns the minimum level shown in the log pane.
func (t *Backend) LogLevel() slog.Level {
	return t.logLevel.Level()
}

func (t *Backend) handleSignals() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGQUIT)

	<-signals
	t.queue(backend.InputEvent{Action: action.Quit, Type: event.Press})
}

func (t *Backend) queue(evt backend.InputEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if evt.Action == action.Quit {
		t.running = false
	}
	t.eventQueue = append(t.eventQueue, evt)
}

func (t *Backend) processKeyEvent(ev *tcell.EventKey, now time.Time) {
	if act, exists := keyMapping[ev.Key()]; exists {
		t.trigger(act, now)
		return
	}

	if ev.Key() == tcell.KeyRune {
		if act, exists := runeMapping[ev.Rune()]; exists {
			t.trigger(act, now)
		}
	}
}

func (t *Backend) trigger(act action.Action, now time.Time) {
	info := action.GetInfo(act)
	if info.Category == action.CategoryNote {
		t.keyStates[act] = now
		return
	}
	slog.Debug("UI event", "action", info.Description, "category", info.Category)
	t.queue(backend.InputEvent{Action: act, Type: event.Press})
}

// tcellKeyNameMap converts tcell keys to key names used in default mappings
var tcellKeyNameMap = map[tcell.Key]string{
	tcell.KeyEnter:  "Enter",
	tcell.KeyUp:     "Up",
	tcell.KeyDown:   "Down",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
}

// buildKeyMapping creates the key mapping from default mappings
func buildKeyMapping() map[tcell.Key]action.Action {
	mapping := make(map[tcell.Key]action.Action)

	for key, keyName := range tcellKeyNameMap {
		if act, ok := input.GetDefaultMapping(keyName); ok {
			mapping[key] = act
		}
	}

	mapping[tcell.KeyCtrlC] = action.Quit

	return mapping
}

// buildRuneMapping creates the rune mapping from default mappings. Single
// character names map to themselves.
func buildRuneMapping() map[rune]action.Action {
	mapping := make(map[rune]action.Action)

	for keyName, act := range input.DefaultKeyMap {
		if r := []rune(keyName); len(r) == 1 {
			mapping[r[0]] = act
		}
	}
	if act, ok := input.GetDefaultMapping("Space"); ok {
		mapping[' '] = act
	}

	return mapping
}

// keyMapping maps tcell keys to actions
var keyMapping = buildKeyMapping()

// runeMapping maps runes to actions
var runeMapping = buildRuneMapping()

func (t *Backend) changeLogLevel(direction int) {
	oldLevel := t.logLevel.Level()
	newLevel := oldLevel
	switch direction {
	case -1:
		switch oldLevel {
		case slog.LevelDebug:
			newLevel = slog.LevelInfo
		case slog.LevelInfo:
			newLevel = slog.LevelWarn
		case slog.LevelWarn:
			newLevel = slog.LevelError
		}
	case 1:
		switch oldLevel {
		case slog.LevelError:
			newLevel = slog.LevelWarn
		case slog.LevelWarn:
			newLevel = slog.LevelInfo
		case slog.LevelInfo:
			newLevel = slog.LevelDebug
		}
	}
	if oldLevel != newLevel {
		t.logLevel.Set(newLevel)
		slog.Info("Log filter changed", "from", oldLevel, "to", newLevel)
	}
}

func (t *Backend) render(state engine.State) {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()
	if termWidth < minTermWidth || termHeight < minTermHeight {
		style := tcell.StyleDefault.Foreground(tcell.ColorRed)
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, style)
		return
	}

	t.drawBorders(termWidth, termHeight)
	t.drawGrid(state)
	t.drawStatus(state, termWidth)
	t.drawLogs(logsY+1, termWidth, termHeight)
}

func (t *Backend) drawBorders(termWidth, termHeight int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for x := 0; x < termWidth; x++ {
		t.screen.SetContent(x, 0, '─', nil, borderStyle)
		t.screen.SetContent(x, logsY, '─', nil, borderStyle)
		t.screen.SetContent(x, termHeight-1, '─', nil, borderStyle)
	}

	title := t.config.Title
	if title == "" {
		title = "go-arp"
	}
	t.drawText(2, 0, termWidth-4, " "+title+" ", titleStyle)
	t.drawText(2, logsY, termWidth-4, fmt.Sprintf(" Logs (%s) ", t.logLevel.Level()), titleStyle)

	if t.config.ShowHelp {
		help := " keys a-k play  z/x kbd octave  arrows tempo/swing  [ ] pattern  m mode  space panic  q quit "
		t.drawText(2, termHeight-1, termWidth-4, help, borderStyle)
	}
}

func (t *Backend) drawGrid(state engine.State) {
	indexStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	triggerStyle := tcell.StyleDefault.Foreground(tcell.ColorGreen)
	restStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	cursorStyle := tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow)

	for i := uint8(0); i < controller.NumSlots; i++ {
		x := gridX + int(i)*cellWidth
		t.drawText(x, gridY, cellWidth, fmt.Sprintf("%2d", i+1), indexStyle)

		kind := render.Slot(state.Pattern, state.PatternSize, i)
		style := restStyle
		if kind == render.SlotTrigger {
			style = triggerStyle
		}
		if i == state.Step {
			style = cursorStyle
		}
		r := render.SlotRune(kind)
		t.screen.SetContent(x, gridY+1, r, nil, style)
		t.screen.SetContent(x+1, gridY+1, r, nil, style)
	}
}

func (t *Backend) drawStatus(state engine.State, termWidth int) {
	labelStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	valueStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	width := termWidth - 2*gridX

	source := "internal"
	if state.Source == controller.SourceExternal {
		source = "external"
	}
	estimate := "-"
	if state.EstimatedTempo > 0 {
		estimate = fmt.Sprintf("%d bpm", state.EstimatedTempo)
	}
	sounding := "-"
	if state.Sounding {
		sounding = notestack.Name(state.SoundingNote)
	}

	hits := bit.Count16(state.Pattern & uint16(uint32(1)<<state.PatternSize-1))

	lines := [statusRows][2]string{
		{"Tempo", fmt.Sprintf("%d bpm  swing %d  clock %s  estimate %s", state.Tempo, state.Swing, source, estimate)},
		{"Pattern", fmt.Sprintf("%s  size %d  %d hits  step %d", controller.FormatPattern(state.Pattern, state.PatternSize), state.PatternSize, hits, state.Step+1)},
		{"Arp", fmt.Sprintf("%s  %s  %d oct", state.Mode, state.Direction, state.Octaves)},
		{"Held", render.NoteList(state.Held)},
		{"Playing", sounding},
	}
	for i, line := range lines {
		y := statusY + i
		t.drawText(gridX, y, 10, line[0], labelStyle)
		t.drawText(gridX+10, y, width-10, line[1], valueStyle)
	}
}

func (t *Backend) drawLogs(startY, width, termHeight int) {
	availableHeight := termHeight - startY - 1
	if availableHeight <= 0 {
		return
	}

	logs := t.logBuffer.GetRecent(availableHeight, t.logLevel.Level())

	debugStyle := tcell.StyleDefault.Foreground(tcell.ColorGray)
	infoStyle := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	warnStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)
	errStyle := tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)

	for i, logEntry := range logs {
		style := infoStyle
		switch logEntry.Level {
		case slog.LevelDebug:
			style = debugStyle
		case slog.LevelWarn:
			style = warnStyle
		case slog.LevelError:
			style = errStyle
		}
		t.drawText(1, startY+i, width-2, render.FormatLogEntry(logEntry), style)
	}
}

func (t *Backend) drawText(x, y, width int, text string, style tcell.Style) {
	for i, ch := range []rune(render.Truncate(text, width)) {
		t.screen.SetContent(x+i, y, ch, nil, style)
	}
}
