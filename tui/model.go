// Package tui is the interactive terminal recorder.
package tui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/model"
)

// Recorder is the part of recording.Controller the TUI drives.
type Recorder interface {
	Snapshot() recording.Snapshot
	Start(ctx context.Context, mode model.RecordingMode) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (*model.RecordingEntry, error)
	Cancel(ctx context.Context) error
}

// Model is the root bubbletea model.
type Model struct {
	rec     Recorder
	events  <-chan recording.Event
	palette transcript.Palette

	state  model.LifecycleState
	active *model.ActiveRecording
	saving bool
	mode   model.RecordingMode

	// Most recent entry stopped in this session.
	entry *model.RecordingEntry

	notification string
	notifyErr    bool
	notifySeq    int

	busy     bool
	quitting bool
	width    int
	height   int
}

// New creates a model. events should carry every controller event, for
// example from a channel fed by Controller.Subscribe.
func New(rec Recorder, events <-chan recording.Event, mode model.RecordingMode, palette transcript.Palette) Model {
	if !mode.Valid() {
		mode = model.ModeVoiceNote
	}
	snap := rec.Snapshot()
	return Model{
		rec:     rec,
		events:  events,
		palette: palette,
		state:   snap.State,
		active:  snap.Active,
		saving:  snap.Saving,
		mode:    mode,
	}
}

// Init starts listening for controller events.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(events <-chan recording.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

func opCmd(op string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return OpDoneMsg{Op: op, Err: fn(context.Background())}
	}
}

func (m Model) startCmd() tea.Cmd {
	mode := m.mode
	return opCmd("start", func(ctx context.Context) error { return m.rec.Start(ctx, mode) })
}

func (m Model) stopCmd() tea.Cmd {
	return func() tea.Msg {
		entry, err := m.rec.Stop(context.Background())
		return OpDoneMsg{Op: "stop", Entry: entry, Err: err}
	}
}

func clearNotificationCmd(seq int) tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearNotificationMsg{Seq: seq}
	})
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case EventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, waitForEvent(m.events))

	case EventsClosedMsg:
		m.events = nil
		return m, nil

	case OpDoneMsg:
		m.busy = false
		if msg.Entry != nil {
			m.entry = msg.Entry
		}
		if msg.Op == "quit" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case ClearNotificationMsg:
		if msg.Seq == m.notifySeq {
			m.notification = ""
			m.notifyErr = false
		}
		return m, nil
	}

	return m, nil
}

// handleEvent applies a controller event and returns any resulting command.
func (m *Model) handleEvent(ev recording.Event) tea.Cmd {
	switch ev.Type {
	case recording.EventState:
		m.state = ev.State
		m.active = ev.Active
		m.saving = ev.Saving

	case recording.EventProgress:
		m.active = ev.Active

	case recording.EventEntry:
		if ev.Entry != nil && m.entry != nil && ev.Entry.ID == m.entry.ID {
			m.entry = ev.Entry
		}

	case recording.EventLibrary:
		if m.entry == nil {
			return nil
		}
		for i := range ev.Recordings {
			if ev.Recordings[i].ID == m.entry.ID {
				e := ev.Recordings[i]
				m.entry = &e
				return nil
			}
		}
		m.entry = nil

	case recording.EventNotification:
		if ev.Notification == nil {
			return nil
		}
		n := ev.Notification
		m.notification = n.Title
		if n.Message != "" {
			m.notification += ": " + n.Message
		}
		m.notifyErr = n.Level == model.NotifyError
		m.notifySeq++
		return clearNotificationCmd(m.notifySeq)
	}
	return nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		if m.state != model.StateIdle {
			m.busy = true
			return m, opCmd("quit", m.rec.Cancel)
		}
		m.quitting = true
		return m, tea.Quit

	case KeySpace:
		if m.busy || m.saving {
			return m, nil
		}
		m.busy = true
		switch m.state {
		case model.StateIdle:
			return m, m.startCmd()
		case model.StateRecording:
			return m, opCmd("pause", m.rec.Pause)
		case model.StatePaused:
			return m, opCmd("resume", m.rec.Resume)
		}
		m.busy = false
		return m, nil

	case KeyStop, KeyEnter:
		if m.busy || m.state == model.StateIdle {
			return m, nil
		}
		m.busy = true
		return m, m.stopCmd()

	case KeyCancel, KeyEsc:
		if m.busy || m.state == model.StateIdle {
			return m, nil
		}
		m.busy = true
		return m, opCmd("cancel", m.rec.Cancel)

	case KeyMode:
		if m.state != model.StateIdle {
			return m, nil
		}
		for i, mode := range model.Modes {
			if mode == m.mode {
				m.mode = model.Modes[(i+1)%len(model.Modes)]
				break
			}
		}
		return m, nil
	}

	return m, nil
}

// View renders the screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	width := m.width
	if width <= 0 {
		width = 60
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))
	if body := m.renderEntry(width); body != "" {
		sections = append(sections, body)
		sections = append(sections, DividerStyle.Render(strings.Repeat("─", width)))
	}
	if m.notification != "" {
		if m.notifyErr {
			sections = append(sections, ErrorStyle.Render(m.notification))
		} else {
			sections = append(sections, SuccessStyle.Render(m.notification))
		}
	}
	sections = append(sections, m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	return TitleStyle.Render("TRANSCRIBE-AI") + DimStyle.Render(" · "+modeName(m.mode))
}

func (m Model) renderStatusBar() string {
	var dot string
	switch m.state {
	case model.StateRecording:
		dot = RecordingDotStyle.Render("● REC")
	case model.StatePaused:
		dot = PausedStyle.Render("❚❚ PAUSED")
	default:
		dot = IdleDotStyle.Render("○ IDLE")
	}

	var duration int64
	if m.active != nil {
		duration = m.active.DurationMs
	}
	bar := dot + "  " + TimerStyle.Render(transcript.FormatClock(duration))
	if m.saving {
		bar += "  " + DimStyle.Render("Saving...")
	}
	return bar
}

func (m Model) renderEntry(width int) string {
	if m.entry == nil {
		return ""
	}
	e := m.entry
	lines := []string{TitleStyle.Render(e.Title) + DimStyle.Render("  "+transcript.FormatClock(e.DurationMs))}

	switch e.Status {
	case model.StatusPending, model.StatusProcessing:
		lines = append(lines, DimStyle.Render("Transcribing..."))
	case model.StatusFailed:
		lines = append(lines, ErrorStyle.Render(e.ErrorMessage))
	case model.StatusCompleted:
		for _, item := range transcript.Present(e.Mode, e.TranscriptSegments, m.palette) {
			var prefix string
			if item.SpeakerLabel != "" {
				prefix = SpeakerStyle(item.Color).Render(item.SpeakerLabel) + " "
			} else {
				prefix = TimestampStyle.Render("["+transcript.FormatClock(item.StartMs)+"]") + " "
			}
			for i, line := range wrapText(item.Text, width-12) {
				if i == 0 {
					lines = append(lines, prefix+line)
				} else {
					lines = append(lines, "  "+line)
				}
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderFooter() string {
	var parts []string
	switch m.state {
	case model.StateIdle:
		parts = append(parts, FooterKeyStyle.Render("Space")+FooterDescStyle.Render(" Record"))
		parts = append(parts, FooterKeyStyle.Render("m")+FooterDescStyle.Render(" Mode"))
	case model.StateRecording:
		parts = append(parts, FooterKeyStyle.Render("Space")+FooterDescStyle.Render(" Pause"))
	case model.StatePaused:
		parts = append(parts, FooterKeyStyle.Render("Space")+FooterDescStyle.Render(" Resume"))
	}
	if m.state != model.StateIdle {
		parts = append(parts, FooterKeyStyle.Render("s")+FooterDescStyle.Render(" Stop"))
		parts = append(parts, FooterKeyStyle.Render("c")+FooterDescStyle.Render(" Cancel"))
	}
	parts = append(parts, FooterKeyStyle.Render("q")+FooterDescStyle.Render(" Quit"))
	return strings.Join(parts, "  ")
}

func modeName(m model.RecordingMode) string {
	switch m {
	case model.ModeInterview:
		return "Interview"
	case model.ModeLecture:
		return "Lecture"
	default:
		return "Voice note"
	}
}

func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	var current string
	for _, word := range strings.Fields(text) {
		if current == "" {
			current = word
			continue
		}
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}
