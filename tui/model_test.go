package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/model"
)

type fakeRecorder struct {
	calls []string
	mode  model.RecordingMode
	state model.LifecycleState
}

func (f *fakeRecorder) Snapshot() recording.Snapshot {
	return recording.Snapshot{State: f.state}
}

func (f *fakeRecorder) Start(_ context.Context, mode model.RecordingMode) error {
	f.calls = append(f.calls, "start")
	f.mode = mode
	return nil
}

func (f *fakeRecorder) Pause(context.Context) error {
	f.calls = append(f.calls, "pause")
	return nil
}

func (f *fakeRecorder) Resume(context.Context) error {
	f.calls = append(f.calls, "resume")
	return nil
}

func (f *fakeRecorder) Stop(context.Context) (*model.RecordingEntry, error) {
	f.calls = append(f.calls, "stop")
	return &model.RecordingEntry{ID: "rec-1", Title: "Recording 1", Status: model.StatusProcessing, Mode: f.mode}, nil
}

func (f *fakeRecorder) Cancel(context.Context) error {
	f.calls = append(f.calls, "cancel")
	return nil
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command, feeding its message back.
func press(t *testing.T, m Model, k string) (Model, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(key(k))
	m = updated.(Model)
	if cmd == nil {
		return m, nil
	}
	msg := cmd()
	if _, ok := msg.(tea.QuitMsg); ok {
		return m, msg
	}
	updated, _ = m.Update(msg)
	return updated.(Model), msg
}

func stateEvent(m Model, s model.LifecycleState) Model {
	updated, _ := m.Update(EventMsg{Event: recording.Event{Type: recording.EventState, State: s}})
	return updated.(Model)
}

func TestNewModel(t *testing.T) {
	m := New(&fakeRecorder{state: model.StateIdle}, nil, "", transcript.LightPalette)
	if m.state != model.StateIdle {
		t.Errorf("state = %q, want idle", m.state)
	}
	if m.mode != model.ModeVoiceNote {
		t.Errorf("mode = %q, want VOICE_NOTE", m.mode)
	}
}

func TestModeCyclesOnlyWhileIdle(t *testing.T) {
	rec := &fakeRecorder{state: model.StateIdle}
	m := New(rec, nil, model.ModeVoiceNote, transcript.LightPalette)

	m, _ = press(t, m, "m")
	if m.mode != model.ModeInterview {
		t.Errorf("mode = %q, want INTERVIEW", m.mode)
	}
	m, _ = press(t, m, "m")
	m, _ = press(t, m, "m")
	if m.mode != model.ModeVoiceNote {
		t.Errorf("mode = %q, want wrap to VOICE_NOTE", m.mode)
	}

	m = stateEvent(m, model.StateRecording)
	m, _ = press(t, m, "m")
	if m.mode != model.ModeVoiceNote {
		t.Errorf("mode changed while recording: %q", m.mode)
	}
}

func TestSpaceDrivesLifecycle(t *testing.T) {
	rec := &fakeRecorder{state: model.StateIdle}
	m := New(rec, nil, model.ModeLecture, transcript.LightPalette)

	m, _ = press(t, m, " ")
	m = stateEvent(m, model.StateRecording)
	m, _ = press(t, m, " ")
	m = stateEvent(m, model.StatePaused)
	m, _ = press(t, m, " ")
	m = stateEvent(m, model.StateRecording)
	m, msg := press(t, m, "s")

	want := []string{"start", "pause", "resume", "stop"}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", rec.calls, want)
	}
	if rec.mode != model.ModeLecture {
		t.Errorf("started in %q, want LECTURE", rec.mode)
	}
	if done, ok := msg.(OpDoneMsg); !ok || done.Entry == nil {
		t.Fatalf("stop message = %#v", msg)
	}
	if m.entry == nil || m.entry.ID != "rec-1" {
		t.Errorf("entry = %+v, want rec-1", m.entry)
	}
}

func TestStopAndCancelIgnoredWhileIdle(t *testing.T) {
	rec := &fakeRecorder{state: model.StateIdle}
	m := New(rec, nil, model.ModeVoiceNote, transcript.LightPalette)
	for _, k := range []string{"s", "enter", "c", "esc"} {
		m, _ = press(t, m, k)
	}
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none", rec.calls)
	}
}

func TestQuitCancelsActiveRecording(t *testing.T) {
	rec := &fakeRecorder{state: model.StateRecording}
	m := New(rec, nil, model.ModeVoiceNote, transcript.LightPalette)

	updated, cmd := m.Update(key("ctrl+c"))
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("no command for quit")
	}
	updated, cmd = m.Update(cmd())
	m = updated.(Model)
	if len(rec.calls) != 1 || rec.calls[0] != "cancel" {
		t.Errorf("calls = %v, want [cancel]", rec.calls)
	}
	if !m.quitting || cmd == nil {
		t.Fatal("model did not quit after cancel")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.Quit")
	}
}

func TestQuitWhileIdle(t *testing.T) {
	rec := &fakeRecorder{state: model.StateIdle}
	m := New(rec, nil, model.ModeVoiceNote, transcript.LightPalette)
	_, msg := press(t, m, "q")
	if _, ok := msg.(tea.QuitMsg); !ok {
		t.Errorf("msg = %#v, want QuitMsg", msg)
	}
	if len(rec.calls) != 0 {
		t.Errorf("calls = %v, want none", rec.calls)
	}
}

func TestProgressAndTranscriptRendering(t *testing.T) {
	m := New(&fakeRecorder{state: model.StateIdle}, nil, model.ModeInterview, transcript.LightPalette)
	m.width = 80

	updated, _ := m.Update(EventMsg{Event: recording.Event{
		Type:   recording.EventProgress,
		Active: &model.ActiveRecording{ID: "rec-1", DurationMs: 65000},
	}})
	m = updated.(Model)
	if !strings.Contains(m.View(), "1:05") {
		t.Errorf("view missing live duration:\n%s", m.View())
	}

	m.entry = &model.RecordingEntry{ID: "rec-1", Title: "Recording 1", Status: model.StatusProcessing, Mode: model.ModeInterview}
	completed := model.RecordingEntry{
		ID: "rec-1", Title: "Recording 1", Status: model.StatusCompleted, Mode: model.ModeInterview,
		TranscriptSegments: model.Segments{
			{Text: "Hello", Speaker: "0"},
			{Text: "there", Speaker: "0"},
			{Text: "Hi", Speaker: "1"},
		},
	}
	updated, _ = m.Update(EventMsg{Event: recording.Event{Type: recording.EventEntry, Entry: &completed}})
	m = updated.(Model)

	view := m.View()
	for _, want := range []string{"Speaker 1", "Hello there", "Speaker 2", "Hi"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestNotificationClears(t *testing.T) {
	m := New(&fakeRecorder{state: model.StateIdle}, nil, model.ModeVoiceNote, transcript.LightPalette)
	n := model.Notification{Level: model.NotifyError, Title: "Transcription failed"}
	updated, cmd := m.Update(EventMsg{Event: recording.Event{Type: recording.EventNotification, Notification: &n}})
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("expected clear command")
	}
	if !strings.Contains(m.View(), "Transcription failed") {
		t.Errorf("view missing notification:\n%s", m.View())
	}

	updated, _ = m.Update(ClearNotificationMsg{Seq: m.notifySeq - 1})
	m = updated.(Model)
	if m.notification == "" {
		t.Error("stale clear removed a newer notification")
	}
	updated, _ = m.Update(ClearNotificationMsg{Seq: m.notifySeq})
	m = updated.(Model)
	if m.notification != "" {
		t.Errorf("notification = %q, want cleared", m.notification)
	}
}

func TestEventsFromChannel(t *testing.T) {
	events := make(chan recording.Event, 1)
	m := New(&fakeRecorder{state: model.StateIdle}, events, model.ModeVoiceNote, transcript.LightPalette)

	events <- recording.Event{Type: recording.EventState, State: model.StatePaused}
	msg := m.Init()()
	updated, next := m.Update(msg)
	m = updated.(Model)
	if m.state != model.StatePaused {
		t.Errorf("state = %q, want paused", m.state)
	}
	if next == nil {
		t.Error("model stopped listening for events")
	}

	close(events)
	if _, ok := waitForEvent(events)().(EventsClosedMsg); !ok {
		t.Error("closed channel did not produce EventsClosedMsg")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("one two three four", 9)
	want := []string{"one two", "three", "four"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("wrapText = %q, want %q", got, want)
	}
}
