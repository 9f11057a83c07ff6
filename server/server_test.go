package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/NancyGarg/transcribe-ai/core/auth"
	"github.com/NancyGarg/transcribe-ai/core/events"
	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/model"
)

type fakeController struct {
	mu         sync.Mutex
	state      model.LifecycleState
	mode       model.RecordingMode
	recordings []model.RecordingEntry
	deleted    []string
	stopErr    error
	retryErr   error
	events     events.Hub[recording.Event]
}

func (f *fakeController) Snapshot() recording.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return recording.Snapshot{State: f.state, Recordings: append([]model.RecordingEntry(nil), f.recordings...)}
}

func (f *fakeController) Recordings() []model.RecordingEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RecordingEntry(nil), f.recordings...)
}

func (f *fakeController) Get(id string) (*model.RecordingEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.recordings {
		if e.ID == id {
			e := e.Clone()
			return &e, true
		}
	}
	return nil, false
}

func (f *fakeController) setState(s model.LifecycleState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	f.events.Publish(recording.Event{Type: recording.EventState, State: s})
}

func (f *fakeController) Start(_ context.Context, mode model.RecordingMode) error {
	f.mu.Lock()
	f.mode = mode
	f.mu.Unlock()
	f.setState(model.StateRecording)
	return nil
}

func (f *fakeController) Pause(context.Context) error {
	f.setState(model.StatePaused)
	return nil
}

func (f *fakeController) Resume(context.Context) error {
	f.setState(model.StateRecording)
	return nil
}

func (f *fakeController) Stop(context.Context) (*model.RecordingEntry, error) {
	if f.stopErr != nil {
		return nil, f.stopErr
	}
	f.setState(model.StateIdle)
	e := model.RecordingEntry{ID: "rec-new", Title: "Recording 1", Status: model.StatusProcessing, Mode: f.mode}
	f.mu.Lock()
	f.recordings = append([]model.RecordingEntry{e}, f.recordings...)
	f.mu.Unlock()
	return &e, nil
}

func (f *fakeController) Cancel(context.Context) error {
	f.setState(model.StateIdle)
	return nil
}

func (f *fakeController) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	for i, e := range f.recordings {
		if e.ID == id {
			f.recordings = append(f.recordings[:i], f.recordings[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeController) ClearAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordings = nil
	return nil
}

func (f *fakeController) Retranscribe(_ context.Context, id string) error {
	if _, ok := f.Get(id); !ok {
		return recording.ErrNotFound
	}
	return f.retryErr
}

func (f *fakeController) Subscribe(fn func(recording.Event)) func() {
	return f.events.Subscribe(fn)
}

type dirPaths string

func (d dirPaths) PathFor(id string) string { return filepath.Join(string(d), id+".aac") }

func interview() model.RecordingEntry {
	return model.RecordingEntry{
		ID:     "rec-1",
		Title:  "Recording 1",
		Mode:   model.ModeInterview,
		Status: model.StatusCompleted,
		TranscriptSegments: model.Segments{
			{ID: "1", Text: "Hello", Speaker: "B"},
			{ID: "2", Text: "there", Speaker: "B"},
			{ID: "3", Text: "Hi", Speaker: "A"},
		},
	}
}

func newTestServer(t *testing.T, opts Options) (*httptest.Server, *fakeController, *Server) {
	t.Helper()
	ctrl := &fakeController{state: model.StateIdle, recordings: []model.RecordingEntry{interview()}}
	s := New(ctrl, dirPaths(t.TempDir()), opts)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, ctrl, s
}

func do(t *testing.T, method, url, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestLifecycleEndpoints(t *testing.T) {
	ts, ctrl, _ := newTestServer(t, Options{})

	resp := do(t, http.MethodPost, ts.URL+"/api/recording/start", `{"mode":"interview"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}
	var snap recording.Snapshot
	decode(t, resp, &snap)
	if snap.State != model.StateRecording {
		t.Errorf("state = %q, want recording", snap.State)
	}
	ctrl.mu.Lock()
	mode := ctrl.mode
	ctrl.mu.Unlock()
	if mode != model.ModeInterview {
		t.Errorf("mode = %q, want INTERVIEW", mode)
	}

	if resp := do(t, http.MethodPost, ts.URL+"/api/recording/pause", "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("pause status = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/recording/resume", "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("resume status = %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, ts.URL+"/api/recording/stop", "", "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	var entry model.RecordingEntry
	decode(t, resp, &entry)
	if entry.ID != "rec-new" || entry.Status != model.StatusProcessing {
		t.Errorf("entry = %+v", entry)
	}
}

func TestStartRejectsBadMode(t *testing.T) {
	ts, _, _ := newTestServer(t, Options{})
	if resp := do(t, http.MethodPost, ts.URL+"/api/recording/start", `{"mode":"podcast"}`, ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/recording/start", `{`, ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStopSaveFailure(t *testing.T) {
	ts, ctrl, _ := newTestServer(t, Options{})
	ctrl.stopErr = recording.ErrAudioNotSaved
	resp := do(t, http.MethodPost, ts.URL+"/api/recording/stop", "", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	var body map[string]string
	decode(t, resp, &body)
	if !strings.Contains(body["error"], "failed to save") {
		t.Errorf("error = %q", body["error"])
	}
}

func TestLibraryEndpoints(t *testing.T) {
	ts, ctrl, _ := newTestServer(t, Options{})

	var list []model.RecordingEntry
	decode(t, do(t, http.MethodGet, ts.URL+"/api/recordings", "", ""), &list)
	if len(list) != 1 || list[0].ID != "rec-1" {
		t.Fatalf("list = %+v", list)
	}

	if resp := do(t, http.MethodGet, ts.URL+"/api/recordings/nope", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("get missing status = %d, want 404", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/recordings/nope/transcribe", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("transcribe missing status = %d, want 404", resp.StatusCode)
	}
	ctrl.retryErr = recording.ErrAudioMissing
	if resp := do(t, http.MethodPost, ts.URL+"/api/recordings/rec-1/transcribe", "", ""); resp.StatusCode != http.StatusGone {
		t.Errorf("transcribe missing audio status = %d, want 410", resp.StatusCode)
	}
	ctrl.retryErr = nil
	if resp := do(t, http.MethodPost, ts.URL+"/api/recordings/rec-1/transcribe", "", ""); resp.StatusCode != http.StatusAccepted {
		t.Errorf("transcribe status = %d, want 202", resp.StatusCode)
	}

	for _, id := range []string{"rec-1", "rec-1"} {
		if resp := do(t, http.MethodDelete, ts.URL+"/api/recordings/"+id, "", ""); resp.StatusCode != http.StatusNoContent {
			t.Errorf("delete status = %d, want 204", resp.StatusCode)
		}
	}
	if len(ctrl.deleted) != 2 {
		t.Errorf("deleted = %v", ctrl.deleted)
	}

	if resp := do(t, http.MethodDelete, ts.URL+"/api/recordings", "", ""); resp.StatusCode != http.StatusNoContent {
		t.Errorf("clear status = %d, want 204", resp.StatusCode)
	}
}

func TestConversationEndpoint(t *testing.T) {
	ts, _, _ := newTestServer(t, Options{})

	var conv ConversationResponse
	decode(t, do(t, http.MethodGet, ts.URL+"/api/recordings/rec-1/conversation", "", ""), &conv)
	if len(conv.Items) != 2 {
		t.Fatalf("items = %+v, want 2 groups", conv.Items)
	}
	if conv.Items[0].SpeakerLabel != "Speaker 1" || conv.Items[0].Text != "Hello there" {
		t.Errorf("first group = %+v", conv.Items[0])
	}
	if conv.Items[1].SpeakerLabel != "Speaker 2" || conv.Items[1].ColorIndex != 1 {
		t.Errorf("second group = %+v", conv.Items[1])
	}
	if len(conv.Speakers) != 2 {
		t.Errorf("speakers = %v", conv.Speakers)
	}
}

func TestAudioEndpoint(t *testing.T) {
	ts, ctrl, _ := newTestServer(t, Options{})
	path := filepath.Join(t.TempDir(), "rec-1.aac")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ctrl.recordings[0].FilePath = path

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/recordings/rec-1/audio", nil)
	req.Header.Set("Range", "bytes=2-4")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET audio: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusPartialContent {
		t.Fatalf("status = %d, want 206", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "234" {
		t.Errorf("body = %q, want 234", body)
	}

	ctrl.recordings[0].FilePath = filepath.Join(t.TempDir(), "gone.aac")
	if resp := do(t, http.MethodGet, ts.URL+"/api/recordings/rec-1/audio", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing audio status = %d, want 404", resp.StatusCode)
	}
}

func TestAuth(t *testing.T) {
	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	ts, _, _ := newTestServer(t, Options{PasswordHash: hash, Tokens: auth.NewTokens("secret", time.Hour)})

	if resp := do(t, http.MethodGet, ts.URL+"/api/state", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, ts.URL+"/api/auth/login", `{"password":"wrong"}`, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", resp.StatusCode)
	}

	resp := do(t, http.MethodPost, ts.URL+"/api/auth/login", `{"password":"hunter2"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var login LoginResponse
	decode(t, resp, &login)
	if login.Token == "" || login.Username != "admin" {
		t.Fatalf("login = %+v", login)
	}

	if resp := do(t, http.MethodGet, ts.URL+"/api/state", "", login.Token); resp.StatusCode != http.StatusOK {
		t.Errorf("with token status = %d, want 200", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, ts.URL+"/api/state?token="+login.Token, "", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("query token status = %d, want 200", resp.StatusCode)
	}
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	ts, _, _ := newTestServer(t, Options{})
	if resp := do(t, http.MethodPost, ts.URL+"/api/auth/login", `{"password":"x"}`, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestEventStream(t *testing.T) {
	ts, ctrl, s := newTestServer(t, Options{})
	go s.hub.Run()
	defer s.hub.Stop()
	unsubscribe := s.hub.Attach(ctrl)
	defer unsubscribe()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first WSMessage
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if first.Type != MessageSnapshot || first.Snapshot == nil || len(first.Snapshot.Recordings) != 1 {
		t.Fatalf("first message = %+v", first)
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.hub.Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := ctrl.Start(context.Background(), model.ModeLecture); err != nil {
		t.Fatalf("Start: %v", err)
	}
	var next WSMessage
	if err := conn.ReadJSON(&next); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if next.Type != recording.EventState || next.State != model.StateRecording {
		t.Errorf("event = %+v, want state=recording", next)
	}
	if next.Timestamp == 0 {
		t.Error("timestamp not set")
	}
}

func TestRegisterQueuesSnapshotBeforeLaterEvents(t *testing.T) {
	hub := NewEventHub()
	go hub.Run()
	defer hub.Stop()

	client := &Client{Hub: hub, Send: make(chan []byte, sendBuffer)}
	client.hello = func() []byte {
		// An event published while the snapshot is being built.
		hub.Broadcast(&WSMessage{Event: recording.Event{Type: recording.EventState, State: model.StateRecording}})
		data, _ := json.Marshal(&WSMessage{Event: recording.Event{Type: MessageSnapshot}})
		return data
	}
	hub.Register(client)

	var got []recording.EventType
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case data := <-client.Send:
			var msg WSMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			got = append(got, msg.Type)
		case <-timeout:
			t.Fatalf("received %v, want snapshot then state", got)
		}
	}
	if got[0] != MessageSnapshot || got[1] != recording.EventState {
		t.Errorf("order = %v, want [snapshot state]", got)
	}
}
