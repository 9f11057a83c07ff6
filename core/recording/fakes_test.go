package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/NancyGarg/transcribe-ai/core/capture"
	"github.com/NancyGarg/transcribe-ai/core/events"
	"github.com/NancyGarg/transcribe-ai/core/transcribe"
	"github.com/NancyGarg/transcribe-ai/model"
)

type fakeCapture struct {
	dir      string
	hub      *events.Hub[capture.Progress]
	mu       sync.Mutex
	calls    []string
	n        int
	path     string
	startErr error
	stopErr  error
	pauseErr error
	interval time.Duration
}

func newFakeCapture(t *testing.T) *fakeCapture {
	return &fakeCapture{dir: t.TempDir(), hub: events.NewHub[capture.Progress]()}
}

func (f *fakeCapture) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeCapture) Start(context.Context) (string, error) {
	f.record("start")
	if f.startErr != nil {
		return "", f.startErr
	}
	f.n++
	f.path = filepath.Join(f.dir, fmt.Sprintf("capture-%d.aac", f.n))
	if err := os.WriteFile(f.path, []byte("audio"), 0o644); err != nil {
		return "", err
	}
	return f.path, nil
}

func (f *fakeCapture) Pause(context.Context) error {
	f.record("pause")
	return f.pauseErr
}

func (f *fakeCapture) Resume(context.Context) error {
	f.record("resume")
	return nil
}

func (f *fakeCapture) Stop(context.Context) (string, error) {
	f.record("stop")
	if f.stopErr != nil {
		return "", f.stopErr
	}
	return f.path, nil
}

func (f *fakeCapture) Dispose() error {
	f.record("dispose")
	return nil
}

func (f *fakeCapture) SetProgressInterval(d time.Duration) { f.interval = d }

func (f *fakeCapture) Subscribe(fn func(capture.Progress)) func() { return f.hub.Subscribe(fn) }

func (f *fakeCapture) tick(ms int64) { f.hub.Publish(capture.Progress{PositionMs: ms}) }

type memStore struct {
	mu       sync.Mutex
	entries  []model.RecordingEntry
	saves    int
	deleted  []string
	cleared  int
	loadErr  error
	saveWait time.Duration
}

func (s *memStore) Load(context.Context) ([]model.RecordingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	out := make([]model.RecordingEntry, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out, nil
}

func (s *memStore) SaveAll(_ context.Context, entries []model.RecordingEntry) error {
	if s.saveWait > 0 {
		time.Sleep(s.saveWait)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.entries = make([]model.RecordingEntry, len(entries))
	for i, e := range entries {
		s.entries[i] = e.Clone()
	}
	return nil
}

func (s *memStore) DeleteOne(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleared++
	s.entries = nil
	return nil
}

func (s *memStore) snapshot() []model.RecordingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RecordingEntry(nil), s.entries...)
}

type memAudio struct {
	mu      sync.Mutex
	files   map[string]bool
	saveErr error
	delErr  error
}

func newMemAudio() *memAudio { return &memAudio{files: make(map[string]bool)} }

func (a *memAudio) Save(_ context.Context, tempPath, id string) (string, error) {
	if a.saveErr != nil {
		return "", a.saveErr
	}
	if _, err := os.Stat(tempPath); err != nil {
		return "", err
	}
	a.mu.Lock()
	a.files[id] = true
	a.mu.Unlock()
	return a.PathFor(id), nil
}

func (a *memAudio) Exists(_ context.Context, id string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.files[id], nil
}

func (a *memAudio) Delete(_ context.Context, id string) error {
	a.mu.Lock()
	delete(a.files, id)
	a.mu.Unlock()
	return a.delErr
}

func (a *memAudio) PathFor(id string) string { return "/recordings/" + id + ".aac" }

type fakeTranscriber struct {
	mu      sync.Mutex
	calls   []transcribe.Options
	paths   []string
	result  *transcribe.Result
	err     error
	release chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path string, opts transcribe.Options) (*transcribe.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, opts)
	f.paths = append(f.paths, path)
	release := f.release
	f.mu.Unlock()
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.result, f.err
}

func (f *fakeTranscriber) lastOptions() transcribe.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type notifications struct {
	mu   sync.Mutex
	list []model.Notification
}

func (n *notifications) Notify(m model.Notification) {
	n.mu.Lock()
	n.list = append(n.list, m)
	n.mu.Unlock()
}

func (n *notifications) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.list))
	for i, m := range n.list {
		out[i] = m.Title
	}
	return out
}

type harness struct {
	c     *Controller
	cap   *fakeCapture
	store *memStore
	audio *memAudio
	tr    *fakeTranscriber
	notes *notifications
	clock time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cap:   newFakeCapture(t),
		store: &memStore{},
		audio: newMemAudio(),
		tr:    &fakeTranscriber{result: &transcribe.Result{Transcript: "hello world"}},
		notes: &notifications{},
		clock: time.UnixMilli(1_700_000_000_000),
	}
	var mu sync.Mutex
	ids := 0
	h.c = New(Deps{
		Capture:     h.cap,
		Store:       h.store,
		Audio:       h.audio,
		Transcriber: h.tr,
		Notifier:    h.notes,
	}, Options{
		ProgressInterval: 250 * time.Millisecond,
		ResumePending:    true,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			h.clock = h.clock.Add(time.Millisecond)
			return h.clock
		},
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			ids++
			return fmt.Sprintf("rec-%d", ids)
		},
	})
	t.Cleanup(func() { h.c.Close() })
	return h
}

func (h *harness) record(t *testing.T, mode model.RecordingMode) *model.RecordingEntry {
	t.Helper()
	ctx := context.Background()
	if err := h.c.Start(ctx, mode); err != nil {
		t.Fatalf("Start: %v", err)
	}
	entry, err := h.c.Stop(ctx)
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if entry == nil {
		t.Fatal("Stop returned nil entry")
	}
	return entry
}

var errBoom = errors.New("boom")
