// Package recording owns the lifecycle of the single in-flight recording and
// the library of finalized recordings.
package recording

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NancyGarg/transcribe-ai/core/capture"
	"github.com/NancyGarg/transcribe-ai/core/events"
	"github.com/NancyGarg/transcribe-ai/core/transcribe"
	"github.com/NancyGarg/transcribe-ai/model"
)

var (
	// ErrAudioNotSaved is returned by Stop when the captured audio could not be
	// moved to permanent storage. No entry is created.
	ErrAudioNotSaved = errors.New("recording stopped but the audio could not be saved")
	// ErrNotFound is returned for ids that are not in the library.
	ErrNotFound = errors.New("recording not found")
	// ErrAudioMissing is returned when an entry's audio file no longer exists.
	ErrAudioMissing = errors.New("audio file not found")
)

const (
	msgAudioNotFound       = "Audio file not found"
	msgTranscriptionFailed = "Transcription failed. Please try again later."
	msgNothingRecorded     = "Nothing was recorded."
)

// CaptureDevice records audio to a temporary file.
type CaptureDevice interface {
	Start(ctx context.Context) (string, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (string, error)
	Dispose() error
	SetProgressInterval(d time.Duration)
	Subscribe(fn func(capture.Progress)) func()
}

// RecordingStore persists the whole library.
type RecordingStore interface {
	Load(ctx context.Context) ([]model.RecordingEntry, error)
	SaveAll(ctx context.Context, entries []model.RecordingEntry) error
	DeleteOne(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
}

// AudioStore keeps finalized audio files, keyed by recording id.
type AudioStore interface {
	Save(ctx context.Context, tempPath, id string) (string, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	PathFor(id string) string
}

// Notifier shows a message to whoever is using the app.
type Notifier interface {
	Notify(n model.Notification)
}

// DurationReader reads the length of an audio file in seconds.
type DurationReader interface {
	GetAudioDuration(inputFile string) (float32, error)
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Capture     CaptureDevice
	Store       RecordingStore
	Audio       AudioStore
	Transcriber transcribe.Transcriber
	Notifier    Notifier      // optional
	Durations   DurationReader // optional; used when no progress tick arrived
}

// Options tunes a Controller.
type Options struct {
	ProgressInterval time.Duration
	ResumePending    bool
	Now              func() time.Time
	NewID            func() string
}

// Snapshot is a consistent copy of the controller's state for presentation.
type Snapshot struct {
	State      model.LifecycleState   `json:"state"`
	Active     *model.ActiveRecording `json:"active,omitempty"`
	Recordings []model.RecordingEntry `json:"recordings"`
	Saving     bool                   `json:"saving"`
}

// Controller is the recording lifecycle state machine. Lifecycle operations
// are serialized; progress ticks and transcription results may arrive at any
// time and only touch state under mu.
type Controller struct {
	deps Deps
	opts Options

	// op serializes Start/Pause/Resume/Stop/Cancel/Delete/ClearAll.
	op sync.Mutex

	mu         sync.Mutex
	state      model.LifecycleState
	active     *model.ActiveRecording
	recordings []model.RecordingEntry
	saving     bool
	inflight   map[string]bool

	events *events.Hub[Event]
	writer *writer

	bgCtx    context.Context
	bgCancel context.CancelFunc
	jobs     sync.WaitGroup

	unsubProgress func()
	closeOnce     sync.Once
}

// New creates a controller in the idle state with an empty library. Call Load
// to read the persisted library.
func New(deps Deps, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "rec-" + uuid.NewString() }
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		deps:     deps,
		opts:     opts,
		state:    model.StateIdle,
		inflight: make(map[string]bool),
		events:   events.NewHub[Event](),
		writer:   newWriter(deps.Store),
		bgCtx:    ctx,
		bgCancel: cancel,
	}
	if opts.ProgressInterval > 0 {
		deps.Capture.SetProgressInterval(opts.ProgressInterval)
	}
	c.unsubProgress = deps.Capture.Subscribe(c.onProgress)
	return c
}

// Subscribe registers fn for controller events.
func (c *Controller) Subscribe(fn func(Event)) func() {
	return c.events.Subscribe(fn)
}

// State returns the lifecycle state.
func (c *Controller) State() model.LifecycleState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns a copy of the in-flight recording, or nil when idle.
func (c *Controller) Active() *model.ActiveRecording {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeCopyLocked()
}

// Recordings returns a copy of the library, newest first.
func (c *Controller) Recordings() []model.RecordingEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.libraryCopyLocked()
}

// Get returns a copy of one entry.
func (c *Controller) Get(id string) (*model.RecordingEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexLocked(id); i >= 0 {
		e := c.recordings[i].Clone()
		return &e, true
	}
	return nil, false
}

// Snapshot returns the full presentation state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:      c.state,
		Active:     c.activeCopyLocked(),
		Recordings: c.libraryCopyLocked(),
		Saving:     c.saving,
	}
}

// Wait blocks until running transcriptions have settled and every queued
// library write has reached the store.
func (c *Controller) Wait() {
	c.jobs.Wait()
	c.writer.Wait()
}

// Close waits for background work, stops the writer and releases the capture
// device. An active recording is discarded.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.op.Lock()
		if c.State() != model.StateIdle {
			c.cancelLocked(context.Background())
		}
		c.op.Unlock()

		c.Wait()
		c.bgCancel()
		c.writer.Close()
		if c.unsubProgress != nil {
			c.unsubProgress()
		}
		err = c.deps.Capture.Dispose()
	})
	return err
}

func (c *Controller) onProgress(p capture.Progress) {
	c.mu.Lock()
	if c.state != model.StateRecording || c.active == nil {
		c.mu.Unlock()
		return
	}
	if p.PositionMs > c.active.DurationMs {
		c.active.DurationMs = p.PositionMs
	}
	c.active.UpdatedAt = c.nowMs()
	active := c.activeCopyLocked()
	c.mu.Unlock()

	c.events.Publish(Event{Type: EventProgress, State: model.StateRecording, Active: active})
}

func (c *Controller) nowMs() int64 {
	return c.opts.Now().UnixMilli()
}

func (c *Controller) activeCopyLocked() *model.ActiveRecording {
	if c.active == nil {
		return nil
	}
	a := *c.active
	return &a
}

func (c *Controller) libraryCopyLocked() []model.RecordingEntry {
	out := make([]model.RecordingEntry, len(c.recordings))
	for i, e := range c.recordings {
		out[i] = e.Clone()
	}
	return out
}

func (c *Controller) indexLocked(id string) int {
	for i := range c.recordings {
		if c.recordings[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked queues the current library for the store and publishes it.
// Callers hold mu; the publish happens after unlock through the returned func.
func (c *Controller) persistLocked() func() {
	snapshot := c.libraryCopyLocked()
	c.writer.Enqueue(snapshot)
	return func() {
		c.events.Publish(Event{Type: EventLibrary, Recordings: snapshot})
	}
}

func (c *Controller) notify(n model.Notification) {
	if c.deps.Notifier != nil {
		c.deps.Notifier.Notify(n)
	}
	c.events.Publish(Event{Type: EventNotification, Notification: &n})
}

func (c *Controller) alert(title, message string) {
	c.notify(model.Notification{Level: model.NotifyError, Title: title, Message: message, Blocking: true})
}

func (c *Controller) publishState() {
	c.mu.Lock()
	ev := Event{Type: EventState, State: c.state, Active: c.activeCopyLocked(), Saving: c.saving}
	c.mu.Unlock()
	c.events.Publish(ev)
}
