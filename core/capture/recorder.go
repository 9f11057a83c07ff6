// Package capture records microphone audio with ffmpeg.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NancyGarg/transcribe-ai/core/audio"
	"github.com/NancyGarg/transcribe-ai/core/events"
	"github.com/NancyGarg/transcribe-ai/logger"
)

var (
	// ErrNotRunning is returned when an operation needs a capture session and none exists.
	ErrNotRunning = errors.New("capture: no recording in progress")
	// ErrNoAudio is returned by Stop when ffmpeg produced no audio. The session
	// is discarded.
	ErrNoAudio = errors.New("capture: no audio was recorded")
)

// Progress reports the recorded time of the current session.
type Progress struct {
	PositionMs int64
}

// Options configures an FFmpegRecorder.
type Options struct {
	FFmpegPath  string
	InputFormat string // e.g. pulse, avfoundation, dshow
	InputDevice string
	TempDir     string
	Interval    time.Duration
}

// FFmpegRecorder captures audio as ADTS AAC. Each pause ends the running ffmpeg
// process; resume starts a new part, and Stop joins the parts.
type FFmpegRecorder struct {
	opts      Options
	processor audio.Processor
	progress  *events.Hub[Progress]

	mu       sync.Mutex
	interval time.Duration
	session  *session

	// newCommand builds the ffmpeg command; replaced in tests.
	newCommand func(name string, args ...string) *exec.Cmd
	stopGrace  time.Duration
}

type session struct {
	dir       string
	finalPath string
	parts     []string
	proc      *partProcess

	mu        sync.Mutex
	recorded  time.Duration
	partStart time.Time
	running   bool

	stopTick   chan struct{}
	tickerDone chan struct{}
}

type partProcess struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan error
}

// NewFFmpegRecorder creates a recorder writing scratch files under opts.TempDir.
func NewFFmpegRecorder(opts Options, processor audio.Processor) *FFmpegRecorder {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	return &FFmpegRecorder{
		opts:       opts,
		processor:  processor,
		progress:   events.NewHub[Progress](),
		interval:   opts.Interval,
		newCommand: exec.Command,
		stopGrace:  5 * time.Second,
	}
}

// SetProgressInterval changes the tick interval for sessions started afterwards.
func (r *FFmpegRecorder) SetProgressInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.interval = d
	r.mu.Unlock()
}

// Subscribe registers a progress handler.
func (r *FFmpegRecorder) Subscribe(fn func(Progress)) func() {
	return r.progress.Subscribe(fn)
}

// Start begins a new session and returns the path the finished audio will have.
func (r *FFmpegRecorder) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		return "", fmt.Errorf("capture: a recording is already in progress")
	}

	id := uuid.NewString()
	s := &session{
		dir:       filepath.Join(r.opts.TempDir, id),
		finalPath: filepath.Join(r.opts.TempDir, id+".aac"),
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create capture dir: %w", err)
	}
	if err := r.startPart(s); err != nil {
		os.RemoveAll(s.dir)
		return "", err
	}

	s.stopTick = make(chan struct{})
	s.tickerDone = make(chan struct{})
	go r.tick(s, r.interval)

	r.session = s
	logger.Info("Capture started", logger.String("path", s.finalPath))
	return s.finalPath, nil
}

// Pause ends the running part.
func (r *FFmpegRecorder) Pause(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return ErrNotRunning
	}
	if !s.isRunning() {
		return nil
	}
	return r.stopPart(s)
}

// Resume starts a new part.
func (r *FFmpegRecorder) Resume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return ErrNotRunning
	}
	if s.isRunning() {
		return nil
	}
	return r.startPart(s)
}

// Stop finalizes the session and returns the path of the joined audio.
func (r *FFmpegRecorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return "", ErrNotRunning
	}
	if s.isRunning() {
		if err := r.stopPart(s); err != nil {
			logger.Warn("Failed to end capture part cleanly", logger.ErrorField(err))
		}
	}
	s.stopTicker()

	parts := nonEmpty(s.parts)
	if len(parts) == 0 {
		r.discard(s)
		return "", ErrNoAudio
	}
	if err := r.processor.Concat(ctx, parts, s.finalPath); err != nil {
		return "", fmt.Errorf("failed to join capture parts: %w", err)
	}

	os.RemoveAll(s.dir)
	r.session = nil
	logger.Info("Capture stopped", logger.String("path", s.finalPath), logger.Int("parts", len(parts)))
	return s.finalPath, nil
}

// Dispose ends any session and removes its scratch files.
func (r *FFmpegRecorder) Dispose() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return nil
	}
	var err error
	if s.isRunning() {
		err = r.stopPart(s)
	}
	s.stopTicker()
	r.discard(s)
	return err
}

func (r *FFmpegRecorder) discard(s *session) {
	os.RemoveAll(s.dir)
	os.Remove(s.finalPath)
	r.session = nil
}

func (r *FFmpegRecorder) startPart(s *session) error {
	part := filepath.Join(s.dir, fmt.Sprintf("part-%03d.aac", len(s.parts)))
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-f", r.opts.InputFormat,
		"-i", r.opts.InputDevice,
		"-ac", "1",
		"-ar", "44100",
		"-c:a", "aac",
		"-b:a", "128k",
		"-f", "adts",
		part,
	}
	cmd := r.newCommand(r.opts.FFmpegPath, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open ffmpeg stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &partProcess{cmd: cmd, stdin: stdin, done: make(chan error, 1)}
	go func() { p.done <- cmd.Wait() }()

	s.parts = append(s.parts, part)
	s.proc = p
	s.mu.Lock()
	s.partStart = time.Now()
	s.running = true
	s.mu.Unlock()
	return nil
}

// stopPart asks ffmpeg to finish the file ('q' on stdin) and kills it after the
// grace period.
func (r *FFmpegRecorder) stopPart(s *session) error {
	p := s.proc
	s.proc = nil

	s.mu.Lock()
	s.recorded += time.Since(s.partStart)
	s.running = false
	s.mu.Unlock()

	if p == nil {
		return nil
	}
	_, _ = io.WriteString(p.stdin, "q")
	_ = p.stdin.Close()

	select {
	case err := <-p.done:
		if err != nil {
			return fmt.Errorf("ffmpeg exited: %w", err)
		}
		return nil
	case <-time.After(r.stopGrace):
		_ = p.cmd.Process.Kill()
		<-p.done
		return fmt.Errorf("ffmpeg did not stop within %s", r.stopGrace)
	}
}

func (r *FFmpegRecorder) tick(s *session, interval time.Duration) {
	defer close(s.tickerDone)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopTick:
			return
		case <-ticker.C:
			s.mu.Lock()
			running := s.running
			pos := s.recorded
			if running {
				pos += time.Since(s.partStart)
			}
			s.mu.Unlock()
			if running {
				r.progress.Publish(Progress{PositionMs: pos.Milliseconds()})
			}
		}
	}
}

func (s *session) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *session) stopTicker() {
	if s.stopTick == nil {
		return
	}
	select {
	case <-s.stopTick:
	default:
		close(s.stopTick)
	}
	<-s.tickerDone
}

func nonEmpty(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Size() > 0 {
			out = append(out, p)
		}
	}
	return out
}
