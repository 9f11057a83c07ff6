// Package playback plays finished recordings through ffplay.
package playback

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/NancyGarg/transcribe-ai/core/events"
	"github.com/NancyGarg/transcribe-ai/logger"
)

// ErrNothingLoaded is returned by Resume when no file has been started.
var ErrNothingLoaded = errors.New("playback: nothing loaded")

// Progress is the playback position of the loaded file.
type Progress struct {
	PositionMs int64
	DurationMs int64
}

// DurationReader reads the length of an audio file in seconds.
type DurationReader interface {
	GetAudioDuration(inputFile string) (float32, error)
}

// Player plays one file at a time. Pausing ends the ffplay process and
// remembers the position; resuming starts a new process at that offset.
type Player struct {
	ffplayPath string
	durations  DurationReader
	interval   time.Duration

	progress *events.Hub[Progress]
	ended    *events.Hub[string]

	mu         sync.Mutex
	path       string
	durationMs int64
	offset     time.Duration
	started    time.Time
	proc       *process

	// newCommand builds the ffplay command; replaced in tests.
	newCommand func(name string, args ...string) *exec.Cmd
}

type process struct {
	cmd      *exec.Cmd
	stopped  bool
	stopTick chan struct{}
	done     chan struct{}
	err      error
}

// NewPlayer creates a player. durations may be nil, in which case the duration is
// reported as zero.
func NewPlayer(ffplayPath string, durations DurationReader, interval time.Duration) *Player {
	if ffplayPath == "" {
		ffplayPath = "ffplay"
	}
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Player{
		ffplayPath: ffplayPath,
		durations:  durations,
		interval:   interval,
		progress:   events.NewHub[Progress](),
		ended:      events.NewHub[string](),
		newCommand: exec.Command,
	}
}

// SubscribeProgress registers a position handler.
func (p *Player) SubscribeProgress(fn func(Progress)) func() {
	return p.progress.Subscribe(fn)
}

// SubscribeEnd registers a handler called with the path of a file that
// played to its end.
func (p *Player) SubscribeEnd(fn func(path string)) func() {
	return p.ended.Subscribe(fn)
}

// Start plays path from the beginning, replacing whatever was loaded.
func (p *Player) Start(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	var durationMs int64
	if p.durations != nil {
		if secs, err := p.durations.GetAudioDuration(path); err == nil {
			durationMs = int64(secs * 1000)
		} else {
			logger.Warn("Failed to read playback duration", logger.String("path", path), logger.ErrorField(err))
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.path = path
	p.durationMs = durationMs
	p.offset = 0
	return p.launchLocked()
}

// Pause stops output and keeps the position.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.proc == nil {
		return nil
	}
	p.offset += time.Since(p.started)
	p.killLocked()
	return nil
}

// Resume continues from the paused position.
func (p *Player) Resume(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.path == "" {
		return ErrNothingLoaded
	}
	if p.proc != nil {
		return nil
	}
	return p.launchLocked()
}

// Stop ends playback and unloads the file.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Cleanup stops playback. The player stays usable.
func (p *Player) Cleanup() {
	_ = p.Stop()
}

// Playing reports whether ffplay is running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.proc != nil
}

// Position returns the current position of the loaded file.
func (p *Player) Position() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Progress{PositionMs: p.positionLocked().Milliseconds(), DurationMs: p.durationMs}
}

func (p *Player) positionLocked() time.Duration {
	pos := p.offset
	if p.proc != nil {
		pos += time.Since(p.started)
	}
	if p.durationMs > 0 && pos.Milliseconds() > p.durationMs {
		pos = time.Duration(p.durationMs) * time.Millisecond
	}
	return pos
}

func (p *Player) stopLocked() {
	p.killLocked()
	p.path = ""
	p.offset = 0
	p.durationMs = 0
}

func (p *Player) killLocked() {
	proc := p.proc
	if proc == nil {
		return
	}
	p.proc = nil
	proc.stopped = true
	close(proc.stopTick)
	if proc.cmd.Process != nil {
		_ = proc.cmd.Process.Kill()
	}
	<-proc.done
}

func (p *Player) launchLocked() error {
	args := []string{
		"-nodisp",
		"-autoexit",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(p.offset.Seconds(), 'f', 3, 64),
		p.path,
	}
	cmd := p.newCommand(p.ffplayPath, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffplay: %w", err)
	}

	proc := &process{cmd: cmd, stopTick: make(chan struct{}), done: make(chan struct{})}
	p.proc = proc
	p.started = time.Now()

	go func() {
		proc.err = cmd.Wait()
		close(proc.done)
	}()
	go p.watch(proc)
	return nil
}

// watch publishes progress until the process exits, then reports a natural
// end unless the process was killed by Pause or Stop.
func (p *Player) watch(proc *process) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-proc.stopTick:
			return
		case <-ticker.C:
			p.mu.Lock()
			if proc.stopped {
				p.mu.Unlock()
				return
			}
			pr := Progress{PositionMs: p.positionLocked().Milliseconds(), DurationMs: p.durationMs}
			p.mu.Unlock()
			p.progress.Publish(pr)
		case <-proc.done:
			err := proc.err
			p.mu.Lock()
			if proc.stopped {
				p.mu.Unlock()
				return
			}
			path := p.path
			duration := p.durationMs
			p.proc = nil
			p.offset = 0
			p.mu.Unlock()

			if err != nil {
				logger.Warn("ffplay exited with error", logger.String("path", path), logger.ErrorField(err))
			}
			p.progress.Publish(Progress{PositionMs: duration, DurationMs: duration})
			p.ended.Publish(path)
			return
		}
	}
}
