package recording

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/NancyGarg/transcribe-ai/core/capture"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// Start begins a new recording. It is a no-op unless the controller is idle.
func (c *Controller) Start(ctx context.Context, mode model.RecordingMode) error {
	if !mode.Valid() {
		return fmt.Errorf("unknown recording mode %q", mode)
	}

	c.op.Lock()
	defer c.op.Unlock()

	if c.State() != model.StateIdle {
		return nil
	}

	id := c.opts.NewID()
	path, err := c.deps.Capture.Start(ctx)
	if err != nil {
		logger.Error("Failed to start recording", logger.RecordingID(id), logger.ErrorField(err))
		c.alert("Recording Error", "Unable to start recording.")
		return fmt.Errorf("start capture: %w", err)
	}

	now := c.nowMs()
	c.mu.Lock()
	c.active = &model.ActiveRecording{
		ID:        id,
		FilePath:  path,
		StartedAt: now,
		UpdatedAt: now,
		State:     model.StateRecording,
		Mode:      mode,
	}
	c.state = model.StateRecording
	c.mu.Unlock()

	logger.Info("Recording started", logger.RecordingID(id), logger.String("mode", string(mode)))
	c.publishState()
	return nil
}

// Pause freezes the active recording. It is a no-op unless recording.
func (c *Controller) Pause(ctx context.Context) error {
	return c.transition(ctx, model.StateRecording, model.StatePaused, "pause")
}

// Resume continues a paused recording. It is a no-op unless paused.
func (c *Controller) Resume(ctx context.Context) error {
	return c.transition(ctx, model.StatePaused, model.StateRecording, "resume")
}

func (c *Controller) transition(ctx context.Context, from, to model.LifecycleState, verb string) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.state != from || c.active == nil {
		c.mu.Unlock()
		return nil
	}
	id := c.active.ID
	c.mu.Unlock()

	var err error
	if to == model.StatePaused {
		err = c.deps.Capture.Pause(ctx)
	} else {
		err = c.deps.Capture.Resume(ctx)
	}
	if sessionLost(err) {
		logger.Error("Capture session lost on "+verb, logger.RecordingID(id), logger.ErrorField(err))
		c.resetLocked(msgNothingRecorded)
		return fmt.Errorf("%s capture: %w", verb, err)
	}
	if err != nil {
		logger.Error("Failed to "+verb+" recording", logger.RecordingID(id), logger.ErrorField(err))
		c.alert("Recording Error", "Unable to "+verb+" recording.")
		return fmt.Errorf("%s capture: %w", verb, err)
	}

	c.mu.Lock()
	c.state = to
	c.active.State = to
	c.active.UpdatedAt = c.nowMs()
	c.mu.Unlock()

	c.publishState()
	return nil
}

// Stop finalizes the active recording: the audio is moved to permanent
// storage, a processing entry is prepended to the library and transcription
// starts in the background. Stop returns nil, nil when nothing is active.
//
// If capture cannot be stopped the lifecycle state is left unchanged, unless
// the capture session is gone or recorded nothing: then the controller returns
// to idle and alerts. If the audio cannot be saved no entry is created, the temporary file is kept and
// ErrAudioNotSaved is returned.
func (c *Controller) Stop(ctx context.Context) (*model.RecordingEntry, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	if c.state == model.StateIdle || c.active == nil {
		c.mu.Unlock()
		return nil, nil
	}
	c.saving = true
	c.mu.Unlock()
	c.publishState()

	tempPath, err := c.deps.Capture.Stop(ctx)
	if sessionLost(err) {
		c.mu.Lock()
		id := c.active.ID
		c.mu.Unlock()
		logger.Error("Recording produced no audio", logger.RecordingID(id), logger.ErrorField(err))
		c.resetLocked(msgNothingRecorded)
		return nil, fmt.Errorf("stop capture: %w", err)
	}
	if err != nil {
		c.mu.Lock()
		c.saving = false
		id := c.active.ID
		c.mu.Unlock()
		logger.Error("Failed to stop recording", logger.RecordingID(id), logger.ErrorField(err))
		c.alert("Recording Error", "Unable to stop recording.")
		c.publishState()
		return nil, fmt.Errorf("stop capture: %w", err)
	}

	c.mu.Lock()
	active := *c.active
	c.active = nil
	c.state = model.StateIdle
	title := fmt.Sprintf("Recording %d", len(c.recordings)+1)
	c.mu.Unlock()

	if tempPath == "" {
		tempPath = active.FilePath
	}
	durationMs := active.DurationMs
	if durationMs == 0 && c.deps.Durations != nil {
		if secs, err := c.deps.Durations.GetAudioDuration(tempPath); err == nil {
			durationMs = int64(secs * 1000)
		} else {
			logger.Warn("Could not read recording duration", logger.RecordingID(active.ID), logger.ErrorField(err))
		}
	}

	permanent, err := c.deps.Audio.Save(ctx, tempPath, active.ID)
	if err != nil {
		c.mu.Lock()
		c.saving = false
		c.mu.Unlock()
		logger.Error("Failed to save recording audio",
			logger.RecordingID(active.ID),
			logger.String("tempPath", tempPath),
			logger.ErrorField(err))
		c.alert("Save Error", "Recording stopped but failed to save. The file may be lost.")
		c.publishState()
		return nil, fmt.Errorf("%w: %v", ErrAudioNotSaved, err)
	}
	if tempPath != permanent {
		if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove temporary recording", logger.RecordingID(active.ID), logger.ErrorField(err))
		}
	}

	entry := model.RecordingEntry{
		ID:         active.ID,
		Title:      title,
		FilePath:   permanent,
		DurationMs: durationMs,
		CreatedAt:  active.StartedAt,
		UpdatedAt:  c.nowMs(),
		Mode:       active.Mode,
		Status:     model.StatusProcessing,
	}

	c.mu.Lock()
	c.recordings = append([]model.RecordingEntry{entry}, c.recordings...)
	c.saving = false
	publish := c.persistLocked()
	c.mu.Unlock()
	publish()
	c.publishState()

	logger.Info("Recording saved",
		logger.RecordingID(entry.ID),
		logger.Int64("durationMs", entry.DurationMs),
		logger.String("path", entry.FilePath))

	c.handOff(entry)
	out := entry.Clone()
	return &out, nil
}

// Cancel discards the active recording. The controller always ends idle, even
// when capture fails to stop; that error is still returned. Cancel never
// alerts the user: capture errors are only logged.
func (c *Controller) Cancel(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.cancelLocked(ctx)
}

// cancelLocked requires c.op.
func (c *Controller) cancelLocked(ctx context.Context) error {
	c.mu.Lock()
	if c.state == model.StateIdle || c.active == nil {
		c.mu.Unlock()
		return nil
	}
	active := *c.active
	c.mu.Unlock()

	path, err := c.deps.Capture.Stop(ctx)
	if err != nil {
		logger.Warn("Capture stop failed during cancel", logger.RecordingID(active.ID), logger.ErrorField(err))
		if dErr := c.deps.Capture.Dispose(); dErr != nil {
			logger.Warn("Capture dispose failed", logger.RecordingID(active.ID), logger.ErrorField(dErr))
		}
	}
	if path == "" {
		path = active.FilePath
	}
	if path != "" {
		if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warn("Failed to discard cancelled recording", logger.RecordingID(active.ID), logger.ErrorField(rmErr))
		}
	}

	c.mu.Lock()
	c.active = nil
	c.state = model.StateIdle
	c.saving = false
	c.mu.Unlock()

	logger.Info("Recording cancelled", logger.RecordingID(active.ID))
	c.publishState()
	if err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	return nil
}

// sessionLost reports capture errors after which no capture session remains.
func sessionLost(err error) bool {
	return errors.Is(err, capture.ErrNoAudio) || errors.Is(err, capture.ErrNotRunning)
}

// resetLocked drops the active recording without touching capture and alerts
// with message. It requires c.op.
func (c *Controller) resetLocked(message string) {
	c.mu.Lock()
	c.active = nil
	c.state = model.StateIdle
	c.saving = false
	c.mu.Unlock()
	c.alert("Recording Error", message)
	c.publishState()
}
