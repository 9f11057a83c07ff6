package recording

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NancyGarg/transcribe-ai/core/transcribe"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// Load replaces the in-memory library with the stored one. Entries whose audio
// file is gone are kept but marked failed, entries whose audio is present get
// their path re-resolved from the audio store, and the corrected list is
// written back once. With ResumePending set, entries left pending or processing by a
// previous run are transcribed again.
func (c *Controller) Load(ctx context.Context) error {
	entries, err := c.deps.Store.Load(ctx)
	if err != nil {
		logger.Error("Failed to load recordings", logger.ErrorField(err))
		return err
	}

	changed := false
	present := make(map[string]bool, len(entries))
	for i := range entries {
		e := &entries[i]
		exists, err := c.deps.Audio.Exists(ctx, e.ID)
		if err != nil {
			logger.Warn("Could not check recording audio", logger.RecordingID(e.ID), logger.ErrorField(err))
			present[e.ID] = true
			continue
		}
		if exists {
			present[e.ID] = true
			if path := c.deps.Audio.PathFor(e.ID); e.FilePath != path {
				logger.Info("Recording audio path updated", logger.RecordingID(e.ID),
					logger.String("from", e.FilePath), logger.String("to", path))
				e.FilePath = path
				changed = true
			}
			continue
		}
		if markMissing(e, c.nowMs()) {
			logger.Warn("Recording audio missing", logger.RecordingID(e.ID))
			changed = true
		}
	}

	c.mu.Lock()
	c.recordings = entries
	var publish func()
	if changed {
		publish = c.persistLocked()
	} else {
		snapshot := c.libraryCopyLocked()
		publish = func() { c.events.Publish(Event{Type: EventLibrary, Recordings: snapshot}) }
	}
	var resume []model.RecordingEntry
	if c.opts.ResumePending {
		for _, e := range c.recordings {
			if !e.Status.Settled() && present[e.ID] && !c.inflight[e.ID] {
				resume = append(resume, e.Clone())
			}
		}
	}
	c.mu.Unlock()
	publish()

	logger.Info("Recordings loaded", logger.Int("count", len(entries)), logger.Int("resumed", len(resume)))
	for _, e := range resume {
		c.handOff(e)
	}
	return nil
}

// markMissing applies the missing-audio correction and reports whether the
// entry changed.
func markMissing(e *model.RecordingEntry, now int64) bool {
	if e.Status == model.StatusFailed && e.ErrorMessage == msgAudioNotFound {
		return false
	}
	e.Status = model.StatusFailed
	e.ErrorMessage = msgAudioNotFound
	e.TranscriptSegments = nil
	e.UpdatedAt = now
	return true
}

// MarkMissing flags an entry whose audio was removed while the app was running.
func (c *Controller) MarkMissing(id string) {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 || c.inflight[id] || !markMissing(&c.recordings[i], c.nowMs()) {
		c.mu.Unlock()
		return
	}
	entry := c.recordings[i].Clone()
	publish := c.persistLocked()
	c.mu.Unlock()

	logger.Warn("Recording audio removed", logger.RecordingID(id))
	publish()
	c.events.Publish(Event{Type: EventEntry, Entry: &entry})
}

// Delete removes a recording from the library, the audio store and the
// metadata store. If id is the active recording it is cancelled first. Each
// step runs even when an earlier one fails; a missing id is not an error.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	isActive := c.active != nil && c.active.ID == id
	c.mu.Unlock()
	if isActive {
		if err := c.cancelLocked(ctx); err != nil {
			logger.Warn("Cancel during delete failed", logger.RecordingID(id), logger.ErrorField(err))
		}
	}

	c.mu.Lock()
	var publish func()
	if i := c.indexLocked(id); i >= 0 {
		c.recordings = append(c.recordings[:i:i], c.recordings[i+1:]...)
		publish = c.persistLocked()
	}
	c.mu.Unlock()
	if publish != nil {
		publish()
	}

	if err := c.deps.Audio.Delete(ctx, id); err != nil {
		logger.Error("Failed to delete recording audio", logger.RecordingID(id), logger.ErrorField(err))
		c.notify(model.Notification{Level: model.NotifyError, Title: "Delete failed", Message: "The audio file could not be removed."})
	}

	c.writer.Wait()
	if err := c.deps.Store.DeleteOne(ctx, id); err != nil {
		logger.Error("Failed to delete recording metadata", logger.RecordingID(id), logger.ErrorField(err))
	}
	return nil
}

// ClearAll empties the library and the metadata store. Audio files are left
// on disk.
func (c *Controller) ClearAll(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	c.recordings = nil
	publish := c.persistLocked()
	c.mu.Unlock()
	publish()

	c.writer.Wait()
	if err := c.deps.Store.ClearAll(ctx); err != nil {
		logger.Error("Failed to clear recordings", logger.ErrorField(err))
		return err
	}
	logger.Info("Recordings cleared")
	return nil
}

// Retranscribe runs transcription again for an existing entry. It does nothing
// if a transcription for id is already running.
func (c *Controller) Retranscribe(ctx context.Context, id string) error {
	entry, ok := c.Get(id)
	if !ok {
		return ErrNotFound
	}
	exists, err := c.deps.Audio.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		c.MarkMissing(id)
		return ErrAudioMissing
	}
	c.handOff(*entry)
	return nil
}

// Transcribing reports whether a transcription for id is running.
func (c *Controller) Transcribing(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[id]
}

// handOff starts transcription of entry in the background.
func (c *Controller) handOff(entry model.RecordingEntry) {
	if entry.FilePath == "" {
		return
	}
	c.mu.Lock()
	if c.inflight[entry.ID] {
		c.mu.Unlock()
		return
	}
	c.inflight[entry.ID] = true
	c.mu.Unlock()

	c.jobs.Add(1)
	go func() {
		defer c.jobs.Done()
		defer func() {
			c.mu.Lock()
			delete(c.inflight, entry.ID)
			c.mu.Unlock()
		}()
		c.runTranscription(c.bgCtx, entry)
	}()
}

func (c *Controller) runTranscription(ctx context.Context, entry model.RecordingEntry) {
	if !c.update(entry.ID, func(e *model.RecordingEntry) {
		e.Status = model.StatusProcessing
		e.ErrorMessage = ""
	}) {
		return
	}

	logger.Info("Transcription started", logger.RecordingID(entry.ID), logger.Bool("diarize", entry.Mode.Diarize()))
	began := time.Now()
	res, err := c.deps.Transcriber.Transcribe(ctx, entry.FilePath, transcribe.Options{Diarize: entry.Mode.Diarize()})
	if err == nil && (res == nil || strings.TrimSpace(res.Transcript) == "") {
		err = errors.New("empty transcript")
	}

	if err != nil {
		msg := msgTranscriptionFailed
		var te *transcribe.Error
		if errors.As(err, &te) && te.Message != "" {
			msg = te.Message
		}
		logger.Error("Transcription failed", logger.RecordingID(entry.ID), logger.Duration("elapsed", time.Since(began)), logger.ErrorField(err))
		c.update(entry.ID, func(e *model.RecordingEntry) {
			e.Status = model.StatusFailed
			e.ErrorMessage = msg
			e.TranscriptSegments = nil
		})
		c.notify(model.Notification{Level: model.NotifyError, Title: "Transcription failed", Message: msg})
		return
	}

	ok := c.update(entry.ID, func(e *model.RecordingEntry) {
		e.Status = model.StatusCompleted
		e.Transcript = res.Transcript
		e.TranscriptSegments = append(model.Segments(nil), res.Segments...)
		e.ErrorMessage = ""
	})
	logger.Info("Transcription completed", logger.RecordingID(entry.ID),
		logger.Int("segments", len(res.Segments)), logger.Duration("elapsed", time.Since(began)))
	if ok {
		c.notify(model.Notification{Level: model.NotifySuccess, Title: "Transcription ready", Message: entry.Title})
	}
}

// update applies fn to the entry with id, persists and publishes. It returns
// false when the entry is no longer in the library.
func (c *Controller) update(id string, fn func(*model.RecordingEntry)) bool {
	c.mu.Lock()
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return false
	}
	fn(&c.recordings[i])
	c.recordings[i].UpdatedAt = c.nowMs()
	entry := c.recordings[i].Clone()
	publish := c.persistLocked()
	c.mu.Unlock()

	publish()
	c.events.Publish(Event{Type: EventEntry, Entry: &entry})
	return true
}
