// Package output prints command results for people at a terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/model"
)

type Formatter struct {
	mu sync.Mutex
	w  io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) printf(format string, args ...interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.w, format, args...)
}

// Notify prints a controller notification, so a Formatter can serve as the
// recording.Notifier of a command.
func (f *Formatter) Notify(n model.Notification) {
	msg := n.Title
	if n.Message != "" {
		msg += ": " + n.Message
	}
	switch n.Level {
	case model.NotifyError:
		f.Error(msg)
	case model.NotifySuccess:
		f.Success(msg)
	default:
		f.Info(msg)
	}
}

func (f *Formatter) RecordingStarted(mode model.RecordingMode) {
	f.printf("🔴 Recording (%s)... press Ctrl+C to stop\n", modeName(mode))
}

func (f *Formatter) RecordingStopped(durationMs int64) {
	f.printf("⏹️  Recording stopped (%s)\n", transcript.FormatClock(durationMs))
}

func (f *Formatter) Transcribing() {
	f.printf("📝 Transcribing audio...\n")
}

func (f *Formatter) Error(msg string) {
	f.printf("❌ %s\n", msg)
}

func (f *Formatter) Info(msg string) {
	f.printf("ℹ️  %s\n", msg)
}

func (f *Formatter) Success(msg string) {
	f.printf("✅ %s\n", msg)
}

func (f *Formatter) Warning(msg string) {
	f.printf("⚠️  %s\n", msg)
}

// RecordingList prints the library under day headers, newest first.
func (f *Formatter) RecordingList(entries []model.RecordingEntry, now time.Time) {
	if len(entries) == 0 {
		f.printf("No recordings yet.\n")
		return
	}
	section := ""
	for _, e := range entries {
		if title := transcript.SectionTitle(e.CreatedAt, now); title != section {
			if section != "" {
				f.printf("\n")
			}
			section = title
			f.printf("%s\n", title)
		}
		f.printf("  %s  %-16s %6s  %-10s %s%s\n",
			statusIcon(e.Status),
			e.Title,
			transcript.FormatClock(e.DurationMs),
			modeName(e.Mode),
			e.ID,
			errorSuffix(e),
		)
	}
}

// RecordingDetail prints one entry and its transcript.
func (f *Formatter) RecordingDetail(e model.RecordingEntry, palette transcript.Palette) {
	f.printf("%s\n", e.Title)
	f.printf("  ID:       %s\n", e.ID)
	f.printf("  Mode:     %s\n", modeName(e.Mode))
	f.printf("  Duration: %s\n", transcript.FormatLong(e.DurationMs))
	f.printf("  Created:  %s\n", time.UnixMilli(e.CreatedAt).Format("2006-01-02 15:04"))
	f.printf("  Status:   %s %s\n", statusIcon(e.Status), e.Status)
	f.printf("  File:     %s\n", e.FilePath)
	if e.ErrorMessage != "" {
		f.printf("  Error:    %s\n", e.ErrorMessage)
	}
	if e.Status != model.StatusCompleted {
		return
	}
	f.printf("\n")
	f.Conversation(e.Mode, e.TranscriptSegments, palette)
	if len(e.TranscriptSegments) == 0 && e.Transcript != "" {
		f.printf("%s\n", e.Transcript)
	}
}

// Conversation prints segments the way mode presents them.
func (f *Formatter) Conversation(mode model.RecordingMode, segments []model.TranscriptSegment, palette transcript.Palette) {
	for _, item := range transcript.Present(mode, segments, palette) {
		if item.SpeakerLabel != "" {
			f.printf("%s: %s\n", item.SpeakerLabel, item.Text)
			continue
		}
		f.printf("[%s] %s\n", transcript.FormatClock(item.StartMs), item.Text)
	}
}

func (f *Formatter) SetupCheck(name string, ok bool, detail string) {
	if ok {
		f.printf("  ✅ %s: %s\n", name, detail)
	} else {
		f.printf("  ❌ %s: %s\n", name, detail)
	}
}

func statusIcon(s model.RecordingStatus) string {
	switch s {
	case model.StatusCompleted:
		return "✅"
	case model.StatusFailed:
		return "❌"
	default:
		return "⏳"
	}
}

func errorSuffix(e model.RecordingEntry) string {
	if e.Status == model.StatusFailed && e.ErrorMessage != "" {
		return "  (" + e.ErrorMessage + ")"
	}
	return ""
}

func modeName(m model.RecordingMode) string {
	switch m {
	case model.ModeVoiceNote:
		return "Voice note"
	case model.ModeInterview:
		return "Interview"
	case model.ModeLecture:
		return "Lecture"
	}
	return strings.ToLower(string(m))
}

// ModeName is the display name of a recording mode.
func ModeName(m model.RecordingMode) string {
	return modeName(m)
}
