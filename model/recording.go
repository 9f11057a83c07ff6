package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// RecordingMode selects how a recording is transcribed and presented.
type RecordingMode string

const (
	ModeVoiceNote RecordingMode = "VOICE_NOTE"
	ModeInterview RecordingMode = "INTERVIEW"
	ModeLecture   RecordingMode = "LECTURE"
)

// Modes lists every recording mode in display order.
var Modes = []RecordingMode{ModeVoiceNote, ModeInterview, ModeLecture}

// Valid reports whether m is one of the known modes.
func (m RecordingMode) Valid() bool {
	switch m {
	case ModeVoiceNote, ModeInterview, ModeLecture:
		return true
	}
	return false
}

// Diarize reports whether transcripts of this mode carry speaker tags.
func (m RecordingMode) Diarize() bool {
	return m == ModeInterview
}

// ParseMode accepts the canonical names plus lower-case and dashed spellings.
func ParseMode(s string) (RecordingMode, error) {
	m := RecordingMode(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	if !m.Valid() {
		return "", fmt.Errorf("unknown recording mode %q", s)
	}
	return m, nil
}

// LifecycleState is the state of the single in-flight recording.
type LifecycleState string

const (
	StateIdle      LifecycleState = "idle"
	StateRecording LifecycleState = "recording"
	StatePaused    LifecycleState = "paused"
)

// RecordingStatus tracks a finalized recording through transcription.
type RecordingStatus string

const (
	StatusPending    RecordingStatus = "pending"
	StatusProcessing RecordingStatus = "processing"
	StatusCompleted  RecordingStatus = "completed"
	StatusFailed     RecordingStatus = "failed"
)

// Settled reports whether transcription has finished one way or another.
func (s RecordingStatus) Settled() bool {
	switch s {
	case StatusCompleted, StatusFailed:
		return true
	case StatusPending, StatusProcessing:
		return false
	}
	return false
}

// ActiveRecording is the recording currently being captured.
// Timestamps are milliseconds since the Unix epoch.
type ActiveRecording struct {
	ID         string         `json:"id"`
	FilePath   string         `json:"filePath,omitempty"` // capture backend's temporary path
	StartedAt  int64          `json:"startedAt"`
	UpdatedAt  int64          `json:"updatedAt"`
	DurationMs int64          `json:"durationMs"`
	State      LifecycleState `json:"state"`
	Mode       RecordingMode  `json:"mode"`
}

// RecordingEntry is a finalized, persisted recording.
type RecordingEntry struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	FilePath           string          `json:"filePath"`
	DurationMs         int64           `json:"durationMs"`
	CreatedAt          int64           `json:"createdAt"`
	UpdatedAt          int64           `json:"updatedAt"`
	Mode               RecordingMode   `json:"mode"`
	Status             RecordingStatus `json:"status"`
	Transcript         string          `json:"transcript,omitempty"`
	TranscriptSegments Segments        `json:"transcriptSegments,omitempty"`
	ErrorMessage       string          `json:"errorMessage,omitempty"`
}

// Clone returns a copy that shares no slices with e.
func (e RecordingEntry) Clone() RecordingEntry {
	if e.TranscriptSegments != nil {
		segs := make(Segments, len(e.TranscriptSegments))
		copy(segs, e.TranscriptSegments)
		e.TranscriptSegments = segs
	}
	return e
}

// TranscriptSegment is one timed utterance. Speaker is the raw diarization
// tag and is empty when the provider did not attribute the segment.
type TranscriptSegment struct {
	ID      string `json:"id"`
	StartMs int64  `json:"startMs"`
	EndMs   int64  `json:"endMs"`
	Text    string `json:"text"`
	Speaker string `json:"speaker,omitempty"`
}

// Segments is stored as a JSON column by the SQL and GORM repositories.
type Segments []TranscriptSegment

// Scan implements sql.Scanner.
func (s *Segments) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported segments column type %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*s = nil
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// Value implements driver.Valuer.
func (s Segments) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
