package recording

import "github.com/NancyGarg/transcribe-ai/model"

// EventType names what changed.
type EventType string

const (
	EventState        EventType = "state"
	EventProgress     EventType = "progress"
	EventLibrary      EventType = "library"
	EventEntry        EventType = "entry"
	EventNotification EventType = "notification"
)

// Event is published to controller subscribers. Only the fields relevant to
// Type are set.
type Event struct {
	Type         EventType              `json:"type"`
	State        model.LifecycleState   `json:"state,omitempty"`
	Active       *model.ActiveRecording `json:"active,omitempty"`
	Saving       bool                   `json:"saving,omitempty"`
	Entry        *model.RecordingEntry  `json:"entry,omitempty"`
	Recordings   []model.RecordingEntry `json:"recordings,omitempty"`
	Notification *model.Notification    `json:"notification,omitempty"`
}
