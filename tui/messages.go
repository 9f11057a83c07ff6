package tui

import (
	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/model"
)

// EventMsg wraps a controller event.
type EventMsg struct {
	Event recording.Event
}

// EventsClosedMsg is sent when the event channel is closed.
type EventsClosedMsg struct{}

// OpDoneMsg reports the result of a lifecycle operation.
type OpDoneMsg struct {
	Op    string
	Entry *model.RecordingEntry // set by a successful stop
	Err   error
}

// ClearNotificationMsg clears the notification line after a timeout.
type ClearNotificationMsg struct {
	Seq int
}
