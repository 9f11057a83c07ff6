package model

// NotificationLevel is the severity of a user-facing notification.
type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
	NotifyInfo    NotificationLevel = "info"
)

// Notification is a toast-style message for whoever is presenting the app.
// Blocking marks messages that should interrupt the user rather than fade.
type Notification struct {
	Level    NotificationLevel `json:"level"`
	Title    string            `json:"title"`
	Message  string            `json:"message,omitempty"`
	Blocking bool              `json:"blocking,omitempty"`
}
