package model

import "time"

// Notification types.
const (
	NotificationTodo        = "todo"
	NotificationEvent       = "event"
	NotificationBudget      = "budget"
	NotificationTransaction = "transaction"
	NotificationGeneral     = "general"
	NotificationInfo        = "info"
	NotificationSuccess     = "success"
	NotificationError       = "error"
)

// MaxNotifications bounds the locally kept notification history.
const MaxNotifications = 100

// Notification represents an alert surfaced to the user. Notifications are
// client-side only and never synchronized remotely.
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Message is the human-readable notification text.
	Message string `json:"message"`

	// Type is the category tag (todo, budget, error, ...).
	Type string `json:"type"`

	// Timestamp is when this notification was generated.
	Timestamp time.Time `json:"timestamp"`

	// Read indicates whether the user has seen this notification.
	Read bool `json:"read"`
}

// UnreadCount returns how many notifications in ns are unread.
func UnreadCount(ns []Notification) int {
	n := 0
	for _, x := range ns {
		if !x.Read {
			n++
		}
	}
	return n
}
