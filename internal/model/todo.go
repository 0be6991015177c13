package model

import (
	"strings"
	"time"
)

// Priority ranks a todo.
type Priority string

// Todo priority levels.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Todo is a task item created and managed by the signed-in user.
type Todo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    Priority  `json:"priority"`
	Category    string    `json:"category,omitempty"`
	DueDate     string    `json:"dueDate,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TodoPatch is a partial update for a Todo. Nil fields are left unchanged.
type TodoPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Category    *string
	DueDate     *string
	Completed   *bool
}

// Validate checks the fields required of a stored todo.
func (t Todo) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("todo", "title", "must not be empty")
	}
	if !t.Priority.Valid() {
		return invalid("todo", "priority", "must be low, medium or high")
	}
	if t.DueDate != "" {
		if _, ok := ParseDateTime(t.DueDate); !ok {
			return invalid("todo", "dueDate", "must be an ISO date or date-time")
		}
	}
	return nil
}

// Validate checks the fields a patch would set.
func (p TodoPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return invalid("todo", "title", "must not be empty")
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return invalid("todo", "priority", "must be low, medium or high")
	}
	if p.DueDate != nil && *p.DueDate != "" {
		if _, ok := ParseDateTime(*p.DueDate); !ok {
			return invalid("todo", "dueDate", "must be an ISO date or date-time")
		}
	}
	return nil
}

// Apply returns a copy of t with the patch merged in.
func (t Todo) Apply(p TodoPatch) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	return t
}

// Due returns the parsed due date, if one is set and well formed.
func (t Todo) Due() (time.Time, bool) {
	if t.DueDate == "" {
		return time.Time{}, false
	}
	return ParseDateTime(t.DueDate)
}

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseDateTime accepts the ISO forms produced by date and datetime-local
// inputs. Values without a zone are read as UTC.
func ParseDateTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
