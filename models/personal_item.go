package models

import "time"

// Personal item kinds. A personal item is the unified record behind the
// tasks, habits and notes screens.
const (
	KindTask  = "task"
	KindHabit = "habit"
	KindNote  = "note"
)

// PersonalItem is a task, habit or note.
type PersonalItem struct {
	Meta

	Title     string     `json:"title"`
	Kind      string     `json:"type"`
	Notes     string     `json:"notes,omitempty"`
	SpaceID   string     `json:"spaceId,omitempty"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Completed bool       `json:"completed"`
	// CompletedAt is set when Completed flips to true and cleared when the
	// item is reopened or duplicated.
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
