package domain

import "time"

// Backend-known task statuses. Anything else is a custom column id that
// lives only in board configuration and is never persisted as a status.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusWaiting    = "waiting" // persisted as "snoozed" on the backend
	StatusCompleted  = "completed"
	StatusSnoozed    = "snoozed"
)

// BackendStatus maps a board status to the value the task backend accepts,
// or "" when the status is a custom column and must stay local.
func BackendStatus(status string) string {
	switch status {
	case StatusPending, StatusInProgress, StatusCompleted, StatusSnoozed:
		return status
	case StatusWaiting:
		return StatusSnoozed
	default:
		return ""
	}
}

// KanbanColumn is one ordered, user-configurable board column.
type KanbanColumn struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index;not null"`
	Title     string    `json:"title" gorm:"not null"`
	Color     string    `json:"color" gorm:"default:#6b7280"`
	SortOrder int       `json:"sort_order" gorm:"column:sort_order;not null;default:0"`
	IsDefault bool      `json:"is_default" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultColumns is the fixed set restored by a board reset.
func DefaultColumns(userID string) []KanbanColumn {
	defs := []struct {
		id    string
		title string
		color string
	}{
		{StatusPending, "Pending", "#6b7280"},
		{StatusInProgress, "In Progress", "#3b82f6"},
		{StatusWaiting, "Waiting", "#f59e0b"},
		{StatusCompleted, "Completed", "#22c55e"},
	}

	columns := make([]KanbanColumn, len(defs))
	for i, d := range defs {
		columns[i] = KanbanColumn{
			ID:        d.id,
			UserID:    userID,
			Title:     d.title,
			Color:     d.color,
			SortOrder: i,
			IsDefault: true,
		}
	}
	return columns
}
