package domain

import (
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// KanbanTask is the board unit: one classified email rendered as actionable
// work. Status is either a backend-known status or a custom column id.
type KanbanTask struct {
	ID      string `json:"id"`
	EmailID string `json:"email_id"`

	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Priority    emaildomain.Priority `json:"priority"`
	Status      string               `json:"status"`
	Selected    bool                 `json:"selected"`

	AssigneeID   string     `json:"assignee_id,omitempty"`
	AssigneeName string     `json:"assignee_name,omitempty"`
	Tags         []string   `json:"tags,omitempty"`
	DueDate      *time.Time `json:"due_date,omitempty"`

	ReminderAt   *time.Time `json:"reminder_at,omitempty"`
	ReminderSent bool       `json:"reminder_sent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersistedTask is the backend row for a task. The board's custom-column
// placement is intentionally absent: only backend-known statuses persist.
type PersistedTask struct {
	ID           string     `json:"id" gorm:"primaryKey"`
	UserID       string     `json:"user_id" gorm:"index;not null"`
	EmailID      string     `json:"email_id" gorm:"index"`
	Title        string     `json:"title" gorm:"not null"`
	Description  string     `json:"description,omitempty"`
	Priority     string     `json:"priority" gorm:"default:medium"`
	Status       string     `json:"status" gorm:"default:pending"`
	AssigneeID   string     `json:"assignee_id,omitempty"`
	Tags         []string   `json:"tags,omitempty" gorm:"serializer:json"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	ReminderAt   *time.Time `json:"reminder_at,omitempty"`
	ReminderSent bool       `json:"reminder_sent" gorm:"default:false"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (PersistedTask) TableName() string {
	return "tasks"
}
