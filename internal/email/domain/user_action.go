package domain

import "time"

// UserAction is one training-corpus event: the user corrected or confirmed a
// pipeline decision. Learned patterns are mined from this log on demand and
// never persisted as snapshots.
type UserAction struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"index;not null"`

	EmailID      string   `json:"email_id" gorm:"index"`
	Sender       string   `json:"sender" gorm:"index"`
	SenderDomain string   `json:"sender_domain" gorm:"index"`
	Subject      string   `json:"subject"`
	Category     Category `json:"category" gorm:"index"`

	// What the pipeline said vs. what the user did
	OriginalRelevance RelevanceState `json:"original_relevance"`
	UserRelevance     RelevanceState `json:"user_relevance"`
	OriginalCategory  Category       `json:"original_category"`

	// Routing chosen by the user, if any
	ChosenColumn   string `json:"chosen_column,omitempty"`
	ChosenAssignee string `json:"chosen_assignee,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// UndoActionType names the two reversible relevance actions.
type UndoActionType string

const (
	UndoMarkRelevant UndoActionType = "markRelevant"
	UndoMarkRejected UndoActionType = "markRejected"
)

// UndoAction is the single-slot undo buffer entry. Each relevance-changing
// single-item action overwrites it; one undo consumes it.
type UndoAction struct {
	EmailID    string         `json:"email_id"`
	ActionType UndoActionType `json:"action_type"`
	Timestamp  time.Time      `json:"timestamp"`
}
