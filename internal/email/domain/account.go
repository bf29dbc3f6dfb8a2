package domain

import "time"

// AccountStatus tracks the connection state of a mail account.
type AccountStatus string

const (
	AccountConnected AccountStatus = "connected"
	AccountSyncing   AccountStatus = "syncing"
	AccountError     AccountStatus = "error"
)

// EmailAccount is one connected inbox (Gmail or IMAP) owned by a user.
type EmailAccount struct {
	ID       string `json:"id" gorm:"primaryKey"`
	UserID   string `json:"user_id" gorm:"index;not null"`
	Email    string `json:"email" gorm:"index;not null"`
	Provider string `json:"provider" gorm:"not null"` // "google" or "imap"

	Status       AccountStatus `json:"status" gorm:"default:connected"`
	ErrorMessage string        `json:"error_message,omitempty"`
	LastSyncedAt *time.Time    `json:"last_synced_at,omitempty"`

	// Google OAuth tokens
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"-"`

	// IMAP credentials (password encrypted at rest)
	ImapServer   string `json:"imap_server,omitempty"`
	ImapPort     int    `json:"imap_port,omitempty"`
	ImapPassword string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
