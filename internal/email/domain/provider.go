package domain

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc persists refreshed OAuth tokens back to the account record.
type TokenUpdateFunc func(token *oauth2.Token) error

// MailProvider is the inbox-fetch port. Gmail and IMAP both implement it;
// the triage pipeline only ever sees this interface.
type MailProvider interface {
	// GetEmails fetches messages from a folder/label with pagination.
	GetEmails(ctx context.Context, account *EmailAccount, folder string, limit, offset int, onTokenRefresh TokenUpdateFunc) ([]*EmailMessage, int, error)

	// MarkAsRead flips the read flag on the provider side.
	MarkAsRead(ctx context.Context, account *EmailAccount, id string, onTokenRefresh TokenUpdateFunc) error

	// Watch subscribes the account inbox to push updates, where supported.
	Watch(ctx context.Context, account *EmailAccount, topicName string, onTokenRefresh TokenUpdateFunc) error
}
