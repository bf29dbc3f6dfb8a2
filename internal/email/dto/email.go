package dto

import (
	emaildomain "triagedesk-backend/internal/email/domain"
)

// EmailsResponse is the paginated partition listing.
type EmailsResponse struct {
	Emails []*emaildomain.EmailMessage `json:"emails"`
	Limit  int                         `json:"limit"`
	Offset int                         `json:"offset"`
	Total  int                         `json:"total"`
}

// BulkActionRequest names the emails a bulk relevance action applies to.
type BulkActionRequest struct {
	EmailIDs []string `json:"email_ids" binding:"required,min=1"`
}

// SenderRuleRequest creates an allow/deny override.
type SenderRuleRequest struct {
	Pattern  string `json:"pattern" binding:"required"`
	IsDomain bool   `json:"is_domain"`
	Action   string `json:"action" binding:"required,oneof=allow deny"`
}

// ImapAccountRequest connects a plain IMAP inbox.
type ImapAccountRequest struct {
	Email      string `json:"email" binding:"required,email"`
	ImapServer string `json:"imap_server" binding:"required"`
	ImapPort   int    `json:"imap_port" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

// RelatedEmailsResponse lists prior correspondence close to an email.
type RelatedEmailsResponse struct {
	Emails    []*emaildomain.EmailMessage `json:"emails"`
	Distances []float64                   `json:"distances"`
}
