package domain

import (
	"strings"
	"time"
)

// RelevanceState is the triage partition an email currently belongs to.
type RelevanceState string

const (
	RelevanceUnclassified RelevanceState = "unclassified"
	RelevanceRelevant     RelevanceState = "relevant"
	RelevanceRejected     RelevanceState = "rejected"
)

// EmailMessage is one inbound message as fetched from a provider. It is
// immutable after fetch except for attaching/replacing its Classification
// and flipping the triage partition.
type EmailMessage struct {
	ID           string   `json:"id"`
	AccountID    string   `json:"account_id"`
	AccountEmail string   `json:"account_email"`
	From         string   `json:"from"`
	FromName     string   `json:"from_name,omitempty"`
	To           []string `json:"to"`
	CC           []string `json:"cc,omitempty"`
	Subject      string   `json:"subject"`
	Body         string   `json:"body"`
	BodyType     string   `json:"body_type,omitempty"` // "text" or "html"
	Preview      string   `json:"preview,omitempty"`

	ReceivedAt     time.Time `json:"received_at"`
	IsRead         bool      `json:"is_read"`
	Importance     string    `json:"importance,omitempty"`
	HasAttachments bool      `json:"has_attachments"`
	Folder         string    `json:"folder,omitempty"`

	Relevance      RelevanceState  `json:"relevance"`
	Classification *Classification `json:"classification,omitempty"`
}

// Domain returns the sender's domain, lowercased, or "" when the address
// has no @.
func (e *EmailMessage) Domain() string {
	return DomainOf(e.From)
}

// DomainOf extracts the lowercased domain part of an email address.
func DomainOf(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '@' {
			return strings.ToLower(address[i+1:])
		}
	}
	return ""
}

// Attachment metadata returned by providers.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}

// Mailbox is a provider-side folder/label.
type Mailbox struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}
