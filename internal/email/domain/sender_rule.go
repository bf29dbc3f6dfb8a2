package domain

import (
	"strings"
	"time"
)

// SenderRuleAction is the override a sender rule applies.
type SenderRuleAction string

const (
	SenderAllow SenderRuleAction = "allow"
	SenderDeny  SenderRuleAction = "deny"
)

// SenderRule is an explicit allow/deny override keyed by exact address or
// domain. It is the highest-priority override in the pipeline: it beats both
// the heuristic classifier and the assignment engine.
type SenderRule struct {
	ID      string           `json:"id" gorm:"primaryKey"`
	UserID  string           `json:"user_id" gorm:"index;not null"`
	Pattern string           `json:"pattern" gorm:"index;not null"` // "jane@acme.com" or "acme.com"
	IsDomain bool            `json:"is_domain"`
	Action  SenderRuleAction `json:"action" gorm:"not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the rule applies to the given sender address.
func (r *SenderRule) Matches(sender string) bool {
	sender = strings.ToLower(sender)
	pattern := strings.ToLower(r.Pattern)
	if r.IsDomain {
		return DomainOf(sender) == pattern
	}
	return sender == pattern
}
