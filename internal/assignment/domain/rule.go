package domain

import "time"

// Condition fields extractable from a classified email.
const (
	FieldSenderEmail   = "sender_email"
	FieldSenderDomain  = "sender_domain"
	FieldSubject       = "subject"
	FieldCategory      = "category"
	FieldPriorityScore = "priority_score"
	FieldHasAttachment = "has_attachments"
	FieldKeyword       = "keyword" // containment over subject+body
	FieldClientMatched = "client_matched"
)

// Condition operators.
const (
	OpEquals      = "equals"
	OpContains    = "contains"
	OpStartsWith  = "starts_with"
	OpEndsWith    = "ends_with"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpIsTrue      = "is_true"
	OpIsFalse     = "is_false"
)

// How a rule's conditions combine.
const (
	CombineAnd = "and"
	CombineOr  = "or"
)

// RuleCondition is one field/operator/value test.
type RuleCondition struct {
	Field         string `json:"field"`
	Operator      string `json:"operator"`
	Value         string `json:"value"`
	CaseSensitive bool   `json:"case_sensitive"`
}

// AssignmentRule routes classified email to a user, column, priority, and
// tags. Rules are evaluated in descending Priority order; every matching
// rule's actions are applied, so the last matching rule by evaluation order
// wins each field. Rules are deactivated rather than deleted so the efficacy
// counters survive.
type AssignmentRule struct {
	ID                string          `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name" gorm:"not null"`
	Description       string          `json:"description,omitempty"`
	Priority          int             `json:"priority" gorm:"index"`
	IsActive          bool            `json:"is_active" gorm:"default:true;index"`
	Conditions        []RuleCondition `json:"conditions" gorm:"serializer:json"`
	ConditionOperator string          `json:"condition_operator" gorm:"default:and"` // "and" or "or"

	// Action bundle
	AssignUserID   string   `json:"assign_user_id,omitempty"`
	AssignColumn   string   `json:"assign_column,omitempty"`
	SetPriority    string   `json:"set_priority,omitempty"`
	AddTags        []string `json:"add_tags,omitempty" gorm:"serializer:json"`
	AutoCreateTask bool     `json:"auto_create_task"`

	// Efficacy counters
	TimesMatched    int        `json:"times_matched" gorm:"default:0"`
	TimesOverridden int        `json:"times_overridden" gorm:"default:0"`
	LastMatchedAt   *time.Time `json:"last_matched_at,omitempty"`

	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AssignmentRule) TableName() string {
	return "assignment_rules"
}

// AssignmentResult is the engine's routing decision for one email.
type AssignmentResult struct {
	AssignedUserID   string   `json:"assigned_user_id,omitempty"`
	AssignedUserName string   `json:"assigned_user_name,omitempty"`
	AssignedColumn   string   `json:"assigned_column"`
	Priority         string   `json:"priority"`
	Tags             []string `json:"tags"`
	ShouldCreateTask bool     `json:"should_create_task"`
	MatchedRules     []string `json:"matched_rules,omitempty"`
	AssignmentReason string   `json:"assignment_reason"`
}
