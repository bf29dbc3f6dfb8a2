package domain

import "time"

// Category is the closed set of business intent labels.
type Category string

const (
	CategoryDocumentRequest Category = "document_request"
	CategoryQuestion        Category = "question"
	CategoryPayment         Category = "payment"
	CategoryAppointment     Category = "appointment"
	CategoryTaxFiling       Category = "tax_filing"
	CategoryCompliance      Category = "compliance"
	CategoryFollowUp        Category = "follow_up"
	CategoryInformation     Category = "information"
	CategoryUrgent          Category = "urgent"
	CategorySpam            Category = "spam"
	CategoryInternal        Category = "internal"
	CategoryOther           Category = "other"
)

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c Category) bool {
	switch c {
	case CategoryDocumentRequest, CategoryQuestion, CategoryPayment,
		CategoryAppointment, CategoryTaxFiling, CategoryCompliance,
		CategoryFollowUp, CategoryInformation, CategoryUrgent,
		CategorySpam, CategoryInternal, CategoryOther:
		return true
	}
	return false
}

// Priority buckets, ordered low < medium < high < urgent.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Sentiment of the message body.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// SuggestedAction is the next-step hint derived from a deep classification.
type SuggestedAction string

const (
	ActionRespondImmediately SuggestedAction = "respond_immediately"
	ActionRespondToday       SuggestedAction = "respond_today"
	ActionRequestDocuments   SuggestedAction = "request_documents"
	ActionScheduleCall       SuggestedAction = "schedule_call"
	ActionArchive            SuggestedAction = "archive"
	ActionMarkAsSpam         SuggestedAction = "mark_as_spam"
)

// ResponseUrgency drives the due date of a created task.
type ResponseUrgency string

const (
	UrgencyImmediate ResponseUrgency = "immediate"
	UrgencyToday     ResponseUrgency = "today"
	UrgencyThisWeek  ResponseUrgency = "this_week"
	UrgencyNone      ResponseUrgency = "none"
)

// ActionItem is one actionable item extracted from an email.
type ActionItem struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Type       string     `json:"type"` // respond, review, schedule, pay, file, other
	Priority   Priority   `json:"priority"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	Confidence float64    `json:"confidence"`
}

// ExtractedDate is a date mention with surrounding context.
type ExtractedDate struct {
	Date    time.Time `json:"date"`
	Context string    `json:"context,omitempty"`
}

// ExtractedAmount is a monetary amount mention.
type ExtractedAmount struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Context  string  `json:"context,omitempty"`
}

// ExtractedPerson is a named person with an inferred role.
type ExtractedPerson struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Entities groups everything the deep classifier pulled out of the body.
type Entities struct {
	Dates         []ExtractedDate   `json:"dates,omitempty"`
	Amounts       []ExtractedAmount `json:"amounts,omitempty"`
	DocumentTypes []string          `json:"document_types,omitempty"`
	People        []ExtractedPerson `json:"people,omitempty"`
	PhoneNumbers  []string          `json:"phone_numbers,omitempty"`
	Companies     []string          `json:"companies,omitempty"`
}

// PriorityFactors is the additive rubric breakdown behind a priority score.
type PriorityFactors struct {
	Base           int `json:"base"`
	UrgentKeywords int `json:"urgent_keywords,omitempty"`
	Deadline       int `json:"deadline,omitempty"`
	Government     int `json:"government,omitempty"`
	MonetaryAmount int `json:"monetary_amount,omitempty"`
	ClientHistory  int `json:"client_history,omitempty"`
	QuestionAsked  int `json:"question_asked,omitempty"`
	PureFYI        int `json:"pure_fyi,omitempty"` // negative
}

// DraftResponse is an optional AI-suggested reply.
type DraftResponse struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Tone    string `json:"tone,omitempty"`
}

// AssignmentSuggestion is the deep classifier's routing hint, advisory only.
type AssignmentSuggestion struct {
	UserHint string `json:"user_hint,omitempty"`
	Column   string `json:"column,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Classification is the pipeline output attached to an EmailMessage.
// Heuristic-only classifications leave the deep fields zero.
type Classification struct {
	Category         Category   `json:"category"`
	Subcategory      string     `json:"subcategory,omitempty"`
	Priority         Priority   `json:"priority"`
	Confidence       float64    `json:"confidence"` // 0..1
	Summary          string     `json:"summary,omitempty"`
	KeyPoints        []string   `json:"key_points,omitempty"`
	Sentiment        Sentiment  `json:"sentiment"`
	RequiresResponse bool       `json:"requires_response"`
	DeadlineDetected *time.Time `json:"deadline_detected,omitempty"`
	AmountDetected   *float64   `json:"amount_detected,omitempty"`
	ActionItems      []ActionItem `json:"action_items,omitempty"`

	// Deep classifier fields
	IsBusinessRelevant bool                  `json:"is_business_relevant"`
	PriorityScore      int                   `json:"priority_score"` // 0..100
	PriorityFactors    *PriorityFactors      `json:"priority_factors,omitempty"`
	ResponseUrgency    ResponseUrgency       `json:"response_urgency,omitempty"`
	SuggestedAction    SuggestedAction       `json:"suggested_action,omitempty"`
	Entities           *Entities             `json:"entities,omitempty"`
	ClientSearchTerms  []string              `json:"client_search_terms,omitempty"`
	Assignment         *AssignmentSuggestion `json:"assignment,omitempty"`
	DraftResponse      *DraftResponse        `json:"draft_response,omitempty"`

	// Observability
	ModelUsed    string `json:"model_used,omitempty"`
	ProcessingMs int64  `json:"processing_ms,omitempty"`
}
