package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// BuildPrompt renders the fixed-format input block plus the JSON output
// contract sent to every provider. Both providers share this prompt so the
// parse path is identical regardless of model.
func BuildPrompt(email *emaildomain.EmailMessage) string {
	hasAttachments := "no"
	if email.HasAttachments {
		hasAttachments = "yes"
	}

	return fmt.Sprintf(`You are an email triage assistant for an accounting firm. Analyze the email below and return ONLY a JSON object, no other text, no markdown fences.

The JSON object must have exactly these fields:
{
  "category": one of ["document_request","question","payment","appointment","tax_filing","compliance","follow_up","information","urgent","spam","internal","other"],
  "subcategory": string,
  "is_business_relevant": boolean,
  "summary": string (one sentence),
  "key_points": [string],
  "sentiment": one of ["positive","neutral","negative"],
  "requires_response": boolean,
  "response_urgency": one of ["immediate","today","this_week","none"],
  "priority_factors": {
    "urgent_keywords": 20 if urgent language is present else 0,
    "deadline": 15 if an explicit deadline is mentioned else 0,
    "government": 15 if the IRS or a government agency is mentioned else 0,
    "monetary_amount": 10 if a monetary amount is mentioned else 0,
    "question_asked": 5 if a question is asked else 0,
    "pure_fyi": -20 if the email is purely informational else 0
  },
  "action_items": [{"title": string, "type": one of ["respond","review","schedule","pay","file","other"], "priority": one of ["low","medium","high","urgent"], "due_date": ISO 8601 date or null, "confidence": 0..1}],
  "entities": {
    "dates": [{"date": ISO 8601, "context": string}],
    "amounts": [{"amount": number, "currency": string, "context": string}],
    "document_types": [string],
    "people": [{"name": string, "role": string}],
    "phone_numbers": [string],
    "companies": [string]
  },
  "client_search_terms": [string],
  "assignment": {"user_hint": string, "column": string, "reason": string} or null,
  "draft_response": {"subject": string, "body": string, "tone": string} or null
}

TODAY: %s

EMAIL:
From: %s
To: %s
Subject: %s
Date: %s
Has attachments: %s

%s

JSON:`,
		time.Now().Format("2006-01-02"),
		email.From,
		strings.Join(email.To, ", "),
		email.Subject,
		email.ReceivedAt.Format(time.RFC1123),
		hasAttachments,
		email.Body,
	)
}

// rawClassification mirrors the JSON contract above.
type rawClassification struct {
	Category           string                            `json:"category"`
	Subcategory        string                            `json:"subcategory"`
	IsBusinessRelevant bool                              `json:"is_business_relevant"`
	Summary            string                            `json:"summary"`
	KeyPoints          []string                          `json:"key_points"`
	Sentiment          string                            `json:"sentiment"`
	RequiresResponse   bool                              `json:"requires_response"`
	ResponseUrgency    string                            `json:"response_urgency"`
	PriorityFactors    *emaildomain.PriorityFactors      `json:"priority_factors"`
	ActionItems        []rawActionItem                   `json:"action_items"`
	Entities           *rawEntities                      `json:"entities"`
	ClientSearchTerms  []string                          `json:"client_search_terms"`
	Assignment         *emaildomain.AssignmentSuggestion `json:"assignment"`
	DraftResponse      *emaildomain.DraftResponse        `json:"draft_response"`
}

type rawActionItem struct {
	Title      string  `json:"title"`
	Type       string  `json:"type"`
	Priority   string  `json:"priority"`
	DueDate    string  `json:"due_date"`
	Confidence float64 `json:"confidence"`
}

type rawEntities struct {
	Dates []struct {
		Date    string `json:"date"`
		Context string `json:"context"`
	} `json:"dates"`
	Amounts       []emaildomain.ExtractedAmount `json:"amounts"`
	DocumentTypes []string                      `json:"document_types"`
	People        []emaildomain.ExtractedPerson `json:"people"`
	PhoneNumbers  []string                      `json:"phone_numbers"`
	Companies     []string                      `json:"companies"`
}

var dateFormats = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseDate(s string) *time.Time {
	for _, format := range dateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return &t
		}
	}
	return nil
}

// stripFences removes markdown code fences and any text surrounding the JSON
// object. Models wrap output in ```json blocks despite instructions.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end != -1 && end > start {
		text = text[start : end+1]
	}
	return text
}

// ParseClassification turns a raw model response into a Classification. The
// priority score is recomputed from the factor breakdown and the priority
// bucket, suggested action, and confidence are derived locally.
func ParseClassification(responseText, model string, elapsed time.Duration) (*emaildomain.Classification, error) {
	var raw rawClassification
	if err := json.Unmarshal([]byte(stripFences(responseText)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse classification JSON: %w", err)
	}

	category := emaildomain.Category(raw.Category)
	if !emaildomain.ValidCategory(category) {
		category = emaildomain.CategoryOther
	}

	sentiment := emaildomain.Sentiment(raw.Sentiment)
	switch sentiment {
	case emaildomain.SentimentPositive, emaildomain.SentimentNeutral, emaildomain.SentimentNegative:
	default:
		sentiment = emaildomain.SentimentNeutral
	}

	urgency := emaildomain.ResponseUrgency(raw.ResponseUrgency)
	switch urgency {
	case emaildomain.UrgencyImmediate, emaildomain.UrgencyToday, emaildomain.UrgencyThisWeek:
	default:
		urgency = emaildomain.UrgencyNone
	}

	factors := raw.PriorityFactors
	if factors == nil {
		factors = &emaildomain.PriorityFactors{}
	}
	factors.Base = PriorityBase
	score := ComputePriorityScore(factors)

	cls := &emaildomain.Classification{
		Category:           category,
		Subcategory:        raw.Subcategory,
		Priority:           MapPriority(score),
		Confidence:         0.9,
		Summary:            raw.Summary,
		KeyPoints:          raw.KeyPoints,
		Sentiment:          sentiment,
		RequiresResponse:   raw.RequiresResponse,
		IsBusinessRelevant: raw.IsBusinessRelevant,
		PriorityScore:      score,
		PriorityFactors:    factors,
		ResponseUrgency:    urgency,
		SuggestedAction:    DeriveSuggestedAction(category, urgency, raw.RequiresResponse),
		ClientSearchTerms:  raw.ClientSearchTerms,
		Assignment:         raw.Assignment,
		DraftResponse:      raw.DraftResponse,
		ModelUsed:          model,
		ProcessingMs:       elapsed.Milliseconds(),
	}

	for _, item := range raw.ActionItems {
		if item.Title == "" {
			continue
		}
		priority := emaildomain.Priority(item.Priority)
		switch priority {
		case emaildomain.PriorityLow, emaildomain.PriorityMedium, emaildomain.PriorityHigh, emaildomain.PriorityUrgent:
		default:
			priority = emaildomain.PriorityMedium
		}
		confidence := item.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}
		cls.ActionItems = append(cls.ActionItems, emaildomain.ActionItem{
			ID:         uuid.New().String(),
			Title:      item.Title,
			Type:       item.Type,
			Priority:   priority,
			DueDate:    parseDate(item.DueDate),
			Confidence: confidence,
		})
	}

	if raw.Entities != nil {
		entities := &emaildomain.Entities{
			Amounts:       raw.Entities.Amounts,
			DocumentTypes: raw.Entities.DocumentTypes,
			People:        raw.Entities.People,
			PhoneNumbers:  raw.Entities.PhoneNumbers,
			Companies:     raw.Entities.Companies,
		}
		for _, d := range raw.Entities.Dates {
			if t := parseDate(d.Date); t != nil {
				entities.Dates = append(entities.Dates, emaildomain.ExtractedDate{Date: *t, Context: d.Context})
			}
		}
		cls.Entities = entities

		if len(entities.Dates) > 0 {
			cls.DeadlineDetected = &entities.Dates[0].Date
		}
		if len(entities.Amounts) > 0 {
			cls.AmountDetected = &entities.Amounts[0].Amount
		}
	}

	return cls, nil
}
