package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emaildomain "triagedesk-backend/internal/email/domain"
)

func TestMapPriority_BoundaryExact(t *testing.T) {
	cases := []struct {
		score int
		want  emaildomain.Priority
	}{
		{0, emaildomain.PriorityLow},
		{39, emaildomain.PriorityLow},
		{40, emaildomain.PriorityMedium},
		{59, emaildomain.PriorityMedium},
		{60, emaildomain.PriorityHigh},
		{79, emaildomain.PriorityHigh},
		{80, emaildomain.PriorityUrgent},
		{100, emaildomain.PriorityUrgent},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, MapPriority(tc.score), "score %d", tc.score)
	}
}

func TestComputePriorityScore(t *testing.T) {
	assert.Equal(t, PriorityBase, ComputePriorityScore(nil))

	score := ComputePriorityScore(&emaildomain.PriorityFactors{
		Base:           PriorityBase,
		UrgentKeywords: PriorityUrgentKeywords,
		Deadline:       PriorityDeadline,
		Government:     PriorityGovernment,
	})
	assert.Equal(t, 100, score)

	// Clamped at both ends.
	assert.Equal(t, 100, ComputePriorityScore(&emaildomain.PriorityFactors{
		Base: 90, UrgentKeywords: 20, Deadline: 15,
	}))
	assert.Equal(t, 0, ComputePriorityScore(&emaildomain.PriorityFactors{
		Base: 10, PureFYI: -20,
	}))
}

func TestDeriveSuggestedAction(t *testing.T) {
	assert.Equal(t, emaildomain.ActionMarkAsSpam,
		DeriveSuggestedAction(emaildomain.CategorySpam, emaildomain.UrgencyImmediate, true))

	// No response needed never yields an urgent action.
	assert.Equal(t, emaildomain.ActionArchive,
		DeriveSuggestedAction(emaildomain.CategoryInformation, emaildomain.UrgencyImmediate, false))

	assert.Equal(t, emaildomain.ActionRespondImmediately,
		DeriveSuggestedAction(emaildomain.CategoryQuestion, emaildomain.UrgencyImmediate, true))
	assert.Equal(t, emaildomain.ActionRequestDocuments,
		DeriveSuggestedAction(emaildomain.CategoryDocumentRequest, emaildomain.UrgencyToday, true))
	assert.Equal(t, emaildomain.ActionScheduleCall,
		DeriveSuggestedAction(emaildomain.CategoryAppointment, emaildomain.UrgencyToday, true))
	assert.Equal(t, emaildomain.ActionRespondToday,
		DeriveSuggestedAction(emaildomain.CategoryQuestion, emaildomain.UrgencyToday, true))
}

func TestDueDateForUrgency(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC) // a Wednesday

	immediate := DueDateForUrgency(emaildomain.UrgencyImmediate, nil, now)
	require.NotNil(t, immediate)
	assert.Equal(t, now, *immediate)

	today := DueDateForUrgency(emaildomain.UrgencyToday, nil, now)
	require.NotNil(t, today)
	assert.Equal(t, time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC), *today)

	week := DueDateForUrgency(emaildomain.UrgencyThisWeek, nil, now)
	require.NotNil(t, week)
	assert.Equal(t, time.Date(2026, 3, 8, 23, 59, 59, 0, time.UTC), *week)

	deadline := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	got := DueDateForUrgency(emaildomain.UrgencyNone, &deadline, now)
	require.NotNil(t, got)
	assert.Equal(t, deadline, *got)

	assert.Nil(t, DueDateForUrgency(emaildomain.UrgencyNone, nil, now))
}

func TestParseClassification_FencedJSON(t *testing.T) {
	response := "```json\n" + `{
		"category": "tax_filing",
		"subcategory": "extension",
		"is_business_relevant": true,
		"summary": "Client asks about filing an extension before the deadline.",
		"key_points": ["deadline April 15", "wants extension"],
		"sentiment": "neutral",
		"requires_response": true,
		"response_urgency": "today",
		"priority_factors": {"deadline": 15, "government": 15, "question_asked": 5},
		"action_items": [
			{"title": "Reply about extension options", "type": "respond", "priority": "high", "due_date": "2026-04-10", "confidence": 0.85}
		],
		"entities": {
			"dates": [{"date": "2026-04-15", "context": "filing deadline"}],
			"amounts": [{"amount": 1200.50, "currency": "USD", "context": "estimated payment"}]
		},
		"client_search_terms": ["extension", "1040"],
		"assignment": {"user_hint": "tax team", "column": "in_progress", "reason": "extension requests go to the tax desk"}
	}` + "\n```"

	cls, err := ParseClassification(response, "test-model", 120*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, emaildomain.CategoryTaxFiling, cls.Category)
	assert.Equal(t, 85, cls.PriorityScore) // 50+15+15+5
	assert.Equal(t, emaildomain.PriorityUrgent, cls.Priority)
	assert.Equal(t, emaildomain.ActionRespondToday, cls.SuggestedAction)
	assert.Equal(t, "test-model", cls.ModelUsed)
	assert.Equal(t, int64(120), cls.ProcessingMs)

	require.Len(t, cls.ActionItems, 1)
	assert.NotEmpty(t, cls.ActionItems[0].ID)
	require.NotNil(t, cls.ActionItems[0].DueDate)

	require.NotNil(t, cls.Entities)
	require.Len(t, cls.Entities.Dates, 1)
	require.NotNil(t, cls.DeadlineDetected)
	require.NotNil(t, cls.AmountDetected)
	assert.Equal(t, 1200.50, *cls.AmountDetected)

	require.NotNil(t, cls.Assignment)
	assert.Equal(t, "tax team", cls.Assignment.UserHint)
	assert.Equal(t, "in_progress", cls.Assignment.Column)
}

func TestParseClassification_UnknownEnumsNormalized(t *testing.T) {
	cls, err := ParseClassification(`{"category": "invoice-ish", "sentiment": "meh", "response_urgency": "whenever"}`, "m", 0)
	require.NoError(t, err)

	assert.Equal(t, emaildomain.CategoryOther, cls.Category)
	assert.Equal(t, emaildomain.SentimentNeutral, cls.Sentiment)
	assert.Equal(t, emaildomain.UrgencyNone, cls.ResponseUrgency)
}

func TestParseClassification_MalformedJSON(t *testing.T) {
	_, err := ParseClassification("the model refused to answer", "m", 0)
	assert.Error(t, err)
}

type failingClassifier struct{ err error }

func (f *failingClassifier) ClassifyEmail(context.Context, *emaildomain.EmailMessage) (*emaildomain.Classification, error) {
	return nil, f.err
}

func TestDegraded_NeverReturnsError(t *testing.T) {
	d := NewDegraded(&failingClassifier{err: errors.New("model exploded")})

	cls, err := d.ClassifyEmail(context.Background(), &emaildomain.EmailMessage{ID: "e1"})
	require.NoError(t, err)
	require.NotNil(t, cls)

	assert.Equal(t, emaildomain.CategoryOther, cls.Category)
	assert.Equal(t, float64(0), cls.Confidence)
	assert.Equal(t, "error", cls.ModelUsed)
	assert.True(t, cls.RequiresResponse, "manual review needs a response")
	assert.Equal(t, DeriveSuggestedAction(cls.Category, cls.ResponseUrgency, cls.RequiresResponse), cls.SuggestedAction)
	require.Len(t, cls.ActionItems, 1)
	assert.Equal(t, "review", cls.ActionItems[0].Type)
	require.NotNil(t, cls.Entities)
}

func TestFallbackService_RetriesOnConnectionError(t *testing.T) {
	good := &emaildomain.Classification{Category: emaildomain.CategoryQuestion}
	f := NewFallbackService(
		&failingClassifier{err: errors.New("dial tcp 127.0.0.1:11434: connection refused")},
		stubClassifier{cls: good},
	)

	cls, err := f.ClassifyEmail(context.Background(), &emaildomain.EmailMessage{})
	require.NoError(t, err)
	assert.Equal(t, good, cls)
}

func TestFallbackService_DoesNotRetryParseErrors(t *testing.T) {
	f := NewFallbackService(
		&failingClassifier{err: errors.New("failed to parse classification JSON: unexpected token")},
		stubClassifier{cls: &emaildomain.Classification{}},
	)

	_, err := f.ClassifyEmail(context.Background(), &emaildomain.EmailMessage{})
	assert.Error(t, err)
}

type stubClassifier struct{ cls *emaildomain.Classification }

func (s stubClassifier) ClassifyEmail(context.Context, *emaildomain.EmailMessage) (*emaildomain.Classification, error) {
	return s.cls, nil
}
