package ai

import (
	"context"
	"log"
	"net"
	"strings"
	"time"

	"github.com/google/uuid"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// FallbackService routes classification to a primary provider and falls back
// to a secondary on connection or quota errors.
type FallbackService struct {
	primary   ClassifierService
	secondary ClassifierService
}

// NewFallbackService creates a fallback service with both providers
func NewFallbackService(primary, secondary ClassifierService) *FallbackService {
	return &FallbackService{primary: primary, secondary: secondary}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}

	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}

	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}

	return false
}

// ClassifyEmail tries the primary provider, then the secondary on connection
// or quota errors. Parse errors are not retried on the secondary.
func (f *FallbackService) ClassifyEmail(ctx context.Context, email *emaildomain.EmailMessage) (*emaildomain.Classification, error) {
	cls, err := f.primary.ClassifyEmail(ctx, email)
	if err == nil {
		return cls, nil
	}

	if f.secondary == nil || (!isConnectionError(err) && !isQuotaError(err)) {
		return nil, err
	}

	log.Printf("[AI] Primary provider failed: %v, falling back", err)
	return f.secondary.ClassifyEmail(ctx, email)
}

// Degraded wraps a ClassifierService so that it never returns an error: any
// call or parse failure yields a synthetic classification flagging the email
// for manual review. Callers see the failure only through ModelUsed == "error".
type Degraded struct {
	inner ClassifierService
}

func NewDegraded(inner ClassifierService) *Degraded {
	return &Degraded{inner: inner}
}

// ClassifyEmail implements ClassifierService
func (d *Degraded) ClassifyEmail(ctx context.Context, email *emaildomain.EmailMessage) (*emaildomain.Classification, error) {
	start := time.Now()

	cls, err := d.inner.ClassifyEmail(ctx, email)
	if err == nil {
		return cls, nil
	}

	log.Printf("[AI] Classification failed for email %s: %v, returning degraded result", email.ID, err)
	return DegradedClassification(time.Since(start)), nil
}

// DegradedClassification is the deterministic fallback result for a failed
// deep classification. The email needs a human look, so it requires a
// response and keeps a respond-today suggestion, matching
// DeriveSuggestedAction's rules.
func DegradedClassification(elapsed time.Duration) *emaildomain.Classification {
	return &emaildomain.Classification{
		Category:           emaildomain.CategoryOther,
		Priority:           emaildomain.PriorityMedium,
		Confidence:         0,
		Summary:            "Automatic classification unavailable",
		Sentiment:          emaildomain.SentimentNeutral,
		RequiresResponse:   true,
		IsBusinessRelevant: true,
		PriorityScore:      PriorityBase,
		ResponseUrgency:    emaildomain.UrgencyNone,
		SuggestedAction:    emaildomain.ActionRespondToday,
		Entities:           &emaildomain.Entities{},
		ActionItems: []emaildomain.ActionItem{{
			ID:         uuid.New().String(),
			Title:      "Review this email manually",
			Type:       "review",
			Priority:   emaildomain.PriorityMedium,
			Confidence: 0,
		}},
		ModelUsed:    "error",
		ProcessingMs: elapsed.Milliseconds(),
	}
}
