package ai

import (
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// Additive priority rubric. The model is asked to report a factor breakdown;
// the score is recomputed locally from the factors so a hallucinated total
// never leaks through.
const (
	PriorityBase           = 50
	PriorityUrgentKeywords = 20
	PriorityDeadline       = 15
	PriorityGovernment     = 15
	PriorityMonetaryAmount = 10
	PriorityClientHistory  = 10
	PriorityQuestionAsked  = 5
	PriorityPureFYI        = -20
)

// ComputePriorityScore sums the rubric factors and clamps to 0..100.
func ComputePriorityScore(f *emaildomain.PriorityFactors) int {
	if f == nil {
		return PriorityBase
	}
	score := f.Base
	if score == 0 {
		score = PriorityBase
	}
	score += f.UrgentKeywords + f.Deadline + f.Government +
		f.MonetaryAmount + f.ClientHistory + f.QuestionAsked + f.PureFYI
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// MapPriority buckets a 0..100 priority score. Boundaries are inclusive:
// 80 is urgent, 60 is high, 40 is medium.
func MapPriority(score int) emaildomain.Priority {
	switch {
	case score >= 80:
		return emaildomain.PriorityUrgent
	case score >= 60:
		return emaildomain.PriorityHigh
	case score >= 40:
		return emaildomain.PriorityMedium
	default:
		return emaildomain.PriorityLow
	}
}

// DeriveSuggestedAction maps a classification to the next-step hint. Spam and
// no-response-needed mail short-circuit to terminal actions before urgency is
// considered.
func DeriveSuggestedAction(category emaildomain.Category, urgency emaildomain.ResponseUrgency, requiresResponse bool) emaildomain.SuggestedAction {
	if category == emaildomain.CategorySpam {
		return emaildomain.ActionMarkAsSpam
	}
	if !requiresResponse {
		return emaildomain.ActionArchive
	}
	if urgency == emaildomain.UrgencyImmediate {
		return emaildomain.ActionRespondImmediately
	}
	switch category {
	case emaildomain.CategoryDocumentRequest:
		return emaildomain.ActionRequestDocuments
	case emaildomain.CategoryAppointment:
		return emaildomain.ActionScheduleCall
	}
	return emaildomain.ActionRespondToday
}

// DueDateForUrgency derives a task due date: immediate -> now, today -> end of
// day, this_week -> end of week, otherwise the detected deadline (may be nil).
func DueDateForUrgency(urgency emaildomain.ResponseUrgency, deadline *time.Time, now time.Time) *time.Time {
	switch urgency {
	case emaildomain.UrgencyImmediate:
		t := now
		return &t
	case emaildomain.UrgencyToday:
		t := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, now.Location())
		return &t
	case emaildomain.UrgencyThisWeek:
		days := int(time.Sunday+7-now.Weekday()) % 7
		if days == 0 {
			days = 7
		}
		end := now.AddDate(0, 0, days)
		t := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, 0, now.Location())
		return &t
	}
	return deadline
}
