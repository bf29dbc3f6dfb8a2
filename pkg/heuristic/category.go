package heuristic

import (
	"strings"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// inferCategory runs the ordered category cascade over relevant mail.
// First matching bucket wins; the ordering is part of the contract
// (urgent outranks everything, "other" is the floor).
func inferCategory(subject, body string) emaildomain.Category {
	text := subject + " " + body

	switch {
	case anyPattern(text, urgentPatterns):
		return emaildomain.CategoryUrgent
	case anyPattern(text, documentPatterns):
		return emaildomain.CategoryDocumentRequest
	case anyPattern(text, questionPatterns):
		return emaildomain.CategoryQuestion
	case anyPattern(text, paymentPatterns):
		return emaildomain.CategoryPayment
	case anyPattern(text, appointmentPatterns):
		return emaildomain.CategoryAppointment
	case anyPattern(text, taxPatterns):
		return emaildomain.CategoryTaxFiling
	case anyPattern(text, compliancePatterns):
		return emaildomain.CategoryCompliance
	case anyPattern(text, followUpPatterns):
		return emaildomain.CategoryFollowUp
	case anyPattern(text, informationPatterns):
		return emaildomain.CategoryInformation
	default:
		return emaildomain.CategoryOther
	}
}

func inferPriority(subject, body string) emaildomain.Priority {
	text := subject + " " + body
	if anyPattern(text, urgentPatterns) {
		return emaildomain.PriorityUrgent
	}
	for _, kw := range fyiKeywords {
		if strings.Contains(text, kw) {
			return emaildomain.PriorityLow
		}
	}
	for _, kw := range importantKeywords {
		if strings.Contains(text, kw) {
			return emaildomain.PriorityHigh
		}
	}
	return emaildomain.PriorityMedium
}

func inferSentiment(body string) emaildomain.Sentiment {
	pos, neg := 0, 0
	for _, w := range positiveWords {
		if strings.Contains(body, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(body, w) {
			neg++
		}
	}
	switch {
	case neg > pos:
		return emaildomain.SentimentNegative
	case pos > neg:
		return emaildomain.SentimentPositive
	default:
		return emaildomain.SentimentNeutral
	}
}
