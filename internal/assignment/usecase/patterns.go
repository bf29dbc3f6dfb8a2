package usecase

import (
	"fmt"

	emaildomain "triagedesk-backend/internal/email/domain"
)

// Learned-pattern tiers, tried in order. A tier needs minSamples history
// events and its confidence is capped so broader tiers can never outrank
// narrower ones.
const (
	senderMinSamples   = 2
	domainMinSamples   = 3
	categoryMinSamples = 5

	senderConfidenceCap   = 0.95
	domainConfidenceCap   = 0.7
	categoryConfidenceCap = 0.5

	patternApplyThreshold = 0.5
)

// UserActionSource provides the training-corpus events patterns are mined
// from.
type UserActionSource interface {
	ListBySender(sender string) ([]emaildomain.UserAction, error)
	ListByDomain(domain string) ([]emaildomain.UserAction, error)
	ListByCategory(category emaildomain.Category) ([]emaildomain.UserAction, error)
}

// LearnedPattern is a routing preference mined on demand; it is never
// persisted.
type LearnedPattern struct {
	Tier        string  `json:"tier"` // "sender", "domain", "category"
	Column      string  `json:"column,omitempty"`
	AssigneeID  string  `json:"assignee_id,omitempty"`
	Confidence  float64 `json:"confidence"`
	SampleCount int     `json:"sample_count"`
}

// PatternMiner computes learned patterns from the user-action log.
type PatternMiner struct {
	actions UserActionSource
}

func NewPatternMiner(actions UserActionSource) *PatternMiner {
	return &PatternMiner{actions: actions}
}

// Lookup tries the sender, domain, and category tiers in that order and
// returns the first pattern whose confidence clears the apply threshold.
// Returns nil when no tier qualifies.
func (m *PatternMiner) Lookup(sender, domain string, category emaildomain.Category) (*LearnedPattern, error) {
	tiers := []struct {
		name       string
		minSamples int
		maxConf    float64
		load       func() ([]emaildomain.UserAction, error)
	}{
		{"sender", senderMinSamples, senderConfidenceCap, func() ([]emaildomain.UserAction, error) {
			return m.actions.ListBySender(sender)
		}},
		{"domain", domainMinSamples, domainConfidenceCap, func() ([]emaildomain.UserAction, error) {
			return m.actions.ListByDomain(domain)
		}},
		{"category", categoryMinSamples, categoryConfidenceCap, func() ([]emaildomain.UserAction, error) {
			return m.actions.ListByCategory(category)
		}},
	}

	for _, tier := range tiers {
		actions, err := tier.load()
		if err != nil {
			return nil, fmt.Errorf("loading %s tier history: %w", tier.name, err)
		}

		pattern := minePattern(actions, tier.minSamples, tier.maxConf)
		if pattern == nil {
			continue
		}
		pattern.Tier = tier.name
		return pattern, nil
	}

	return nil, nil
}

// minePattern tallies routing outcomes and returns the majority one, or nil
// when the sample count or confidence is insufficient.
func minePattern(actions []emaildomain.UserAction, minSamples int, maxConf float64) *LearnedPattern {
	type outcome struct {
		column   string
		assignee string
	}

	counts := make(map[outcome]int)
	samples := 0
	for _, a := range actions {
		if a.ChosenColumn == "" && a.ChosenAssignee == "" {
			continue
		}
		counts[outcome{a.ChosenColumn, a.ChosenAssignee}]++
		samples++
	}

	if samples < minSamples {
		return nil
	}

	var best outcome
	bestCount := 0
	for o, n := range counts {
		if n > bestCount {
			best, bestCount = o, n
		}
	}

	confidence := float64(bestCount) / float64(samples)
	if confidence > maxConf {
		confidence = maxConf
	}
	if confidence < patternApplyThreshold {
		return nil
	}

	return &LearnedPattern{
		Column:      best.column,
		AssigneeID:  best.assignee,
		Confidence:  confidence,
		SampleCount: samples,
	}
}
