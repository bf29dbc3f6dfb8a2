package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	emaildomain "triagedesk-backend/internal/email/domain"
)

func routedActions(n int, column, assignee string) []emaildomain.UserAction {
	actions := make([]emaildomain.UserAction, n)
	for i := range actions {
		actions[i] = emaildomain.UserAction{ChosenColumn: column, ChosenAssignee: assignee}
	}
	return actions
}

func TestPatternLookup_SenderTier(t *testing.T) {
	m := NewPatternMiner(&fakeActionSource{
		bySender: routedActions(4, "in_progress", "u1"),
	})

	pattern, err := m.Lookup("jane@acme.com", "acme.com", emaildomain.CategoryPayment)
	require.NoError(t, err)
	require.NotNil(t, pattern)

	assert.Equal(t, "sender", pattern.Tier)
	assert.Equal(t, "in_progress", pattern.Column)
	assert.Equal(t, "u1", pattern.AssigneeID)
	// 4/4 agreement, capped at the sender ceiling.
	assert.Equal(t, senderConfidenceCap, pattern.Confidence)
	assert.Equal(t, 4, pattern.SampleCount)
}

func TestPatternLookup_FallsThroughToDomainTier(t *testing.T) {
	m := NewPatternMiner(&fakeActionSource{
		bySender: routedActions(1, "in_progress", "u1"), // below sender minimum
		byDomain: routedActions(3, "waiting", "u2"),
	})

	pattern, err := m.Lookup("jane@acme.com", "acme.com", emaildomain.CategoryPayment)
	require.NoError(t, err)
	require.NotNil(t, pattern)

	assert.Equal(t, "domain", pattern.Tier)
	assert.Equal(t, "waiting", pattern.Column)
	assert.Equal(t, domainConfidenceCap, pattern.Confidence)
}

func TestPatternLookup_LowAgreementFallsThrough(t *testing.T) {
	// Sender tier has enough samples but no outcome clears 50% agreement.
	disagreeing := append(routedActions(2, "in_progress", "u1"), routedActions(2, "waiting", "u2")...)
	disagreeing = append(disagreeing, routedActions(1, "pending", "u3")...)

	m := NewPatternMiner(&fakeActionSource{
		bySender:   disagreeing,
		byCategory: routedActions(5, "in_progress", "u1"),
	})

	pattern, err := m.Lookup("jane@acme.com", "acme.com", emaildomain.CategoryPayment)
	require.NoError(t, err)
	require.NotNil(t, pattern)

	assert.Equal(t, "category", pattern.Tier)
	assert.Equal(t, categoryConfidenceCap, pattern.Confidence)
}

func TestPatternLookup_NoTierQualifies(t *testing.T) {
	m := NewPatternMiner(&fakeActionSource{
		bySender:   routedActions(1, "in_progress", "u1"),
		byDomain:   routedActions(2, "waiting", "u2"),
		byCategory: routedActions(4, "pending", "u3"),
	})

	pattern, err := m.Lookup("jane@acme.com", "acme.com", emaildomain.CategoryPayment)
	require.NoError(t, err)
	assert.Nil(t, pattern)
}

func TestPatternLookup_IgnoresUnroutedActions(t *testing.T) {
	// Relevance-only corrections carry no routing and must not count as
	// samples.
	actions := routedActions(1, "in_progress", "u1")
	actions = append(actions, emaildomain.UserAction{}, emaildomain.UserAction{})

	m := NewPatternMiner(&fakeActionSource{bySender: actions})

	pattern, err := m.Lookup("jane@acme.com", "acme.com", emaildomain.CategoryPayment)
	require.NoError(t, err)
	assert.Nil(t, pattern)
}

func TestMinePattern_MajorityOutcome(t *testing.T) {
	actions := append(routedActions(3, "in_progress", "u1"), routedActions(1, "waiting", "u2")...)

	pattern := minePattern(actions, 2, 0.95)
	require.NotNil(t, pattern)

	assert.Equal(t, "in_progress", pattern.Column)
	assert.Equal(t, "u1", pattern.AssigneeID)
	assert.InDelta(t, 0.75, pattern.Confidence, 1e-9)
}
