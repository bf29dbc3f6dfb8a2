package usecase

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"
	emaildomain "triagedesk-backend/internal/email/domain"
)

type fakeRuleRepo struct {
	mu      sync.Mutex
	rules   []assignmentdomain.AssignmentRule
	matches map[string]int
}

func (f *fakeRuleRepo) Create(*assignmentdomain.AssignmentRule) error { return nil }
func (f *fakeRuleRepo) FindByID(string) (*assignmentdomain.AssignmentRule, error) {
	return nil, nil
}
func (f *fakeRuleRepo) ListActive() ([]assignmentdomain.AssignmentRule, error) {
	return f.rules, nil
}
func (f *fakeRuleRepo) ListAll() ([]assignmentdomain.AssignmentRule, error) { return f.rules, nil }
func (f *fakeRuleRepo) Update(*assignmentdomain.AssignmentRule) error       { return nil }
func (f *fakeRuleRepo) Deactivate(string) error                             { return nil }
func (f *fakeRuleRepo) RecordMatch(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.matches == nil {
		f.matches = make(map[string]int)
	}
	f.matches[id]++
	return nil
}
func (f *fakeRuleRepo) RecordOverride(string) error { return nil }

type fakeClientRepo struct {
	client *assignmentdomain.Client
}

func (f *fakeClientRepo) FindBySender(string, string) (*assignmentdomain.Client, error) {
	return f.client, nil
}

type fakeActionSource struct {
	bySender   []emaildomain.UserAction
	byDomain   []emaildomain.UserAction
	byCategory []emaildomain.UserAction
}

func (f *fakeActionSource) ListBySender(string) ([]emaildomain.UserAction, error) {
	return f.bySender, nil
}
func (f *fakeActionSource) ListByDomain(string) ([]emaildomain.UserAction, error) {
	return f.byDomain, nil
}
func (f *fakeActionSource) ListByCategory(emaildomain.Category) ([]emaildomain.UserAction, error) {
	return f.byCategory, nil
}

func newTestEngine(rules []assignmentdomain.AssignmentRule, client *assignmentdomain.Client, actions *fakeActionSource) *Engine {
	if actions == nil {
		actions = &fakeActionSource{}
	}
	return NewEngine(&fakeRuleRepo{rules: rules}, &fakeClientRepo{client: client}, actions)
}

func testEmail() *emaildomain.EmailMessage {
	return &emaildomain.EmailMessage{
		ID:      "e1",
		From:    "jane@acmecorp.com",
		Subject: "Invoice for Q1 bookkeeping",
		Body:    "Please find the invoice attached.",
	}
}

func testClassification() *emaildomain.Classification {
	return &emaildomain.Classification{
		Category:      emaildomain.CategoryPayment,
		PriorityScore: 65,
	}
}

func TestDetermineAssignment_Default(t *testing.T) {
	e := newTestEngine(nil, nil, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	assert.Equal(t, DefaultColumn, result.AssignedColumn)
	assert.Equal(t, "high", result.Priority) // score 65
	assert.Empty(t, result.AssignedUserID)
	assert.False(t, result.ShouldCreateTask)
	assert.Empty(t, result.MatchedRules)
	assert.Equal(t, "default", result.AssignmentReason)
	assert.Contains(t, result.Tags, "payment")
}

func TestDetermineAssignment_SingleRuleMatch(t *testing.T) {
	rule := assignmentdomain.AssignmentRule{
		ID:       "r1",
		Name:     "payments to billing",
		Priority: 10,
		IsActive: true,
		Conditions: []assignmentdomain.RuleCondition{
			{Field: assignmentdomain.FieldCategory, Operator: assignmentdomain.OpEquals, Value: "payment"},
		},
		ConditionOperator: assignmentdomain.CombineAnd,
		AssignUserID:      "u-billing",
		AssignColumn:      "in_progress",
		SetPriority:       "urgent",
		AddTags:           []string{"billing"},
		AutoCreateTask:    true,
	}
	e := newTestEngine([]assignmentdomain.AssignmentRule{rule}, nil, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	assert.Equal(t, "u-billing", result.AssignedUserID)
	assert.Equal(t, "in_progress", result.AssignedColumn)
	assert.Equal(t, "urgent", result.Priority)
	assert.True(t, result.ShouldCreateTask)
	assert.Equal(t, []string{"r1"}, result.MatchedRules)
	assert.Contains(t, result.Tags, "billing")
}

func TestDetermineAssignment_LastMatchingRuleWins(t *testing.T) {
	// Both rules match; the second one, evaluated later, overwrites the
	// column even though its priority is lower.
	rules := []assignmentdomain.AssignmentRule{
		{
			ID: "high", Name: "high", Priority: 100, IsActive: true,
			Conditions: []assignmentdomain.RuleCondition{
				{Field: assignmentdomain.FieldCategory, Operator: assignmentdomain.OpEquals, Value: "payment"},
			},
			AssignColumn: "in_progress", AssignUserID: "u1",
		},
		{
			ID: "low", Name: "low", Priority: 1, IsActive: true,
			Conditions: []assignmentdomain.RuleCondition{
				{Field: assignmentdomain.FieldSubject, Operator: assignmentdomain.OpContains, Value: "invoice"},
			},
			AssignColumn: "waiting",
		},
	}
	e := newTestEngine(rules, nil, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	assert.Equal(t, "waiting", result.AssignedColumn)
	// The first rule's assignee survives because the second rule does not
	// set one.
	assert.Equal(t, "u1", result.AssignedUserID)
	assert.Equal(t, []string{"high", "low"}, result.MatchedRules)
}

func TestEvaluateRule_AndRequiresAll(t *testing.T) {
	rule := &assignmentdomain.AssignmentRule{
		ConditionOperator: assignmentdomain.CombineAnd,
		Conditions: []assignmentdomain.RuleCondition{
			{Field: assignmentdomain.FieldCategory, Operator: assignmentdomain.OpEquals, Value: "payment"},
			{Field: assignmentdomain.FieldSubject, Operator: assignmentdomain.OpContains, Value: "refund"},
		},
	}

	matched, err := evaluateRule(rule, testEmail(), testClassification(), false)
	require.NoError(t, err)
	assert.False(t, matched)
}

func TestEvaluateRule_OrRequiresOne(t *testing.T) {
	rule := &assignmentdomain.AssignmentRule{
		ConditionOperator: assignmentdomain.CombineOr,
		Conditions: []assignmentdomain.RuleCondition{
			{Field: assignmentdomain.FieldCategory, Operator: assignmentdomain.OpEquals, Value: "question"},
			{Field: assignmentdomain.FieldSubject, Operator: assignmentdomain.OpContains, Value: "invoice"},
		},
	}

	matched, err := evaluateRule(rule, testEmail(), testClassification(), false)
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestEvaluateRule_ZeroConditionsNeverMatches(t *testing.T) {
	for _, op := range []string{assignmentdomain.CombineAnd, assignmentdomain.CombineOr} {
		rule := &assignmentdomain.AssignmentRule{ConditionOperator: op}
		matched, err := evaluateRule(rule, testEmail(), testClassification(), false)
		require.NoError(t, err)
		assert.Falsef(t, matched, "operator %s", op)
	}
}

func TestEvaluateCondition_Operators(t *testing.T) {
	email := testEmail()
	cls := testClassification()

	cases := []struct {
		name string
		cond assignmentdomain.RuleCondition
		want bool
	}{
		{"domain equals", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldSenderDomain, Operator: assignmentdomain.OpEquals, Value: "acmecorp.com"}, true},
		{"sender starts_with", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldSenderEmail, Operator: assignmentdomain.OpStartsWith, Value: "jane@"}, true},
		{"sender ends_with", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldSenderEmail, Operator: assignmentdomain.OpEndsWith, Value: "@acmecorp.com"}, true},
		{"subject contains case-insensitive", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldSubject, Operator: assignmentdomain.OpContains, Value: "INVOICE"}, true},
		{"subject contains case-sensitive", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldSubject, Operator: assignmentdomain.OpContains, Value: "INVOICE", CaseSensitive: true}, false},
		{"keyword containment", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldKeyword, Operator: assignmentdomain.OpContains, Value: "attached"}, true},
		{"score greater_than", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldPriorityScore, Operator: assignmentdomain.OpGreaterThan, Value: "60"}, true},
		{"score less_than", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldPriorityScore, Operator: assignmentdomain.OpLessThan, Value: "60"}, false},
		{"attachments is_false", assignmentdomain.RuleCondition{Field: assignmentdomain.FieldHasAttachment, Operator: assignmentdomain.OpIsFalse}, true},
	}

	for _, tc := range cases {
		got, err := evaluateCondition(&tc.cond, email, cls, false)
		require.NoErrorf(t, err, tc.name)
		assert.Equalf(t, tc.want, got, tc.name)
	}
}

func TestEvaluateCondition_MalformedSkipsRule(t *testing.T) {
	e := newTestEngine([]assignmentdomain.AssignmentRule{
		{
			ID: "bad", Name: "bad", IsActive: true,
			Conditions: []assignmentdomain.RuleCondition{
				{Field: assignmentdomain.FieldPriorityScore, Operator: assignmentdomain.OpGreaterThan, Value: "not-a-number"},
			},
			AssignColumn: "waiting",
		},
	}, nil, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	// The malformed rule is treated as a non-match.
	assert.Equal(t, DefaultColumn, result.AssignedColumn)
	assert.Empty(t, result.MatchedRules)
}

func TestDetermineAssignment_ClientStaffDefault(t *testing.T) {
	client := &assignmentdomain.Client{ID: "c1", Name: "Acme Corp", AssignedStaffID: "staff-7"}
	e := newTestEngine(nil, client, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	assert.Equal(t, "staff-7", result.AssignedUserID)
	assert.Equal(t, "client default: Acme Corp", result.AssignmentReason)
	// Column stays at the default; client matching only picks the assignee.
	assert.Equal(t, DefaultColumn, result.AssignedColumn)
}

func TestDetermineAssignment_ClientHistoryBoostsPriority(t *testing.T) {
	client := &assignmentdomain.Client{ID: "c1", Name: "Acme Corp"}

	// No factor breakdown: the current score becomes the base.
	e := newTestEngine(nil, client, nil)
	cls := testClassification() // score 65
	result := e.DetermineAssignment(testEmail(), cls)

	assert.Equal(t, 75, cls.PriorityScore)
	assert.Equal(t, emaildomain.PriorityHigh, cls.Priority)
	assert.Equal(t, "high", result.Priority)
	require.NotNil(t, cls.PriorityFactors)
	assert.Equal(t, 10, cls.PriorityFactors.ClientHistory)

	// With a factor breakdown the bonus can push the bucket up.
	cls = testClassification()
	cls.PriorityFactors = &emaildomain.PriorityFactors{Base: 50, UrgentKeywords: 20}
	cls.PriorityScore = 70
	result = e.DetermineAssignment(testEmail(), cls)

	assert.Equal(t, 80, cls.PriorityScore)
	assert.Equal(t, "urgent", result.Priority)

	// Unknown sender keeps the model's score untouched.
	cls = testClassification()
	newTestEngine(nil, nil, nil).DetermineAssignment(testEmail(), cls)
	assert.Equal(t, 65, cls.PriorityScore)
	assert.Nil(t, cls.PriorityFactors)
}

func TestDetermineAssignment_RuleBeatsClientDefault(t *testing.T) {
	client := &assignmentdomain.Client{ID: "c1", Name: "Acme Corp", AssignedStaffID: "staff-7"}
	rule := assignmentdomain.AssignmentRule{
		ID: "r1", Name: "payments", IsActive: true,
		Conditions: []assignmentdomain.RuleCondition{
			{Field: assignmentdomain.FieldCategory, Operator: assignmentdomain.OpEquals, Value: "payment"},
		},
		AssignUserID: "u-billing",
	}
	e := newTestEngine([]assignmentdomain.AssignmentRule{rule}, client, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	assert.Equal(t, "u-billing", result.AssignedUserID)
}

func TestDetermineAssignment_TagsDeduplicated(t *testing.T) {
	rule := assignmentdomain.AssignmentRule{
		ID: "r1", Name: "tagger", IsActive: true,
		Conditions: []assignmentdomain.RuleCondition{
			{Field: assignmentdomain.FieldCategory, Operator: assignmentdomain.OpEquals, Value: "payment"},
		},
		AddTags: []string{"payment", "billing", "billing"},
	}
	e := newTestEngine([]assignmentdomain.AssignmentRule{rule}, nil, nil)

	result := e.DetermineAssignment(testEmail(), testClassification())

	seen := make(map[string]int)
	for _, tag := range result.Tags {
		seen[tag]++
	}
	for tag, n := range seen {
		assert.Equalf(t, 1, n, "tag %q duplicated", tag)
	}
	assert.Contains(t, result.Tags, "billing")
	assert.Contains(t, result.Tags, "payment")
}

func TestDetermineAssignment_ClientMatchedCondition(t *testing.T) {
	rule := assignmentdomain.AssignmentRule{
		ID: "r1", Name: "known clients", IsActive: true,
		Conditions: []assignmentdomain.RuleCondition{
			{Field: assignmentdomain.FieldClientMatched, Operator: assignmentdomain.OpIsTrue},
		},
		AssignColumn: "in_progress",
	}

	withClient := newTestEngine([]assignmentdomain.AssignmentRule{rule}, &assignmentdomain.Client{ID: "c1", Name: "Acme"}, nil)
	result := withClient.DetermineAssignment(testEmail(), testClassification())
	assert.Equal(t, "in_progress", result.AssignedColumn)

	withoutClient := newTestEngine([]assignmentdomain.AssignmentRule{rule}, nil, nil)
	result = withoutClient.DetermineAssignment(testEmail(), testClassification())
	assert.Equal(t, DefaultColumn, result.AssignedColumn)
}
