package usecase

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"
	"triagedesk-backend/internal/assignment/repository"
	emaildomain "triagedesk-backend/internal/email/domain"
	"triagedesk-backend/pkg/ai"
)

// DefaultColumn receives email no rule or pattern routed anywhere else.
const DefaultColumn = "pending"

// Engine resolves where a classified email goes: explicit rules first, then
// learned patterns, then the client's assigned staff member, then defaults.
type Engine struct {
	rules   repository.RuleRepository
	clients repository.ClientRepository
	miner   *PatternMiner
}

func NewEngine(rules repository.RuleRepository, clients repository.ClientRepository, actions UserActionSource) *Engine {
	return &Engine{
		rules:   rules,
		clients: clients,
		miner:   NewPatternMiner(actions),
	}
}

// DetermineAssignment folds all matching rules into one decision. Rules are
// evaluated in descending priority order and every match applies its actions,
// so the last matching rule by evaluation order wins each field. That is the
// documented resolution policy, kept as is.
func (e *Engine) DetermineAssignment(email *emaildomain.EmailMessage, cls *emaildomain.Classification) *assignmentdomain.AssignmentResult {
	client, err := e.clients.FindBySender(strings.ToLower(email.From), email.Domain())
	if err != nil {
		log.Printf("[Assignment] Client lookup failed for %s: %v", email.From, err)
		client = nil
	}
	if client != nil {
		applyClientHistoryBonus(cls)
	}

	result := &assignmentdomain.AssignmentResult{
		AssignedColumn:   DefaultColumn,
		Priority:         string(ai.MapPriority(cls.PriorityScore)),
		ShouldCreateTask: false,
		AssignmentReason: "default",
	}

	rules, err := e.rules.ListActive()
	if err != nil {
		log.Printf("[Assignment] Failed to load rules: %v", err)
		rules = nil
	}

	for i := range rules {
		rule := &rules[i]
		matched, err := evaluateRule(rule, email, cls, client != nil)
		if err != nil {
			// Malformed condition: treat as non-match.
			log.Printf("[Assignment] Rule %q skipped: %v", rule.Name, err)
			continue
		}
		if !matched {
			continue
		}

		applyRule(result, rule)
		result.MatchedRules = append(result.MatchedRules, rule.ID)
		result.AssignmentReason = "rule: " + rule.Name

		go func(id string) {
			if err := e.rules.RecordMatch(id); err != nil {
				log.Printf("[Assignment] Failed to record match for rule %s: %v", id, err)
			}
		}(rule.ID)
	}

	if len(result.MatchedRules) == 0 {
		if pattern, err := e.miner.Lookup(strings.ToLower(email.From), email.Domain(), cls.Category); err != nil {
			log.Printf("[Assignment] Pattern lookup failed: %v", err)
		} else if pattern != nil {
			if pattern.Column != "" {
				result.AssignedColumn = pattern.Column
			}
			if pattern.AssigneeID != "" {
				result.AssignedUserID = pattern.AssigneeID
			}
			result.AssignmentReason = fmt.Sprintf("learned pattern (%s tier, %.0f%% confidence)", pattern.Tier, pattern.Confidence*100)
		}
	}

	if result.AssignedUserID == "" && client != nil && client.AssignedStaffID != "" {
		result.AssignedUserID = client.AssignedStaffID
		result.AssignmentReason = "client default: " + client.Name
	}

	result.Tags = mergeTags(result.Tags, derivedTags(email, cls))

	return result
}

// applyClientHistoryBonus bumps the priority score for mail from a known
// client and rebuckets it. The model never scores this factor itself, so a
// classification without factor breakdown keeps its score as the base.
func applyClientHistoryBonus(cls *emaildomain.Classification) {
	if cls == nil {
		return
	}
	f := cls.PriorityFactors
	if f == nil {
		f = &emaildomain.PriorityFactors{Base: cls.PriorityScore}
		cls.PriorityFactors = f
	}
	if f.ClientHistory != 0 {
		return
	}
	f.ClientHistory = ai.PriorityClientHistory
	cls.PriorityScore = ai.ComputePriorityScore(f)
	cls.Priority = ai.MapPriority(cls.PriorityScore)
}

// applyRule overwrites each decision field the rule sets.
func applyRule(result *assignmentdomain.AssignmentResult, rule *assignmentdomain.AssignmentRule) {
	if rule.AssignUserID != "" {
		result.AssignedUserID = rule.AssignUserID
	}
	if rule.AssignColumn != "" {
		result.AssignedColumn = rule.AssignColumn
	}
	if rule.SetPriority != "" {
		result.Priority = rule.SetPriority
	}
	if len(rule.AddTags) > 0 {
		result.Tags = mergeTags(result.Tags, rule.AddTags)
	}
	if rule.AutoCreateTask {
		result.ShouldCreateTask = true
	}
}

// evaluateRule combines condition results per the rule's operator. A rule
// with zero conditions never matches.
func evaluateRule(rule *assignmentdomain.AssignmentRule, email *emaildomain.EmailMessage, cls *emaildomain.Classification, clientMatched bool) (bool, error) {
	if len(rule.Conditions) == 0 {
		return false, nil
	}

	requireAll := rule.ConditionOperator != assignmentdomain.CombineOr

	for _, cond := range rule.Conditions {
		ok, err := evaluateCondition(&cond, email, cls, clientMatched)
		if err != nil {
			return false, err
		}
		if requireAll && !ok {
			return false, nil
		}
		if !requireAll && ok {
			return true, nil
		}
	}

	return requireAll, nil
}

func evaluateCondition(cond *assignmentdomain.RuleCondition, email *emaildomain.EmailMessage, cls *emaildomain.Classification, clientMatched bool) (bool, error) {
	switch cond.Field {
	case assignmentdomain.FieldSenderEmail:
		return compareString(email.From, cond)
	case assignmentdomain.FieldSenderDomain:
		return compareString(email.Domain(), cond)
	case assignmentdomain.FieldSubject:
		return compareString(email.Subject, cond)
	case assignmentdomain.FieldCategory:
		return compareString(string(cls.Category), cond)
	case assignmentdomain.FieldKeyword:
		return compareString(email.Subject+" "+email.Body, cond)
	case assignmentdomain.FieldPriorityScore:
		return compareNumber(float64(cls.PriorityScore), cond)
	case assignmentdomain.FieldHasAttachment:
		return compareBool(email.HasAttachments, cond)
	case assignmentdomain.FieldClientMatched:
		return compareBool(clientMatched, cond)
	default:
		return false, fmt.Errorf("unknown condition field %q", cond.Field)
	}
}

func compareString(actual string, cond *assignmentdomain.RuleCondition) (bool, error) {
	expected := cond.Value
	if !cond.CaseSensitive {
		actual = strings.ToLower(actual)
		expected = strings.ToLower(expected)
	}

	switch cond.Operator {
	case assignmentdomain.OpEquals:
		return actual == expected, nil
	case assignmentdomain.OpContains:
		return strings.Contains(actual, expected), nil
	case assignmentdomain.OpStartsWith:
		return strings.HasPrefix(actual, expected), nil
	case assignmentdomain.OpEndsWith:
		return strings.HasSuffix(actual, expected), nil
	default:
		return false, fmt.Errorf("operator %q not valid for string field %q", cond.Operator, cond.Field)
	}
}

func compareNumber(actual float64, cond *assignmentdomain.RuleCondition) (bool, error) {
	expected, err := strconv.ParseFloat(strings.TrimSpace(cond.Value), 64)
	if err != nil {
		return false, fmt.Errorf("non-numeric value %q for field %q", cond.Value, cond.Field)
	}

	switch cond.Operator {
	case assignmentdomain.OpEquals:
		return actual == expected, nil
	case assignmentdomain.OpGreaterThan:
		return actual > expected, nil
	case assignmentdomain.OpLessThan:
		return actual < expected, nil
	default:
		return false, fmt.Errorf("operator %q not valid for numeric field %q", cond.Operator, cond.Field)
	}
}

func compareBool(actual bool, cond *assignmentdomain.RuleCondition) (bool, error) {
	switch cond.Operator {
	case assignmentdomain.OpIsTrue:
		return actual, nil
	case assignmentdomain.OpIsFalse:
		return !actual, nil
	default:
		return false, fmt.Errorf("operator %q not valid for boolean field %q", cond.Operator, cond.Field)
	}
}

// derivedTags come from the classification itself, independent of any rule.
func derivedTags(email *emaildomain.EmailMessage, cls *emaildomain.Classification) []string {
	var tags []string
	tags = append(tags, string(cls.Category))
	if cls.ResponseUrgency == emaildomain.UrgencyImmediate || cls.ResponseUrgency == emaildomain.UrgencyToday {
		tags = append(tags, "time-sensitive")
	}
	if email.HasAttachments {
		tags = append(tags, "has-attachments")
	}
	return tags
}

// mergeTags deduplicates while keeping first-seen order.
func mergeTags(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing)+len(extra))
	var merged []string
	for _, t := range append(existing, extra...) {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		merged = append(merged, t)
	}
	return merged
}

// RankedRules returns all rules ordered for display: active rules first by
// descending priority, then inactive ones.
func (e *Engine) RankedRules() ([]assignmentdomain.AssignmentRule, error) {
	rules, err := e.rules.ListAll()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].IsActive != rules[j].IsActive {
			return rules[i].IsActive
		}
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}

// RecordOverride notes that a user rerouted an email a rule had placed.
func (e *Engine) RecordOverride(ruleID string) {
	go func() {
		if err := e.rules.RecordOverride(ruleID); err != nil {
			log.Printf("[Assignment] Failed to record override for rule %s: %v", ruleID, err)
		}
	}()
}
