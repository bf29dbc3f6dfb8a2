package repository

import (
	"errors"
	"time"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RuleRepository defines storage operations for assignment rules.
type RuleRepository interface {
	Create(rule *assignmentdomain.AssignmentRule) error
	FindByID(id string) (*assignmentdomain.AssignmentRule, error)
	ListActive() ([]assignmentdomain.AssignmentRule, error)
	ListAll() ([]assignmentdomain.AssignmentRule, error)
	Update(rule *assignmentdomain.AssignmentRule) error
	Deactivate(id string) error
	RecordMatch(id string) error
	RecordOverride(id string) error
}

type ruleRepository struct {
	db *gorm.DB
}

// NewRuleRepository creates a new instance of ruleRepository
func NewRuleRepository(db *gorm.DB) RuleRepository {
	return &ruleRepository{
		db: db,
	}
}

func (r *ruleRepository) Create(rule *assignmentdomain.AssignmentRule) error {
	rule.ID = uuid.New().String()
	if rule.ConditionOperator == "" {
		rule.ConditionOperator = assignmentdomain.CombineAnd
	}
	rule.IsActive = true
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	return r.db.Create(rule).Error
}

func (r *ruleRepository) FindByID(id string) (*assignmentdomain.AssignmentRule, error) {
	var rule assignmentdomain.AssignmentRule
	err := r.db.Where("id = ?", id).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// ListActive returns active rules ordered by descending priority, the order
// the engine evaluates them in.
func (r *ruleRepository) ListActive() ([]assignmentdomain.AssignmentRule, error) {
	var rules []assignmentdomain.AssignmentRule
	err := r.db.Where("is_active = ?", true).Order("priority desc").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) ListAll() ([]assignmentdomain.AssignmentRule, error) {
	var rules []assignmentdomain.AssignmentRule
	err := r.db.Order("priority desc").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) Update(rule *assignmentdomain.AssignmentRule) error {
	rule.UpdatedAt = time.Now()
	return r.db.Save(rule).Error
}

// Deactivate soft-disables a rule, preserving its counters.
func (r *ruleRepository) Deactivate(id string) error {
	return r.db.Model(&assignmentdomain.AssignmentRule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

// RecordMatch bumps the match counter. Last-write-wins; callers fire and
// forget.
func (r *ruleRepository) RecordMatch(id string) error {
	return r.db.Model(&assignmentdomain.AssignmentRule{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"times_matched":   gorm.Expr("times_matched + 1"),
			"last_matched_at": time.Now(),
		}).Error
}

func (r *ruleRepository) RecordOverride(id string) error {
	return r.db.Model(&assignmentdomain.AssignmentRule{}).
		Where("id = ?", id).
		Update("times_overridden", gorm.Expr("times_overridden + 1")).Error
}
