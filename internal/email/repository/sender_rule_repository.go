package repository

import (
	"errors"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SenderRuleRepository defines storage operations for allow/deny sender
// overrides.
type SenderRuleRepository interface {
	Create(rule *emaildomain.SenderRule) error
	FindByID(id string) (*emaildomain.SenderRule, error)
	ListByUser(userID string) ([]emaildomain.SenderRule, error)
	ListAll() ([]emaildomain.SenderRule, error)
	Delete(id string) error
}

type senderRuleRepository struct {
	db *gorm.DB
}

// NewSenderRuleRepository creates a new instance of senderRuleRepository
func NewSenderRuleRepository(db *gorm.DB) SenderRuleRepository {
	return &senderRuleRepository{
		db: db,
	}
}

func (r *senderRuleRepository) Create(rule *emaildomain.SenderRule) error {
	rule.ID = uuid.New().String()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()
	return r.db.Create(rule).Error
}

func (r *senderRuleRepository) FindByID(id string) (*emaildomain.SenderRule, error) {
	var rule emaildomain.SenderRule
	err := r.db.Where("id = ?", id).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *senderRuleRepository) ListByUser(userID string) ([]emaildomain.SenderRule, error) {
	var rules []emaildomain.SenderRule
	err := r.db.Where("user_id = ?", userID).Order("created_at desc").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

// ListAll returns every override on the desk. The triage cache is shared
// across users, so startup loads all rules regardless of who created them.
func (r *senderRuleRepository) ListAll() ([]emaildomain.SenderRule, error) {
	var rules []emaildomain.SenderRule
	err := r.db.Order("created_at desc").Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *senderRuleRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&emaildomain.SenderRule{}).Error
}
