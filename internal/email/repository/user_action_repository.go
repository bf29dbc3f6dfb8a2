package repository

import (
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrainingSets are the whitelisted/blacklisted sender and domain sets mined
// from the user-action log at store load time.
type TrainingSets struct {
	WhitelistedSenders map[string]bool
	BlacklistedSenders map[string]bool
	WhitelistedDomains map[string]bool
	BlacklistedDomains map[string]bool
}

// UserActionRepository is the training corpus: every user correction or
// confirmation is appended here and mined for learned patterns.
type UserActionRepository interface {
	Append(action *emaildomain.UserAction) error
	ListByUser(userID string, limit int) ([]emaildomain.UserAction, error)
	ListBySender(sender string) ([]emaildomain.UserAction, error)
	ListByDomain(domain string) ([]emaildomain.UserAction, error)
	ListByCategory(category emaildomain.Category) ([]emaildomain.UserAction, error)
	MineTrainingSets() (*TrainingSets, error)
}

type userActionRepository struct {
	db *gorm.DB
}

// NewUserActionRepository creates a new instance of userActionRepository
func NewUserActionRepository(db *gorm.DB) UserActionRepository {
	return &userActionRepository{
		db: db,
	}
}

func (r *userActionRepository) Append(action *emaildomain.UserAction) error {
	action.ID = uuid.New().String()
	action.CreatedAt = time.Now()
	return r.db.Create(action).Error
}

func (r *userActionRepository) ListByUser(userID string, limit int) ([]emaildomain.UserAction, error) {
	var actions []emaildomain.UserAction
	q := r.db.Where("user_id = ?", userID).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *userActionRepository) ListBySender(sender string) ([]emaildomain.UserAction, error) {
	var actions []emaildomain.UserAction
	err := r.db.Where("sender = ?", sender).Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *userActionRepository) ListByDomain(domain string) ([]emaildomain.UserAction, error) {
	var actions []emaildomain.UserAction
	err := r.db.Where("sender_domain = ?", domain).Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

func (r *userActionRepository) ListByCategory(category emaildomain.Category) ([]emaildomain.UserAction, error) {
	var actions []emaildomain.UserAction
	err := r.db.Where("category = ?", category).Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// MineTrainingSets derives the allow/deny sets from relevance corrections: a
// sender or domain the user consistently marked relevant is whitelisted,
// consistently rejected is blacklisted. Majority vote per key.
func (r *userActionRepository) MineTrainingSets() (*TrainingSets, error) {
	var actions []emaildomain.UserAction
	err := r.db.Where("user_relevance IN ?", []emaildomain.RelevanceState{
		emaildomain.RelevanceRelevant, emaildomain.RelevanceRejected,
	}).Find(&actions).Error
	if err != nil {
		return nil, err
	}

	senderVotes := make(map[string]int)
	domainVotes := make(map[string]int)
	for _, a := range actions {
		delta := 1
		if a.UserRelevance == emaildomain.RelevanceRejected {
			delta = -1
		}
		if a.Sender != "" {
			senderVotes[a.Sender] += delta
		}
		if a.SenderDomain != "" {
			domainVotes[a.SenderDomain] += delta
		}
	}

	sets := &TrainingSets{
		WhitelistedSenders: make(map[string]bool),
		BlacklistedSenders: make(map[string]bool),
		WhitelistedDomains: make(map[string]bool),
		BlacklistedDomains: make(map[string]bool),
	}
	for sender, votes := range senderVotes {
		if votes > 0 {
			sets.WhitelistedSenders[sender] = true
		} else if votes < 0 {
			sets.BlacklistedSenders[sender] = true
		}
	}
	for domain, votes := range domainVotes {
		if votes > 0 {
			sets.WhitelistedDomains[domain] = true
		} else if votes < 0 {
			sets.BlacklistedDomains[domain] = true
		}
	}

	return sets, nil
}
