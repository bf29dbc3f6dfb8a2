package repository

import (
	"errors"
	"time"

	emaildomain "triagedesk-backend/internal/email/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountRepository defines storage operations for connected mail accounts.
type AccountRepository interface {
	Create(account *emaildomain.EmailAccount) error
	FindByID(id string) (*emaildomain.EmailAccount, error)
	FindByEmail(email string) (*emaildomain.EmailAccount, error)
	ListByUser(userID string) ([]emaildomain.EmailAccount, error)
	ListAll() ([]emaildomain.EmailAccount, error)
	Update(account *emaildomain.EmailAccount) error
	SetStatus(id string, status emaildomain.AccountStatus, errorMessage string) error
	MarkSynced(id string) error
	Delete(id string) error
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *emaildomain.EmailAccount) error {
	account.ID = uuid.New().String()
	if account.Status == "" {
		account.Status = emaildomain.AccountConnected
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return r.db.Create(account).Error
}

func (r *accountRepository) FindByID(id string) (*emaildomain.EmailAccount, error) {
	var account emaildomain.EmailAccount
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(email string) (*emaildomain.EmailAccount, error) {
	var account emaildomain.EmailAccount
	err := r.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) ListByUser(userID string) ([]emaildomain.EmailAccount, error) {
	var accounts []emaildomain.EmailAccount
	err := r.db.Where("user_id = ?", userID).Order("created_at asc").Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) ListAll() ([]emaildomain.EmailAccount, error) {
	var accounts []emaildomain.EmailAccount
	err := r.db.Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *accountRepository) Update(account *emaildomain.EmailAccount) error {
	account.UpdatedAt = time.Now()
	return r.db.Save(account).Error
}

// SetStatus flags an account without touching its tokens or sync state.
func (r *accountRepository) SetStatus(id string, status emaildomain.AccountStatus, errorMessage string) error {
	return r.db.Model(&emaildomain.EmailAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        status,
			"error_message": errorMessage,
			"updated_at":    time.Now(),
		}).Error
}

func (r *accountRepository) MarkSynced(id string) error {
	now := time.Now()
	return r.db.Model(&emaildomain.EmailAccount{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         emaildomain.AccountConnected,
			"error_message":  "",
			"last_synced_at": now,
			"updated_at":     now,
		}).Error
}

func (r *accountRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&emaildomain.EmailAccount{}).Error
}
