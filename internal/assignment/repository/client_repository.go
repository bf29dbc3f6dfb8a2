package repository

import (
	"errors"

	assignmentdomain "triagedesk-backend/internal/assignment/domain"

	"gorm.io/gorm"
)

// ClientRepository looks up firm clients for sender matching.
type ClientRepository interface {
	FindBySender(email, domain string) (*assignmentdomain.Client, error)
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{
		db: db,
	}
}

// FindBySender matches on exact email first, then on domain.
func (r *clientRepository) FindBySender(email, domain string) (*assignmentdomain.Client, error) {
	var client assignmentdomain.Client
	err := r.db.Where("email = ?", email).First(&client).Error
	if err == nil {
		return &client, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if domain == "" {
		return nil, nil
	}
	err = r.db.Where("domain = ?", domain).First(&client).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}
