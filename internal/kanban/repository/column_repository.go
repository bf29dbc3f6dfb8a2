package repository

import (
	"time"

	kanbandomain "triagedesk-backend/internal/kanban/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ColumnRepository persists the ordered board column configuration.
type ColumnRepository interface {
	ListByUser(userID string) ([]kanbandomain.KanbanColumn, error)
	ReplaceForUser(userID string, columns []kanbandomain.KanbanColumn) error
	EnsureDefaults(userID string) ([]kanbandomain.KanbanColumn, error)
}

type columnRepository struct {
	db *gorm.DB
}

// NewColumnRepository creates a new instance of columnRepository
func NewColumnRepository(db *gorm.DB) ColumnRepository {
	return &columnRepository{
		db: db,
	}
}

func (r *columnRepository) ListByUser(userID string) ([]kanbandomain.KanbanColumn, error) {
	var columns []kanbandomain.KanbanColumn
	err := r.db.Where("user_id = ?", userID).Order("sort_order asc").Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}

// ReplaceForUser swaps the whole column list in one transaction; the board
// always persists the full ordering, not deltas.
func (r *columnRepository) ReplaceForUser(userID string, columns []kanbandomain.KanbanColumn) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&kanbandomain.KanbanColumn{}).Error; err != nil {
			return err
		}
		now := time.Now()
		for i := range columns {
			columns[i].UserID = userID
			columns[i].SortOrder = i
			if columns[i].ID == "" {
				columns[i].ID = uuid.New().String()
			}
			if columns[i].CreatedAt.IsZero() {
				columns[i].CreatedAt = now
			}
			columns[i].UpdatedAt = now
		}
		if len(columns) == 0 {
			return nil
		}
		return tx.Create(&columns).Error
	})
}

// EnsureDefaults seeds the fixed default set for users with no columns yet.
func (r *columnRepository) EnsureDefaults(userID string) ([]kanbandomain.KanbanColumn, error) {
	columns, err := r.ListByUser(userID)
	if err != nil {
		return nil, err
	}
	if len(columns) > 0 {
		return columns, nil
	}

	defaults := kanbandomain.DefaultColumns(userID)
	if err := r.ReplaceForUser(userID, defaults); err != nil {
		return nil, err
	}
	return defaults, nil
}
