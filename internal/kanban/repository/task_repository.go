package repository

import (
	"errors"
	"time"

	kanbandomain "triagedesk-backend/internal/kanban/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskBackend is the task persistence port: the board PATCHes statuses
// through it and the triage store POSTs created tasks into it.
type TaskBackend interface {
	Create(task *kanbandomain.PersistedTask) error
	FindByID(id string) (*kanbandomain.PersistedTask, error)
	FindByEmailID(emailID string) (*kanbandomain.PersistedTask, error)
	UpdateStatus(id, status string) error
	Update(task *kanbandomain.PersistedTask) error
	Delete(id string) error
	DeleteByEmailID(emailID string) error

	FindPendingReminders(now time.Time) ([]*kanbandomain.PersistedTask, error)
	MarkReminderSent(id string) error
}

type gormTaskBackend struct {
	db *gorm.DB
}

// NewTaskBackend creates a GORM-backed TaskBackend
func NewTaskBackend(db *gorm.DB) TaskBackend {
	return &gormTaskBackend{db: db}
}

func (r *gormTaskBackend) Create(task *kanbandomain.PersistedTask) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.CreatedAt = time.Now()
	task.UpdatedAt = time.Now()
	return r.db.Create(task).Error
}

func (r *gormTaskBackend) FindByID(id string) (*kanbandomain.PersistedTask, error) {
	var task kanbandomain.PersistedTask
	err := r.db.Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskBackend) FindByEmailID(emailID string) (*kanbandomain.PersistedTask, error) {
	var task kanbandomain.PersistedTask
	err := r.db.Where("email_id = ?", emailID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (r *gormTaskBackend) UpdateStatus(id, status string) error {
	return r.db.Model(&kanbandomain.PersistedTask{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error
}

func (r *gormTaskBackend) Update(task *kanbandomain.PersistedTask) error {
	task.UpdatedAt = time.Now()
	return r.db.Save(task).Error
}

func (r *gormTaskBackend) Delete(id string) error {
	return r.db.Delete(&kanbandomain.PersistedTask{}, "id = ?", id).Error
}

func (r *gormTaskBackend) DeleteByEmailID(emailID string) error {
	return r.db.Delete(&kanbandomain.PersistedTask{}, "email_id = ?", emailID).Error
}

func (r *gormTaskBackend) FindPendingReminders(now time.Time) ([]*kanbandomain.PersistedTask, error) {
	var tasks []*kanbandomain.PersistedTask
	err := r.db.Where("reminder_at <= ? AND reminder_sent = ? AND status != ?",
		now, false, kanbandomain.StatusCompleted).Find(&tasks).Error
	return tasks, err
}

func (r *gormTaskBackend) MarkReminderSent(id string) error {
	return r.db.Model(&kanbandomain.PersistedTask{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"reminder_sent": true,
			"updated_at":    time.Now(),
		}).Error
}
