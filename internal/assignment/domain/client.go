package domain

import "time"

// Client is a firm client record used for sender matching. When an email
// comes from a known client with an assigned staff member, that staff member
// is the assignment default of last resort.
type Client struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	Name            string    `json:"name" gorm:"not null"`
	Email           string    `json:"email" gorm:"index"`
	Domain          string    `json:"domain,omitempty" gorm:"index"`
	AssignedStaffID string    `json:"assigned_staff_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
