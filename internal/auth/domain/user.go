package domain

import "time"

// Roles gate rule and column administration.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is a firm staff member. Tasks are assigned to users; admins manage
// assignment rules and board columns.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // Never return password in JSON
	Name      string    `json:"name"`
	Role      string    `json:"role"`     // "admin" or "staff"
	Provider  string    `json:"provider"` // "email" or "google"
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
