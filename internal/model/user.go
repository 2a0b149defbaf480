package model

import "time"

const (
	RoleOwner = "owner"
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// SystemUserID is the reserved account that inherits sets of deleted users.
// It never exists as a row in users.
const SystemUserID int64 = 0

type User struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Salt1          string    `json:"-"`
	Salt2          string    `json:"-"`
	PasswordScheme string    `json:"-"`
	Role           string    `json:"role"`
	Active         *string   `json:"active"`
	LoginCount     int64     `json:"login_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Status reports the effective active status; an unset status counts as active.
func (u *User) Status() string {
	if u.Active == nil || *u.Active == "" {
		return StatusActive
	}
	return *u.Active
}

func (u *User) Suspended() bool {
	return u.Status() == StatusSuspended
}

func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleUser:
		return true
	}
	return false
}

func ValidStatus(status string) bool {
	return status == StatusActive || status == StatusSuspended
}
