package models

import "time"

// User represents an application user stored in the users table.
// The password hash and lockout counters never leave the server.
type User struct {
	ID                  string     `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	FullName            string     `db:"full_name" json:"full_name"`
	IsActive            bool       `db:"is_active" json:"-"`
	IsAdmin             bool       `db:"is_admin" json:"is_admin"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	LastLogin           *time.Time `db:"last_login" json:"-"`
	PasswordChangedAt   time.Time  `db:"password_changed_at" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"-"`
}

// IsLocked reports whether the account is locked at the given instant.
// A locked_until in the future locks the account regardless of the counter.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// ShouldLock reports whether the failed-attempt counter has reached the
// lockout threshold.
func ShouldLock(failedAttempts, threshold int) bool {
	return failedAttempts >= threshold
}

// Profile returns the public view of the user.
func (u *User) Profile() UserProfile {
	return UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

// UserProfile is the serialisable public projection of a user.
type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}
