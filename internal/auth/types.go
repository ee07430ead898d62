package auth

import "time"

// Account is an administrative principal of the shop backend.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountUpdate is a partial update applied by an AccountStore.
// Nil fields are left untouched.
type AccountUpdate struct {
	Username     *string
	PasswordHash *string
	Role         *Role
}

// Empty reports whether the update changes nothing.
func (u AccountUpdate) Empty() bool {
	return u.Username == nil && u.PasswordHash == nil && u.Role == nil
}

// Identity is what a verified session token proves about its bearer.
type Identity struct {
	AccountID string
	Role      Role
}
