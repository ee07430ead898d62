// Package customer holds shop customer accounts: email registration,
// login and the long-lived tokens customers browse with.
package customer

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("customer: not found")
	ErrConflict     = errors.New("customer: email already registered")
	ErrInvalidInput = errors.New("customer: invalid input")
	ErrUnauthorized = errors.New("customer: invalid credentials")
)

// Customer is a shopper account. Email is stored lower-cased and is
// unique.
type Customer struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is returned by Register and Login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Customer  Customer  `json:"customer"`
}
