package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("auth: not found")
	ErrConflict         = errors.New("auth: already exists")
	ErrInvalidInput     = errors.New("auth: invalid input")
	ErrUnauthorized     = errors.New("auth: invalid credentials")
	ErrProtectedAccount = errors.New("auth: superadmin account is protected")
)

// ErrInvalidToken is the parent of every token verification failure.
var ErrInvalidToken = errors.New("auth: invalid token")

var (
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: expired", ErrInvalidToken)
	ErrMalformedToken   = fmt.Errorf("%w: malformed claims", ErrInvalidToken)
)
