package auth

import "context"

// AccountStore persists administrative accounts.
//
// Implementations must return ErrNotFound for unknown ids or usernames and
// ErrConflict when a username is already taken.
type AccountStore interface {
	CreateAccount(ctx context.Context, acc Account) (Account, error)
	GetAccount(ctx context.Context, id string) (Account, error)
	FindByUsername(ctx context.Context, username string) (Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
}
