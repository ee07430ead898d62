package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const maxUsernameLength = 64

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Account   Account   `json:"admin"`
}

// RegisterInput describes a new administrative account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AccountChanges is a superadmin-driven update of another account.
type AccountChanges struct {
	Username *string
	Password *string
	Role     *string
}

// ProfileChanges is a self-service update. The role cannot be changed here.
type ProfileChanges struct {
	Username *string
	Password *string
}

// BootstrapInput describes the superadmin created at first start.
type BootstrapInput struct {
	Username string
	Email    string
	Password string
}

// Service implements account management and login on top of an
// AccountStore. Every mutation goes through ProtectedStore.
type Service struct {
	store        *ProtectedStore
	tokens       *TokenService
	sessionTTL   time.Duration
	passwordCost int
}

// ServiceOption configures Service behaviour.
type ServiceOption func(*Service)

// WithSessionTTL sets the lifetime of tokens issued at login.
func WithSessionTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing passwords.
func WithPasswordCost(cost int) ServiceOption {
	return func(s *Service) { s.passwordCost = cost }
}

// NewService constructs the account service.
func NewService(store AccountStore, tokens *TokenService, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("account store is required")
	}
	if tokens == nil {
		return nil, errors.New("token service is required")
	}
	s := &Service{
		store:  Protect(store),
		tokens: tokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Login checks credentials and issues a session token. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, fmt.Errorf("%w: username and password are required", ErrInvalidInput)
	}
	acc, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if err := VerifyPassword(acc.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}
	token, expiresAt, err := s.tokens.Issue(acc.ID, acc.Role, s.sessionTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Account: acc}, nil
}

// Register creates a new account. The role defaults to manager.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Account, error) {
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return Account{}, err
	}
	role := RoleManager
	if strings.TrimSpace(in.Role) != "" {
		if role, err = ParseRole(in.Role); err != nil {
			return Account{}, err
		}
	}
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email != "" && !strings.Contains(email, "@") {
		return Account{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	if in.Password == "" {
		return Account{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := HashPassword(in.Password, s.passwordCost)
	if err != nil {
		return Account{}, err
	}
	return s.store.CreateAccount(ctx, Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	return s.store.ListAccounts(ctx)
}

// Get loads a single account.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	return s.store.GetAccount(ctx, id)
}

// Update applies a superadmin-driven change to another account. Demoting
// the superadmin fails with ErrProtectedAccount.
func (s *Service) Update(ctx context.Context, id string, in AccountChanges) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	upd, err := s.buildUpdate(in.Username, in.Password)
	if err != nil {
		return Account{}, err
	}
	if in.Role != nil {
		role, err := ParseRole(*in.Role)
		if err != nil {
			return Account{}, err
		}
		upd.Role = &role
	}
	if upd.Empty() {
		return Account{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return s.store.UpdateAccount(ctx, id, upd)
}

// UpdateProfile applies a self-service change to the caller's own account.
func (s *Service) UpdateProfile(ctx context.Context, id string, in ProfileChanges) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	upd, err := s.buildUpdate(in.Username, in.Password)
	if err != nil {
		return Account{}, err
	}
	if upd.Empty() {
		return Account{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return s.store.UpdateAccount(ctx, id, upd)
}

// Delete removes an account and returns what was deleted. Deleting the
// superadmin fails with ErrProtectedAccount whoever the caller is.
func (s *Service) Delete(ctx context.Context, id string) (Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Account{}, fmt.Errorf("%w: account id is required", ErrInvalidInput)
	}
	acc, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if err := s.store.DeleteAccount(ctx, id); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// EnsureSuperadmin creates the bootstrap superadmin unless an account with
// the same username exists. It reports whether an account was created.
func (s *Service) EnsureSuperadmin(ctx context.Context, in BootstrapInput) (Account, bool, error) {
	username, err := normalizeUsername(in.Username)
	if err != nil {
		return Account{}, false, err
	}
	existing, err := s.store.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, ErrNotFound):
		return Account{}, false, err
	}
	acc, err := s.Register(ctx, RegisterInput{
		Username: username,
		Email:    in.Email,
		Password: in.Password,
		Role:     string(RoleSuperadmin),
	})
	if err != nil {
		return Account{}, false, err
	}
	return acc, true, nil
}

func (s *Service) buildUpdate(username, password *string) (AccountUpdate, error) {
	var upd AccountUpdate
	if username != nil {
		name, err := normalizeUsername(*username)
		if err != nil {
			return AccountUpdate{}, err
		}
		upd.Username = &name
	}
	if password != nil {
		if *password == "" {
			return AccountUpdate{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
		}
		hash, err := HashPassword(*password, s.passwordCost)
		if err != nil {
			return AccountUpdate{}, err
		}
		upd.PasswordHash = &hash
	}
	return upd, nil
}

func normalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if len(username) > maxUsernameLength {
		return "", fmt.Errorf("%w: username is too long", ErrInvalidInput)
	}
	return username, nil
}
