package customer

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"shopadmin.app/internal/auth"
)

// DefaultTokenTTL is the lifetime of customer tokens unless configured.
const DefaultTokenTTL = 30 * 24 * time.Hour

const maxNameLength = 128

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(accountID string, role auth.Role, ttl time.Duration) (string, time.Time, error)
}

// RegisterInput describes a new customer.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Service registers and logs in customers.
type Service struct {
	store        Store
	tokens       TokenIssuer
	tokenTTL     time.Duration
	passwordCost int
}

type Option func(*Service)

// WithTokenTTL sets the lifetime of issued customer tokens.
func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

// WithPasswordCost sets the bcrypt cost used when hashing passwords.
func WithPasswordCost(cost int) Option {
	return func(s *Service) { s.passwordCost = cost }
}

func NewService(store Store, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("customer store is required")
	}
	if tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	s := &Service{store: store, tokens: tokens, tokenTTL: DefaultTokenTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Register creates a customer and signs them in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Session{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(name) > maxNameLength {
		return Session{}, fmt.Errorf("%w: name is too long", ErrInvalidInput)
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Session{}, err
	}
	if in.Password == "" {
		return Session{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	hash, err := auth.HashPassword(in.Password, s.passwordCost)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidInput) {
			return Session{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Session{}, err
	}
	c, err := s.store.CreateCustomer(ctx, Customer{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return Session{}, err
	}
	return s.session(c)
}

// Login checks credentials by email. Unknown emails and wrong passwords
// both yield ErrUnauthorized.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	c, err := s.store.FindCustomerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if err := auth.VerifyPassword(c.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}
	return s.session(c)
}

// Get loads a customer by id.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Customer{}, fmt.Errorf("%w: customer id is required", ErrInvalidInput)
	}
	return s.store.GetCustomer(ctx, id)
}

func (s *Service) session(c Customer) (Session, error) {
	token, expiresAt, err := s.tokens.Issue(c.ID, auth.RoleCustomer, s.tokenTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: expiresAt, Customer: c}, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	return email, nil
}
