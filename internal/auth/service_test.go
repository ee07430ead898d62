package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type serviceFixture struct {
	svc    *Service
	store  *MemoryStore
	tokens *TokenService
	root   Account
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	store := NewMemoryStore()
	tokens, err := NewTokenService("svc-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	svc, err := NewService(store, tokens, WithPasswordCost(bcrypt.MinCost), WithSessionTTL(2*time.Hour))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	root, created, err := svc.EnsureSuperadmin(context.Background(), BootstrapInput{
		Username: "developer",
		Email:    "dev@example.com",
		Password: "root-password",
	})
	if err != nil || !created {
		t.Fatalf("EnsureSuperadmin: created=%v err=%v", created, err)
	}
	return serviceFixture{svc: svc, store: store, tokens: tokens, root: root}
}

func TestEnsureSuperadminIsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	again, created, err := f.svc.EnsureSuperadmin(context.Background(), BootstrapInput{
		Username: "developer",
		Password: "different",
	})
	if err != nil {
		t.Fatalf("EnsureSuperadmin: %v", err)
	}
	if created {
		t.Fatal("expected existing account to be reused")
	}
	if again.ID != f.root.ID || again.Role != RoleSuperadmin {
		t.Fatalf("unexpected account: %+v", again)
	}
}

func TestLoginIssuesTokenWithAccountRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	mgr, err := f.svc.Register(ctx, RegisterInput{Username: "maria", Password: "s3cret", Role: "manager"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	session, err := f.svc.Login(ctx, "maria", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, err := f.tokens.Verify(session.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.AccountID != mgr.ID || id.Role != RoleManager {
		t.Fatalf("unexpected identity: %+v", id)
	}
	if d := time.Until(session.ExpiresAt); d < time.Hour || d > 2*time.Hour {
		t.Fatalf("session ttl not applied: %v", d)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Login(ctx, "developer", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody", "root-password"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	acc, err := f.svc.Register(ctx, RegisterInput{Username: "  sam  ", Password: "pw"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acc.Username != "sam" || acc.Role != RoleManager {
		t.Fatalf("expected trimmed username and default role, got %+v", acc)
	}
	if acc.PasswordHash == "" || acc.PasswordHash == "pw" {
		t.Fatal("password must be stored hashed")
	}

	cases := []RegisterInput{
		{Username: "", Password: "pw"},
		{Username: "x", Password: ""},
		{Username: "y", Password: "pw", Role: "customer"},
		{Username: "z", Password: "pw", Email: "not-an-email"},
	}
	for _, in := range cases {
		if _, err := f.svc.Register(ctx, in); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("Register(%+v): expected ErrInvalidInput, got %v", in, err)
		}
	}
	if _, err := f.svc.Register(ctx, RegisterInput{Username: "SAM", Password: "pw"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}
}

func TestPasswordsAreNotTrimmed(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	acc, err := f.svc.Register(ctx, RegisterInput{Username: "bob", Password: " secret "})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.svc.Login(ctx, "bob", " secret "); err != nil {
		t.Fatalf("login with the registered password: %v", err)
	}
	if _, err := f.svc.Login(ctx, "bob", "secret"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for trimmed password, got %v", err)
	}

	pw := "  padded"
	if _, err := f.svc.Update(ctx, acc.ID, AccountChanges{Password: &pw}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.svc.Login(ctx, "bob", "  padded"); err != nil {
		t.Fatalf("login after update: %v", err)
	}
	empty := ""
	if _, err := f.svc.Update(ctx, acc.ID, AccountChanges{Password: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty password, got %v", err)
	}
}

func TestDeleteSuperadminAlwaysRejected(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Delete(ctx, f.root.ID); !errors.Is(err, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
	if _, err := f.store.GetAccount(ctx, f.root.ID); err != nil {
		t.Fatalf("superadmin must survive: %v", err)
	}

	other, err := f.svc.Register(ctx, RegisterInput{Username: "temp", Password: "pw", Role: "admin"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	deleted, err := f.svc.Delete(ctx, other.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Username != "temp" {
		t.Fatalf("unexpected deleted account: %+v", deleted)
	}
	if _, err := f.svc.Delete(ctx, other.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSuperadminRole(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	for _, role := range []string{"admin", "manager"} {
		if _, err := f.svc.Update(ctx, f.root.ID, AccountChanges{Role: &role}); !errors.Is(err, ErrProtectedAccount) {
			t.Fatalf("demote to %s: expected ErrProtectedAccount, got %v", role, err)
		}
	}

	same := "superadmin"
	if _, err := f.svc.Update(ctx, f.root.ID, AccountChanges{Role: &same}); err != nil {
		t.Fatalf("keeping superadmin role should succeed: %v", err)
	}

	name := "root"
	pw := "new-password"
	updated, err := f.svc.Update(ctx, f.root.ID, AccountChanges{Username: &name, Password: &pw})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Username != "root" || updated.Role != RoleSuperadmin {
		t.Fatalf("unexpected account: %+v", updated)
	}
	if _, err := f.svc.Login(ctx, "root", "new-password"); err != nil {
		t.Fatalf("login with new credentials: %v", err)
	}
}

func TestUpdateChangesOtherRoles(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	acc, err := f.svc.Register(ctx, RegisterInput{Username: "ann", Password: "pw", Role: "manager"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	role := "admin"
	updated, err := f.svc.Update(ctx, acc.ID, AccountChanges{Role: &role})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Role != RoleAdmin {
		t.Fatalf("expected admin, got %s", updated.Role)
	}
	if _, err := f.svc.Update(ctx, acc.ID, AccountChanges{}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty update, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	name := "dev"
	acc, err := f.svc.UpdateProfile(ctx, f.root.ID, ProfileChanges{Username: &name})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if acc.Username != "dev" || acc.Role != RoleSuperadmin {
		t.Fatalf("unexpected profile: %+v", acc)
	}
	if _, err := f.svc.UpdateProfile(ctx, "missing", ProfileChanges{Username: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
