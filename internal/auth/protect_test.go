package auth

import (
	"context"
	"errors"
	"testing"
)

// racyStore skips its own guard so ProtectedStore is the only barrier.
type racyStore struct {
	*MemoryStore
	deleted []string
	updated []string
}

func (s *racyStore) DeleteAccount(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *racyStore) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (Account, error) {
	s.updated = append(s.updated, id)
	return s.MemoryStore.GetAccount(ctx, id)
}

func TestProtectedStoreBlocksBeforeDelegating(t *testing.T) {
	ctx := context.Background()
	inner := &racyStore{MemoryStore: NewMemoryStore()}
	root, _ := inner.CreateAccount(ctx, Account{Username: "root", Role: RoleSuperadmin})
	staff, _ := inner.CreateAccount(ctx, Account{Username: "staff", Role: RoleAdmin})

	store := Protect(inner)
	if Protect(store) != store {
		t.Fatal("Protect must not double wrap")
	}

	if err := store.DeleteAccount(ctx, root.ID); !errors.Is(err, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
	demote := RoleManager
	if _, err := store.UpdateAccount(ctx, root.ID, AccountUpdate{Role: &demote}); !errors.Is(err, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
	if len(inner.deleted) != 0 || len(inner.updated) != 0 {
		t.Fatalf("rejected operations reached the store: deleted=%v updated=%v", inner.deleted, inner.updated)
	}

	if err := store.DeleteAccount(ctx, staff.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	name := "renamed"
	if _, err := store.UpdateAccount(ctx, root.ID, AccountUpdate{Username: &name}); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if len(inner.deleted) != 1 || len(inner.updated) != 1 {
		t.Fatalf("allowed operations were not delegated: deleted=%v updated=%v", inner.deleted, inner.updated)
	}
	if err := store.DeleteAccount(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreGuardsWithoutWrapper(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	root, _ := store.CreateAccount(ctx, Account{Username: "root", Role: RoleSuperadmin})

	if err := store.DeleteAccount(ctx, root.ID); !errors.Is(err, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
	admin := RoleAdmin
	if _, err := store.UpdateAccount(ctx, root.ID, AccountUpdate{Role: &admin}); !errors.Is(err, ErrProtectedAccount) {
		t.Fatalf("expected ErrProtectedAccount, got %v", err)
	}
}

func TestCheckUpdate(t *testing.T) {
	super := Account{Role: RoleSuperadmin}
	admin := Account{Role: RoleAdmin}
	r := func(role Role) *Role { return &role }

	cases := []struct {
		name    string
		target  Account
		upd     AccountUpdate
		wantErr bool
	}{
		{"superadmin no role", super, AccountUpdate{}, false},
		{"superadmin keeps role", super, AccountUpdate{Role: r(RoleSuperadmin)}, false},
		{"superadmin to admin", super, AccountUpdate{Role: r(RoleAdmin)}, true},
		{"superadmin to manager", super, AccountUpdate{Role: r(RoleManager)}, true},
		{"superadmin to empty", super, AccountUpdate{Role: r("")}, true},
		{"admin to manager", admin, AccountUpdate{Role: r(RoleManager)}, false},
		{"admin promoted", admin, AccountUpdate{Role: r(RoleSuperadmin)}, false},
	}
	for _, tc := range cases {
		err := CheckUpdate(tc.target, tc.upd)
		if tc.wantErr != errors.Is(err, ErrProtectedAccount) {
			t.Fatalf("%s: unexpected result %v", tc.name, err)
		}
	}
}
