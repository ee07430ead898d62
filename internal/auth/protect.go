package auth

import "context"

// CheckDelete rejects deleting the superadmin account.
func CheckDelete(target Account) error {
	if target.Role == RoleSuperadmin {
		return ErrProtectedAccount
	}
	return nil
}

// CheckUpdate rejects any update that would take the superadmin role away
// from a superadmin account. Username and password changes are allowed.
func CheckUpdate(target Account, upd AccountUpdate) error {
	if target.Role != RoleSuperadmin || upd.Role == nil {
		return nil
	}
	if *upd.Role != RoleSuperadmin {
		return ErrProtectedAccount
	}
	return nil
}

// ProtectedStore wraps an AccountStore and refuses to delete or demote the
// superadmin account.
//
// The check loads the target and decides before delegating the mutation,
// so on its own it is racy against a concurrent role change of the same
// record. Stores in this module repeat the check inside the mutation itself
// (a guarded SQL predicate, or the in-memory store's lock), which closes
// that gap; third-party stores that do not are subject to it.
type ProtectedStore struct {
	AccountStore
}

// Protect wraps store unless it is already protected.
func Protect(store AccountStore) *ProtectedStore {
	if p, ok := store.(*ProtectedStore); ok {
		return p
	}
	return &ProtectedStore{AccountStore: store}
}

func (s *ProtectedStore) DeleteAccount(ctx context.Context, id string) error {
	target, err := s.AccountStore.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckDelete(target); err != nil {
		return err
	}
	return s.AccountStore.DeleteAccount(ctx, id)
}

func (s *ProtectedStore) UpdateAccount(ctx context.Context, id string, upd AccountUpdate) (Account, error) {
	target, err := s.AccountStore.GetAccount(ctx, id)
	if err != nil {
		return Account{}, err
	}
	if err := CheckUpdate(target, upd); err != nil {
		return Account{}, err
	}
	return s.AccountStore.UpdateAccount(ctx, id, upd)
}
