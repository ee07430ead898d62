package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/ids"
)

var _ auth.AccountStore = (*Store)(nil)

const accountColumns = `id, username, email, password_hash, role, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (auth.Account, error) {
	var (
		acc  auth.Account
		role string
	)
	if err := row.Scan(&acc.ID, &acc.Username, &acc.Email, &acc.PasswordHash, &role, &acc.CreatedAt, &acc.UpdatedAt); err != nil {
		return auth.Account{}, err
	}
	acc.Role = auth.Role(role)
	return acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc auth.Account) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errNoDB
	}
	if acc.ID == "" {
		acc.ID = ids.New()
	}
	created, err := scanAccount(s.db.QueryRowContext(ctx, `
		insert into admins (id, username, email, password_hash, role)
		values ($1, $2, $3, $4, $5)
		returning `+accountColumns,
		acc.ID, acc.Username, acc.Email, acc.PasswordHash, string(acc.Role)))
	if err != nil {
		if isUniqueViolation(err) {
			return auth.Account{}, auth.ErrConflict
		}
		if isCheckViolation(err) {
			return auth.Account{}, fmt.Errorf("%w: %v", auth.ErrInvalidInput, err)
		}
		return auth.Account{}, fmt.Errorf("insert admin: %w", err)
	}
	return created, nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errNoDB
	}
	acc, err := scanAccount(s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from admins
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrNotFound
	}
	return acc, err
}

func (s *Store) FindByUsername(ctx context.Context, username string) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errNoDB
	}
	acc, err := scanAccount(s.db.QueryRowContext(ctx, `
		select `+accountColumns+`
		from admins
		where lower(username) = lower($1)
	`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrNotFound
	}
	return acc, err
}

func (s *Store) ListAccounts(ctx context.Context) ([]auth.Account, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select `+accountColumns+`
		from admins
		order by created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []auth.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, acc)
	}
	return result, rows.Err()
}

// UpdateAccount applies upd unless it would take the superadmin role away
// from a superadmin. The guard is part of the update predicate, so a
// concurrent role change cannot slip between check and write.
func (s *Store) UpdateAccount(ctx context.Context, id string, upd auth.AccountUpdate) (auth.Account, error) {
	if s.db == nil {
		return auth.Account{}, errNoDB
	}
	var role *string
	if upd.Role != nil {
		r := string(*upd.Role)
		role = &r
	}
	acc, err := scanAccount(s.db.QueryRowContext(ctx, `
		update admins set
			username      = coalesce($2, username),
			password_hash = coalesce($3, password_hash),
			role          = coalesce($4, role),
			updated_at    = now()
		where id = $1
		  and (role <> 'superadmin' or coalesce($4, role) = 'superadmin')
		returning `+accountColumns,
		id, nullable(upd.Username), nullable(upd.PasswordHash), nullable(role)))
	switch {
	case err == nil:
		return acc, nil
	case errors.Is(err, sql.ErrNoRows):
		return auth.Account{}, s.explainGuardMiss(ctx, id)
	case isUniqueViolation(err):
		return auth.Account{}, auth.ErrConflict
	case isCheckViolation(err):
		return auth.Account{}, fmt.Errorf("%w: %v", auth.ErrInvalidInput, err)
	default:
		return auth.Account{}, fmt.Errorf("update admin: %w", err)
	}
}

// DeleteAccount removes a non-superadmin account in one statement.
func (s *Store) DeleteAccount(ctx context.Context, id string) error {
	if s.db == nil {
		return errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from admins where id = $1 and role <> 'superadmin'`, id)
	if err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return s.explainGuardMiss(ctx, id)
	}
	return nil
}

// explainGuardMiss tells a missing row apart from a guarded one after a
// conditional write matched nothing.
func (s *Store) explainGuardMiss(ctx context.Context, id string) error {
	var exists bool
	if err := s.db.QueryRowContext(ctx, `select exists(select 1 from admins where id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return auth.ErrNotFound
	}
	return auth.ErrProtectedAccount
}
