package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"shopadmin.app/internal/customer"
	"shopadmin.app/internal/ids"
)

var _ customer.Store = (*Store)(nil)

const customerColumns = `id, name, email, password_hash, created_at, updated_at`

func scanCustomer(row rowScanner) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PasswordHash, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateCustomer(ctx context.Context, c customer.Customer) (customer.Customer, error) {
	if s.db == nil {
		return customer.Customer{}, errNoDB
	}
	if c.ID == "" {
		c.ID = ids.New()
	}
	created, err := scanCustomer(s.db.QueryRowContext(ctx, `
		insert into customers (id, name, email, password_hash)
		values ($1, $2, $3, $4)
		returning `+customerColumns,
		c.ID, c.Name, c.Email, c.PasswordHash))
	if err != nil {
		if isUniqueViolation(err) {
			return customer.Customer{}, customer.ErrConflict
		}
		return customer.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	return created, nil
}

func (s *Store) GetCustomer(ctx context.Context, id string) (customer.Customer, error) {
	if s.db == nil {
		return customer.Customer{}, errNoDB
	}
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `
		select `+customerColumns+`
		from customers
		where id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, err
}

func (s *Store) FindCustomerByEmail(ctx context.Context, email string) (customer.Customer, error) {
	if s.db == nil {
		return customer.Customer{}, errNoDB
	}
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `
		select `+customerColumns+`
		from customers
		where lower(email) = lower($1)
	`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return customer.Customer{}, customer.ErrNotFound
	}
	return c, err
}
