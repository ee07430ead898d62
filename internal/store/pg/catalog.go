package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"shopadmin.app/internal/catalog"
	"shopadmin.app/internal/ids"
)

var _ catalog.Store = (*Store)(nil)

const productColumns = `id, name, price, image, description, stock, category, views, created_at, updated_at`

func scanProduct(row rowScanner) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Image, &p.Description, &p.Stock, &p.Category, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, err
}

func (s *Store) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+productColumns+` from products order by created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []catalog.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (catalog.Product, error) {
	if s.db == nil {
		return catalog.Product{}, errNoDB
	}
	return scanProduct(s.db.QueryRowContext(ctx, `select `+productColumns+` from products where id = $1`, id))
}

func (s *Store) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	if s.db == nil {
		return catalog.Product{}, errNoDB
	}
	if p.ID == "" {
		p.ID = ids.New()
	}
	created, err := scanProduct(s.db.QueryRowContext(ctx, `
		insert into products (id, name, price, image, description, stock, category)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+productColumns,
		p.ID, p.Name, p.Price, p.Image, p.Description, p.Stock, p.Category))
	if err != nil {
		if isCheckViolation(err) {
			return catalog.Product{}, fmt.Errorf("%w: %v", catalog.ErrInvalidInput, err)
		}
		return catalog.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id string, upd catalog.ProductUpdate) (catalog.Product, error) {
	if s.db == nil {
		return catalog.Product{}, errNoDB
	}
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		update products set
			name        = coalesce($2, name),
			price       = coalesce($3, price),
			image       = coalesce($4, image),
			description = coalesce($5, description),
			stock       = coalesce($6, stock),
			category    = coalesce($7, category),
			updated_at  = now()
		where id = $1
		returning `+productColumns,
		id, nullable(upd.Name), nullable(upd.Price), nullable(upd.Image),
		nullable(upd.Description), nullable(upd.Stock), nullable(upd.Category)))
	if err != nil && isCheckViolation(err) {
		return catalog.Product{}, fmt.Errorf("%w: %v", catalog.ErrInvalidInput, err)
	}
	return p, err
}

func (s *Store) DeleteProduct(ctx context.Context, id string) (catalog.Product, error) {
	if s.db == nil {
		return catalog.Product{}, errNoDB
	}
	return scanProduct(s.db.QueryRowContext(ctx, `delete from products where id = $1 returning `+productColumns, id))
}

func (s *Store) IncrementViews(ctx context.Context, id string) (catalog.Product, error) {
	if s.db == nil {
		return catalog.Product{}, errNoDB
	}
	return scanProduct(s.db.QueryRowContext(ctx, `
		update products set views = views + 1
		where id = $1
		returning `+productColumns, id))
}

const orderColumns = `id, items, total, status, created_at, updated_at`

func scanOrder(row rowScanner) (catalog.Order, error) {
	var (
		o        catalog.Order
		rawItems []byte
		status   string
	)
	err := row.Scan(&o.ID, &rawItems, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Order{}, catalog.ErrNotFound
	}
	if err != nil {
		return catalog.Order{}, err
	}
	o.Status = catalog.OrderStatus(status)
	if err := json.Unmarshal(rawItems, &o.Items); err != nil {
		return catalog.Order{}, fmt.Errorf("decode order items: %w", err)
	}
	return o, nil
}

func (s *Store) CreateOrder(ctx context.Context, o catalog.Order) (catalog.Order, error) {
	if s.db == nil {
		return catalog.Order{}, errNoDB
	}
	if o.ID == "" {
		o.ID = ids.New()
	}
	if o.Status == "" {
		o.Status = catalog.StatusPending
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return catalog.Order{}, fmt.Errorf("marshal order items: %w", err)
	}
	created, err := scanOrder(s.db.QueryRowContext(ctx, `
		insert into orders (id, items, total, status)
		values ($1, $2, $3, $4)
		returning `+orderColumns,
		o.ID, items, o.Total, string(o.Status)))
	if err != nil {
		return catalog.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return created, nil
}

func (s *Store) ListOrders(ctx context.Context) ([]catalog.Order, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `select `+orderColumns+` from orders order by created_at desc, id desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []catalog.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, o)
	}
	return result, rows.Err()
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status catalog.OrderStatus) (catalog.Order, error) {
	if s.db == nil {
		return catalog.Order{}, errNoDB
	}
	return scanOrder(s.db.QueryRowContext(ctx, `
		update orders set status = $2, updated_at = now()
		where id = $1
		returning `+orderColumns, id, string(status)))
}
