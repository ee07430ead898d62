package pg

import (
	"context"
	"time"

	"shopadmin.app/internal/analytics"
)

var (
	_ analytics.Source    = (*Store)(nil)
	_ analytics.Inventory = (*Store)(nil)
)

func (s *Store) OrderTotals(ctx context.Context) (int, float64, error) {
	if s.db == nil {
		return 0, 0, errNoDB
	}
	var (
		count   int
		revenue float64
	)
	err := s.db.QueryRowContext(ctx, `select count(*), coalesce(sum(total), 0) from orders`).Scan(&count, &revenue)
	return count, revenue, err
}

func (s *Store) OrdersByDay(ctx context.Context, since time.Time) ([]analytics.DayPoint, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select to_char(created_at at time zone 'UTC', 'YYYY-MM-DD') as day,
		       count(*), coalesce(sum(total), 0)
		from orders
		where created_at >= $1
		group by day
		order by day
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []analytics.DayPoint
	for rows.Next() {
		var p analytics.DayPoint
		if err := rows.Scan(&p.Date, &p.Orders, &p.Revenue); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Store) TopPurchased(ctx context.Context, limit int) ([]analytics.PurchasedProduct, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select item->>'name' as name,
		       sum((item->>'qty')::int) as sold,
		       sum((item->>'price')::float8 * (item->>'qty')::int) as revenue
		from orders, jsonb_array_elements(items) as item
		group by name
		order by sold desc, name
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.PurchasedProduct
	for rows.Next() {
		var p analytics.PurchasedProduct
		if err := rows.Scan(&p.Name, &p.TotalSold, &p.Revenue); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) TopBrowsed(ctx context.Context, limit int) ([]analytics.BrowsedProduct, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, views, price, stock
		from products
		order by views desc, id
		limit $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.BrowsedProduct
	for rows.Next() {
		var p analytics.BrowsedProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Views, &p.Price, &p.Stock); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) LowStock(ctx context.Context, threshold int) ([]analytics.StockLevel, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, name, stock, price
		from products
		where stock < $1
		order by stock, id
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []analytics.StockLevel
	for rows.Next() {
		var p analytics.StockLevel
		if err := rows.Scan(&p.ID, &p.Name, &p.Stock, &p.Price); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ProductTotals(ctx context.Context, threshold int) (analytics.ProductTotals, error) {
	if s.db == nil {
		return analytics.ProductTotals{}, errNoDB
	}
	var t analytics.ProductTotals
	err := s.db.QueryRowContext(ctx, `
		select count(*), count(*) filter (where stock < $1), coalesce(sum(views), 0)
		from products
	`, threshold).Scan(&t.Count, &t.LowStock, &t.Views)
	return t, err
}

func (s *Store) SystemCounts(ctx context.Context) (analytics.SystemCounts, error) {
	if s.db == nil {
		return analytics.SystemCounts{}, errNoDB
	}
	var c analytics.SystemCounts
	err := s.db.QueryRowContext(ctx, `
		select (select count(*) from admins),
		       (select count(*) from products),
		       (select count(*) from orders),
		       (select count(*) from activity_logs)
	`).Scan(&c.Accounts, &c.Products, &c.Orders, &c.Logs)
	return c, err
}
