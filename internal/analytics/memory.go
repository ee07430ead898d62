package analytics

import (
	"context"
	"sort"
	"time"

	"shopadmin.app/internal/audit"
	"shopadmin.app/internal/auth"
	"shopadmin.app/internal/catalog"
)

var (
	_ Source    = CatalogSource{}
	_ Inventory = StoreInventory{}
)

// CatalogSource computes aggregates by scanning a catalog store. Suitable
// for the in-memory store; the Postgres store answers in SQL.
type CatalogSource struct {
	Store catalog.Store
}

func (c CatalogSource) OrderTotals(ctx context.Context) (int, float64, error) {
	orders, err := c.Store.ListOrders(ctx)
	if err != nil {
		return 0, 0, err
	}
	var revenue float64
	for _, o := range orders {
		revenue += o.Total
	}
	return len(orders), revenue, nil
}

func (c CatalogSource) OrdersByDay(ctx context.Context, since time.Time) ([]DayPoint, error) {
	orders, err := c.Store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*DayPoint)
	for _, o := range orders {
		if o.CreatedAt.Before(since) {
			continue
		}
		key := o.CreatedAt.UTC().Format(time.DateOnly)
		p, ok := byDate[key]
		if !ok {
			p = &DayPoint{Date: key}
			byDate[key] = p
		}
		p.Orders++
		p.Revenue += o.Total
	}
	out := make([]DayPoint, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (c CatalogSource) TopPurchased(ctx context.Context, limit int) ([]PurchasedProduct, error) {
	orders, err := c.Store.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*PurchasedProduct)
	for _, o := range orders {
		for _, it := range o.Items {
			p, ok := byName[it.Name]
			if !ok {
				p = &PurchasedProduct{Name: it.Name}
				byName[it.Name] = p
			}
			p.TotalSold += it.Qty
			p.Revenue += it.Price * float64(it.Qty)
		}
	}
	out := make([]PurchasedProduct, 0, len(byName))
	for _, p := range byName {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSold == out[j].TotalSold {
			return out[i].Name < out[j].Name
		}
		return out[i].TotalSold > out[j].TotalSold
	})
	return head(out, limit), nil
}

func (c CatalogSource) TopBrowsed(ctx context.Context, limit int) ([]BrowsedProduct, error) {
	products, err := c.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Views > products[j].Views })
	out := make([]BrowsedProduct, 0, len(products))
	for _, p := range head(products, limit) {
		out = append(out, BrowsedProduct{ID: p.ID, Name: p.Name, Views: p.Views, Price: p.Price, Stock: p.Stock})
	}
	return out, nil
}

func (c CatalogSource) LowStock(ctx context.Context, threshold int) ([]StockLevel, error) {
	products, err := c.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]StockLevel, 0)
	for _, p := range products {
		if p.Stock < threshold {
			out = append(out, StockLevel{ID: p.ID, Name: p.Name, Stock: p.Stock, Price: p.Price})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stock < out[j].Stock })
	return out, nil
}

func (c CatalogSource) ProductTotals(ctx context.Context, threshold int) (ProductTotals, error) {
	products, err := c.Store.ListProducts(ctx)
	if err != nil {
		return ProductTotals{}, err
	}
	totals := ProductTotals{Count: len(products)}
	for _, p := range products {
		totals.Views += p.Views
		if p.Stock < threshold {
			totals.LowStock++
		}
	}
	return totals, nil
}

// StoreInventory counts records across the individual stores.
type StoreInventory struct {
	Accounts auth.AccountStore
	Catalog  catalog.Store
	Audit    audit.Store
}

func (s StoreInventory) SystemCounts(ctx context.Context) (SystemCounts, error) {
	accounts, err := s.Accounts.ListAccounts(ctx)
	if err != nil {
		return SystemCounts{}, err
	}
	products, err := s.Catalog.ListProducts(ctx)
	if err != nil {
		return SystemCounts{}, err
	}
	orders, err := s.Catalog.ListOrders(ctx)
	if err != nil {
		return SystemCounts{}, err
	}
	_, logs, err := s.Audit.ListEntries(ctx, audit.Filter{}, 0, 1)
	if err != nil {
		return SystemCounts{}, err
	}
	return SystemCounts{
		Accounts: len(accounts),
		Products: len(products),
		Orders:   len(orders),
		Logs:     logs,
	}, nil
}

func head[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
