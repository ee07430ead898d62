package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"shopadmin.app/internal/catalog"
)

const (
	chartDays = 7
	topLimit  = 8
)

// Overview holds the headline numbers of the stats dashboard.
type Overview struct {
	TotalOrders    int     `json:"totalOrders"`
	TotalRevenue   float64 `json:"totalRevenue"`
	TotalProducts  int     `json:"totalProducts"`
	LowStockCount  int     `json:"lowStockCount"`
	ViewsCount     int64   `json:"viewsCount"`
	ConversionRate float64 `json:"conversionRate"`
}

// DayPoint is one day of the orders chart. Date is YYYY-MM-DD in UTC.
type DayPoint struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

// PurchasedProduct aggregates order lines by product name.
type PurchasedProduct struct {
	Name      string  `json:"name"`
	TotalSold int     `json:"totalSold"`
	Revenue   float64 `json:"revenue"`
}

// BrowsedProduct is a product ranked by views.
type BrowsedProduct struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Views int64   `json:"views"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// StockLevel is a product whose stock is below the threshold.
type StockLevel struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Stock int     `json:"stock"`
	Price float64 `json:"price"`
}

// ProductTotals summarises the catalog.
type ProductTotals struct {
	Count    int
	LowStock int
	Views    int64
}

// Report is the full stats dashboard.
type Report struct {
	Overview     Overview           `json:"overview"`
	OrdersChart  []DayPoint         `json:"ordersChart"`
	TopPurchased []PurchasedProduct `json:"topPurchased"`
	TopBrowsed   []BrowsedProduct   `json:"topBrowsed"`
	LowStock     []StockLevel       `json:"lowStock"`
}

// SystemCounts is the superadmin system overview.
type SystemCounts struct {
	Accounts int `json:"accounts"`
	Products int `json:"products"`
	Orders   int `json:"orders"`
	Logs     int `json:"logs"`
}

// Source answers the aggregate queries behind a Report.
type Source interface {
	OrderTotals(ctx context.Context) (count int, revenue float64, err error)
	// OrdersByDay returns per-day order counts for days with orders since
	// the given instant, oldest first.
	OrdersByDay(ctx context.Context, since time.Time) ([]DayPoint, error)
	TopPurchased(ctx context.Context, limit int) ([]PurchasedProduct, error)
	TopBrowsed(ctx context.Context, limit int) ([]BrowsedProduct, error)
	// LowStock returns products with stock below threshold, lowest first.
	LowStock(ctx context.Context, threshold int) ([]StockLevel, error)
	ProductTotals(ctx context.Context, threshold int) (ProductTotals, error)
}

// Inventory counts the records behind the system overview.
type Inventory interface {
	SystemCounts(ctx context.Context) (SystemCounts, error)
}

// Service builds dashboard reports.
type Service struct {
	source    Source
	inventory Inventory
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(source Source, inventory Inventory, opts ...Option) (*Service, error) {
	if source == nil {
		return nil, errors.New("analytics source is required")
	}
	if inventory == nil {
		return nil, errors.New("analytics inventory is required")
	}
	s := &Service{source: source, inventory: inventory, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Report computes the stats dashboard.
func (s *Service) Report(ctx context.Context) (Report, error) {
	orders, revenue, err := s.source.OrderTotals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("order totals: %w", err)
	}
	totals, err := s.source.ProductTotals(ctx, catalog.LowStockThreshold)
	if err != nil {
		return Report{}, fmt.Errorf("product totals: %w", err)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -chartDays)
	days, err := s.source.OrdersByDay(ctx, since)
	if err != nil {
		return Report{}, fmt.Errorf("orders by day: %w", err)
	}
	purchased, err := s.source.TopPurchased(ctx, topLimit)
	if err != nil {
		return Report{}, fmt.Errorf("top purchased: %w", err)
	}
	browsed, err := s.source.TopBrowsed(ctx, topLimit)
	if err != nil {
		return Report{}, fmt.Errorf("top browsed: %w", err)
	}
	low, err := s.source.LowStock(ctx, catalog.LowStockThreshold)
	if err != nil {
		return Report{}, fmt.Errorf("low stock: %w", err)
	}

	return Report{
		Overview: Overview{
			TotalOrders:    orders,
			TotalRevenue:   revenue,
			TotalProducts:  totals.Count,
			LowStockCount:  totals.LowStock,
			ViewsCount:     totals.Views,
			ConversionRate: conversionRate(orders, totals.Views),
		},
		OrdersChart:  fillDays(days, since, today),
		TopPurchased: nonNil(purchased),
		TopBrowsed:   nonNil(browsed),
		LowStock:     nonNil(low),
	}, nil
}

// SystemOverview returns record counts for the superadmin dashboard.
func (s *Service) SystemOverview(ctx context.Context) (SystemCounts, error) {
	return s.inventory.SystemCounts(ctx)
}

// conversionRate is orders per view in percent, one decimal. No views
// counts as one view.
func conversionRate(orders int, views int64) float64 {
	if orders == 0 {
		return 0
	}
	if views < 1 {
		views = 1
	}
	rate := float64(orders) / float64(views) * 100
	return math.Round(rate*10) / 10
}

// fillDays returns one point per day in [from, to], zero where absent.
func fillDays(points []DayPoint, from, to time.Time) []DayPoint {
	byDate := make(map[string]DayPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}
	out := make([]DayPoint, 0, chartDays+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(time.DateOnly)
		p, ok := byDate[key]
		if !ok {
			p = DayPoint{Date: key}
		}
		out = append(out, p)
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
