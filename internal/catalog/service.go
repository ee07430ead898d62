package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ProductInput is the payload for a new product.
type ProductInput struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
	Category    string  `json:"category"`
}

// OrderInput is a checkout request.
type OrderInput struct {
	Items []OrderItem `json:"items"`
	Total float64     `json:"total"`
}

// Service validates catalog operations before they reach the store.
type Service struct {
	store Store
	views *ViewDeduper
}

func NewService(store Store, views *ViewDeduper) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog store is required")
	}
	if views == nil {
		views = NewViewDeduper(0, 0)
	}
	return &Service{store: store, views: views}, nil
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return s.store.ListProducts(ctx)
}

// View loads a product and counts a view unless viewer saw it recently.
func (s *Service) View(ctx context.Context, id, viewer string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !s.views.First(viewer, id) {
		return p, nil
	}
	return s.store.IncrementViews(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price <= 0 {
		return Product{}, fmt.Errorf("%w: name and price are required", ErrInvalidInput)
	}
	if err := checkPrice(in.Price); err != nil {
		return Product{}, err
	}
	if in.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return s.store.CreateProduct(ctx, Product{
		Name:        name,
		Price:       in.Price,
		Image:       strings.TrimSpace(in.Image),
		Description: strings.TrimSpace(in.Description),
		Stock:       in.Stock,
		Category:    strings.TrimSpace(in.Category),
	})
}

func (s *Service) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	if upd.Empty() {
		return Product{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return Product{}, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		upd.Name = &name
	}
	if upd.Price != nil {
		if *upd.Price <= 0 {
			return Product{}, fmt.Errorf("%w: price must be positive", ErrInvalidInput)
		}
		if err := checkPrice(*upd.Price); err != nil {
			return Product{}, err
		}
	}
	if upd.Stock != nil && *upd.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock cannot be negative", ErrInvalidInput)
	}
	return s.store.UpdateProduct(ctx, id, upd)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	return s.store.DeleteProduct(ctx, id)
}

// PlaceOrder stores a checkout with status Pending. A zero total is
// computed from the items.
func (s *Service) PlaceOrder(ctx context.Context, in OrderInput) (Order, error) {
	if len(in.Items) == 0 {
		return Order{}, fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}
	items := make([]OrderItem, 0, len(in.Items))
	var sum float64
	for i, it := range in.Items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return Order{}, fmt.Errorf("%w: item %d has no name", ErrInvalidInput, i)
		}
		if it.Qty <= 0 {
			return Order{}, fmt.Errorf("%w: item %d quantity must be positive", ErrInvalidInput, i)
		}
		if it.Price < 0 {
			return Order{}, fmt.Errorf("%w: item %d price cannot be negative", ErrInvalidInput, i)
		}
		if err := checkPrice(it.Price); err != nil {
			return Order{}, err
		}
		sum += it.Price * float64(it.Qty)
		items = append(items, it)
	}
	total := in.Total
	if total == 0 {
		total = sum
	}
	if total < 0 {
		return Order{}, fmt.Errorf("%w: total cannot be negative", ErrInvalidInput)
	}
	if err := checkPrice(total); err != nil {
		return Order{}, err
	}
	return s.store.CreateOrder(ctx, Order{Items: items, Total: total, Status: StatusPending})
}

func (s *Service) Orders(ctx context.Context) ([]Order, error) {
	return s.store.ListOrders(ctx)
}

func (s *Service) SetOrderStatus(ctx context.Context, id, status string) (Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrInvalidInput)
	}
	st, err := ParseOrderStatus(status)
	if err != nil {
		return Order{}, fmt.Errorf("%w: unknown order status %q", ErrInvalidInput, status)
	}
	return s.store.UpdateOrderStatus(ctx, id, st)
}

func checkPrice(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: amount must be a finite number", ErrInvalidInput)
	}
	return nil
}
