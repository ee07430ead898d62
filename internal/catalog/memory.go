package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopadmin.app/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]Product
	orders   map[string]Order
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]Product),
		orders:   make(map[string]Order),
		now:      time.Now,
	}
}

func (s *MemoryStore) ListProducts(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetProduct(ctx context.Context, id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) CreateProduct(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	now := s.now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	s.products[p.ID] = p
	return p, nil
}

func (s *MemoryStore) UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	if upd.Name != nil {
		p.Name = *upd.Name
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Image != nil {
		p.Image = *upd.Image
	}
	if upd.Description != nil {
		p.Description = *upd.Description
	}
	if upd.Stock != nil {
		p.Stock = *upd.Stock
	}
	if upd.Category != nil {
		p.Category = *upd.Category
	}
	p.UpdatedAt = s.now().UTC()
	s.products[id] = p
	return p, nil
}

func (s *MemoryStore) DeleteProduct(ctx context.Context, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	delete(s.products, id)
	return p, nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Views++
	s.products[id] = p
	return p, nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, o Order) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = ids.New()
	}
	if o.Status == "" {
		o.Status = StatusPending
	}
	o.Items = append([]OrderItem(nil), o.Items...)
	now := s.now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	s.orders[o.ID] = o
	return o, nil
}

func (s *MemoryStore) ListOrders(ctx context.Context) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		o.Items = append([]OrderItem(nil), o.Items...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id string, status OrderStatus) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = s.now().UTC()
	s.orders[id] = o
	return o, nil
}
