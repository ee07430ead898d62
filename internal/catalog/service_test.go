package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc, err := NewService(store, NewViewDeduper(16, time.Hour))
	require.NoError(t, err)
	return svc, store
}

func TestCreateProductValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, ProductInput{Price: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Mug"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.CreateProduct(ctx, ProductInput{Name: "Mug", Price: 4, Stock: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	list, err := store.ListProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	p, err := svc.CreateProduct(ctx, ProductInput{Name: "  Mug ", Price: 4.5, Stock: 3})
	require.NoError(t, err)
	assert.Equal(t, "Mug", p.Name)
	assert.NotEmpty(t, p.ID)
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductInput{Name: "Mug", Price: 4})
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, p.ID, ProductUpdate{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	zero := 0.0
	_, err = svc.UpdateProduct(ctx, p.ID, ProductUpdate{Price: &zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	stock := 20
	updated, err := svc.UpdateProduct(ctx, p.ID, ProductUpdate{Stock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 20, updated.Stock)
	assert.Equal(t, "Mug", updated.Name)

	_, err = svc.UpdateProduct(ctx, "missing", ProductUpdate{Stock: &stock})
	assert.ErrorIs(t, err, ErrNotFound)

	deleted, err := svc.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = svc.DeleteProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViewCountsOncePerViewer(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.CreateProduct(ctx, ProductInput{Name: "Mug", Price: 4})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = svc.View(ctx, p.ID, "10.0.0.1")
		require.NoError(t, err)
	}
	got, err := svc.View(ctx, p.ID, "10.0.0.2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, got.Views)

	_, err = svc.View(ctx, "missing", "10.0.0.1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestViewDeduperIsBounded(t *testing.T) {
	d := NewViewDeduper(2, time.Hour)
	assert.True(t, d.First("a", "p1"))
	assert.True(t, d.First("b", "p1"))
	assert.True(t, d.First("c", "p1"))
	assert.Equal(t, 2, d.Len())
	// The oldest pair was evicted and counts again.
	assert.True(t, d.First("a", "p1"))
	assert.False(t, d.First("c", "p1"))
}

func TestViewDeduperExpires(t *testing.T) {
	d := NewViewDeduper(8, 20*time.Millisecond)
	assert.True(t, d.First("a", "p1"))
	assert.False(t, d.First("a", "p1"))
	assert.Eventually(t, func() bool { return d.First("a", "p1") }, time.Second, 10*time.Millisecond)
}

func TestPlaceOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.PlaceOrder(ctx, OrderInput{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.PlaceOrder(ctx, OrderInput{Items: []OrderItem{{Name: "Mug", Price: 4, Qty: 0}}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	o, err := svc.PlaceOrder(ctx, OrderInput{Items: []OrderItem{{Name: "Mug", Price: 4, Qty: 2}, {Name: "Tea", Price: 1.5, Qty: 1}}})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.InDelta(t, 9.5, o.Total, 1e-9)

	explicit, err := svc.PlaceOrder(ctx, OrderInput{Items: []OrderItem{{Name: "Mug", Price: 4, Qty: 1}}, Total: 3})
	require.NoError(t, err)
	assert.InDelta(t, 3, explicit.Total, 1e-9)
}

func TestSetOrderStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	o, err := svc.PlaceOrder(ctx, OrderInput{Items: []OrderItem{{Name: "Mug", Price: 4, Qty: 1}}})
	require.NoError(t, err)

	updated, err := svc.SetOrderStatus(ctx, o.ID, "shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, updated.Status)

	_, err = svc.SetOrderStatus(ctx, o.ID, "lost")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetOrderStatus(ctx, "missing", "Delivered")
	assert.ErrorIs(t, err, ErrNotFound)

	orders, err := svc.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, StatusShipped, orders[0].Status)
}
