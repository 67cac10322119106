// Package storetest is a conformance suite every store.Store backend runs.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/till"
	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/store"
	"github.com/xraph/till/types"
)

// Factory returns a fresh, migrated store for one subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against the stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"EventRoundTrip", testEventRoundTrip},
		{"EventOrdering", testEventOrdering},
		{"ProductRequiresEvent", testProductRequiresEvent},
		{"ProductOrdering", testProductOrdering},
		{"AdjustStock", testAdjustStock},
		{"CommitSale", testCommitSale},
		{"CommitSaleRejected", testCommitSaleRejected},
		{"RecordSaleLeavesStock", testRecordSaleLeavesStock},
		{"CancelSale", testCancelSale},
		{"CancelSaleRestock", testCancelSaleRestock},
		{"DeleteProductGuard", testDeleteProductGuard},
		{"RecentSales", testRecentSales},
		{"Totals", testTotals},
		{"ProductTotals", testProductTotals},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

var base = time.Date(2025, 4, 5, 1, 0, 0, 0, time.UTC)

func mustEvent(t *testing.T, s store.Store, name string, created time.Time) *event.Event {
	t.Helper()
	day, err := event.ParseDate("2025-04-05")
	require.NoError(t, err)
	e := &event.Event{
		Entity: types.NewEntity(created),
		ID:     id.NewEventID(),
		Name:   name,
		Date:   day,
	}
	require.NoError(t, s.CreateEvent(context.Background(), e))
	return e
}

func mustProduct(t *testing.T, s store.Store, eventID id.EventID, name string, price types.Money, stock int64) *product.Product {
	t.Helper()
	p := &product.Product{
		Entity:  types.NewEntity(base),
		ID:      id.NewProductID(),
		EventID: eventID,
		Name:    name,
		Price:   price,
		Stock:   stock,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func newSale(eventID id.EventID, p *product.Product, qty int64, at time.Time) *sale.Sale {
	return &sale.Sale{
		ID:         id.NewSaleID(),
		EventID:    eventID,
		ProductID:  p.ID,
		Quantity:   qty,
		TotalPrice: p.Price.Multiply(qty),
		SaleTime:   at,
	}
}

func mustCommit(t *testing.T, s store.Store, eventID id.EventID, p *product.Product, qty int64, at time.Time) *sale.Sale {
	t.Helper()
	sl := newSale(eventID, p, qty, at)
	require.NoError(t, s.CommitSale(context.Background(), sl))
	return sl
}

func stockOf(t *testing.T, s store.Store, productID id.ProductID) int64 {
	t.Helper()
	p, err := s.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func testEventRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Spring Fair", base)

	got, err := s.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, "Spring Fair", got.Name)
	assert.Equal(t, "2025-04-05", got.DateString())
	assert.True(t, got.CreatedAt.Equal(base))

	_, err = s.GetEvent(ctx, id.NewEventID())
	assert.ErrorIs(t, err, till.ErrEventNotFound)
}

func testEventOrdering(t *testing.T, s store.Store) {
	first := mustEvent(t, s, "A", base)
	second := mustEvent(t, s, "B", base.Add(time.Minute))
	// Same timestamp as second: creation order breaks the tie.
	third := mustEvent(t, s, "C", base.Add(time.Minute))

	events, err := s.ListEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, third.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)
	assert.Equal(t, first.ID, events[2].ID)
}

func testProductRequiresEvent(t *testing.T, s store.Store) {
	p := &product.Product{
		Entity:  types.NewEntity(base),
		ID:      id.NewProductID(),
		EventID: id.NewEventID(),
		Name:    "Orphan",
		Price:   100,
		Stock:   1,
	}
	err := s.CreateProduct(context.Background(), p)
	assert.ErrorIs(t, err, till.ErrEventNotFound)

	_, err = s.GetProduct(context.Background(), p.ID)
	assert.ErrorIs(t, err, till.ErrProductNotFound)
}

func testProductOrdering(t *testing.T, s store.Store) {
	e := mustEvent(t, s, "Fair", base)
	other := mustEvent(t, s, "Other", base)
	mustProduct(t, s, e.ID, "Mug", 1200, 5)
	mustProduct(t, s, e.ID, "Cookie", 150, 10)
	mustProduct(t, s, other.ID, "Apron", 2000, 1)

	products, err := s.ListProducts(context.Background(), e.ID)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "Cookie", products[0].Name)
	assert.Equal(t, "Mug", products[1].Name)
	assert.Equal(t, types.Money(150), products[0].Price)
}

func testAdjustStock(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 10)

	stock, err := s.AdjustStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(15), stock)

	stock, err = s.AdjustStock(ctx, p.ID, -15)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stock)

	_, err = s.AdjustStock(ctx, p.ID, -1)
	assert.ErrorIs(t, err, till.ErrInsufficientStock)
	assert.Equal(t, int64(0), stockOf(t, s, p.ID))

	_, err = s.AdjustStock(ctx, id.NewProductID(), 1)
	assert.ErrorIs(t, err, till.ErrProductNotFound)
}

func testCommitSale(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 10)

	sl := mustCommit(t, s, e.ID, p, 3, base)
	assert.Equal(t, int64(7), stockOf(t, s, p.ID))

	got, err := s.GetSale(ctx, sl.ID)
	require.NoError(t, err)
	assert.Equal(t, sl.ProductID, got.ProductID)
	assert.Equal(t, int64(3), got.Quantity)
	assert.Equal(t, types.Money(450), got.TotalPrice)
	assert.True(t, got.SaleTime.Equal(base))
	assert.False(t, got.Cancelled)

	// Selling the exact remainder empties stock.
	mustCommit(t, s, e.ID, p, 7, base)
	assert.Equal(t, int64(0), stockOf(t, s, p.ID))
}

func testCommitSaleRejected(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Mug", 1200, 2)

	over := newSale(e.ID, p, 3, base)
	assert.ErrorIs(t, s.CommitSale(ctx, over), till.ErrInsufficientStock)
	assert.Equal(t, int64(2), stockOf(t, s, p.ID))
	_, err := s.GetSale(ctx, over.ID)
	assert.ErrorIs(t, err, till.ErrSaleNotFound, "a rejected commit must not leave a sale behind")

	ghost := newSale(e.ID, &product.Product{ID: id.NewProductID(), Price: 100}, 1, base)
	assert.ErrorIs(t, s.CommitSale(ctx, ghost), till.ErrProductNotFound)

	totals, err := s.SalesTotals(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), totals.Transactions)
}

func testRecordSaleLeavesStock(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 1)

	sl := newSale(e.ID, p, 5, base)
	require.NoError(t, s.RecordSale(ctx, sl))
	assert.Equal(t, int64(1), stockOf(t, s, p.ID))

	_, err := s.GetSale(ctx, sl.ID)
	require.NoError(t, err)
}

func testCancelSale(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 10)
	sl := mustCommit(t, s, e.ID, p, 2, base)

	require.NoError(t, s.CancelSale(ctx, sl.ID, false))
	assert.Equal(t, int64(8), stockOf(t, s, p.ID), "cancel without restock leaves stock")

	got, err := s.GetSale(ctx, sl.ID)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)

	assert.ErrorIs(t, s.CancelSale(ctx, sl.ID, false), till.ErrSaleAlreadyCancelled)
	assert.ErrorIs(t, s.CancelSale(ctx, id.NewSaleID(), false), till.ErrSaleNotFound)
}

func testCancelSaleRestock(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 10)
	sl := mustCommit(t, s, e.ID, p, 4, base)

	require.NoError(t, s.CancelSale(ctx, sl.ID, true))
	assert.Equal(t, int64(10), stockOf(t, s, p.ID))

	// A repeated cancel must not restock twice.
	assert.ErrorIs(t, s.CancelSale(ctx, sl.ID, true), till.ErrSaleAlreadyCancelled)
	assert.Equal(t, int64(10), stockOf(t, s, p.ID))
}

func testDeleteProductGuard(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	sold := mustProduct(t, s, e.ID, "Cookie", 150, 10)
	unsold := mustProduct(t, s, e.ID, "Mug", 1200, 5)
	sl := mustCommit(t, s, e.ID, sold, 1, base)

	assert.ErrorIs(t, s.DeleteProduct(ctx, sold.ID), till.ErrProductHasSales)
	_, err := s.GetProduct(ctx, sold.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteProduct(ctx, unsold.ID))
	assert.ErrorIs(t, s.DeleteProduct(ctx, unsold.ID), till.ErrProductNotFound)

	// Once its only sale is cancelled the product can go.
	require.NoError(t, s.CancelSale(ctx, sl.ID, false))
	require.NoError(t, s.DeleteProduct(ctx, sold.ID))

	// History survives with an empty product name.
	records, err := s.RecentSales(ctx, e.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, sl.ID, records[0].ID)
	assert.Empty(t, records[0].ProductName)
}

func testRecentSales(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	other := mustEvent(t, s, "Other", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 100)
	q := mustProduct(t, s, other.ID, "Tea", 300, 100)

	oldest := mustCommit(t, s, e.ID, p, 1, base)
	tieA := mustCommit(t, s, e.ID, p, 2, base.Add(time.Second))
	tieB := mustCommit(t, s, e.ID, p, 3, base.Add(time.Second))
	mustCommit(t, s, other.ID, q, 1, base.Add(time.Hour))
	require.NoError(t, s.CancelSale(ctx, oldest.ID, false))

	records, err := s.RecentSales(ctx, e.ID, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, tieB.ID, records[0].ID)
	assert.Equal(t, tieA.ID, records[1].ID)
	assert.Equal(t, oldest.ID, records[2].ID)
	assert.True(t, records[2].Cancelled, "cancelled sales stay in history")
	assert.Equal(t, "Cookie", records[0].ProductName)

	limited, err := s.RecentSales(ctx, e.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func testTotals(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	p := mustProduct(t, s, e.ID, "Cookie", 150, 100)
	q := mustProduct(t, s, e.ID, "Mug", 1200, 100)

	mustCommit(t, s, e.ID, p, 2, base)
	mustCommit(t, s, e.ID, q, 1, base)
	cancelled := mustCommit(t, s, e.ID, q, 5, base)
	require.NoError(t, s.CancelSale(ctx, cancelled.ID, false))

	totals, err := s.SalesTotals(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Money(1500), totals.Revenue)
	assert.Equal(t, int64(3), totals.Quantity)
	assert.Equal(t, int64(2), totals.Transactions)

	empty, err := s.SalesTotals(ctx, id.NewEventID())
	require.NoError(t, err)
	assert.Equal(t, sale.Totals{}, *empty)
}

func testProductTotals(t *testing.T, s store.Store) {
	ctx := context.Background()
	e := mustEvent(t, s, "Fair", base)
	cookie := mustProduct(t, s, e.ID, "Cookie", 150, 100)
	mug := mustProduct(t, s, e.ID, "Mug", 1200, 100)
	mustProduct(t, s, e.ID, "Apron", 2000, 100)
	tea := mustProduct(t, s, e.ID, "Tea", 600, 100)

	mustCommit(t, s, e.ID, cookie, 4, base) // 600
	mustCommit(t, s, e.ID, mug, 1, base)    // 1200
	mustCommit(t, s, e.ID, tea, 1, base)    // 600
	cancelled := mustCommit(t, s, e.ID, tea, 3, base)
	require.NoError(t, s.CancelSale(ctx, cancelled.ID, false))

	rows, err := s.ProductTotals(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = r.Name
	}
	assert.Equal(t, []string{"Mug", "Cookie", "Tea", "Apron"}, names)

	assert.Equal(t, types.Money(1200), rows[0].Revenue)
	assert.Equal(t, int64(4), rows[1].Quantity)
	assert.Equal(t, int64(1), rows[2].Quantity, "cancelled sales are excluded")
	assert.Equal(t, int64(0), rows[3].Quantity)
	assert.True(t, rows[3].Revenue.IsZero())
	assert.Equal(t, types.Money(2000), rows[3].Price)
}
