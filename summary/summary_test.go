package summary_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/till/id"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/summary"
)

type fakeSource struct {
	totals   *sale.Totals
	products []*sale.ProductTotal
	recent   []*sale.Record
	err      error

	calls     int
	lastLimit int
}

func (f *fakeSource) SalesSummary(_ context.Context, _ id.EventID) (*sale.Totals, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.totals, nil
}

func (f *fakeSource) ProductSalesSummary(_ context.Context, _ id.EventID) ([]*sale.ProductTotal, error) {
	return f.products, nil
}

func (f *fakeSource) RecentSales(_ context.Context, _ id.EventID, limit int) ([]*sale.Record, error) {
	f.lastLimit = limit
	return f.recent, nil
}

func TestRefresh(t *testing.T) {
	at := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC)
	cookie, mug := id.NewProductID(), id.NewProductID()
	src := &fakeSource{
		totals: &sale.Totals{Revenue: 3000, Quantity: 6, Transactions: 4},
		products: []*sale.ProductTotal{
			{ProductID: mug, Name: "Mug", Price: 1200, Quantity: 2, Revenue: 2400},
			{ProductID: cookie, Name: "Cookie", Price: 150, Quantity: 4, Revenue: 600},
		},
		recent: []*sale.Record{
			{Sale: sale.Sale{ID: id.NewSaleID(), Cancelled: true}},
			{Sale: sale.Sale{ID: id.NewSaleID()}},
		},
	}
	eng := summary.NewEngine(src, summary.WithRecentLimit(5), summary.WithNow(func() time.Time { return at }))

	eventID := id.NewEventID()
	snap, err := eng.Refresh(context.Background(), eventID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if snap.EventID != eventID || !snap.At.Equal(at) {
		t.Errorf("snapshot header: %+v", snap)
	}
	if src.lastLimit != 5 {
		t.Errorf("recent limit: got %d, want 5", src.lastLimit)
	}
	if snap.Totals.Revenue != 3000 {
		t.Errorf("Revenue: got %d", snap.Totals.Revenue)
	}
	if got := snap.AverageTicket(); got != 750 {
		t.Errorf("AverageTicket: got %d, want 750", got)
	}
	if top := snap.TopSeller(); top == nil || top.ProductID != mug {
		t.Errorf("TopSeller: got %+v", top)
	}
	if got := snap.Share(mug); got != 8000 {
		t.Errorf("Share(mug): got %d, want 8000", got)
	}
	if got := snap.Share(id.NewProductID()); got != 0 {
		t.Errorf("Share(unknown): got %d, want 0", got)
	}
	if got := snap.Cancelled(); got != 1 {
		t.Errorf("Cancelled: got %d, want 1", got)
	}
}

func TestRefreshIsStateless(t *testing.T) {
	src := &fakeSource{totals: &sale.Totals{}}
	eng := summary.NewEngine(src)
	ctx := context.Background()

	first, _ := eng.Refresh(ctx, id.NewEventID())
	src.totals = &sale.Totals{Revenue: 500, Quantity: 1, Transactions: 1}
	second, _ := eng.Refresh(ctx, id.NewEventID())

	if src.calls != 2 {
		t.Errorf("source calls: got %d, want 2", src.calls)
	}
	if first.Totals.Revenue != 0 || second.Totals.Revenue != 500 {
		t.Errorf("each Refresh must re-query: first=%d second=%d", first.Totals.Revenue, second.Totals.Revenue)
	}
}

func TestEmptySnapshot(t *testing.T) {
	snap, err := summary.NewEngine(&fakeSource{
		totals:   &sale.Totals{},
		products: []*sale.ProductTotal{{ProductID: id.NewProductID(), Name: "Unsold"}},
	}).Refresh(context.Background(), id.NewEventID())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if snap.AverageTicket() != 0 {
		t.Error("AverageTicket with no transactions should be 0")
	}
	if snap.TopSeller() != nil {
		t.Error("TopSeller with no sales should be nil")
	}
	if snap.Share(snap.Products[0].ProductID) != 0 {
		t.Error("Share with no revenue should be 0")
	}
}

func TestRefreshError(t *testing.T) {
	boom := errors.New("boom")
	_, err := summary.NewEngine(&fakeSource{err: boom}).Refresh(context.Background(), id.NewEventID())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}
