package till_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/xraph/till"
	"github.com/xraph/till/cart"
	"github.com/xraph/till/clock"
	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/store/memory"
	"github.com/xraph/till/summary"
	"github.com/xraph/till/types"
)

var start = time.Date(2024, 5, 1, 0, 30, 0, 0, time.UTC)

func newTill(t testing.TB, opts ...till.Option) (*till.Till, *clock.Manual) {
	t.Helper()
	clk := clock.NewManual(start)
	opts = append([]till.Option{
		till.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		till.WithClock(clk),
	}, opts...)
	tl := till.New(memory.New(), opts...)
	if err := tl.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return tl, clk
}

func mustEvent(t testing.TB, tl *till.Till, name string) id.EventID {
	t.Helper()
	eventID, err := tl.CreateEvent(context.Background(), name, "2024-05-01")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return eventID
}

func mustProduct(t testing.TB, tl *till.Till, eventID id.EventID, name string, price types.Money, stock int64) id.ProductID {
	t.Helper()
	productID, err := tl.AddProduct(context.Background(), eventID, name, price, stock)
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	return productID
}

func stockOf(t testing.TB, tl *till.Till, productID id.ProductID) int64 {
	t.Helper()
	stock, err := tl.ProductStock(context.Background(), productID)
	if err != nil {
		t.Fatalf("ProductStock: %v", err)
	}
	return stock
}

func saleTotals(revenue types.Money, quantity, transactions int64) sale.Totals {
	return sale.Totals{Revenue: revenue, Quantity: quantity, Transactions: transactions}
}

func TestCreateEventValidation(t *testing.T) {
	tl, _ := newTill(t)

	tests := []struct {
		name      string
		eventName string
		date      string
		field     string
	}{
		{"empty name", "", "2024-05-01", "name"},
		{"blank name", "   ", "2024-05-01", "name"},
		{"bad date", "Fair", "05/01/2024", "date"},
		{"impossible date", "Fair", "2024-02-30", "date"},
		{"empty date", "Fair", "", "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.CreateEvent(context.Background(), tt.eventName, tt.date)
			var ve till.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field: got %q, want %q", ve.Field, tt.field)
			}
		})
	}

	events, _ := tl.ListEvents(context.Background())
	if len(events) != 0 {
		t.Errorf("rejected events must not be stored, got %d", len(events))
	}
}

func TestListEventsNewestFirst(t *testing.T) {
	tl, clk := newTill(t)
	ctx := context.Background()

	first := mustEvent(t, tl, "Winter Market")
	clk.Advance(time.Hour)
	second := mustEvent(t, tl, "Spring Fair")
	// Same instant as second: creation order decides.
	third := mustEvent(t, tl, "Night Bazaar")

	events, err := tl.ListEvents(ctx)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	want := []id.EventID{third, second, first}
	for i, w := range want {
		if events[i].ID != w {
			t.Errorf("position %d: got %s, want %s", i, events[i].Name, w)
		}
	}

	e, err := tl.GetEvent(ctx, second)
	if err != nil {
		t.Fatalf("GetEvent: %v", err)
	}
	if e.DateString() != "2024-05-01" {
		t.Errorf("Date: got %s", e.DateString())
	}

	if _, err := tl.GetEvent(ctx, id.NewEventID()); !errors.Is(err, till.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

// Any valid event created last is listed first.
func TestCreatedEventListedFirst(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tl, clk := newTill(t)
		n := rapid.IntRange(0, 5).Draw(rt, "existing")
		for range n {
			mustEvent(t, tl, "Old")
			clk.Advance(time.Duration(rapid.IntRange(0, 3).Draw(rt, "gap")) * time.Second)
		}

		name := rapid.StringMatching(`[A-Za-z][A-Za-z ]{0,20}`).Draw(rt, "name")
		day := rapid.IntRange(1, 28).Draw(rt, "day")
		date := time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC).Format(event.DateLayout)

		eventID, err := tl.CreateEvent(context.Background(), name, date)
		if err != nil {
			rt.Fatalf("CreateEvent(%q, %q): %v", name, date, err)
		}
		events, _ := tl.ListEvents(context.Background())
		if events[0].ID != eventID {
			rt.Fatalf("new event not listed first")
		}
	})
}

func TestAddProductValidation(t *testing.T) {
	tl, _ := newTill(t)
	eventID := mustEvent(t, tl, "Fair")

	tests := []struct {
		name    string
		eventID id.EventID
		product string
		price   types.Money
		stock   int64
		field   string
	}{
		{"empty name", eventID, "", 100, 1, "name"},
		{"negative price", eventID, "Sticker", -1, 1, "price"},
		{"negative stock", eventID, "Sticker", 100, -1, "stock"},
		{"no event", id.Nil, "Sticker", 100, 1, "event_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.AddProduct(context.Background(), tt.eventID, tt.product, tt.price, tt.stock)
			var ve till.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("expected ValidationError on %q, got %v", tt.field, err)
			}
		})
	}

	if _, err := tl.AddProduct(context.Background(), id.NewEventID(), "Sticker", 100, 1); !errors.Is(err, till.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}

	// Free items and empty stock are valid.
	if _, err := tl.AddProduct(context.Background(), eventID, "Flyer", 0, 0); err != nil {
		t.Errorf("AddProduct with zero price and stock: %v", err)
	}
}

func TestListProductsByName(t *testing.T) {
	tl, _ := newTill(t)
	eventID := mustEvent(t, tl, "Fair")
	mustProduct(t, tl, eventID, "Tote", 1500, 3)
	mustProduct(t, tl, eventID, "Badge", 200, 30)
	mustProduct(t, tl, eventID, "Sticker", 300, 10)

	products, err := tl.ListProducts(context.Background(), eventID)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	got := []string{products[0].Name, products[1].Name, products[2].Name}
	want := []string{"Badge", "Sticker", "Tote"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestAdjustStock(t *testing.T) {
	tl, _ := newTill(t)
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	productID := mustProduct(t, tl, eventID, "Sticker", 300, 10)

	ok, err := tl.AdjustStock(ctx, productID, -4)
	if err != nil || !ok {
		t.Fatalf("AdjustStock(-4): ok=%v err=%v", ok, err)
	}
	if got := stockOf(t, tl, productID); got != 6 {
		t.Errorf("stock: got %d, want 6", got)
	}

	ok, err = tl.AdjustStock(ctx, productID, -7)
	if ok || !till.IsValidation(err) {
		t.Errorf("overdraw: ok=%v err=%v, want a ValidationError", ok, err)
	}
	if !errors.Is(err, till.ErrInvalidInput) {
		t.Errorf("overdraw: %v does not match ErrInvalidInput", err)
	}
	if got := stockOf(t, tl, productID); got != 6 {
		t.Errorf("rejected adjustment changed stock to %d", got)
	}

	ok, err = tl.AdjustStock(ctx, id.NewProductID(), 1)
	if ok || err != nil {
		t.Errorf("missing product: ok=%v err=%v, want false and nil", ok, err)
	}
}

// Stock after AddProduct(S) and AdjustStock(-k) with k ≤ S is S-k.
func TestStockArithmetic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tl, _ := newTill(t)
		eventID := mustEvent(t, tl, "Fair")
		s := rapid.Int64Range(0, 1000).Draw(rt, "stock")
		k := rapid.Int64Range(0, s).Draw(rt, "k")
		productID := mustProduct(t, tl, eventID, "Item", 100, s)

		ok, err := tl.AdjustStock(context.Background(), productID, -k)
		if err != nil || !ok {
			rt.Fatalf("AdjustStock: ok=%v err=%v", ok, err)
		}
		if got := stockOf(t, tl, productID); got != s-k {
			rt.Fatalf("stock: got %d, want %d", got, s-k)
		}
	})
}

func TestDeleteProductGuard(t *testing.T) {
	tl, _ := newTill(t)
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	sold := mustProduct(t, tl, eventID, "Sticker", 300, 10)
	unsold := mustProduct(t, tl, eventID, "Badge", 200, 10)

	saleID, err := tl.CommitSale(ctx, eventID, sold, 1, 300)
	if err != nil {
		t.Fatalf("CommitSale: %v", err)
	}

	if ok, err := tl.DeleteProduct(ctx, sold); ok || err != nil {
		t.Errorf("delete with live sale: ok=%v err=%v, want false and nil", ok, err)
	}
	if _, err := tl.GetProduct(ctx, sold); err != nil {
		t.Error("guarded product must still exist")
	}

	if ok, err := tl.DeleteProduct(ctx, unsold); !ok || err != nil {
		t.Errorf("delete unsold: ok=%v err=%v", ok, err)
	}
	if _, err := tl.GetProduct(ctx, unsold); !errors.Is(err, till.ErrProductNotFound) {
		t.Error("deleted product must be gone")
	}
	if ok, _ := tl.DeleteProduct(ctx, unsold); ok {
		t.Error("deleting twice must report false")
	}

	if _, err := tl.CancelSale(ctx, saleID); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}
	if ok, err := tl.DeleteProduct(ctx, sold); !ok || err != nil {
		t.Errorf("delete after cancel: ok=%v err=%v", ok, err)
	}
}

func TestRecordSale(t *testing.T) {
	tl, clk := newTill(t)
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	productID := mustProduct(t, tl, eventID, "Sticker", 300, 1)

	clk.Advance(90 * time.Minute)
	saleID, err := tl.RecordSale(ctx, eventID, productID, 3, 900)
	if err != nil {
		t.Fatalf("RecordSale: %v", err)
	}
	if got := stockOf(t, tl, productID); got != 1 {
		t.Errorf("RecordSale must not touch stock, got %d", got)
	}

	s, err := tl.GetSale(ctx, saleID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	// 02:00 UTC is 11:00 in Tokyo.
	if got := s.FormattedTime(); got != "2024-05-01 11:00:00" {
		t.Errorf("FormattedTime: got %q", got)
	}
	if s.SaleTime.Location() != clock.JST {
		t.Errorf("sale time zone: got %v", s.SaleTime.Location())
	}

	for _, tc := range []struct {
		qty   int64
		total types.Money
		field string
	}{
		{0, 100, "quantity"},
		{-1, 100, "quantity"},
		{1, -100, "total_price"},
	} {
		_, err := tl.RecordSale(ctx, eventID, productID, tc.qty, tc.total)
		var ve till.ValidationError
		if !errors.As(err, &ve) || ve.Field != tc.field {
			t.Errorf("RecordSale(%d, %d): got %v, want ValidationError on %s", tc.qty, tc.total, err, tc.field)
		}
	}
}

func TestCommitSaleAtomic(t *testing.T) {
	tl, _ := newTill(t)
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	productID := mustProduct(t, tl, eventID, "Sticker", 300, 2)

	_, err := tl.CommitSale(ctx, eventID, productID, 3, 900)
	if !errors.Is(err, till.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := stockOf(t, tl, productID); got != 2 {
		t.Errorf("stock after rejected commit: got %d, want 2", got)
	}
	totals, _ := tl.SalesSummary(ctx, eventID)
	if totals.Transactions != 0 {
		t.Error("a rejected commit must not leave a sale")
	}

	if _, err := tl.CommitSale(ctx, eventID, id.NewProductID(), 1, 100); !errors.Is(err, till.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestCancelSale(t *testing.T) {
	tl, _ := newTill(t)
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	productID := mustProduct(t, tl, eventID, "Sticker", 300, 10)

	keep, _ := tl.CommitSale(ctx, eventID, productID, 1, 300)
	drop, _ := tl.CommitSale(ctx, eventID, productID, 2, 600)

	ok, err := tl.CancelSale(ctx, drop)
	if !ok || err != nil {
		t.Fatalf("CancelSale: ok=%v err=%v", ok, err)
	}

	totals, _ := tl.SalesSummary(ctx, eventID)
	if totals.Revenue != 300 || totals.Quantity != 1 || totals.Transactions != 1 {
		t.Errorf("totals after cancel: %+v", totals)
	}
	rows, _ := tl.ProductSalesSummary(ctx, eventID)
	if rows[0].Quantity != 1 || rows[0].Revenue != 300 {
		t.Errorf("product row after cancel: %+v", rows[0])
	}

	ok, err = tl.CancelSale(ctx, drop)
	if ok || err != nil {
		t.Errorf("second cancel: ok=%v err=%v, want false and nil", ok, err)
	}
	again, _ := tl.SalesSummary(ctx, eventID)
	if *again != *totals {
		t.Errorf("second cancel changed totals: %+v -> %+v", totals, again)
	}

	if ok, _ := tl.CancelSale(ctx, id.NewSaleID()); ok {
		t.Error("cancelling a missing sale must report false")
	}

	s, _ := tl.GetSale(ctx, keep)
	if s.Cancelled {
		t.Error("unrelated sale was cancelled")
	}
}

func TestCancelSaleRestockPolicy(t *testing.T) {
	tl, _ := newTill(t, till.WithRestockOnCancel(true))
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	productID := mustProduct(t, tl, eventID, "Sticker", 300, 10)

	saleID, _ := tl.CommitSale(ctx, eventID, productID, 4, 1200)
	if _, err := tl.CancelSale(ctx, saleID); err != nil {
		t.Fatalf("CancelSale: %v", err)
	}
	if got := stockOf(t, tl, productID); got != 10 {
		t.Errorf("stock after restocking cancel: got %d, want 10", got)
	}

	_, _ = tl.CancelSale(ctx, saleID)
	if got := stockOf(t, tl, productID); got != 10 {
		t.Errorf("repeated cancel restocked again: %d", got)
	}
}

func TestRecentSales(t *testing.T) {
	tl, clk := newTill(t, till.WithRecentSalesLimit(2))
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	sticker := mustProduct(t, tl, eventID, "Sticker", 300, 10)
	badge := mustProduct(t, tl, eventID, "Badge", 200, 10)

	first, _ := tl.CommitSale(ctx, eventID, sticker, 1, 300)
	clk.Advance(time.Minute)
	second, _ := tl.CommitSale(ctx, eventID, badge, 1, 200)
	third, _ := tl.CommitSale(ctx, eventID, sticker, 2, 600)
	_, _ = tl.CancelSale(ctx, first)

	all, err := tl.RecentSales(ctx, eventID, 10)
	if err != nil {
		t.Fatalf("RecentSales: %v", err)
	}
	want := []id.SaleID{third, second, first}
	if len(all) != len(want) {
		t.Fatalf("len: got %d, want %d", len(all), len(want))
	}
	for i, w := range want {
		if all[i].ID != w {
			t.Errorf("position %d: wrong sale", i)
		}
	}
	if all[1].ProductName != "Badge" {
		t.Errorf("ProductName: got %q", all[1].ProductName)
	}
	if !all[2].Cancelled {
		t.Error("cancelled sale must be flagged in history")
	}
	if all[0].SaleTime.Location() != clock.JST {
		t.Error("history times must be in the till's zone")
	}

	bounded, _ := tl.RecentSales(ctx, eventID, 0)
	if len(bounded) != 2 {
		t.Errorf("default limit: got %d, want 2", len(bounded))
	}
}

func TestProductSalesSummaryOrdering(t *testing.T) {
	tl, _ := newTill(t)
	ctx := context.Background()
	eventID := mustEvent(t, tl, "Fair")
	tote := mustProduct(t, tl, eventID, "Tote", 1500, 5)
	badge := mustProduct(t, tl, eventID, "Badge", 200, 30)
	sticker := mustProduct(t, tl, eventID, "Sticker", 300, 10)
	mustProduct(t, tl, eventID, "Apron", 2500, 2)

	_, _ = tl.CommitSale(ctx, eventID, tote, 1, 1500)
	_, _ = tl.CommitSale(ctx, eventID, badge, 3, 600)
	_, _ = tl.CommitSale(ctx, eventID, sticker, 2, 600)

	rows, err := tl.ProductSalesSummary(ctx, eventID)
	if err != nil {
		t.Fatalf("ProductSalesSummary: %v", err)
	}
	want := []struct {
		name     string
		quantity int64
		revenue  types.Money
	}{
		{"Tote", 1, 1500},
		{"Badge", 3, 600},
		{"Sticker", 2, 600},
		{"Apron", 0, 0},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows: got %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		r := rows[i]
		if r.Name != w.name || r.Quantity != w.quantity || r.Revenue != w.revenue {
			t.Errorf("row %d: got %s/%d/%d, want %s/%d/%d", i, r.Name, r.Quantity, r.Revenue, w.name, w.quantity, w.revenue)
		}
	}
	if rows[3].Price != 2500 {
		t.Errorf("unit price on zero-sale row: got %d", rows[3].Price)
	}
}

// The end-to-end register flow: stage, check out, summarize, cancel.
func TestSpringFair(t *testing.T) {
	tl, _ := newTill(t)
	ctx := context.Background()

	eventID, err := tl.CreateEvent(ctx, "Spring Fair", "2024-05-01")
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	stickerID, err := tl.AddProduct(ctx, eventID, "Sticker", 300, 10)
	if err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	sticker, _ := tl.GetProduct(ctx, stickerID)

	session := cart.NewSession()
	session.SwitchEvent(eventID)
	if err := session.Cart.AddLine(sticker.ID, sticker.Name, sticker.Price, sticker.Stock, 2); err != nil {
		t.Fatalf("AddLine: %v", err)
	}

	saleIDs, err := session.Checkout(ctx, tl)
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if len(saleIDs) != 1 {
		t.Fatalf("sales: got %d, want 1", len(saleIDs))
	}
	s, _ := tl.GetSale(ctx, saleIDs[0])
	if s.TotalPrice != 600 {
		t.Errorf("TotalPrice: got %d, want 600", s.TotalPrice)
	}
	if got := stockOf(t, tl, stickerID); got != 8 {
		t.Errorf("stock after checkout: got %d, want 8", got)
	}

	eng := summary.NewEngine(tl)
	snap, err := eng.Refresh(ctx, eventID)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snap.Totals != saleTotals(600, 2, 1) {
		t.Errorf("summary: got %+v, want (600, 2, 1)", snap.Totals)
	}
	if tl.FormatMoney(snap.Totals.Revenue) != "¥600" {
		t.Errorf("FormatMoney: got %q", tl.FormatMoney(snap.Totals.Revenue))
	}

	if ok, err := tl.CancelSale(ctx, saleIDs[0]); !ok || err != nil {
		t.Fatalf("CancelSale: ok=%v err=%v", ok, err)
	}
	snap, _ = eng.Refresh(ctx, eventID)
	if snap.Totals != saleTotals(0, 0, 0) {
		t.Errorf("summary after cancel: got %+v, want (0, 0, 0)", snap.Totals)
	}
	if got := stockOf(t, tl, stickerID); got != 8 {
		t.Errorf("stock after cancel: got %d, want 8 (cancellation does not restock)", got)
	}
}

func TestCartStockGuardMessage(t *testing.T) {
	c := cart.New()
	p := id.NewProductID()
	_ = c.AddLine(p, "Sticker", 300, 4, 2)

	err := c.AddLine(p, "Sticker", 300, 4, 3)
	var se *cart.InsufficientStockError
	if !errors.As(err, &se) || se.Available != 4 {
		t.Fatalf("expected InsufficientStockError with stock 4, got %v", err)
	}
}

type failingStore struct {
	*memory.Store
}

func (failingStore) CreateEvent(context.Context, *event.Event) error {
	return errors.New("disk full")
}

func TestStorageErrorWrapping(t *testing.T) {
	tl := till.New(failingStore{memory.New()},
		till.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	_, err := tl.CreateEvent(context.Background(), "Fair", "2024-05-01")
	if !till.IsStorage(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	var se *till.StorageError
	errors.As(err, &se)
	if se.Op != "create event" {
		t.Errorf("Op: got %q", se.Op)
	}
}

func TestStartStop(t *testing.T) {
	tl, _ := newTill(t)
	if err := tl.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := tl.Store().Ping(context.Background()); !errors.Is(err, till.ErrStoreClosed) {
		t.Errorf("store should be closed after Stop, got %v", err)
	}
}
