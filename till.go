package till

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/till/clock"
	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/plugin"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/store"
	"github.com/xraph/till/types"
)

// DefaultRecentSalesLimit bounds RecentSales when the caller passes no limit.
const DefaultRecentSalesLimit = 20

// Till is the ledger core: it validates every mutation, stamps sales with
// the configured clock and zone, and delegates persistence to a store.
type Till struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	clock   clock.Clock

	// Configuration
	loc             *time.Location
	currency        string
	recentLimit     int
	restockOnCancel bool
	skipMigrate     bool
}

// New creates a new Till instance.
func New(s store.Store, opts ...Option) *Till {
	t := &Till{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		loc:         clock.JST,
		currency:    types.DefaultCurrency,
		recentLimit: DefaultRecentSalesLimit,
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.clock == nil {
		t.clock = clock.NewSystem(t.loc)
	}

	return t
}

// Option configures a Till instance.
type Option func(*Till)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Till) {
		t.logger = logger
		t.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(t *Till) {
		_ = t.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(t *Till) {
		t.plugins.WithTimeout(d)
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(c clock.Clock) Option {
	return func(t *Till) {
		t.clock = c
	}
}

// WithLocation sets the civil zone sale timestamps are recorded in.
func WithLocation(loc *time.Location) Option {
	return func(t *Till) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithCurrency sets the currency used by FormatMoney.
func WithCurrency(currency string) Option {
	return func(t *Till) {
		if currency != "" {
			t.currency = strings.ToLower(currency)
		}
	}
}

// WithRecentSalesLimit sets the default RecentSales bound.
func WithRecentSalesLimit(n int) Option {
	return func(t *Till) {
		if n > 0 {
			t.recentLimit = n
		}
	}
}

// WithRestockOnCancel makes CancelSale return the sold quantity to stock,
// atomically with the cancellation.
func WithRestockOnCancel(enabled bool) Option {
	return func(t *Till) {
		t.restockOnCancel = enabled
	}
}

// WithoutMigrate makes Start leave the schema alone. Plugins are still
// initialized.
func WithoutMigrate() Option {
	return func(t *Till) {
		t.skipMigrate = true
	}
}

// Start migrates the store and initializes plugins.
func (t *Till) Start(ctx context.Context) error {
	if !t.skipMigrate {
		if err := t.store.Migrate(ctx); err != nil {
			return err
		}
	}

	t.plugins.EmitInit(ctx, t)

	t.logger.Info("till started",
		"currency", t.currency,
		"location", t.loc.String(),
		"recent_sales_limit", t.recentLimit,
		"restock_on_cancel", t.restockOnCancel,
		"migrated", !t.skipMigrate,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (t *Till) Stop() error {
	ctx := context.Background()
	t.plugins.EmitShutdown(ctx)

	return t.store.Close()
}

// Store returns the underlying store.
func (t *Till) Store() store.Store { return t.store }

// Plugins returns the plugin registry.
func (t *Till) Plugins() *plugin.Registry { return t.plugins }

// Logger returns the configured logger.
func (t *Till) Logger() *slog.Logger { return t.logger }

// Location returns the civil zone sale timestamps are recorded in.
func (t *Till) Location() *time.Location { return t.loc }

// Currency returns the configured currency code.
func (t *Till) Currency() string { return t.currency }

// FormatMoney renders an amount in the configured currency, e.g. "¥1,234".
func (t *Till) FormatMoney(m types.Money) string { return m.Format(t.currency) }

func (t *Till) now() time.Time {
	return t.clock.Now().In(t.loc)
}

// ──────────────────────────────────────────────────
// Events
// ──────────────────────────────────────────────────

// CreateEvent creates a new event. The date must be a YYYY-MM-DD calendar day.
func (t *Till) CreateEvent(ctx context.Context, name, date string) (id.EventID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return id.Nil, ValidationError{Field: "name", Message: "must not be empty"}
	}
	day, err := event.ParseDate(strings.TrimSpace(date))
	if err != nil {
		return id.Nil, ValidationError{Field: "date", Message: fmt.Sprintf("%q is not a YYYY-MM-DD date", date)}
	}

	e := &event.Event{
		Entity: types.NewEntity(t.now()),
		ID:     id.NewEventID(),
		Name:   name,
		Date:   day,
	}
	if err := t.store.CreateEvent(ctx, e); err != nil {
		return id.Nil, storageErr("create event", err)
	}

	t.logger.Info("event created", "event_id", e.ID.String(), "name", e.Name, "date", e.DateString())
	t.plugins.EmitEventCreated(ctx, e)
	return e.ID, nil
}

// ListEvents returns every event, most recently created first.
func (t *Till) ListEvents(ctx context.Context) ([]*event.Event, error) {
	events, err := t.store.ListEvents(ctx)
	if err != nil {
		return nil, storageErr("list events", err)
	}
	return events, nil
}

// GetEvent retrieves an event by ID.
func (t *Till) GetEvent(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	e, err := t.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, storageErr("get event", err)
	}
	return e, nil
}

// ──────────────────────────────────────────────────
// Products
// ──────────────────────────────────────────────────

// AddProduct adds a product to an existing event.
func (t *Till) AddProduct(ctx context.Context, eventID id.EventID, name string, price types.Money, initialStock int64) (id.ProductID, error) {
	name = strings.TrimSpace(name)
	switch {
	case eventID.IsNil():
		return id.Nil, ValidationError{Field: "event_id", Message: "is required"}
	case name == "":
		return id.Nil, ValidationError{Field: "name", Message: "must not be empty"}
	case price.IsNegative():
		return id.Nil, ValidationError{Field: "price", Message: "must not be negative"}
	case initialStock < 0:
		return id.Nil, ValidationError{Field: "stock", Message: "must not be negative"}
	}

	if _, err := t.store.GetEvent(ctx, eventID); err != nil {
		return id.Nil, storageErr("add product", err)
	}

	p := &product.Product{
		Entity:  types.NewEntity(t.now()),
		ID:      id.NewProductID(),
		EventID: eventID,
		Name:    name,
		Price:   price,
		Stock:   initialStock,
	}
	if err := t.store.CreateProduct(ctx, p); err != nil {
		return id.Nil, storageErr("add product", err)
	}

	t.logger.Info("product added",
		"event_id", eventID.String(),
		"product_id", p.ID.String(),
		"name", p.Name,
		"price", p.Price.Int64(),
		"stock", p.Stock,
	)
	t.plugins.EmitProductAdded(ctx, p)
	return p.ID, nil
}

// ListProducts returns the products of an event ordered by name.
func (t *Till) ListProducts(ctx context.Context, eventID id.EventID) ([]*product.Product, error) {
	products, err := t.store.ListProducts(ctx, eventID)
	if err != nil {
		return nil, storageErr("list products", err)
	}
	return products, nil
}

// GetProduct retrieves a product by ID.
func (t *Till) GetProduct(ctx context.Context, productID id.ProductID) (*product.Product, error) {
	p, err := t.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, storageErr("get product", err)
	}
	return p, nil
}

// ProductStock returns the current stock of a product.
func (t *Till) ProductStock(ctx context.Context, productID id.ProductID) (int64, error) {
	p, err := t.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.Stock, nil
}

// DeleteProduct removes a product that has no non-cancelled sales.
// It reports false, without error, when the product is missing or still
// referenced by a live sale.
func (t *Till) DeleteProduct(ctx context.Context, productID id.ProductID) (bool, error) {
	err := t.store.DeleteProduct(ctx, productID)
	switch {
	case err == nil:
	case errors.Is(err, ErrProductNotFound), errors.Is(err, ErrProductHasSales):
		t.logger.Debug("product not deleted", "product_id", productID.String(), "reason", err)
		return false, nil
	default:
		return false, storageErr("delete product", err)
	}

	t.logger.Info("product deleted", "product_id", productID.String())
	t.plugins.EmitProductDeleted(ctx, productID)
	return true, nil
}

// AdjustStock adds delta (which may be negative) to a product's stock.
// It reports false when the product does not exist. A delta that would
// leave stock below zero is rejected with a ValidationError.
func (t *Till) AdjustStock(ctx context.Context, productID id.ProductID, delta int64) (bool, error) {
	stock, err := t.store.AdjustStock(ctx, productID, delta)
	switch {
	case err == nil:
	case errors.Is(err, ErrProductNotFound):
		return false, nil
	case errors.Is(err, ErrInsufficientStock):
		return false, ValidationError{
			Field:   "delta",
			Message: fmt.Sprintf("%d would leave stock below zero (stock %d)", delta, stock),
		}
	default:
		return false, storageErr("adjust stock", err)
	}

	t.logger.Debug("stock adjusted", "product_id", productID.String(), "delta", delta, "stock", stock)
	t.plugins.EmitStockAdjusted(ctx, productID, delta, stock)
	return true, nil
}

// ──────────────────────────────────────────────────
// Sales
// ──────────────────────────────────────────────────

func (t *Till) newSale(eventID id.EventID, productID id.ProductID, quantity int64, totalPrice types.Money) (*sale.Sale, error) {
	switch {
	case eventID.IsNil():
		return nil, ValidationError{Field: "event_id", Message: "is required"}
	case productID.IsNil():
		return nil, ValidationError{Field: "product_id", Message: "is required"}
	case quantity <= 0:
		return nil, ValidationError{Field: "quantity", Message: "must be positive"}
	case totalPrice.IsNegative():
		return nil, ValidationError{Field: "total_price", Message: "must not be negative"}
	}

	return &sale.Sale{
		ID:         id.NewSaleID(),
		EventID:    eventID,
		ProductID:  productID,
		Quantity:   quantity,
		TotalPrice: totalPrice,
		SaleTime:   t.now(),
	}, nil
}

// RecordSale writes a sale line stamped with the current time. It does not
// check or change stock; CommitSale is the checkout path.
func (t *Till) RecordSale(ctx context.Context, eventID id.EventID, productID id.ProductID, quantity int64, totalPrice types.Money) (id.SaleID, error) {
	s, err := t.newSale(eventID, productID, quantity, totalPrice)
	if err != nil {
		return id.Nil, err
	}
	if err := t.store.RecordSale(ctx, s); err != nil {
		return id.Nil, storageErr("record sale", err)
	}

	t.logger.Debug("sale recorded", "sale_id", s.ID.String(), "product_id", productID.String(), "quantity", quantity)
	t.plugins.EmitSaleRecorded(ctx, s)
	return s.ID, nil
}

// CommitSale records a sale and decrements the product's stock by its
// quantity as a single storage transaction. Either both happen or neither.
func (t *Till) CommitSale(ctx context.Context, eventID id.EventID, productID id.ProductID, quantity int64, totalPrice types.Money) (id.SaleID, error) {
	s, err := t.newSale(eventID, productID, quantity, totalPrice)
	if err != nil {
		return id.Nil, err
	}

	if err := t.store.CommitSale(ctx, s); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrInsufficientStock) {
			t.logger.Warn("sale rejected",
				"event_id", eventID.String(),
				"product_id", productID.String(),
				"quantity", quantity,
				"reason", err,
			)
			t.plugins.EmitSaleRejected(ctx, s, err)
			return id.Nil, err
		}
		return id.Nil, storageErr("commit sale", err)
	}

	t.logger.Info("sale committed",
		"event_id", eventID.String(),
		"sale_id", s.ID.String(),
		"product_id", productID.String(),
		"quantity", quantity,
		"total_price", totalPrice.Int64(),
	)
	t.plugins.EmitSaleCommitted(ctx, s)
	return s.ID, nil
}

// GetSale retrieves a sale by ID.
func (t *Till) GetSale(ctx context.Context, saleID id.SaleID) (*sale.Sale, error) {
	s, err := t.store.GetSale(ctx, saleID)
	if err != nil {
		return nil, storageErr("get sale", err)
	}
	s.SaleTime = s.SaleTime.In(t.loc)
	return s, nil
}

// CancelSale marks a sale cancelled. It reports false, without error, when
// the sale does not exist or was already cancelled; a repeated call changes
// nothing. Stock is restored only under WithRestockOnCancel(true).
func (t *Till) CancelSale(ctx context.Context, saleID id.SaleID) (bool, error) {
	err := t.store.CancelSale(ctx, saleID, t.restockOnCancel)
	switch {
	case err == nil:
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, ErrSaleAlreadyCancelled):
		t.logger.Debug("sale not cancelled", "sale_id", saleID.String(), "reason", err)
		return false, nil
	default:
		return false, storageErr("cancel sale", err)
	}

	t.logger.Info("sale cancelled", "sale_id", saleID.String(), "restocked", t.restockOnCancel)

	if s, getErr := t.GetSale(ctx, saleID); getErr == nil {
		t.plugins.EmitSaleCancelled(ctx, s, t.restockOnCancel)
	}
	return true, nil
}

// RecentSales returns up to limit sales of an event joined with their
// product names, newest first. Cancelled sales are included and flagged.
// A limit of zero or less uses the configured default.
func (t *Till) RecentSales(ctx context.Context, eventID id.EventID, limit int) ([]*sale.Record, error) {
	if limit <= 0 {
		limit = t.recentLimit
	}
	records, err := t.store.RecentSales(ctx, eventID, limit)
	if err != nil {
		return nil, storageErr("recent sales", err)
	}
	for _, r := range records {
		r.SaleTime = r.SaleTime.In(t.loc)
	}
	return records, nil
}

// SalesSummary returns revenue, units sold and transaction count over the
// non-cancelled sales of an event.
func (t *Till) SalesSummary(ctx context.Context, eventID id.EventID) (*sale.Totals, error) {
	totals, err := t.store.SalesTotals(ctx, eventID)
	if err != nil {
		return nil, storageErr("sales summary", err)
	}
	return totals, nil
}

// ProductSalesSummary returns one row per product of an event, including
// products with no sales, ordered by revenue descending then name.
func (t *Till) ProductSalesSummary(ctx context.Context, eventID id.EventID) ([]*sale.ProductTotal, error) {
	rows, err := t.store.ProductTotals(ctx, eventID)
	if err != nil {
		return nil, storageErr("product sales summary", err)
	}
	return rows, nil
}

// storageErr passes domain sentinels through and wraps anything else in a
// StorageError naming the operation.
func storageErr(op string, err error) error {
	for _, sentinel := range domainErrors {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}

var domainErrors = []error{
	ErrEventNotFound,
	ErrProductNotFound,
	ErrProductHasSales,
	ErrInsufficientStock,
	ErrSaleNotFound,
	ErrSaleAlreadyCancelled,
}
