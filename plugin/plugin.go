// Package plugin provides an extensible plugin system for till.
// Plugins hook into ledger lifecycle events to add auditing, metrics or
// tracing without touching the core.
package plugin

import (
	"context"

	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the till starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, t interface{}) error
}

// OnShutdown is called when the till stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Catalog hooks
// ──────────────────────────────────────────────────

// OnEventCreated is called after a new event is stored.
type OnEventCreated interface {
	Plugin
	OnEventCreated(ctx context.Context, e *event.Event) error
}

// OnProductAdded is called after a product is added to an event.
type OnProductAdded interface {
	Plugin
	OnProductAdded(ctx context.Context, p *product.Product) error
}

// OnProductDeleted is called after a product is removed.
type OnProductDeleted interface {
	Plugin
	OnProductDeleted(ctx context.Context, productID id.ProductID) error
}

// OnStockAdjusted is called after a manual stock adjustment.
type OnStockAdjusted interface {
	Plugin
	OnStockAdjusted(ctx context.Context, productID id.ProductID, delta, stock int64) error
}

// ──────────────────────────────────────────────────
// Sale hooks
// ──────────────────────────────────────────────────

// OnSaleRecorded is called after a sale row is written on its own,
// without a stock change.
type OnSaleRecorded interface {
	Plugin
	OnSaleRecorded(ctx context.Context, s *sale.Sale) error
}

// OnSaleCommitted is called after a sale and its stock decrement are
// committed together.
type OnSaleCommitted interface {
	Plugin
	OnSaleCommitted(ctx context.Context, s *sale.Sale) error
}

// OnSaleRejected is called when a commit is refused by the store, for
// example for insufficient stock.
type OnSaleRejected interface {
	Plugin
	OnSaleRejected(ctx context.Context, s *sale.Sale, reason error) error
}

// OnSaleCancelled is called after a sale is marked cancelled.
type OnSaleCancelled interface {
	Plugin
	OnSaleCancelled(ctx context.Context, s *sale.Sale, restocked bool) error
}
