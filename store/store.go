package store

import (
	"context"

	"github.com/xraph/till/event"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
)

// Store is the unified storage interface for all till entities.
// Sub-interfaces use entity-qualified method names so they can be embedded
// without conflicts.
type Store interface {
	event.Store
	product.Store
	sale.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
