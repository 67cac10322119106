package product

import (
	"context"

	"github.com/xraph/till/id"
)

// Store persists products and their stock levels.
type Store interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, productID id.ProductID) (*Product, error)
	// ListProducts returns the products of one event ordered by name.
	ListProducts(ctx context.Context, eventID id.EventID) ([]*Product, error)
	// DeleteProduct removes a product that no non-cancelled sale references.
	// It returns ErrProductNotFound or ErrProductHasSales otherwise.
	DeleteProduct(ctx context.Context, productID id.ProductID) error
	// AdjustStock adds delta to the stock and returns the new level.
	// A result below zero is rejected with ErrInsufficientStock.
	AdjustStock(ctx context.Context, productID id.ProductID, delta int64) (int64, error)
}
