package sale

import (
	"context"

	"github.com/xraph/till/id"
)

// Store persists sales and answers aggregate queries over them.
type Store interface {
	// RecordSale inserts a sale without touching stock.
	RecordSale(ctx context.Context, s *Sale) error
	// CommitSale inserts a sale and decrements the product's stock by its
	// quantity as one atomic unit. Nothing is written when the product is
	// missing (ErrProductNotFound) or stock would go negative
	// (ErrInsufficientStock).
	CommitSale(ctx context.Context, s *Sale) error
	GetSale(ctx context.Context, saleID id.SaleID) (*Sale, error)
	// CancelSale marks a sale cancelled. With restock the quantity is added
	// back to the product in the same atomic unit. It returns ErrSaleNotFound
	// or ErrSaleAlreadyCancelled without changing anything.
	CancelSale(ctx context.Context, saleID id.SaleID, restock bool) error
	// RecentSales returns up to limit sales of an event, newest first.
	RecentSales(ctx context.Context, eventID id.EventID, limit int) ([]*Record, error)
	SalesTotals(ctx context.Context, eventID id.EventID) (*Totals, error)
	// ProductTotals returns one row per product of the event ordered by
	// revenue descending, then name.
	ProductTotals(ctx context.Context, eventID id.EventID) ([]*ProductTotal, error)
}
