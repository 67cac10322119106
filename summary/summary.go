// Package summary builds the live figures shown next to the register.
//
// The Engine keeps no state between calls. Every Refresh re-queries the
// ledger, so a caller that mutates the ledger (commit, cancel, adjust)
// must call Refresh again to see the change.
package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/till/id"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/types"
)

// Source is the read side of the ledger the engine queries.
// *till.Till satisfies it.
type Source interface {
	SalesSummary(ctx context.Context, eventID id.EventID) (*sale.Totals, error)
	ProductSalesSummary(ctx context.Context, eventID id.EventID) ([]*sale.ProductTotal, error)
	RecentSales(ctx context.Context, eventID id.EventID, limit int) ([]*sale.Record, error)
}

// Engine assembles snapshots from a Source.
type Engine struct {
	source      Source
	recentLimit int
	now         func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecentLimit bounds the recent-sales list of each snapshot. Zero or
// less defers to the source's default.
func WithRecentLimit(n int) Option {
	return func(e *Engine) { e.recentLimit = n }
}

// WithNow sets the function used to stamp snapshots.
func WithNow(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an engine over source.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{source: source, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot is the set of figures for one event at one moment.
type Snapshot struct {
	EventID  id.EventID           `json:"event_id"`
	Totals   sale.Totals          `json:"totals"`
	Products []*sale.ProductTotal `json:"products"`
	Recent   []*sale.Record       `json:"recent"`
	At       time.Time            `json:"at"`
}

// Refresh re-queries totals, per-product rows and recent sales for an event.
func (e *Engine) Refresh(ctx context.Context, eventID id.EventID) (*Snapshot, error) {
	totals, err := e.source.SalesSummary(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("summary: totals: %w", err)
	}
	products, err := e.source.ProductSalesSummary(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("summary: products: %w", err)
	}
	recent, err := e.source.RecentSales(ctx, eventID, e.recentLimit)
	if err != nil {
		return nil, fmt.Errorf("summary: recent sales: %w", err)
	}

	snap := &Snapshot{
		EventID:  eventID,
		Products: products,
		Recent:   recent,
		At:       e.now(),
	}
	if totals != nil {
		snap.Totals = *totals
	}
	return snap, nil
}

// AverageTicket returns revenue divided by transaction count, rounded
// toward zero. It is zero when there are no transactions.
func (s *Snapshot) AverageTicket() types.Money {
	if s.Totals.Transactions == 0 {
		return 0
	}
	return s.Totals.Revenue.Divide(s.Totals.Transactions)
}

// TopSeller returns the product with the highest revenue, or nil when no
// product has sold anything. Products arrive ordered by revenue, so the
// first sold row wins and ties go to the earlier name.
func (s *Snapshot) TopSeller() *sale.ProductTotal {
	for _, p := range s.Products {
		if p.Quantity > 0 {
			return p
		}
	}
	return nil
}

// Share returns a product's fraction of event revenue in basis points
// (1/100 of a percent). It is zero for unknown products and when the event
// has no revenue.
func (s *Snapshot) Share(productID id.ProductID) int64 {
	if !s.Totals.Revenue.IsPositive() {
		return 0
	}
	for _, p := range s.Products {
		if p.ProductID == productID {
			return p.Revenue.Int64() * 10000 / s.Totals.Revenue.Int64()
		}
	}
	return 0
}

// Cancelled counts the cancelled sales in the recent list.
func (s *Snapshot) Cancelled() int {
	n := 0
	for _, r := range s.Recent {
		if r.Cancelled {
			n++
		}
	}
	return n
}
