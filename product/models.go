// Package product defines catalog items sold at an event.
package product

import (
	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

// Product is a catalog item scoped to exactly one event.
// Stock is never negative.
type Product struct {
	types.Entity
	ID      id.ProductID `json:"id"`
	EventID id.EventID   `json:"event_id"`
	Name    string       `json:"name"`
	Price   types.Money  `json:"price"`
	Stock   int64        `json:"stock"`
}

// InStock reports whether at least qty units are available.
func (p *Product) InStock(qty int64) bool {
	return p.Stock >= qty
}
