// Package sale defines committed sale lines and the aggregates computed
// over them.
package sale

import (
	"time"

	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

// TimeLayout is the display layout for sale timestamps.
const TimeLayout = "2006-01-02 15:04:05"

// Sale is one committed sale line. TotalPrice is frozen at commit time and
// does not follow later price changes. Cancelled only ever moves from
// false to true.
type Sale struct {
	ID         id.SaleID    `json:"id"`
	EventID    id.EventID   `json:"event_id"`
	ProductID  id.ProductID `json:"product_id"`
	Quantity   int64        `json:"quantity"`
	TotalPrice types.Money  `json:"total_price"`
	SaleTime   time.Time    `json:"sale_time"`
	Cancelled  bool         `json:"cancelled"`
}

// FormattedTime renders the sale timestamp in its recorded zone.
func (s *Sale) FormattedTime() string {
	return s.SaleTime.Format(TimeLayout)
}

// Record is a sale joined with the name of its product, as shown in the
// sales history. ProductName is empty when the product has since been
// deleted.
type Record struct {
	Sale
	ProductName string `json:"product_name"`
}

// Totals aggregates the non-cancelled sales of one event.
type Totals struct {
	Revenue      types.Money `json:"revenue"`
	Quantity     int64       `json:"quantity"`
	Transactions int64       `json:"transactions"`
}

// ProductTotal aggregates the non-cancelled sales of one product.
// Products with no sales appear with zero quantity and revenue.
type ProductTotal struct {
	ProductID id.ProductID `json:"product_id"`
	Name      string       `json:"name"`
	Price     types.Money  `json:"price"`
	Quantity  int64        `json:"quantity"`
	Revenue   types.Money  `json:"revenue"`
}
