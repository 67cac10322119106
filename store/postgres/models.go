package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/types"
)

// ==================== Event models ====================

type eventModel struct {
	grove.BaseModel `grove:"table:till_events"`

	ID        string    `grove:"id,pk"`
	Name      string    `grove:"name"`
	Date      string    `grove:"date"`
	CreatedAt time.Time `grove:"created_at"`
}

func toEventModel(e *event.Event) *eventModel {
	return &eventModel{
		ID:        e.ID.String(),
		Name:      e.Name,
		Date:      e.DateString(),
		CreatedAt: e.CreatedAt.UTC(),
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	date, err := event.ParseDate(m.Date)
	if err != nil {
		return nil, err
	}
	return &event.Event{
		Entity: types.Entity{CreatedAt: m.CreatedAt},
		ID:     eventID,
		Name:   m.Name,
		Date:   date,
	}, nil
}

// ==================== Product models ====================

type productModel struct {
	grove.BaseModel `grove:"table:till_products"`

	ID        string    `grove:"id,pk"`
	EventID   string    `grove:"event_id"`
	Name      string    `grove:"name"`
	Price     int64     `grove:"price"`
	Stock     int64     `grove:"stock"`
	CreatedAt time.Time `grove:"created_at"`
}

func toProductModel(p *product.Product) *productModel {
	return &productModel{
		ID:        p.ID.String(),
		EventID:   p.EventID.String(),
		Name:      p.Name,
		Price:     p.Price.Int64(),
		Stock:     p.Stock,
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func fromProductModel(m *productModel) (*product.Product, error) {
	productID, err := id.ParseProductID(m.ID)
	if err != nil {
		return nil, err
	}
	eventID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, err
	}
	return &product.Product{
		Entity:  types.Entity{CreatedAt: m.CreatedAt},
		ID:      productID,
		EventID: eventID,
		Name:    m.Name,
		Price:   types.Money(m.Price),
		Stock:   m.Stock,
	}, nil
}

// ==================== Sale models ====================

type saleModel struct {
	grove.BaseModel `grove:"table:till_sales"`

	ID         string    `grove:"id,pk"`
	EventID    string    `grove:"event_id"`
	ProductID  string    `grove:"product_id"`
	Quantity   int64     `grove:"quantity"`
	TotalPrice int64     `grove:"total_price"`
	SaleTime   time.Time `grove:"sale_time"`
	Cancelled  bool      `grove:"cancelled"`
}

func toSaleModel(s *sale.Sale) *saleModel {
	return &saleModel{
		ID:         s.ID.String(),
		EventID:    s.EventID.String(),
		ProductID:  s.ProductID.String(),
		Quantity:   s.Quantity,
		TotalPrice: s.TotalPrice.Int64(),
		SaleTime:   s.SaleTime.UTC(),
		Cancelled:  s.Cancelled,
	}
}

// saleRecordModel reads the till_sale_records view: a sale joined with
// its product name and insertion sequence.
type saleRecordModel struct {
	grove.BaseModel `grove:"table:till_sale_records"`

	ID          string    `grove:"id,pk"`
	EventID     string    `grove:"event_id"`
	ProductID   string    `grove:"product_id"`
	Quantity    int64     `grove:"quantity"`
	TotalPrice  int64     `grove:"total_price"`
	SaleTime    time.Time `grove:"sale_time"`
	Cancelled   bool      `grove:"cancelled"`
	ProductName string    `grove:"product_name"`
	Seq         int64     `grove:"seq"`
}

func fromSaleRecordModel(m *saleRecordModel) (*sale.Record, error) {
	saleID, err := id.ParseSaleID(m.ID)
	if err != nil {
		return nil, err
	}
	eventID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, err
	}
	productID, err := id.ParseProductID(m.ProductID)
	if err != nil {
		return nil, err
	}
	return &sale.Record{
		Sale: sale.Sale{
			ID:         saleID,
			EventID:    eventID,
			ProductID:  productID,
			Quantity:   m.Quantity,
			TotalPrice: types.Money(m.TotalPrice),
			SaleTime:   m.SaleTime,
			Cancelled:  m.Cancelled,
		},
		ProductName: m.ProductName,
	}, nil
}

// productTotalModel reads the till_product_totals view.
type productTotalModel struct {
	grove.BaseModel `grove:"table:till_product_totals"`

	ProductID string `grove:"product_id,pk"`
	EventID   string `grove:"event_id"`
	Name      string `grove:"name"`
	Price     int64  `grove:"price"`
	Quantity  int64  `grove:"quantity"`
	Revenue   int64  `grove:"revenue"`
}

func fromProductTotalModel(m *productTotalModel) (*sale.ProductTotal, error) {
	productID, err := id.ParseProductID(m.ProductID)
	if err != nil {
		return nil, err
	}
	return &sale.ProductTotal{
		ProductID: productID,
		Name:      m.Name,
		Price:     types.Money(m.Price),
		Quantity:  m.Quantity,
		Revenue:   types.Money(m.Revenue),
	}, nil
}

func newTotals(revenue, quantity, count int64) *sale.Totals {
	return &sale.Totals{
		Revenue:      types.Money(revenue),
		Quantity:     quantity,
		Transactions: count,
	}
}
