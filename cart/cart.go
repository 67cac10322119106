// Package cart stages sale lines before checkout.
//
// A Cart holds at most one line per product; adding a product that is
// already staged merges the quantities. The stock guard compares the
// staged total against the stock figure the caller supplies, so the cart
// never reads the store on its own. Checkout commits each line through a
// Committer as one atomic sale-plus-decrement unit.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/till"
	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

var (
	// ErrEmptyCart is returned by Checkout when nothing is staged.
	ErrEmptyCart = errors.New("cart: empty")
	// ErrNoEvent is returned by Session.Checkout before an event is selected.
	ErrNoEvent = errors.New("cart: no event selected")
)

// Line is one staged product. UnitPrice is captured when the line is
// first added.
type Line struct {
	ProductID id.ProductID `json:"product_id"`
	Name      string       `json:"name"`
	UnitPrice types.Money  `json:"unit_price"`
	Quantity  int64        `json:"quantity"`
}

// Subtotal returns UnitPrice × Quantity.
func (l Line) Subtotal() types.Money {
	return l.UnitPrice.Multiply(l.Quantity)
}

// InsufficientStockError reports that a line would exceed available stock.
type InsufficientStockError struct {
	ProductID id.ProductID
	Requested int64 // staged quantity plus the new quantity
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("cart: insufficient stock for %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is lets errors.Is match till.ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == till.ErrInsufficientStock
}

// Cart is an ordered, in-memory list of staged lines. It is not safe for
// concurrent use; each register session owns its cart.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddLine stages quantity units of a product. stock is the product's
// current stock level. If the product is already staged the quantities
// merge and the original unit price is kept.
func (c *Cart) AddLine(productID id.ProductID, name string, price types.Money, stock, quantity int64) error {
	if quantity <= 0 {
		return till.ValidationError{Field: "quantity", Message: "must be positive"}
	}
	if productID.IsNil() {
		return till.ValidationError{Field: "product_id", Message: "is required"}
	}

	staged := c.Staged(productID)
	if staged+quantity > stock {
		return &InsufficientStockError{
			ProductID: productID,
			Requested: staged + quantity,
			Available: stock,
		}
	}

	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	c.lines = append(c.lines, Line{
		ProductID: productID,
		Name:      name,
		UnitPrice: price,
		Quantity:  quantity,
	})
	return nil
}

// RemoveLine drops the line for a product. It reports whether a line
// was removed.
func (c *Cart) RemoveLine(productID id.ProductID) bool {
	for i := range c.lines {
		if c.lines[i].ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Staged returns the quantity staged for a product.
func (c *Cart) Staged(productID id.ProductID) int64 {
	for _, l := range c.lines {
		if l.ProductID == productID {
			return l.Quantity
		}
	}
	return 0
}

// Total returns the sum of all line subtotals.
func (c *Cart) Total() types.Money {
	var total types.Money
	for _, l := range c.lines {
		total += l.Subtotal()
	}
	return total
}

// Lines returns a copy of the staged lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// Committer commits one sale line atomically with its stock decrement.
// *till.Till satisfies it.
type Committer interface {
	CommitSale(ctx context.Context, eventID id.EventID, productID id.ProductID, quantity int64, totalPrice types.Money) (id.SaleID, error)
}

// CheckoutError reports a checkout that stopped part way. The lines before
// Line were committed and stay committed; the cart is left unchanged.
type CheckoutError struct {
	Committed []id.SaleID
	Line      Line
	Err       error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("cart: checkout stopped at %s after %d committed line(s): %v",
		e.Line.Name, len(e.Committed), e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// Checkout commits every line in insertion order, each as its own atomic
// sale-plus-decrement. On success the cart is cleared and the sale IDs are
// returned in line order. On the first failure it stops and returns a
// *CheckoutError; earlier lines remain committed and the cart keeps all
// lines so the operator can decide what to do.
func (c *Cart) Checkout(ctx context.Context, committer Committer, eventID id.EventID) ([]id.SaleID, error) {
	if len(c.lines) == 0 {
		return nil, ErrEmptyCart
	}

	committed := make([]id.SaleID, 0, len(c.lines))
	for _, l := range c.lines {
		saleID, err := committer.CommitSale(ctx, eventID, l.ProductID, l.Quantity, l.Subtotal())
		if err != nil {
			return committed, &CheckoutError{Committed: committed, Line: l, Err: err}
		}
		committed = append(committed, saleID)
	}

	c.Clear()
	return committed, nil
}
