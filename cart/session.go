package cart

import (
	"context"

	"github.com/xraph/till/id"
)

// Session is the state a register carries between calls: the selected
// event and the cart being built for it.
type Session struct {
	EventID id.EventID
	Cart    *Cart
}

// NewSession returns a session with no event selected.
func NewSession() *Session {
	return &Session{Cart: New()}
}

// SwitchEvent selects an event. Lines staged for the previous event are
// discarded.
func (s *Session) SwitchEvent(eventID id.EventID) {
	if s.Cart == nil {
		s.Cart = New()
	}
	if s.EventID != eventID {
		s.Cart.Clear()
	}
	s.EventID = eventID
}

// Checkout commits the cart against the selected event.
func (s *Session) Checkout(ctx context.Context, committer Committer) ([]id.SaleID, error) {
	if s.EventID.IsNil() {
		return nil, ErrNoEvent
	}
	if s.Cart == nil {
		return nil, ErrEmptyCart
	}
	return s.Cart.Checkout(ctx, committer, s.EventID)
}
