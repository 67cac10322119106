package event

import (
	"context"

	"github.com/xraph/till/id"
)

// Store persists events.
type Store interface {
	CreateEvent(ctx context.Context, e *Event) error
	GetEvent(ctx context.Context, eventID id.EventID) (*Event, error)
	// ListEvents returns every event, most recently created first.
	ListEvents(ctx context.Context) ([]*Event, error)
}
