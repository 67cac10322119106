package types

import "time"

// Entity is the base type for till entities with a creation timestamp.
// Embed this in domain types. Events, products and sales are never
// edited in place, so there is no update timestamp.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
}

// NewEntity creates a new Entity stamped with now.
func NewEntity(now time.Time) Entity {
	return Entity{CreatedAt: now}
}
