// Package event defines the sales occasion a product catalog belongs to.
package event

import (
	"time"

	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

// DateLayout is the calendar-day layout accepted for event dates.
const DateLayout = "2006-01-02"

// Event is a named, dated sales occasion. Events are created once and are
// never edited or deleted.
type Event struct {
	types.Entity
	ID   id.EventID `json:"id"`
	Name string     `json:"name"`
	Date time.Time  `json:"date"`
}

// DateString renders the event date as YYYY-MM-DD.
func (e *Event) DateString() string {
	return e.Date.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD calendar day in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
