// Package clock supplies the time source used to stamp sales and records.
package clock

import (
	"sync"
	"time"
)

// JST is the default civil zone for sale timestamps.
var JST = time.FixedZone("JST", 9*60*60)

// Clock allows injecting time into the ledger.
type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// NewSystem returns a clock backed by time.Now, reporting in loc.
// A nil loc means UTC.
func NewSystem(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

type fixedClock struct {
	now time.Time
}

// NewFixed returns a clock that always returns the same instant (useful for tests).
func NewFixed(t time.Time) Clock {
	return fixedClock{now: t}
}

func (f fixedClock) Now() time.Time {
	return f.now
}

// Manual is a test clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock starting at t.
func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// In returns c with every reading converted to loc.
func In(c Clock, loc *time.Location) Clock {
	if loc == nil {
		return c
	}
	return zoned{c: c, loc: loc}
}

type zoned struct {
	c   Clock
	loc *time.Location
}

func (z zoned) Now() time.Time {
	return z.c.Now().In(z.loc)
}
