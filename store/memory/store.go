// Package memory provides an in-memory store.Store used by tests and
// short-lived tills that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/xraph/till"
	"github.com/xraph/till/event"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sale"
	"github.com/xraph/till/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Event storage, plus insertion order for stable ordering on equal timestamps
	events     map[string]*event.Event
	eventOrder map[string]int

	// Product storage
	products map[string]*product.Product

	// Sale storage
	sales     map[string]*sale.Sale
	saleOrder map[string]int

	seq    int
	closed bool
}

func New() *Store {
	return &Store{
		events:     make(map[string]*event.Event),
		eventOrder: make(map[string]int),
		products:   make(map[string]*product.Product),
		sales:      make(map[string]*sale.Sale),
		saleOrder:  make(map[string]int),
	}
}

func (s *Store) next() int {
	s.seq++
	return s.seq
}

// Event Store implementation
func (s *Store) CreateEvent(_ context.Context, e *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return till.ErrStoreClosed
	}
	if _, exists := s.events[e.ID.String()]; exists {
		return till.ErrAlreadyExists
	}
	cp := *e
	s.events[e.ID.String()] = &cp
	s.eventOrder[e.ID.String()] = s.next()
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID id.EventID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.events[eventID.String()]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, till.ErrEventNotFound
}

func (s *Store) ListEvents(_ context.Context) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for _, e := range s.events {
		cp := *e
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return s.eventOrder[a.ID.String()] > s.eventOrder[b.ID.String()]
	})
	return result, nil
}

// Product Store implementation
func (s *Store) CreateProduct(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return till.ErrStoreClosed
	}
	if _, ok := s.events[p.EventID.String()]; !ok {
		return till.ErrEventNotFound
	}
	if _, exists := s.products[p.ID.String()]; exists {
		return till.ErrAlreadyExists
	}
	cp := *p
	s.products[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetProduct(_ context.Context, productID id.ProductID) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.products[productID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, till.ErrProductNotFound
}

func (s *Store) ListProducts(_ context.Context, eventID id.EventID) ([]*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*product.Product, 0)
	for _, p := range s.products {
		if p.EventID == eventID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

func (s *Store) DeleteProduct(_ context.Context, productID id.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return till.ErrStoreClosed
	}

	if _, ok := s.products[productID.String()]; !ok {
		return till.ErrProductNotFound
	}
	for _, sl := range s.sales {
		if sl.ProductID == productID && !sl.Cancelled {
			return till.ErrProductHasSales
		}
	}
	delete(s.products, productID.String())
	return nil
}

func (s *Store) AdjustStock(_ context.Context, productID id.ProductID, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, till.ErrStoreClosed
	}

	p, ok := s.products[productID.String()]
	if !ok {
		return 0, till.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return p.Stock, till.ErrInsufficientStock
	}
	p.Stock += delta
	return p.Stock, nil
}

// Sale Store implementation
func (s *Store) RecordSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return till.ErrStoreClosed
	}
	return s.insertSale(sl)
}

// CommitSale runs the stock check, the decrement and the insert under one
// write lock, so no reader observes one without the other.
func (s *Store) CommitSale(_ context.Context, sl *sale.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return till.ErrStoreClosed
	}
	p, ok := s.products[sl.ProductID.String()]
	if !ok {
		return till.ErrProductNotFound
	}
	if p.Stock < sl.Quantity {
		return till.ErrInsufficientStock
	}
	if err := s.insertSale(sl); err != nil {
		return err
	}
	p.Stock -= sl.Quantity
	return nil
}

func (s *Store) insertSale(sl *sale.Sale) error {
	if _, exists := s.sales[sl.ID.String()]; exists {
		return till.ErrAlreadyExists
	}
	cp := *sl
	s.sales[sl.ID.String()] = &cp
	s.saleOrder[sl.ID.String()] = s.next()
	return nil
}

func (s *Store) GetSale(_ context.Context, saleID id.SaleID) (*sale.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sl, ok := s.sales[saleID.String()]; ok {
		cp := *sl
		return &cp, nil
	}
	return nil, till.ErrSaleNotFound
}

func (s *Store) CancelSale(_ context.Context, saleID id.SaleID, restock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return till.ErrStoreClosed
	}

	sl, ok := s.sales[saleID.String()]
	if !ok {
		return till.ErrSaleNotFound
	}
	if sl.Cancelled {
		return till.ErrSaleAlreadyCancelled
	}
	sl.Cancelled = true
	if restock {
		if p, exists := s.products[sl.ProductID.String()]; exists {
			p.Stock += sl.Quantity
		}
	}
	return nil
}

func (s *Store) RecentSales(_ context.Context, eventID id.EventID, limit int) ([]*sale.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*sale.Record, 0)
	for _, sl := range s.sales {
		if sl.EventID != eventID {
			continue
		}
		rec := &sale.Record{Sale: *sl}
		if p, ok := s.products[sl.ProductID.String()]; ok {
			rec.ProductName = p.Name
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.SaleTime.Equal(b.SaleTime) {
			return a.SaleTime.After(b.SaleTime)
		}
		return s.saleOrder[a.ID.String()] > s.saleOrder[b.ID.String()]
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) SalesTotals(_ context.Context, eventID id.EventID) (*sale.Totals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := &sale.Totals{}
	for _, sl := range s.sales {
		if sl.EventID != eventID || sl.Cancelled {
			continue
		}
		totals.Revenue += sl.TotalPrice
		totals.Quantity += sl.Quantity
		totals.Transactions++
	}
	return totals, nil
}

func (s *Store) ProductTotals(_ context.Context, eventID id.EventID) ([]*sale.ProductTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*sale.ProductTotal)
	result := make([]*sale.ProductTotal, 0)
	for _, p := range s.products {
		if p.EventID != eventID {
			continue
		}
		row := &sale.ProductTotal{ProductID: p.ID, Name: p.Name, Price: p.Price}
		byProduct[p.ID.String()] = row
		result = append(result, row)
	}
	for _, sl := range s.sales {
		if sl.Cancelled {
			continue
		}
		if row, ok := byProduct[sl.ProductID.String()]; ok {
			row.Quantity += sl.Quantity
			row.Revenue += sl.TotalPrice
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ProductID.String() < b.ProductID.String()
	})
	return result, nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return till.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
