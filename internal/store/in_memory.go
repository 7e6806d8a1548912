package store

import (
	"context"
	"slices"
	"sync"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
)

// inMemory implements ProductStore on a slice kept in id order.
type inMemory struct {
	mu       sync.RWMutex
	products []Product
	nextID   int64
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore() ProductStore {
	return &inMemory{
		products: make([]Product, 0),
		nextID:   1,
	}
}

// Find retrieves the products matching filter.
func (s *inMemory) Find(_ context.Context, filter Filter, order SortOrder) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for i := range s.products {
		if filter.matches(&s.products[i]) {
			list = append(list, s.products[i])
		}
	}
	if order == SortDesc {
		slices.Reverse(list)
	}
	return list, nil
}

// Create stores a copy of product and assigns the next id.
func (s *inMemory) Create(_ context.Context, product *Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	product.ID = s.nextID
	s.nextID++
	s.products = append(s.products, *product)
	return nil
}

// Update patches the products matching filter.
func (s *inMemory) Update(_ context.Context, filter Filter, patch Patch) (int64, error) {
	if filter.IsEmpty() {
		return 0, perrors.ErrEmptyFilter
	}
	if patch.IsEmpty() {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var affected int64
	for i := range s.products {
		p := &s.products[i]
		if !filter.matches(p) {
			continue
		}
		if patch.Location != nil {
			p.Location = *patch.Location
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		affected++
	}
	return affected, nil
}

// FindOne retrieves the first product matching filter.
func (s *inMemory) FindOne(_ context.Context, filter Filter) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.products {
		if filter.matches(&s.products[i]) {
			p := s.products[i]
			return &p, nil
		}
	}
	return nil, perrors.ErrProductNotFound
}

// Delete removes the products matching filter.
func (s *inMemory) Delete(_ context.Context, filter Filter) (int64, error) {
	if filter.IsEmpty() {
		return 0, perrors.ErrEmptyFilter
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.products)
	s.products = slices.DeleteFunc(s.products, func(p Product) bool {
		return filter.matches(&p)
	})
	return int64(before - len(s.products)), nil
}
