// Package store provides an interface for product storage operations.
package store

import (
	"context"

	"github.com/uptrace/bun"
)

// Product is a persisted product row.
type Product struct {
	bun.BaseModel `bun:"table:products,alias:p"`

	ID                 int64  `bun:"id,pk,autoincrement"`
	ProductCode        string `bun:"product_code,notnull"`
	ProductDescription string `bun:"product_description,notnull"`
	Location           string `bun:"location,notnull"`
	Price              int64  `bun:"price,notnull"`
}

// NewProduct builds an unsaved product; ID is assigned by Create.
func NewProduct(code, description, location string, price int64) *Product {
	return &Product{
		ProductCode:        code,
		ProductDescription: description,
		Location:           location,
		Price:              price,
	}
}

// Filter selects products by code and location. Empty fields match everything.
type Filter struct {
	ProductCode string
	Location    string
}

// IsEmpty reports whether the filter has no predicate at all.
func (f Filter) IsEmpty() bool {
	return f.ProductCode == "" && f.Location == ""
}

func (f Filter) matches(p *Product) bool {
	if f.ProductCode != "" && p.ProductCode != f.ProductCode {
		return false
	}
	if f.Location != "" && p.Location != f.Location {
		return false
	}
	return true
}

// Patch lists the fields an update changes. Nil fields are left untouched.
type Patch struct {
	Location *string
	Price    *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Location == nil && p.Price == nil
}

// SortOrder orders listings by id.
type SortOrder int

const (
	SortAsc SortOrder = iota
	SortDesc
)

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// Find returns the products matching filter ordered by id.
	// Returns an empty slice if nothing matches.
	Find(ctx context.Context, filter Filter, order SortOrder) ([]Product, error)

	// Create persists product and sets its ID.
	Create(ctx context.Context, product *Product) error

	// Update applies patch to every product matching filter and returns the number of rows changed.
	// Returns ErrEmptyFilter if filter is empty.
	Update(ctx context.Context, filter Filter, patch Patch) (int64, error)

	// FindOne returns the first product (lowest id) matching filter.
	// Returns ErrProductNotFound if nothing matches.
	FindOne(ctx context.Context, filter Filter) (*Product, error)

	// Delete removes every product matching filter and returns the number of rows removed.
	// Returns ErrEmptyFilter if filter is empty.
	Delete(ctx context.Context, filter Filter) (int64, error)
}
