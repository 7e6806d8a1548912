// Package errors provides custom error types for product-related operations.
package errors

import "errors"

var ErrProductNotFound = errors.New("product not found")
var ErrProductNotDeleted = errors.New("product not deleted")

// ErrEmptyFilter is returned by bulk store mutations that were given no predicate.
var ErrEmptyFilter = errors.New("empty product filter")
