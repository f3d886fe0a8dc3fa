// Package apperrors defines the error taxonomy shared by services and
// handlers. Services return these; the HTTP layer maps them to responses.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a referenced order, product or user does not
	// resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates the request carries no valid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller acting outside their
	// ownership or role.
	ErrForbidden = errors.New("forbidden")

	// ErrEmptyCart aborts a checkout attempted with no cart entries.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrProductsUnavailable aborts a checkout when a cart entry references
	// a product that no longer exists.
	ErrProductsUnavailable = errors.New("some products are no longer available")

	// ErrInvalidStatus rejects a status value outside the closed set.
	ErrInvalidStatus = errors.New("invalid order status")
)

// InsufficientStockError aborts a checkout when a requested quantity
// exceeds current stock. It carries the offending product's title for the
// user-facing message.
type InsufficientStockError struct {
	ProductTitle string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %q", e.ProductTitle)
}

// PersistenceError wraps a storage failure inside an atomic unit of work.
// The wrapped transaction has been rolled back in full.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
