package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidState        = errors.New("invalid order state")
	ErrPaymentNotSucceeded = errors.New("payment not successful")
	ErrUpstream            = errors.New("upstream service failure")
	ErrInvalidInput        = errors.New("invalid input")
	ErrConflict            = errors.New("already exists")
	ErrUnauthorized        = errors.New("could not validate credentials")
	ErrForbidden           = errors.New("forbidden")
	ErrInactiveUser        = errors.New("inactive user")
)

// InsufficientStockError names the product whose stock could not cover a request.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// UpstreamError wraps a failure of an external collaborator (payment gateway,
// language model, object storage). Retrying the same call is safe.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// NewUpstreamError returns nil when err is nil.
func NewUpstreamError(service string, err error) error {
	if err == nil {
		return nil
	}
	return &UpstreamError{Service: service, Err: err}
}
