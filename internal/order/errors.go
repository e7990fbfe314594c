package order

import "errors"

var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrInvalidLineItem         = errors.New("invalid line item")
	ErrMissingOrderDetails     = errors.New("delivery address and payment method are required")
	ErrOrderNotFound           = errors.New("order not found")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrOrderPersistence        = errors.New("failed to persist order")
)

// PersistenceError reports a failed placement whose writes were rolled back.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return ErrOrderPersistence.Error() + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrOrderPersistence
}
