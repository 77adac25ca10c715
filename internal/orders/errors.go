package orders

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")
)

// InvalidTransitionError dipakai semua state machine di core ini
// (order, payment, return).
type InvalidTransitionError struct {
	Entity string // "order" | "payment" | "return"
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition: %s -> %s", e.Entity, e.From, e.To)
}
