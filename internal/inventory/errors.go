package inventory

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("inventory not found")

// InsufficientStockError: permintaan melebihi available saat lock dipegang.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// InvalidAdjustmentError: confirm/adjust yang bakal bikin reserved > quantity
// atau quantity negatif.
type InvalidAdjustmentError struct {
	ProductID string
	Delta     int
}

func (e *InvalidAdjustmentError) Error() string {
	return fmt.Sprintf("invalid stock adjustment for product %s: delta %d", e.ProductID, e.Delta)
}
