package returns

import (
	"fmt"
	"time"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
)

// IneligibleError membawa alasan yang bisa langsung ditampilkan ke user.
type IneligibleError struct {
	Reason string
}

func (e *IneligibleError) Error() string { return e.Reason }

// Eligibility: aturan return murni, tanpa IO.
// - order harus DELIVERED
// - belum ada return request
// - masih dalam return window sejak updated_at order
//   (updated_at dipakai sebagai proxy tanggal delivery)
func Eligibility(o *orders.Order, hasExisting bool, windowDays int, now time.Time) (bool, string) {
	if o.Status != orders.StatusDelivered {
		return false, "only delivered orders can be returned"
	}
	if hasExisting {
		return false, "return request already exists for this order"
	}
	deadline := o.UpdatedAt.Add(time.Duration(windowDays) * 24 * time.Hour)
	if now.After(deadline) {
		return false, fmt.Sprintf("return window has expired (%d days)", windowDays)
	}
	return true, "order is eligible for return"
}
