package returns

import "time"

// ReturnRequest: maksimal satu per order (1:1, dibuat lazy). Order pegang
// referensi balik lewat lookup, bukan pointer dua arah.
type ReturnRequest struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	Reason      Reason    `json:"reason"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	RefundCents int       `json:"refund_cents"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusReceived Status = "RECEIVED"
	StatusRefunded Status = "REFUNDED"
)

// Flow: PENDING -> APPROVED -> RECEIVED -> REFUNDED
//       PENDING -> REJECTED
var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusApproved: true, StatusRejected: true},
	StatusApproved: {StatusReceived: true, StatusRefunded: true},
	StatusReceived: {StatusRefunded: true},
	StatusRejected: {},
	StatusRefunded: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type Reason string

const (
	ReasonDefective      Reason = "DEFECTIVE"
	ReasonWrongItem      Reason = "WRONG_ITEM"
	ReasonNotAsDescribed Reason = "NOT_AS_DESCRIBED"
	ReasonChangedMind    Reason = "CHANGED_MIND"
	ReasonOther          Reason = "OTHER"
)

func ValidReason(r Reason) bool {
	switch r {
	case ReasonDefective, ReasonWrongItem, ReasonNotAsDescribed, ReasonChangedMind, ReasonOther:
		return true
	}
	return false
}
