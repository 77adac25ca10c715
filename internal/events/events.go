package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventReturnRequested    = "ReturnRequested"
	EventReturnUpdated      = "ReturnUpdated"
	EventRefundProcessed    = "RefundProcessed"
	EventLowStock           = "LowStock"
	EventShipmentUpdate     = "ShipmentUpdate"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "shop-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type ItemLine struct {
	ProductID      string `json:"product_id"`
	Qty            int    `json:"qty"`
	UnitPriceCents int    `json:"unit_price_cents"`
}

type OrderCreatedPayload struct {
	OrderID     string     `json:"order_id"`
	OrderNumber string     `json:"order_number"`
	UserID      string     `json:"user_id"`
	Items       []ItemLine `json:"items"`
	TotalCents  int        `json:"total_cents"`
}

type OrderCancelledPayload struct {
	OrderID string    `json:"order_id"`
	UserID  string    `json:"user_id"`
	Items   []ItemQty `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type ReturnRequestedPayload struct {
	ReturnID    string `json:"return_id"`
	OrderID     string `json:"order_id"`
	Reason      string `json:"reason"`
	RefundCents int    `json:"refund_cents"`
}

type ReturnUpdatedPayload struct {
	ReturnID string `json:"return_id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
}

type RefundProcessedPayload struct {
	ReturnID    string `json:"return_id"`
	OrderID     string `json:"order_id"`
	AmountCents int    `json:"amount_cents"`
}

type LowStockPayload struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
	Threshold int    `json:"threshold"`
}

// ShipmentUpdate dikonsumsi dari sistem fulfillment eksternal.
type ShipmentUpdatePayload struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"` // CONFIRMED | PROCESSING | SHIPPED | DELIVERED
}
