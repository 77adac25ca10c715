package orders

import "time"

// Order immutable setelah dibuat, kecuali status/payment_status/updated_at.
// Alamat & harga di-snapshot saat checkout supaya edit katalog belakangan
// tidak mengubah order historis.
type Order struct {
	ID              string        `json:"id"`
	OrderNumber     string        `json:"order_number"`
	UserID          string        `json:"user_id"`
	ShippingAddress string        `json:"shipping_address_id"`
	BillingAddress  string        `json:"billing_address_id"`
	SubtotalCents   int           `json:"subtotal_cents"`
	ShippingCents   int           `json:"shipping_cents"`
	TaxCents        int           `json:"tax_cents"`
	TotalCents      int           `json:"total_cents"`
	Status          Status        `json:"status"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	CustomerNotes   string        `json:"customer_notes,omitempty"`
	Items           []Item        `json:"items"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Item = satu baris order, snapshot product saat checkout.
type Item struct {
	ID             string `json:"id"`
	OrderID        string `json:"order_id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	ProductSKU     string `json:"product_sku"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

func (it Item) TotalCents() int { return it.UnitPriceCents * it.Quantity }
