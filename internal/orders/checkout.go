package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/addresses"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/pricing"
)

// CheckoutService mengubah cart jadi Order dalam SATU transaksi:
// load cart -> resolve alamat -> hitung total -> insert order -> reserve
// stok per line (gagal satu = rollback semua) -> snapshot order items ->
// kosongkan cart. Kalau commit tidak terjadi, tidak ada reservation yang
// bocor keluar.
type CheckoutService struct {
	DB       *pgxpool.Pool
	Shipping pricing.ShippingFunc
	Tax      pricing.TaxFunc
	Events   *events.Publisher
	Redis    *redis.Client // cache status, best-effort
}

type cartLine struct {
	ProductID      string
	ProductName    string
	ProductSKU     string
	UnitPriceCents int
	Quantity       int
}

func NewOrderNumber() string {
	return "ORD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func (s *CheckoutService) CreateOrderFromCart(ctx context.Context, userID, shippingAddressID, billingAddressID, notes string) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// 1) cart + line items (harga dibaca dari products, bukan dari client)
	var cartID string
	err = tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&cartID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	lines, err := loadCartLines(ctx, tx, cartID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// 2) alamat harus milik user
	if err := addresses.ExistsForUserTx(ctx, tx, shippingAddressID, userID); err != nil {
		return nil, err
	}
	if billingAddressID == "" {
		billingAddressID = shippingAddressID
	} else if err := addresses.ExistsForUserTx(ctx, tx, billingAddressID, userID); err != nil {
		return nil, err
	}

	// 3) total via policy pluggable
	subtotal := 0
	for _, l := range lines {
		subtotal += l.UnitPriceCents * l.Quantity
	}
	shipping := s.Shipping(subtotal)
	tax := s.Tax(subtotal)
	total := subtotal + shipping + tax

	// 4) order header
	o := &Order{
		ID:              uuid.NewString(),
		OrderNumber:     NewOrderNumber(),
		UserID:          userID,
		ShippingAddress: shippingAddressID,
		BillingAddress:  billingAddressID,
		SubtotalCents:   subtotal,
		ShippingCents:   shipping,
		TaxCents:        tax,
		TotalCents:      total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		CustomerNotes:   notes,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(id, order_number, user_id, shipping_address_id, billing_address_id,
			subtotal_cents, shipping_cents, tax_cents, total_cents, status, payment_status, customer_notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		o.ID, o.OrderNumber, o.UserID, o.ShippingAddress, o.BillingAddress,
		o.SubtotalCents, o.ShippingCents, o.TaxCents, o.TotalCents,
		string(o.Status), string(o.PaymentStatus), o.CustomerNotes).
		Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	// 5) reserve per line + snapshot item. Satu InsufficientStock = seluruh
	// transaksi batal, reservation sebelumnya ikut rollback.
	var lowStock []*inventory.Inventory
	for _, l := range lines {
		low, err := inventory.ReserveTx(ctx, tx, l.ProductID, l.Quantity)
		if err != nil {
			return nil, err
		}
		if low != nil {
			lowStock = append(lowStock, low)
		}

		it := Item{
			ID:             uuid.NewString(),
			OrderID:        o.ID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			ProductSKU:     l.ProductSKU,
			UnitPriceCents: l.UnitPriceCents,
			Quantity:       l.Quantity,
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, product_sku, unit_price_cents, quantity)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.ProductSKU, it.UnitPriceCents, it.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}

	// 6) kosongkan cart
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// side effects setelah commit: cache + event (best-effort)
	cacheStatus(ctx, s.Redis, o)

	evItems := make([]events.ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		evItems = append(evItems, events.ItemLine{
			ProductID: it.ProductID, Qty: it.Quantity, UnitPriceCents: it.UnitPriceCents,
		})
	}
	s.Events.Emit(events.TopicOrderCreated, events.EventOrderCreated, o.ID, traceFrom(ctx),
		events.OrderCreatedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			UserID:      o.UserID,
			Items:       evItems,
			TotalCents:  o.TotalCents,
		})
	for _, inv := range lowStock {
		s.Events.Emit(events.TopicLowStock, events.EventLowStock, inv.ProductID, traceFrom(ctx),
			events.LowStockPayload{
				ProductID: inv.ProductID,
				Available: inv.Available(),
				Threshold: inv.LowStockThreshold,
			})
	}

	return o, nil
}

func loadCartLines(ctx context.Context, tx pgx.Tx, cartID string) ([]cartLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT ci.product_id, p.name, p.sku, p.price_cents, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id=$1
		ORDER BY ci.created_at`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []cartLine
	for rows.Next() {
		var l cartLine
		if err := rows.Scan(&l.ProductID, &l.ProductName, &l.ProductSKU, &l.UnitPriceCents, &l.Quantity); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
