package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/redisx"
)

// Service = lifecycle controller: pemilik state machine Order.
// Cancel dan AdvanceStatus selalu lock row order dulu (FOR UPDATE),
// re-check state, baru mutate — sama seperti ledger.
type Service struct {
	DB     *pgxpool.Pool
	Events *events.Publisher
	Redis  *redis.Client
}

const orderCols = `id, order_number, user_id, shipping_address_id, COALESCE(billing_address_id, shipping_address_id),
	subtotal_cents, shipping_cents, tax_cents, total_cents, status, payment_status,
	COALESCE(customer_notes, ''), created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.ShippingAddress, &o.BillingAddress,
		&o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.TotalCents,
		&o.Status, &o.PaymentStatus, &o.CustomerNotes, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return nil, err
	}
	o.Items, err = loadItems(ctx, s.DB, o.ID)
	return o, err
}

// GetForUser: ownership dicek di query, bukan setelahnya.
func (s *Service) GetForUser(ctx context.Context, orderID, userID string) (*Order, error) {
	o, err := scanOrder(s.DB.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1 AND user_id=$2`, orderID, userID))
	if err != nil {
		return nil, err
	}
	o.Items, err = loadItems(ctx, s.DB, o.ID)
	return o, err
}

// GetUserOrders: selalu newest-first, optional filter status.
func (s *Service) GetUserOrders(ctx context.Context, userID string, status Status) ([]Order, error) {
	q := `SELECT ` + orderCols + ` FROM orders WHERE user_id=$1`
	args := []any{userID}
	if status != "" {
		q += ` AND status=$2`
		args = append(args, string(status))
	}
	q += ` ORDER BY created_at DESC`

	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Items, err = loadItems(ctx, s.DB, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Cancel membatalkan order + release semua reservation dalam satu transaksi.
// Crash di tengah tidak bisa ninggalin stok ter-release tapi status belum
// berubah (atau sebaliknya).
func (s *Service) Cancel(ctx context.Context, orderID, userID string) (*Order, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderCols+` FROM orders WHERE id=$1 AND user_id=$2 FOR UPDATE`, orderID, userID))
	if err != nil {
		return nil, err
	}
	if !CanCancel(o.Status) {
		return nil, &InvalidTransitionError{Entity: "order", From: string(o.Status), To: string(StatusCancelled)}
	}

	o.Items, err = loadItems(ctx, tx, o.ID)
	if err != nil {
		return nil, err
	}
	for _, it := range o.Items {
		if err := inventory.ReleaseTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.writeStatus(ctx, tx, o, StatusCancelled); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	cacheStatus(ctx, s.Redis, o)

	evItems := make([]events.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		evItems = append(evItems, events.ItemQty{ProductID: it.ProductID, Qty: it.Quantity})
	}
	s.Events.Emit(events.TopicOrderCancelled, events.EventOrderCancelled, o.ID, traceFrom(ctx),
		events.OrderCancelledPayload{OrderID: o.ID, UserID: o.UserID, Items: evItems})

	return o, nil
}

// AdvanceStatus: dipakai consumer fulfillment utk CONFIRMED/PROCESSING/
// SHIPPED/DELIVERED. Divalidasi lewat tabel transisi, bukan free-form write.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, to Status) error {
	if !ValidStatus(to) {
		return &InvalidTransitionError{Entity: "order", From: "?", To: string(to)}
	}
	// CANCELLED dan REFUNDED bukan wewenang jalur ini: cancel wajib release
	// stok (Cancel), refund jalan lewat workflow return (ProcessRefund).
	// Status write polos ke state itu bakal ninggalin reservation nggantung.
	if to == StatusCancelled || to == StatusRefunded {
		return &InvalidTransitionError{Entity: "order", From: "?", To: string(to)}
	}
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return err
	}
	from := o.Status
	if !CanTransition(from, to) {
		return &InvalidTransitionError{Entity: "order", From: string(from), To: string(to)}
	}
	if err := s.writeStatus(ctx, tx, o, to); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	cacheStatus(ctx, s.Redis, o)
	s.Events.Emit(events.TopicOrderStatusChanged, events.EventOrderStatusChanged, o.ID, traceFrom(ctx),
		events.OrderStatusChangedPayload{OrderID: o.ID, From: string(from), To: string(to)})
	return nil
}

// SetPaymentStatus: callback dari payment collaborator (gateway webhook).
// Hanya transisi yang ada di tabel yang diterima.
func (s *Service) SetPaymentStatus(ctx context.Context, orderID string, to PaymentStatus) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	o, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, orderID))
	if err != nil {
		return err
	}
	if !CanTransitionPayment(o.PaymentStatus, to) {
		return &InvalidTransitionError{Entity: "payment", From: string(o.PaymentStatus), To: string(to)}
	}
	if _, err := tx.Exec(ctx, `
		UPDATE orders SET payment_status=$2, updated_at=now() WHERE id=$1`, o.ID, string(to)); err != nil {
		return err
	}
	o.PaymentStatus = to
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	cacheStatus(ctx, s.Redis, o)
	return nil
}

func (s *Service) writeStatus(ctx context.Context, tx pgx.Tx, o *Order, to Status) error {
	if err := tx.QueryRow(ctx, `
		UPDATE orders SET status=$2, updated_at=now() WHERE id=$1
		RETURNING updated_at`, o.ID, string(to)).Scan(&o.UpdatedAt); err != nil {
		return err
	}
	o.Status = to
	return nil
}

func loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, orderID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, product_sku, unit_price_cents, quantity
		FROM order_items WHERE order_id=$1 ORDER BY product_sku`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.ProductSKU, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// StatusCacheEntry adalah isi cache status di Redis. user_id ikut disimpan
// supaya cache hit tetap bisa dicek ownership tanpa ke DB.
type StatusCacheEntry struct {
	UserID        string `json:"user_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
}

// cacheStatus: best-effort, DB tetap jadi kebenaran.
func cacheStatus(ctx context.Context, rdb *redis.Client, o *Order) {
	if rdb == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(StatusCacheEntry{
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
	})
	_ = rdb.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func traceFrom(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}
