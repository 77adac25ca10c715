package orders

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/pricing"
)

// Integration test: butuh postgres dengan db/schema.sql teraplikasi.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// fixture: satu user dengan satu alamat + cart kosong.
type fixture struct {
	pool      *pgxpool.Pool
	UserID    string
	AddressID string
	CartID    string
}

func newFixture(t *testing.T, pool *pgxpool.Pool) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		pool:      pool,
		UserID:    uuid.NewString(),
		AddressID: uuid.NewString(),
		CartID:    uuid.NewString(),
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO addresses(id, user_id, line1, city, postal_code, country, is_default)
		VALUES ($1, $2, 'Jl. Sudirman 1', 'Jakarta', '10110', 'ID', TRUE)`,
		f.AddressID, f.UserID); err != nil {
		t.Fatalf("seed address: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO carts(id, user_id) VALUES ($1, $2)`,
		f.CartID, f.UserID); err != nil {
		t.Fatalf("seed cart: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		// orders dulu (order_items refer ke products), baru sisanya
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE user_id=$1`, f.UserID)
		_, _ = pool.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, f.UserID)
		_, _ = pool.Exec(ctx, `DELETE FROM addresses WHERE user_id=$1`, f.UserID)
	})
	return f
}

func (f *fixture) addProduct(t *testing.T, priceCents, stockQty, cartQty int) string {
	t.Helper()
	ctx := context.Background()
	id := uuid.NewString()
	if _, err := f.pool.Exec(ctx, `
		INSERT INTO products(id, name, sku, price_cents) VALUES ($1, 'Widget', $2, $3)`,
		id, "SKU-"+id[:8], priceCents); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := f.pool.Exec(ctx, `
		INSERT INTO inventory(product_id, quantity, reserved, low_stock_threshold)
		VALUES ($1, $2, 0, 0)`, id, stockQty); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	if cartQty > 0 {
		if _, err := f.pool.Exec(ctx, `
			INSERT INTO cart_items(id, cart_id, product_id, quantity)
			VALUES ($1, $2, $3, $4)`, uuid.NewString(), f.CartID, id, cartQty); err != nil {
			t.Fatalf("seed cart item: %v", err)
		}
	}
	t.Cleanup(func() {
		_, _ = f.pool.Exec(context.Background(), `DELETE FROM products WHERE id=$1`, id)
	})
	return id
}

func (f *fixture) reserved(t *testing.T, productID string) int {
	t.Helper()
	var r int
	if err := f.pool.QueryRow(context.Background(),
		`SELECT reserved FROM inventory WHERE product_id=$1`, productID).Scan(&r); err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	return r
}

func (f *fixture) cartCount(t *testing.T) int {
	t.Helper()
	var n int
	if err := f.pool.QueryRow(context.Background(),
		`SELECT count(*) FROM cart_items WHERE cart_id=$1`, f.CartID).Scan(&n); err != nil {
		t.Fatalf("count cart items: %v", err)
	}
	return n
}

func testCheckout(pool *pgxpool.Pool) *CheckoutService {
	return &CheckoutService{
		DB:       pool,
		Shipping: pricing.StandardShipping(10000, 1000),
		Tax:      pricing.FlatRateTax(1000),
	}
}

func TestCheckoutTotalsAndSnapshot(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	pid := f.addProduct(t, 10000, 10, 2)

	o, err := testCheckout(pool).CreateOrderFromCart(context.Background(), f.UserID, f.AddressID, "", "leave at door")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if o.SubtotalCents != 20000 || o.ShippingCents != 0 || o.TaxCents != 2000 || o.TotalCents != 22000 {
		t.Fatalf("totals = %d/%d/%d/%d", o.SubtotalCents, o.ShippingCents, o.TaxCents, o.TotalCents)
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		t.Fatalf("status = %s/%s", o.Status, o.PaymentStatus)
	}
	if len(o.Items) != 1 {
		t.Fatalf("items = %d", len(o.Items))
	}
	it := o.Items[0]
	if it.ProductID != pid || it.ProductName != "Widget" || it.UnitPriceCents != 10000 || it.Quantity != 2 {
		t.Fatalf("snapshot item = %+v", it)
	}
	if it.TotalCents() != 20000 {
		t.Fatalf("item total = %d", it.TotalCents())
	}
	if got := f.reserved(t, pid); got != 2 {
		t.Fatalf("reserved = %d, want 2", got)
	}
	if got := f.cartCount(t); got != 0 {
		t.Fatalf("cart items left = %d", got)
	}
}

// Satu line gagal reserve = seluruh checkout batal: cart utuh, tidak ada
// reservation parsial, tidak ada order.
func TestCheckoutAllOrNothing(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	p1 := f.addProduct(t, 5000, 5, 2)
	f.addProduct(t, 3000, 0, 1) // habis

	_, err := testCheckout(pool).CreateOrderFromCart(context.Background(), f.UserID, f.AddressID, "", "")
	var stock *inventory.InsufficientStockError
	if !errors.As(err, &stock) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}

	if got := f.reserved(t, p1); got != 0 {
		t.Fatalf("p1 reserved = %d after rollback", got)
	}
	if got := f.cartCount(t); got != 2 {
		t.Fatalf("cart items = %d, want 2", got)
	}
	var orders int
	_ = pool.QueryRow(context.Background(),
		`SELECT count(*) FROM orders WHERE user_id=$1`, f.UserID).Scan(&orders)
	if orders != 0 {
		t.Fatalf("orders written = %d", orders)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)

	_, err := testCheckout(pool).CreateOrderFromCart(context.Background(), f.UserID, f.AddressID, "", "")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("want ErrEmptyCart, got %v", err)
	}
}

func TestCancelReleasesStock(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	pid := f.addProduct(t, 2500, 8, 3)
	ctx := context.Background()

	o, err := testCheckout(pool).CreateOrderFromCart(ctx, f.UserID, f.AddressID, "", "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if got := f.reserved(t, pid); got != 3 {
		t.Fatalf("reserved = %d", got)
	}

	svc := &Service{DB: pool}
	cancelled, err := svc.Cancel(ctx, o.ID, f.UserID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if got := f.reserved(t, pid); got != 0 {
		t.Fatalf("reserved = %d after cancel", got)
	}

	// cancel kedua kali: CANCELLED bukan state yang bisa dibatalkan lagi
	_, err = svc.Cancel(ctx, o.ID, f.UserID)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
}

func TestCancelDeliveredRejected(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	f.addProduct(t, 2500, 8, 1)
	ctx := context.Background()

	o, err := testCheckout(pool).CreateOrderFromCart(ctx, f.UserID, f.AddressID, "", "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE orders SET status='DELIVERED' WHERE id=$1`, o.ID); err != nil {
		t.Fatalf("force delivered: %v", err)
	}

	svc := &Service{DB: pool}
	_, err = svc.Cancel(ctx, o.ID, f.UserID)
	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
}

// AdvanceStatus cuma boleh jalanin status yang datang dari stream shipment.
// CANCELLED/REFUNDED ditolak sebelum nyentuh DB: dua state itu punya efek
// stok yang cuma Cancel dan ProcessRefund yang ngerjain.
func TestAdvanceStatusRejectsTerminalTargets(t *testing.T) {
	svc := &Service{}
	for _, to := range []Status{StatusCancelled, StatusRefunded} {
		err := svc.AdvanceStatus(context.Background(), "any", to)
		var invalid *InvalidTransitionError
		if !errors.As(err, &invalid) {
			t.Fatalf("AdvanceStatus(%s): want InvalidTransitionError, got %v", to, err)
		}
	}
}

func TestAdvanceStatusLifecycle(t *testing.T) {
	pool := testPool(t)
	f := newFixture(t, pool)
	pid := f.addProduct(t, 2500, 8, 1)
	ctx := context.Background()

	o, err := testCheckout(pool).CreateOrderFromCart(ctx, f.UserID, f.AddressID, "", "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	svc := &Service{DB: pool}

	// cancel via status write ditolak, reservation tetap utuh
	var invalid *InvalidTransitionError
	if err := svc.AdvanceStatus(ctx, o.ID, StatusCancelled); !errors.As(err, &invalid) {
		t.Fatalf("advance to CANCELLED: want InvalidTransitionError, got %v", err)
	}
	if got := f.reserved(t, pid); got != 1 {
		t.Fatalf("reserved = %d, want 1", got)
	}
	for _, next := range []Status{StatusConfirmed, StatusProcessing, StatusShipped, StatusDelivered} {
		if err := svc.AdvanceStatus(ctx, o.ID, next); err != nil {
			t.Fatalf("advance to %s: %v", next, err)
		}
	}

	// DELIVERED -> SHIPPED bukan transisi yang ada
	err = svc.AdvanceStatus(ctx, o.ID, StatusShipped)
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}

	got, err := svc.GetForUser(ctx, o.ID, f.UserID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDelivered {
		t.Fatalf("status = %s", got.Status)
	}
}
