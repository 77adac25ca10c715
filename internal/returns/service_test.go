package returns

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
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

type fakeGateway struct {
	calls []int
}

func (g *fakeGateway) Refund(_ context.Context, _ string, amountCents int) error {
	g.calls = append(g.calls, amountCents)
	return nil
}

// deliveredOrder seed satu order lengkap: product qty stok 10, 2 di cart,
// checkout, lalu dipaksa sampai DELIVERED + PAID.
func deliveredOrder(t *testing.T, pool *pgxpool.Pool) (orderID, userID, productID string) {
	t.Helper()
	ctx := context.Background()
	userID = uuid.NewString()
	addressID := uuid.NewString()
	cartID := uuid.NewString()
	productID = uuid.NewString()

	exec := func(sql string, args ...any) {
		if _, err := pool.Exec(ctx, sql, args...); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	exec(`INSERT INTO addresses(id, user_id, line1, city, postal_code, country)
		VALUES ($1, $2, 'Jl. Thamrin 5', 'Jakarta', '10310', 'ID')`, addressID, userID)
	exec(`INSERT INTO carts(id, user_id) VALUES ($1, $2)`, cartID, userID)
	exec(`INSERT INTO products(id, name, sku, price_cents) VALUES ($1, 'Gadget', $2, 10000)`,
		productID, "SKU-"+productID[:8])
	exec(`INSERT INTO inventory(product_id, quantity, reserved, low_stock_threshold)
		VALUES ($1, 10, 0, 0)`, productID)
	exec(`INSERT INTO cart_items(id, cart_id, product_id, quantity) VALUES ($1, $2, $3, 2)`,
		uuid.NewString(), cartID, productID)
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE user_id=$1`, userID)
		_, _ = pool.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID)
		_, _ = pool.Exec(ctx, `DELETE FROM addresses WHERE user_id=$1`, userID)
		_, _ = pool.Exec(ctx, `DELETE FROM products WHERE id=$1`, productID)
	})

	co := &orders.CheckoutService{
		DB:       pool,
		Shipping: pricing.StandardShipping(10000, 1000),
		Tax:      pricing.FlatRateTax(1000),
	}
	o, err := co.CreateOrderFromCart(ctx, userID, addressID, "", "")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	exec(`UPDATE orders SET status='DELIVERED', payment_status='PAID' WHERE id=$1`, o.ID)
	return o.ID, userID, productID
}

func testService(pool *pgxpool.Pool, gw *fakeGateway) *Service {
	return &Service{
		DB:         pool,
		Orders:     &orders.Service{DB: pool},
		Gateway:    gw,
		WindowDays: 7,
	}
}

func reservedOf(t *testing.T, pool *pgxpool.Pool, productID string) int {
	t.Helper()
	var r int
	if err := pool.QueryRow(context.Background(),
		`SELECT reserved FROM inventory WHERE product_id=$1`, productID).Scan(&r); err != nil {
		t.Fatalf("read inventory: %v", err)
	}
	return r
}

func TestReturnAndRefundFlow(t *testing.T) {
	pool := testPool(t)
	orderID, userID, productID := deliveredOrder(t, pool)
	gw := &fakeGateway{}
	svc := testService(pool, gw)
	ctx := context.Background()

	rr, err := svc.RequestReturn(ctx, orderID, userID, ReasonDefective, "layar retak")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if rr.Status != StatusPending {
		t.Fatalf("status = %s", rr.Status)
	}
	// refund default = total order: 2x10000 subtotal, free shipping, 10% tax
	if rr.RefundCents != 22000 {
		t.Fatalf("refund = %d, want 22000", rr.RefundCents)
	}

	// request kedua utk order yang sama ditolak
	if _, err := svc.RequestReturn(ctx, orderID, userID, ReasonOther, ""); err == nil {
		t.Fatal("duplicate return accepted")
	}

	if _, err := svc.Approve(ctx, rr.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := svc.MarkReceived(ctx, rr.ID); err != nil {
		t.Fatalf("mark received: %v", err)
	}

	done, err := svc.ProcessRefund(ctx, rr.ID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if done.Status != StatusRefunded {
		t.Fatalf("return status = %s", done.Status)
	}

	var orderStatus, paymentStatus string
	if err := pool.QueryRow(ctx, `SELECT status, payment_status FROM orders WHERE id=$1`, orderID).
		Scan(&orderStatus, &paymentStatus); err != nil {
		t.Fatalf("read order: %v", err)
	}
	if orderStatus != string(orders.StatusRefunded) || paymentStatus != string(orders.PaymentRefunded) {
		t.Fatalf("order = %s/%s", orderStatus, paymentStatus)
	}
	if got := reservedOf(t, pool, productID); got != 0 {
		t.Fatalf("reserved = %d after refund", got)
	}
	if len(gw.calls) != 1 || gw.calls[0] != 22000 {
		t.Fatalf("gateway calls = %v", gw.calls)
	}

	// refund kedua kali: state machine nolak, gateway tidak dipanggil lagi
	_, err = svc.ProcessRefund(ctx, rr.ID)
	var invalid *orders.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("gateway calls = %v", gw.calls)
	}
}

func TestRefundRequiresApproval(t *testing.T) {
	pool := testPool(t)
	orderID, userID, _ := deliveredOrder(t, pool)
	svc := testService(pool, &fakeGateway{})
	ctx := context.Background()

	rr, err := svc.RequestReturn(ctx, orderID, userID, ReasonWrongItem, "")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// PENDING -> REFUNDED tidak ada di tabel
	_, err = svc.ProcessRefund(ctx, rr.ID)
	var invalid *orders.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}

	// reject lalu coba approve: REJECTED terminal
	if _, err := svc.Reject(ctx, rr.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := svc.Approve(ctx, rr.ID); !errors.As(err, &invalid) {
		t.Fatalf("want InvalidTransitionError, got %v", err)
	}
}

func TestRequestReturnIneligible(t *testing.T) {
	pool := testPool(t)
	orderID, userID, _ := deliveredOrder(t, pool)
	svc := testService(pool, &fakeGateway{})
	ctx := context.Background()

	t.Run("outside window", func(t *testing.T) {
		svc.Now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
		defer func() { svc.Now = nil }()

		_, err := svc.RequestReturn(ctx, orderID, userID, ReasonChangedMind, "")
		var inel *IneligibleError
		if !errors.As(err, &inel) {
			t.Fatalf("want IneligibleError, got %v", err)
		}
	})

	t.Run("not delivered", func(t *testing.T) {
		if _, err := pool.Exec(ctx, `UPDATE orders SET status='SHIPPED' WHERE id=$1`, orderID); err != nil {
			t.Fatalf("force shipped: %v", err)
		}
		_, err := svc.RequestReturn(ctx, orderID, userID, ReasonChangedMind, "")
		var inel *IneligibleError
		if !errors.As(err, &inel) {
			t.Fatalf("want IneligibleError, got %v", err)
		}
	})

	t.Run("bad reason", func(t *testing.T) {
		_, err := svc.RequestReturn(ctx, orderID, userID, Reason("BROKE_IT"), "")
		if !errors.Is(err, ErrInvalidReason) {
			t.Fatalf("want ErrInvalidReason, got %v", err)
		}
	})
}
