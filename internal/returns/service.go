package returns

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/payments"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/redisx"
)

var (
	ErrNotFound      = errors.New("return request not found")
	ErrInvalidReason = errors.New("invalid return reason")
)

type Service struct {
	DB         *pgxpool.Pool
	Orders     *orders.Service
	Gateway    payments.Gateway
	Events     *events.Publisher
	Redis      *redis.Client
	WindowDays int
	Now        func() time.Time // injectable utk test
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

const cols = `id, order_id, reason, COALESCE(description, ''), status, refund_cents, created_at, updated_at`

func scanReturn(row pgx.Row) (*ReturnRequest, error) {
	var rr ReturnRequest
	err := row.Scan(&rr.ID, &rr.OrderID, &rr.Reason, &rr.Description, &rr.Status, &rr.RefundCents, &rr.CreatedAt, &rr.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*ReturnRequest, error) {
	return scanReturn(s.DB.QueryRow(ctx, `SELECT `+cols+` FROM return_requests WHERE id=$1`, id))
}

// GetForOrder: lookup satu arah dari order (bisa nil alias belum ada).
func (s *Service) GetForOrder(ctx context.Context, orderID string) (*ReturnRequest, error) {
	return scanReturn(s.DB.QueryRow(ctx, `SELECT `+cols+` FROM return_requests WHERE order_id=$1`, orderID))
}

// CanRequestReturn versi read-only, utk ditampilkan di UI.
func (s *Service) CanRequestReturn(ctx context.Context, orderID, userID string) (bool, string, error) {
	o, err := s.Orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return false, "", err
	}
	hasExisting, err := s.hasExisting(ctx, orderID)
	if err != nil {
		return false, "", err
	}
	ok, reason := Eligibility(o, hasExisting, s.WindowDays, s.now())
	return ok, reason, nil
}

func (s *Service) hasExisting(ctx context.Context, orderID string) (bool, error) {
	_, err := s.GetForOrder(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RequestReturn: satu-satunya transisi yang dipicu customer. Eligibility
// di-recheck di sini; refund_amount default = total order.
func (s *Service) RequestReturn(ctx context.Context, orderID, userID string, reason Reason, description string) (*ReturnRequest, error) {
	if !ValidReason(reason) {
		return nil, ErrInvalidReason
	}
	o, err := s.Orders.GetForUser(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}
	hasExisting, err := s.hasExisting(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if ok, why := Eligibility(o, hasExisting, s.WindowDays, s.now()); !ok {
		return nil, &IneligibleError{Reason: why}
	}

	rr := &ReturnRequest{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		Reason:      reason,
		Description: description,
		Status:      StatusPending,
		RefundCents: o.TotalCents,
	}
	// UNIQUE(order_id) nutup race dua request bersamaan
	err = s.DB.QueryRow(ctx, `
		INSERT INTO return_requests(id, order_id, reason, description, status, refund_cents)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at, updated_at`,
		rr.ID, rr.OrderID, string(rr.Reason), rr.Description, string(rr.Status), rr.RefundCents).
		Scan(&rr.CreatedAt, &rr.UpdatedAt)
	if err != nil {
		return nil, err
	}

	s.Events.Emit(events.TopicReturnRequested, events.EventReturnRequested, orderID, "",
		events.ReturnRequestedPayload{
			ReturnID:    rr.ID,
			OrderID:     orderID,
			Reason:      string(reason),
			RefundCents: rr.RefundCents,
		})
	return rr, nil
}

// Approve / Reject / MarkReceived: transisi administratif, murni status
// write tanpa efek stok.
func (s *Service) Approve(ctx context.Context, id string) (*ReturnRequest, error) {
	return s.transition(ctx, id, StatusApproved)
}

func (s *Service) Reject(ctx context.Context, id string) (*ReturnRequest, error) {
	return s.transition(ctx, id, StatusRejected)
}

func (s *Service) MarkReceived(ctx context.Context, id string) (*ReturnRequest, error) {
	return s.transition(ctx, id, StatusReceived)
}

func (s *Service) transition(ctx context.Context, id string, to Status) (*ReturnRequest, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rr, err := scanReturn(tx.QueryRow(ctx, `SELECT `+cols+` FROM return_requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if !CanTransition(rr.Status, to) {
		return nil, &orders.InvalidTransitionError{Entity: "return", From: string(rr.Status), To: string(to)}
	}
	if err := tx.QueryRow(ctx, `
		UPDATE return_requests SET status=$2, updated_at=now() WHERE id=$1
		RETURNING updated_at`, id, string(to)).Scan(&rr.UpdatedAt); err != nil {
		return nil, err
	}
	rr.Status = to
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.Events.Emit(events.TopicReturnUpdated, events.EventReturnUpdated, rr.OrderID, "",
		events.ReturnUpdatedPayload{ReturnID: rr.ID, OrderID: rr.OrderID, Status: string(to)})
	return rr, nil
}

// ProcessRefund: satu-satunya jalur yang me-release reservation dari sale
// yang sudah selesai. Return + order + stok diubah dalam satu transaksi;
// re-processing return yang sudah REFUNDED ditolak lewat tabel transisi.
func (s *Service) ProcessRefund(ctx context.Context, id string) (*ReturnRequest, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rr, err := scanReturn(tx.QueryRow(ctx, `SELECT `+cols+` FROM return_requests WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if !CanTransition(rr.Status, StatusRefunded) {
		return nil, &orders.InvalidTransitionError{Entity: "return", From: string(rr.Status), To: string(StatusRefunded)}
	}

	var orderStatus, paymentStatus string
	err = tx.QueryRow(ctx, `
		SELECT status, payment_status FROM orders WHERE id=$1 FOR UPDATE`, rr.OrderID).
		Scan(&orderStatus, &paymentStatus)
	if err != nil {
		return nil, err
	}
	if !orders.CanTransition(orders.Status(orderStatus), orders.StatusRefunded) {
		return nil, &orders.InvalidTransitionError{Entity: "order", From: orderStatus, To: string(orders.StatusRefunded)}
	}
	if !orders.CanTransitionPayment(orders.PaymentStatus(paymentStatus), orders.PaymentRefunded) {
		return nil, &orders.InvalidTransitionError{Entity: "payment", From: paymentStatus, To: string(orders.PaymentRefunded)}
	}

	if err := tx.QueryRow(ctx, `
		UPDATE return_requests SET status=$2, updated_at=now() WHERE id=$1
		RETURNING updated_at`, id, string(StatusRefunded)).Scan(&rr.UpdatedAt); err != nil {
		return nil, err
	}
	rr.Status = StatusRefunded

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET status=$2, payment_status=$3, updated_at=now() WHERE id=$1`,
		rr.OrderID, string(orders.StatusRefunded), string(orders.PaymentRefunded)); err != nil {
		return nil, err
	}

	// release reservation utk semua order item
	rows, err := tx.Query(ctx, `SELECT product_id, quantity FROM order_items WHERE order_id=$1`, rr.OrderID)
	if err != nil {
		return nil, err
	}
	type rec struct {
		pid string
		qty int
	}
	var recs []rec
	for rows.Next() {
		var x rec
		if err := rows.Scan(&x.pid, &x.qty); err != nil {
			rows.Close()
			return nil, err
		}
		recs = append(recs, x)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, x := range recs {
		if err := inventory.ReleaseTx(ctx, tx, x.pid, x.qty); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	// invalidate cache status order (refund mengubah dua field sekaligus)
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, rr.OrderID)).Err()
	}

	// eksekusi uang didelegasikan ke gateway; gagal di sini tidak membatalkan
	// perubahan state (operator bisa retry lewat gateway)
	if s.Gateway != nil {
		if err := s.Gateway.Refund(ctx, rr.OrderID, rr.RefundCents); err != nil {
			log.Printf("returns: gateway refund order=%s: %v", rr.OrderID, err)
		}
	}

	s.Events.Emit(events.TopicRefundProcessed, events.EventRefundProcessed, rr.OrderID, "",
		events.RefundProcessedPayload{ReturnID: rr.ID, OrderID: rr.OrderID, AmountCents: rr.RefundCents})
	return rr, nil
}
