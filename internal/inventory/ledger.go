package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/events"
)

// Querier dipenuhi oleh *pgxpool.Pool maupun pgx.Tx, supaya operasi ledger
// bisa ikut transaksi milik caller (checkout/cancel/refund).
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// lockRow: pola inti "acquire lock -> re-read" utk semua mutator.
func lockRow(ctx context.Context, q Querier, productID string) (*Inventory, error) {
	inv := Inventory{ProductID: productID}
	err := q.QueryRow(ctx, `
		SELECT quantity, reserved, low_stock_threshold, updated_at
		FROM inventory WHERE product_id=$1 FOR UPDATE`, productID).
		Scan(&inv.Quantity, &inv.Reserved, &inv.LowStockThreshold, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func saveRow(ctx context.Context, q Querier, inv *Inventory) error {
	_, err := q.Exec(ctx, `
		UPDATE inventory SET quantity=$2, reserved=$3, updated_at=now()
		WHERE product_id=$1`, inv.ProductID, inv.Quantity, inv.Reserved)
	return err
}

// ReserveTx menahan qty unit di dalam transaksi caller. lowStock != nil
// (berisi state sesudah mutasi) kalau panggilan ini yang bikin stok turun
// melewati threshold — caller boleh emit alert setelah commit.
func ReserveTx(ctx context.Context, q Querier, productID string, qty int) (lowStock *Inventory, err error) {
	inv, err := lockRow(ctx, q, productID)
	if err != nil {
		return nil, err
	}
	wasLow := inv.IsLowStock()
	if err := inv.Reserve(qty); err != nil {
		return nil, err
	}
	if err := saveRow(ctx, q, inv); err != nil {
		return nil, err
	}
	if !wasLow && inv.IsLowStock() {
		return inv, nil
	}
	return nil, nil
}

func ReleaseTx(ctx context.Context, q Querier, productID string, qty int) error {
	inv, err := lockRow(ctx, q, productID)
	if err != nil {
		return err
	}
	inv.Release(qty)
	return saveRow(ctx, q, inv)
}

func ConfirmTx(ctx context.Context, q Querier, productID string, qty int) error {
	inv, err := lockRow(ctx, q, productID)
	if err != nil {
		return err
	}
	if err := inv.Confirm(qty); err != nil {
		return err
	}
	return saveRow(ctx, q, inv)
}

func AdjustTx(ctx context.Context, q Querier, productID string, delta int) error {
	inv, err := lockRow(ctx, q, productID)
	if err != nil {
		return err
	}
	if err := inv.Adjust(delta); err != nil {
		return err
	}
	return saveRow(ctx, q, inv)
}

// Ledger: operasi standalone, satu transaksi per panggilan.
type Ledger struct {
	DB     *pgxpool.Pool
	Events *events.Publisher
}

func (l *Ledger) Get(ctx context.Context, productID string) (*Inventory, error) {
	inv := Inventory{ProductID: productID}
	err := l.DB.QueryRow(ctx, `
		SELECT quantity, reserved, low_stock_threshold, updated_at
		FROM inventory WHERE product_id=$1`, productID).
		Scan(&inv.Quantity, &inv.Reserved, &inv.LowStockThreshold, &inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (l *Ledger) Reserve(ctx context.Context, productID string, qty int) error {
	var lowStock *Inventory
	err := l.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		lowStock, err = ReserveTx(ctx, tx, productID, qty)
		return err
	})
	if err != nil {
		return err
	}
	if lowStock != nil {
		l.Events.Emit(events.TopicLowStock, events.EventLowStock, productID, "",
			events.LowStockPayload{
				ProductID: productID,
				Available: lowStock.Available(),
				Threshold: lowStock.LowStockThreshold,
			})
	}
	return nil
}

func (l *Ledger) Release(ctx context.Context, productID string, qty int) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		return ReleaseTx(ctx, tx, productID, qty)
	})
}

func (l *Ledger) ConfirmReservation(ctx context.Context, productID string, qty int) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		return ConfirmTx(ctx, tx, productID, qty)
	})
}

func (l *Ledger) AdjustStock(ctx context.Context, productID string, delta int) error {
	return l.inTx(ctx, func(tx pgx.Tx) error {
		return AdjustTx(ctx, tx, productID, delta)
	})
}

func (l *Ledger) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
