package addresses

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound: alamat tidak ada atau bukan milik user tsb.
var ErrNotFound = errors.New("address not found")

type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Line1      string    `json:"line1"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Repo struct{ DB *pgxpool.Pool }

// GetForUser resolve alamat yang dimiliki user; ownership dicek di query.
func (r *Repo) GetForUser(ctx context.Context, id, userID string) (*Address, error) {
	var a Address
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, line1, city, postal_code, country, is_default, created_at, updated_at
		FROM addresses WHERE id=$1 AND user_id=$2`, id, userID).
		Scan(&a.ID, &a.UserID, &a.Line1, &a.City, &a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ExistsForUserTx: versi ringan utk dipakai di dalam transaksi checkout.
func ExistsForUserTx(ctx context.Context, tx pgx.Tx, id, userID string) error {
	var found string
	err := tx.QueryRow(ctx, `SELECT id FROM addresses WHERE id=$1 AND user_id=$2`, id, userID).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Repo) ListForUser(ctx context.Context, userID string) ([]Address, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, line1, city, postal_code, country, is_default, created_at, updated_at
		FROM addresses WHERE user_id=$1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Address
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.UserID, &a.Line1, &a.City, &a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetDefault menjadikan satu alamat default dan meng-clear yang lain.
// Pola yang sama dengan ledger: lock row dulu, re-read, baru mutate,
// supaya dua request concurrent tidak menghasilkan dua default.
func (r *Repo) SetDefault(ctx context.Context, id, userID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// lock alamat target + default lama sekaligus
	rows, err := tx.Query(ctx, `
		SELECT id FROM addresses
		WHERE user_id=$1 AND (id=$2 OR is_default)
		ORDER BY id FOR UPDATE`, userID, id)
	if err != nil {
		return err
	}
	locked := map[string]bool{}
	for rows.Next() {
		var aid string
		if err := rows.Scan(&aid); err != nil {
			rows.Close()
			return err
		}
		locked[aid] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if !locked[id] {
		return ErrNotFound
	}

	if _, err := tx.Exec(ctx, `
		UPDATE addresses SET is_default=false, updated_at=now()
		WHERE user_id=$1 AND is_default`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE addresses SET is_default=true, updated_at=now() WHERE id=$1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
