package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/catalog"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
)

var (
	ErrItemNotFound    = errors.New("cart item not found")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

type Cart struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Items      []Item `json:"items"`
	TotalItems int    `json:"total_items"`
	// SubtotalCents dihitung dari harga product SAAT INI; angka final
	// di-snapshot baru pada saat checkout.
	SubtotalCents int       `json:"subtotal_cents"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Item struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	ProductSKU     string `json:"product_sku"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	TotalCents     int    `json:"total_cents"`
}

type Repo struct {
	DB      *pgxpool.Pool
	Catalog *catalog.Repo
}

// GetOrCreate: cart 1:1 dengan user, dibuat lazy.
func (r *Repo) GetOrCreate(ctx context.Context, userID string) (string, error) {
	var id string
	err := r.DB.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	// race dua request pertama: ON CONFLICT balik ke row yang menang
	err = r.DB.QueryRow(ctx, `
		INSERT INTO carts(id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET updated_at=now()
		RETURNING id`, id, userID).Scan(&id)
	return id, err
}

// checkDemand: validasi advisory terhadap available saat ini. Bukan
// reservation — stok baru ditahan pas checkout.
func (r *Repo) checkDemand(ctx context.Context, productID string, qty int) error {
	var quantity, reserved int
	err := r.DB.QueryRow(ctx, `
		SELECT quantity, reserved FROM inventory WHERE product_id=$1`, productID).
		Scan(&quantity, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return inventory.ErrNotFound
	}
	if err != nil {
		return err
	}
	available := quantity - reserved
	if available < 0 {
		available = 0
	}
	if qty > available {
		return &inventory.InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
	}
	return nil
}

// AddItem menambahkan qty; kalau product sudah ada di cart, quantity digabung.
func (r *Repo) AddItem(ctx context.Context, userID, productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := r.Catalog.Get(ctx, productID); err != nil {
		return err
	}
	cartID, err := r.GetOrCreate(ctx, userID)
	if err != nil {
		return err
	}

	var existing int
	err = r.DB.QueryRow(ctx, `
		SELECT quantity FROM cart_items WHERE cart_id=$1 AND product_id=$2`,
		cartID, productID).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err := r.checkDemand(ctx, productID, existing+qty); err != nil {
		return err
	}

	_, err = r.DB.Exec(ctx, `
		INSERT INTO cart_items(id, cart_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at=now()`,
		uuid.NewString(), cartID, productID, qty)
	return err
}

// UpdateItem set quantity absolut utk satu line.
func (r *Repo) UpdateItem(ctx context.Context, userID, itemID string, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, userID, itemID)
	}

	var productID string
	err := r.DB.QueryRow(ctx, `
		SELECT ci.product_id FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		WHERE ci.id=$1 AND c.user_id=$2`, itemID, userID).Scan(&productID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrItemNotFound
	}
	if err != nil {
		return err
	}

	if err := r.checkDemand(ctx, productID, qty); err != nil {
		return err
	}

	_, err = r.DB.Exec(ctx, `
		UPDATE cart_items SET quantity=$2, updated_at=now() WHERE id=$1`, itemID, qty)
	return err
}

func (r *Repo) RemoveItem(ctx context.Context, userID, itemID string) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items ci
		USING carts c
		WHERE ci.id=$1 AND ci.cart_id = c.id AND c.user_id=$2`, itemID, userID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items
		WHERE cart_id IN (SELECT id FROM carts WHERE user_id=$1)`, userID)
	return err
}

// Get mengembalikan cart + line items dengan harga product saat ini.
func (r *Repo) Get(ctx context.Context, userID string) (*Cart, error) {
	c := Cart{UserID: userID, Items: []Item{}}
	err := r.DB.QueryRow(ctx, `SELECT id, created_at, updated_at FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &c, nil // cart kosong, belum pernah dibuat
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT ci.id, ci.product_id, p.name, p.sku, p.price_cents, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id=$1
		ORDER BY ci.created_at`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.ProductSKU, &it.UnitPriceCents, &it.Quantity); err != nil {
			return nil, err
		}
		it.TotalCents = it.UnitPriceCents * it.Quantity
		c.TotalItems += it.Quantity
		c.SubtotalCents += it.TotalCents
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}
