package cart

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/catalog"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
)

// Integration test: butuh postgres dengan db/schema.sql teraplikasi.
func testRepo(t *testing.T) (*Repo, *pgxpool.Pool) {
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
	return &Repo{DB: pool, Catalog: &catalog.Repo{DB: pool}}, pool
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, priceCents, stockQty int) string {
	t.Helper()
	id := uuid.NewString()
	ctx := context.Background()
	if _, err := pool.Exec(ctx, `
		INSERT INTO products(id, name, sku, price_cents) VALUES ($1, 'Kopi Arabica', $2, $3)`,
		id, "SKU-"+id[:8], priceCents); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := pool.Exec(ctx, `
		INSERT INTO inventory(product_id, quantity, reserved, low_stock_threshold)
		VALUES ($1, $2, 0, 0)`, id, stockQty); err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM products WHERE id=$1`, id)
	})
	return id
}

func cleanupUser(t *testing.T, pool *pgxpool.Pool, userID string) {
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM carts WHERE user_id=$1`, userID)
	})
}

func TestAddItemMergesQuantity(t *testing.T) {
	repo, pool := testRepo(t)
	ctx := context.Background()
	userID := uuid.NewString()
	cleanupUser(t, pool, userID)
	pid := seedProduct(t, pool, 2500, 20)

	if err := repo.AddItem(ctx, userID, pid, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := repo.AddItem(ctx, userID, pid, 3); err != nil {
		t.Fatalf("add again: %v", err)
	}

	c, err := repo.Get(ctx, userID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(c.Items) != 1 || c.Items[0].Quantity != 5 {
		t.Fatalf("cart = %+v", c.Items)
	}
	if c.TotalItems != 5 || c.SubtotalCents != 12500 {
		t.Fatalf("totals = %d items / %d cents", c.TotalItems, c.SubtotalCents)
	}
}

func TestAddItemDemandCheck(t *testing.T) {
	repo, pool := testRepo(t)
	ctx := context.Background()
	userID := uuid.NewString()
	cleanupUser(t, pool, userID)
	pid := seedProduct(t, pool, 2500, 4)

	if err := repo.AddItem(ctx, userID, pid, 3); err != nil {
		t.Fatalf("add: %v", err)
	}
	// 3 sudah di cart, +2 = 5 > available 4
	err := repo.AddItem(ctx, userID, pid, 2)
	var stock *inventory.InsufficientStockError
	if !errors.As(err, &stock) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if stock.Requested != 5 || stock.Available != 4 {
		t.Fatalf("error context = %+v", stock)
	}

	if err := repo.AddItem(ctx, userID, pid, 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity, got %v", err)
	}
	if err := repo.AddItem(ctx, userID, uuid.NewString(), 1); !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want catalog.ErrNotFound, got %v", err)
	}
}

func TestUpdateAndRemoveItem(t *testing.T) {
	repo, pool := testRepo(t)
	ctx := context.Background()
	userID := uuid.NewString()
	cleanupUser(t, pool, userID)
	pid := seedProduct(t, pool, 1000, 10)

	if err := repo.AddItem(ctx, userID, pid, 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, _ := repo.Get(ctx, userID)
	itemID := c.Items[0].ID

	if err := repo.UpdateItem(ctx, userID, itemID, 7); err != nil {
		t.Fatalf("update: %v", err)
	}
	c, _ = repo.Get(ctx, userID)
	if c.Items[0].Quantity != 7 {
		t.Fatalf("quantity = %d", c.Items[0].Quantity)
	}

	// qty 0 = remove
	if err := repo.UpdateItem(ctx, userID, itemID, 0); err != nil {
		t.Fatalf("update to zero: %v", err)
	}
	c, _ = repo.Get(ctx, userID)
	if len(c.Items) != 0 {
		t.Fatalf("items = %d", len(c.Items))
	}

	if err := repo.RemoveItem(ctx, userID, itemID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}

// Item orang lain tidak bisa diubah lewat user id berbeda.
func TestItemOwnership(t *testing.T) {
	repo, pool := testRepo(t)
	ctx := context.Background()
	owner := uuid.NewString()
	other := uuid.NewString()
	cleanupUser(t, pool, owner)
	cleanupUser(t, pool, other)
	pid := seedProduct(t, pool, 1000, 10)

	if err := repo.AddItem(ctx, owner, pid, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	c, _ := repo.Get(ctx, owner)
	itemID := c.Items[0].ID

	if err := repo.RemoveItem(ctx, other, itemID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
	if err := repo.UpdateItem(ctx, other, itemID, 5); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("want ErrItemNotFound, got %v", err)
	}
}

func TestGetEmptyCart(t *testing.T) {
	repo, _ := testRepo(t)
	c, err := repo.Get(context.Background(), uuid.NewString())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.ID != "" || len(c.Items) != 0 || c.SubtotalCents != 0 {
		t.Fatalf("cart = %+v", c)
	}
}
