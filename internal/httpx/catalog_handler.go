package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/catalog"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
)

// CatalogHandler: katalog read-only + operasi stok administratif.
type CatalogHandler struct {
	Catalog *catalog.Repo
	Ledger  *inventory.Ledger
}

type stockQtyReq struct {
	Quantity int `json:"quantity"`
}

type stockAdjustReq struct {
	Delta int `json:"delta"`
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/products/{id}/inventory", h.getInventory)

	// mutator ledger utk admin: restock/koreksi + rekonsiliasi hold
	r.Post("/admin/products/{id}/inventory/adjust", h.adjust)
	r.Post("/admin/products/{id}/inventory/confirm", h.confirm)
	r.Post("/admin/products/{id}/inventory/release", h.release)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.List(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) getInventory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	inv, err := h.Ledger.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id":          inv.ProductID,
		"quantity":            inv.Quantity,
		"reserved":            inv.Reserved,
		"available":           inv.Available(),
		"low_stock_threshold": inv.LowStockThreshold,
		"low_stock":           inv.IsLowStock(),
	})
}

func (h *CatalogHandler) adjust(w http.ResponseWriter, r *http.Request) {
	var req stockAdjustReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pid := chi.URLParam(r, "id")
	if err := h.Ledger.AdjustStock(ctx, pid, req.Delta); err != nil {
		writeErr(w, err)
		return
	}
	h.getInventoryByID(w, r, pid)
}

func (h *CatalogHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var req stockQtyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pid := chi.URLParam(r, "id")
	if err := h.Ledger.ConfirmReservation(ctx, pid, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	h.getInventoryByID(w, r, pid)
}

func (h *CatalogHandler) release(w http.ResponseWriter, r *http.Request) {
	var req stockQtyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	pid := chi.URLParam(r, "id")
	if err := h.Ledger.Release(ctx, pid, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	h.getInventoryByID(w, r, pid)
}

func (h *CatalogHandler) getInventoryByID(w http.ResponseWriter, r *http.Request, pid string) {
	inv, err := h.Ledger.Get(r.Context(), pid)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": inv.ProductID,
		"quantity":   inv.Quantity,
		"reserved":   inv.Reserved,
		"available":  inv.Available(),
	})
}
