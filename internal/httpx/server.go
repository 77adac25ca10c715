package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/addresses"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/cart"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/catalog"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/inventory"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/returns"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr memetakan error taxonomy core ke status HTTP. Semua typed error
// bawa konteks cukup utk pesan user-facing.
func writeErr(w http.ResponseWriter, err error) {
	var stock *inventory.InsufficientStockError
	if errors.As(err, &stock) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      stock.Error(),
			"product_id": stock.ProductID,
			"requested":  stock.Requested,
			"available":  stock.Available,
		})
		return
	}
	var adj *inventory.InvalidAdjustmentError
	if errors.As(err, &adj) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": adj.Error()})
		return
	}
	var trans *orders.InvalidTransitionError
	if errors.As(err, &trans) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error": trans.Error(),
			"from":  trans.From,
			"to":    trans.To,
		})
		return
	}
	var inel *returns.IneligibleError
	if errors.As(err, &inel) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": inel.Reason})
		return
	}

	switch {
	case errors.Is(err, orders.ErrEmptyCart),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, returns.ErrInvalidReason):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, addresses.ErrNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, returns.ErrNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// userID: auth/session diurus gateway di depan; core percaya header ini.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-Id")
}
