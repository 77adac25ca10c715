package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/orders"
	"github.com/shubhamkumar-dianapps/Ecommerce/internal/redisx"
)

type OrdersHandler struct {
	Checkout *orders.CheckoutService
	Orders   *orders.Service
	Redis    *redis.Client
}

type checkoutReq struct {
	ShippingAddressID string `json:"shipping_address_id"`
	BillingAddressID  string `json:"billing_address_id,omitempty"`
	CustomerNotes     string `json:"customer_notes,omitempty"`
}

type paymentCallbackReq struct {
	Status string `json:"status"` // PAID | FAILED
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getOrderStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
	r.Post("/orders/{id}/payment", h.paymentCallback)
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ShippingAddressID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing shipping_address_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Fast-path idempotency via Redis (optional, DB tetap jadi kebenaran:
	// cart yang sudah kosong bakal gagal dengan EmptyCart juga).
	idemKey := ""
	if k := r.Header.Get("Idempotency-Key"); k != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, uid, k)
		if orderID, err := h.Redis.Get(ctx, idemKey).Result(); err == nil && orderID != "" {
			o, err := h.Orders.GetForUser(ctx, orderID, uid)
			if err == nil {
				writeJSON(w, http.StatusOK, o)
				return
			}
		}
	}

	o, err := h.Checkout.CreateOrderFromCart(ctx, uid, req.ShippingAddressID, req.BillingAddressID, req.CustomerNotes)
	if err != nil {
		writeErr(w, err)
		return
	}
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := orders.Status(r.URL.Query().Get("status"))
	if status != "" && !orders.ValidStatus(status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status filter"})
		return
	}
	out, err := h.Orders.GetUserOrders(ctx, uid, status)
	if err != nil {
		writeErr(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.GetForUser(ctx, chi.URLParam(r, "id"), userID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache. Ownership tetap dicek: entry bawa user_id, mismatch
	// jatuh ke DB (yang bakal jawab not found utk non-pemilik).
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var entry orders.StatusCacheEntry
		if err := json.Unmarshal([]byte(s), &entry); err == nil && entry.UserID == userID(r) && entry.UserID != "" {
			writeJSON(w, http.StatusOK, map[string]string{
				"status":         entry.Status,
				"payment_status": entry.PaymentStatus,
			})
			return
		}
	}

	// 2) fallback DB
	o, err := h.Orders.GetForUser(ctx, orderID, userID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	entry := orders.StatusCacheEntry{
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentStatus: string(o.PaymentStatus),
	}
	b, _ := json.Marshal(entry)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         entry.Status,
		"payment_status": entry.PaymentStatus,
	})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Orders.Cancel(ctx, chi.URLParam(r, "id"), userID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// paymentCallback: dipanggil payment collaborator, bukan end user.
func (h *OrdersHandler) paymentCallback(w http.ResponseWriter, r *http.Request) {
	var req paymentCallbackReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	to := orders.PaymentStatus(req.Status)
	if to != orders.PaymentPaid && to != orders.PaymentFailed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payment status"})
		return
	}
	if err := h.Orders.SetPaymentStatus(ctx, chi.URLParam(r, "id"), to); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
