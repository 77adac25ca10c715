package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/returns"
)

type ReturnsHandler struct {
	Returns *returns.Service
}

type requestReturnReq struct {
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}

func (h *ReturnsHandler) Register(r *chi.Mux) {
	r.Get("/orders/{id}/return", h.getReturn)
	r.Get("/orders/{id}/return/eligibility", h.eligibility)
	r.Post("/orders/{id}/return", h.requestReturn)

	// transisi administratif (route admin, dipagari gateway)
	r.Post("/admin/returns/{id}/approve", h.approve)
	r.Post("/admin/returns/{id}/reject", h.reject)
	r.Post("/admin/returns/{id}/received", h.received)
	r.Post("/admin/returns/{id}/refund", h.refund)
}

func (h *ReturnsHandler) getReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rr, err := h.Returns.GetForOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}

func (h *ReturnsHandler) eligibility(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, reason, err := h.Returns.CanRequestReturn(ctx, chi.URLParam(r, "id"), userID(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"eligible": ok, "reason": reason})
}

func (h *ReturnsHandler) requestReturn(w http.ResponseWriter, r *http.Request) {
	var req requestReturnReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rr, err := h.Returns.RequestReturn(ctx, chi.URLParam(r, "id"), userID(r),
		returns.Reason(req.Reason), req.Description)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rr)
}

func (h *ReturnsHandler) approve(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.Returns.Approve)
}

func (h *ReturnsHandler) reject(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.Returns.Reject)
}

func (h *ReturnsHandler) received(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.Returns.MarkReceived)
}

func (h *ReturnsHandler) refund(w http.ResponseWriter, r *http.Request) {
	h.adminTransition(w, r, h.Returns.ProcessRefund)
}

func (h *ReturnsHandler) adminTransition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, id string) (*returns.ReturnRequest, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	rr, err := fn(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rr)
}
