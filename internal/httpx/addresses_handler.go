package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shubhamkumar-dianapps/Ecommerce/internal/addresses"
)

type AddressesHandler struct {
	Addresses *addresses.Repo
}

func (h *AddressesHandler) Register(r *chi.Mux) {
	r.Get("/addresses", h.list)
	r.Put("/addresses/{id}/default", h.setDefault)
}

func (h *AddressesHandler) list(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Addresses.ListForUser(ctx, uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	if out == nil {
		out = []addresses.Address{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *AddressesHandler) setDefault(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Addresses.SetDefault(ctx, chi.URLParam(r, "id"), userID(r)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
