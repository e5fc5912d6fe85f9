package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/gorilla/mux"

	"github.com/xenking/tastetrack/internal/domain/catalog"
)

func (h *Handler) ListRestaurants(w http.ResponseWriter, r *http.Request) {
	h.writeRestaurants(w, r, h.catalog.Restaurants)
}

func (h *Handler) ListOpenRestaurants(w http.ResponseWriter, r *http.Request) {
	h.writeRestaurants(w, r, h.catalog.OpenRestaurants)
}

// SearchRestaurants matches ?q= against restaurant names and cuisines.
func (h *Handler) SearchRestaurants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	restaurants, err := h.catalog.SearchRestaurants(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, restaurants, encodeRestaurant) })
}

func (h *Handler) writeRestaurants(
	w http.ResponseWriter,
	r *http.Request,
	list func(ctx context.Context) ([]catalog.Restaurant, error),
) {
	restaurants, err := list(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, restaurants, encodeRestaurant) })
}

func (h *Handler) GetRestaurant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rest, err := h.catalog.Restaurant(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeRestaurant(e, rest) })
}

func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.catalog.Menu(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, items, encodeMenuItem) })
}

func (h *Handler) ListMenuByCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.catalog.MenuByCategory(r.Context(), id, mux.Vars(r)["category"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeList(e, items, encodeMenuItem) })
}

func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := h.catalog.MenuItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeMenuItem(e, item) })
}
