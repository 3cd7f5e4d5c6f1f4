package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/cart-api/internal/domain"
	"github.com/fjod/cart-api/internal/repository"
	"github.com/go-chi/chi/v5"
)

type ItemHandler struct {
	catalog repository.Catalog
	timeout time.Duration
	logger  *slog.Logger
}

func NewItemHandler(catalog repository.Catalog, timeout time.Duration, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		catalog: catalog,
		timeout: timeout,
		logger:  logger,
	}
}

type ItemsResponse struct {
	Items []*domain.Item `json:"items"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.catalog.ListItems(ctx)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if items == nil {
		items = []*domain.Item{}
	}

	respondJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "id must be a positive integer")
		return
	}

	item, err := h.catalog.FindItem(ctx, id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, item)
}
