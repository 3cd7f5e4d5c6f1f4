package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/fjod/cart-api/internal/auth"
	"github.com/fjod/cart-api/internal/domain"
)

type CartManager interface {
	AddItemToCart(ctx context.Context, itemID, userID int64) error
	GetCart(ctx context.Context, userID int64) (*domain.CartView, error)
	ReplaceCart(ctx context.Context, userID int64, itemIDs []int64) error
}

type CartHandler struct {
	carts   CartManager
	timeout time.Duration
	logger  *slog.Logger
}

func NewCartHandler(carts CartManager, timeout time.Duration, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:   carts,
		timeout: timeout,
		logger:  logger,
	}
}

type AddItemRequestDTO struct {
	ItemID int64 `json:"itemId"`
}

type ReplaceCartRequestDTO struct {
	ItemIDs *[]int64 `json:"itemIds"`
}

type CartResponse struct {
	Name string            `json:"name"`
	Cart []domain.LineView `json:"cart"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	view, err := h.carts.GetCart(ctx, userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	lines := slices.Collect(view.Lines())
	if lines == nil {
		lines = []domain.LineView{}
	}
	respondJSON(w, http.StatusOK, CartResponse{Name: view.Name, Cart: lines})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req AddItemRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ItemID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "itemId must be positive")
		return
	}

	if err := h.carts.AddItemToCart(ctx, req.ItemID, userID); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *CartHandler) ReplaceCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req ReplaceCartRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ItemIDs == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "itemIds is required")
		return
	}
	if slices.ContainsFunc(*req.ItemIDs, func(id int64) bool { return id <= 0 }) {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "itemIds must be positive")
		return
	}

	if err := h.carts.ReplaceCart(ctx, userID, *req.ItemIDs); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
