package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/middleware"
	"github.com/godweb/backend/internal/models"
)

type ProductReader interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit int) ([]*models.Product, error)
}

type Buyer interface {
	Buy(ctx context.Context, accountID, productID uuid.UUID) (*models.Order, error)
	OrderHistory(ctx context.Context, accountID uuid.UUID) ([]*models.Order, error)
}

// StoreHandler serves /api/v1/store endpoints.
type StoreHandler struct {
	Products  ProductReader
	Purchases Buyer
	Logger    *slog.Logger
}

func NewStoreHandler(products ProductReader, purchases Buyer, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{Products: products, Purchases: purchases, Logger: loggerOr(logger)}
}

// ListProducts handles GET /api/v1/store/products.
func (h *StoreHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Products.List(r.Context(), limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list products", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetProduct handles GET /api/v1/store/products/{id}.
func (h *StoreHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	p, err := h.Products.Get(r.Context(), id)
	if err != nil {
		respondErr(w, h.Logger, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Buy handles POST /api/v1/store/products/{id}/buy.
func (h *StoreHandler) Buy(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	order, err := h.Purchases.Buy(r.Context(), acc.ID, id)
	if err != nil {
		respondErr(w, h.Logger, "buy product", err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// Orders handles GET /api/v1/store/orders.
func (h *StoreHandler) Orders(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.Purchases.OrderHistory(r.Context(), acc.ID)
	if err != nil {
		respondErr(w, h.Logger, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
