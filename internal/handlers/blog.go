package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/middleware"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/services"
)

type PostReader interface {
	Read(ctx context.Context, viewerID uuid.UUID, role models.Role, id uuid.UUID) (*models.Post, bool, error)
	List(ctx context.Context, limit int) ([]*models.Post, error)
}

type AccessPurchaser interface {
	PurchaseAccess(ctx context.Context, accountID, postID uuid.UUID) (*models.PostPurchase, error)
	PurchaseHistory(ctx context.Context, accountID uuid.UUID) ([]*models.PostPurchase, error)
}

// BlogHandler serves the public post endpoints and premium purchases.
type BlogHandler struct {
	Posts   PostReader
	Premium AccessPurchaser
	Logger  *slog.Logger
}

func NewBlogHandler(posts PostReader, premium AccessPurchaser, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{Posts: posts, Premium: premium, Logger: loggerOr(logger)}
}

type postView struct {
	Post      *models.Post `json:"post"`
	HasAccess bool         `json:"has_access"`
}

type purchaseResult struct {
	Status   string               `json:"status"`
	Purchase *models.PostPurchase `json:"purchase,omitempty"`
}

// ListPosts handles GET /api/v1/posts.
func (h *BlogHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Posts.List(r.Context(), limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list posts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetPost handles GET /api/v1/posts/{id}. Authentication is optional; the
// content of a premium post is withheld from viewers without access.
func (h *BlogHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	viewer, role := uuid.Nil, models.RoleUser
	if acc := middleware.AccountFromCtx(r.Context()); acc != nil {
		viewer, role = acc.ID, acc.Role
	}
	p, access, err := h.Posts.Read(r.Context(), viewer, role, id)
	if err != nil {
		respondErr(w, h.Logger, "read post", err)
		return
	}
	writeJSON(w, http.StatusOK, postView{Post: p, HasAccess: access})
}

// Purchase handles POST /api/v1/posts/{id}/purchase.
func (h *BlogHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	pp, err := h.Premium.PurchaseAccess(r.Context(), acc.ID, id)
	switch {
	case errors.Is(err, services.ErrAlreadyOwned):
		writeJSON(w, http.StatusOK, purchaseResult{Status: "already_owned", Purchase: pp})
	case err != nil:
		respondErr(w, h.Logger, "purchase post", err)
	case pp == nil:
		writeJSON(w, http.StatusOK, purchaseResult{Status: "free"})
	default:
		writeJSON(w, http.StatusCreated, purchaseResult{Status: "purchased", Purchase: pp})
	}
}

// Purchases handles GET /api/v1/account/purchases.
func (h *BlogHandler) Purchases(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.Premium.PurchaseHistory(r.Context(), acc.ID)
	if err != nil {
		respondErr(w, h.Logger, "list purchases", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
