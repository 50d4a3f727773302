package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/inventory"
	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/middleware"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/services"
)

const maxInventoryBytes = 8 << 20

type TopupProcessor interface {
	Approve(ctx context.Context, id, adminID uuid.UUID) (*models.TopupRequest, error)
	Reject(ctx context.Context, id, adminID uuid.UUID) (*models.TopupRequest, error)
	List(ctx context.Context, status models.TopupStatus, limit int) ([]*models.TopupRequest, error)
}

type BalanceAdjuster interface {
	Adjust(ctx context.Context, adminID, accountID uuid.UUID, amount int, direction models.Direction) (int, error)
}

type LedgerAuditor interface {
	Verify(ctx context.Context, accountID uuid.UUID) (*ledger.Audit, error)
	Recent(ctx context.Context, limit int) ([]*models.LedgerEntry, error)
}

type StatsCollector interface {
	Collect(ctx context.Context) (*services.Stats, error)
}

type AccountLister interface {
	List(ctx context.Context, limit int) ([]*models.Account, error)
}

type AccountEditor interface {
	UpdateAccount(ctx context.Context, id uuid.UUID, username, email string, role models.Role) (*models.Account, error)
}

type OrderLister interface {
	List(ctx context.Context, limit int) ([]*models.Order, error)
}

type ProductAdmin interface {
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UploadInventory(ctx context.Context, id uuid.UUID, r io.Reader) (*models.Product, error)
	Inventory(ctx context.Context, id uuid.UUID) ([]byte, error)
}

type PostWriter interface {
	Create(ctx context.Context, authorID uuid.UUID, p *models.Post) error
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// AdminHandler serves /api/v1/admin endpoints. Routes are expected to sit
// behind middleware.RequireAdmin.
type AdminHandler struct {
	Stats    StatsCollector
	Topups   TopupProcessor
	Adjust   BalanceAdjuster
	Ledger   LedgerAuditor
	Accounts AccountLister
	Editor   AccountEditor
	Orders   OrderLister
	Products ProductAdmin
	Posts    PostWriter
	Logger   *slog.Logger
}

// GetStats handles GET /api/v1/admin/stats.
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Stats.Collect(r.Context())
	if err != nil {
		respondErr(w, h.Logger, "collect stats", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListTopups handles GET /api/v1/admin/topups?status=pending.
func (h *AdminHandler) ListTopups(w http.ResponseWriter, r *http.Request) {
	var status models.TopupStatus
	if s := r.URL.Query().Get("status"); s != "" {
		var err error
		if status, err = models.ParseTopupStatus(s); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	list, err := h.Topups.List(r.Context(), status, limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list topups", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ApproveTopup handles POST /api/v1/admin/topups/{id}/approve.
func (h *AdminHandler) ApproveTopup(w http.ResponseWriter, r *http.Request) {
	h.processTopup(w, r, h.Topups.Approve)
}

// RejectTopup handles POST /api/v1/admin/topups/{id}/reject.
func (h *AdminHandler) RejectTopup(w http.ResponseWriter, r *http.Request) {
	h.processTopup(w, r, h.Topups.Reject)
}

func (h *AdminHandler) processTopup(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID) (*models.TopupRequest, error)) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid topup id")
		return
	}
	t, err := fn(r.Context(), id, admin.ID)
	if err != nil {
		respondErr(w, h.Logger, "process topup", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type adjustRequest struct {
	Amount    int              `json:"amount"`
	Direction models.Direction `json:"direction"`
}

// ListAccounts handles GET /api/v1/admin/accounts.
func (h *AdminHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	list, err := h.Accounts.List(r.Context(), limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list accounts", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type accountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// UpdateAccount handles PUT /api/v1/admin/accounts/{id}.
func (h *AdminHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id == admin.ID && role != models.RoleAdmin {
		writeError(w, http.StatusBadRequest, "cannot remove your own admin role")
		return
	}
	acc, err := h.Editor.UpdateAccount(r.Context(), id, req.Username, req.Email, role)
	if err != nil {
		respondErr(w, h.Logger, "update account", err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// AdjustBalance handles POST /api/v1/admin/accounts/{id}/balance.
func (h *AdminHandler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	balance, err := h.Adjust.Adjust(r.Context(), admin.ID, id, req.Amount, req.Direction)
	if err != nil {
		respondErr(w, h.Logger, "adjust balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance})
}

// Audit handles GET /api/v1/admin/accounts/{id}/audit.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account id")
		return
	}
	a, err := h.Ledger.Verify(r.Context(), id)
	if err != nil {
		respondErr(w, h.Logger, "audit account", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Transactions handles GET /api/v1/admin/transactions.
func (h *AdminHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	list, err := h.Ledger.Recent(r.Context(), limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ListOrders handles GET /api/v1/admin/orders.
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Orders.List(r.Context(), limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list orders", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type productRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       int     `json:"price"`
	Image       *string `json:"image"`
}

func (req productRequest) product() *models.Product {
	return &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
	}
}

// CreateProduct handles POST /api/v1/admin/products.
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.product()
	if err := h.Products.Create(r.Context(), p); err != nil {
		respondErr(w, h.Logger, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdateProduct handles PUT /api/v1/admin/products/{id}.
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.product()
	p.ID = id
	updated, err := h.Products.Update(r.Context(), p)
	if err != nil {
		respondErr(w, h.Logger, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteProduct handles DELETE /api/v1/admin/products/{id}.
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := h.Products.Delete(r.Context(), id); err != nil {
		respondErr(w, h.Logger, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadInventory handles PUT /api/v1/admin/products/{id}/inventory. The
// body is plain text, one credential per line.
func (h *AdminHandler) UploadInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	body := http.MaxBytesReader(w, r.Body, maxInventoryBytes)
	defer body.Close()
	p, err := h.Products.UploadInventory(r.Context(), id, body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "inventory file too large")
			return
		}
		respondErr(w, h.Logger, "upload inventory", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DownloadInventory handles GET /api/v1/admin/products/{id}/inventory.
func (h *AdminHandler) DownloadInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}
	raw, err := h.Products.Inventory(r.Context(), id)
	if err != nil {
		respondErr(w, h.Logger, "download inventory", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+inventory.FileName(id)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

type postRequest struct {
	Title        string  `json:"title"`
	Content      string  `json:"content"`
	Thumbnail    *string `json:"thumbnail"`
	IsPremium    bool    `json:"is_premium"`
	PremiumPrice int     `json:"premium_price"`
}

func (req postRequest) post() *models.Post {
	return &models.Post{
		Title:        req.Title,
		Content:      req.Content,
		Thumbnail:    req.Thumbnail,
		IsPremium:    req.IsPremium,
		PremiumPrice: req.PremiumPrice,
	}
}

// CreatePost handles POST /api/v1/admin/posts.
func (h *AdminHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	admin := middleware.AccountFromCtx(r.Context())
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.post()
	if err := h.Posts.Create(r.Context(), admin.ID, p); err != nil {
		respondErr(w, h.Logger, "create post", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// UpdatePost handles PUT /api/v1/admin/posts/{id}.
func (h *AdminHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p := req.post()
	p.ID = id
	updated, err := h.Posts.Update(r.Context(), p)
	if err != nil {
		respondErr(w, h.Logger, "update post", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeletePost handles DELETE /api/v1/admin/posts/{id}. Posts with purchases
// are kept and return 409.
func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid post id")
		return
	}
	if err := h.Posts.Delete(r.Context(), id); err != nil {
		respondErr(w, h.Logger, "delete post", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
