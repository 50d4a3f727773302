package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/middleware"
	"github.com/godweb/backend/internal/models"
)

// TopupRequester is the account-facing side of the top-up workflow.
type TopupRequester interface {
	Request(ctx context.Context, accountID uuid.UUID, amount int, method string) (*models.TopupRequest, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*models.TopupRequest, error)
}

// LedgerReader lists an account's ledger entries, newest first.
type LedgerReader interface {
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
}

// WalletHandler serves /api/v1/wallet endpoints.
type WalletHandler struct {
	Topups TopupRequester
	Ledger LedgerReader
	Logger *slog.Logger
}

func NewWalletHandler(topups TopupRequester, l LedgerReader, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{Topups: topups, Ledger: l, Logger: loggerOr(logger)}
}

type topupRequest struct {
	Amount int    `json:"amount"`
	Method string `json:"method"`
}

// CreateTopup handles POST /api/v1/wallet/topups.
func (h *WalletHandler) CreateTopup(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req topupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	t, err := h.Topups.Request(r.Context(), acc.ID, req.Amount, req.Method)
	if err != nil {
		respondErr(w, h.Logger, "create topup", err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTopups handles GET /api/v1/wallet/topups.
func (h *WalletHandler) ListTopups(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.Topups.ListForAccount(r.Context(), acc.ID)
	if err != nil {
		respondErr(w, h.Logger, "list topups", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	acc := middleware.AccountFromCtx(r.Context())
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	entries, err := h.Ledger.History(r.Context(), acc.ID, limitParam(r))
	if err != nil {
		respondErr(w, h.Logger, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance":      acc.Balance,
		"transactions": entries,
	})
}
