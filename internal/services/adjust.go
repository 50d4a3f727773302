package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/models"
)

// AdjustService applies manual balance corrections made by administrators.
type AdjustService struct {
	Pool   TxBeginner
	Ledger ledger.Service
	Logger *slog.Logger
}

func NewAdjustService(pool TxBeginner, l ledger.Service, logger *slog.Logger) *AdjustService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdjustService{Pool: pool, Ledger: l, Logger: logger}
}

// Adjust credits or debits amount on accountID and returns the new balance.
func (s *AdjustService) Adjust(ctx context.Context, adminID, accountID uuid.UUID, amount int, direction models.Direction) (int, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if !direction.Valid() {
		return 0, ErrInvalidDirection
	}
	kind, signed, desc := models.LedgerAdminAdd, amount, "Admin credit"
	if direction == models.DirectionDebit {
		kind, signed, desc = models.LedgerAdminSubtract, -amount, "Admin debit"
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	entry, err := s.Ledger.Record(ctx, tx, accountID, kind, signed, desc)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	s.Logger.Info("balance adjusted", "admin_id", adminID, "account_id", accountID, "amount", signed, "balance", entry.BalanceAfter)
	return entry.BalanceAfter, nil
}
