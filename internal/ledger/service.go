package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

var (
	// ErrInsufficientBalance is returned when a debit would take the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidEntry is returned for a zero amount, an unknown kind or a sign that
	// does not match the kind.
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Service is the only writer of account balances. Every balance change goes
// through Record together with its ledger entry in the caller's transaction.
type Service interface {
	Record(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, kind models.LedgerKind, amount int, description string) (*models.LedgerEntry, error)
	Verify(ctx context.Context, accountID uuid.UUID) (*Audit, error)
	Drift(ctx context.Context) ([]repository.Drift, error)
	History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
	Recent(ctx context.Context, limit int) ([]*models.LedgerEntry, error)
}

// Audit compares an account's cached balance with the sum of its entries.
type Audit struct {
	AccountID  uuid.UUID `json:"account_id"`
	Balance    int       `json:"balance"`
	LedgerSum  int       `json:"ledger_sum"`
	Consistent bool      `json:"consistent"`
}

type service struct {
	accounts AccountStore
	entries  EntryStore
	logger   *slog.Logger
}

func NewService(accounts AccountStore, entries EntryStore, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &service{accounts: accounts, entries: entries, logger: logger}
}

var _ Service = (*service)(nil)

// Record locks the account row, applies the signed amount and inserts the
// matching entry. Credits are positive, debits negative. Call within a transaction.
func (s *service) Record(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, kind models.LedgerKind, amount int, description string) (*models.LedgerEntry, error) {
	if !kind.Valid() || amount == 0 || kind.IsDebit() != (amount < 0) {
		return nil, fmt.Errorf("%w: %s %d", ErrInvalidEntry, kind, amount)
	}
	acc, err := s.accounts.GetByIDForUpdate(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}

	var newBalance int
	if amount < 0 {
		if acc.Balance < -amount {
			return nil, ErrInsufficientBalance
		}
		newBalance, err = s.accounts.DeductBalance(ctx, tx, accountID, -amount)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInsufficientBalance
		}
	} else {
		newBalance, err = s.accounts.AddBalance(ctx, tx, accountID, amount)
	}
	if err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		ID:           uuid.New(),
		AccountID:    accountID,
		Kind:         kind,
		Amount:       amount,
		Description:  description,
		BalanceAfter: newBalance,
	}
	if err := s.entries.CreateTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Verify(ctx context.Context, accountID uuid.UUID) (*Audit, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	sum, err := s.entries.SumByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	a := &Audit{AccountID: accountID, Balance: acc.Balance, LedgerSum: sum, Consistent: acc.Balance == sum}
	if !a.Consistent {
		s.logger.Error("ledger drift", "account_id", accountID, "balance", acc.Balance, "ledger_sum", sum)
	}
	return a, nil
}

// Drift lists every account whose balance disagrees with its ledger.
func (s *service) Drift(ctx context.Context) ([]repository.Drift, error) {
	return s.entries.FindDrift(ctx)
}

func (s *service) History(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error) {
	return s.entries.ListByAccountID(ctx, accountID, limit)
}

func (s *service) Recent(ctx context.Context, limit int) ([]*models.LedgerEntry, error) {
	return s.entries.List(ctx, limit)
}
