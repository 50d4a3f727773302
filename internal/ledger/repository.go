package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

// AccountStore is the subset of the account repository the ledger writes through.
type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
	DeductBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
	AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error)
}

// EntryStore persists and aggregates ledger entries.
type EntryStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, e *models.LedgerEntry) error
	ListByAccountID(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.LedgerEntry, error)
	List(ctx context.Context, limit int) ([]*models.LedgerEntry, error)
	SumByAccountID(ctx context.Context, accountID uuid.UUID) (int, error)
	FindDrift(ctx context.Context) ([]repository.Drift, error)
}

var (
	_ AccountStore = (*repository.AccountRepo)(nil)
	_ EntryStore   = (*repository.LedgerRepo)(nil)
)
