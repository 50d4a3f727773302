package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

// AccountStore is the account persistence auth needs.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	CreateTx(ctx context.Context, tx pgx.Tx, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Update(ctx context.Context, a *models.Account) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

var _ AccountStore = (*repository.AccountRepo)(nil)
