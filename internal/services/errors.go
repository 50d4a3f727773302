package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/repository"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidMethod    = errors.New("invalid payment method")
	ErrInvalidDirection = errors.New("invalid direction")
	ErrAlreadyProcessed = errors.New("top-up request already processed")
	ErrNoInventory      = errors.New("product out of stock")
	ErrAlreadyOwned     = errors.New("post already purchased")

	// Re-exported so callers only need this package's sentinels.
	ErrInsufficientBalance = ledger.ErrInsufficientBalance
	ErrNotFound            = repository.ErrNotFound
	ErrInUse               = repository.ErrReferenced
)

// TxBeginner abstracts transaction creation so tests don't need a pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
