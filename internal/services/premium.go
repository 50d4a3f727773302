package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/godweb/backend/internal/ledger"
	"github.com/godweb/backend/internal/models"
	"github.com/godweb/backend/internal/repository"
)

type PremiumPostRepo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

type PremiumAccountRepo interface {
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error)
}

type PremiumPurchaseRepo interface {
	GetTx(ctx context.Context, tx pgx.Tx, accountID, postID uuid.UUID) (*models.PostPurchase, error)
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.PostPurchase) error
	Exists(ctx context.Context, accountID, postID uuid.UUID) (bool, error)
	ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.PostPurchase, error)
}

// PremiumService sells one-time access to premium posts.
type PremiumService struct {
	Pool      TxBeginner
	Posts     PremiumPostRepo
	Accounts  PremiumAccountRepo
	Purchases PremiumPurchaseRepo
	Ledger    ledger.Service
	Logger    *slog.Logger
}

func NewPremiumService(pool TxBeginner, posts PremiumPostRepo, accounts PremiumAccountRepo, purchases PremiumPurchaseRepo, l ledger.Service, logger *slog.Logger) *PremiumService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PremiumService{Pool: pool, Posts: posts, Accounts: accounts, Purchases: purchases, Ledger: l, Logger: logger}
}

// PurchaseAccess grants accountID access to a premium post. For a free post it
// returns (nil, nil). If access was already granted it returns the existing
// grant with ErrAlreadyOwned and charges nothing.
func (s *PremiumService) PurchaseAccess(ctx context.Context, accountID, postID uuid.UUID) (*models.PostPurchase, error) {
	post, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsPremium {
		return nil, nil
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The account lock serializes concurrent purchases by the same account.
	if _, err := s.Accounts.GetByIDForUpdate(ctx, tx, accountID); err != nil {
		return nil, err
	}
	existing, err := s.Purchases.GetTx(ctx, tx, accountID, postID)
	if err == nil {
		return existing, ErrAlreadyOwned
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if post.PremiumPrice > 0 {
		if _, err := s.Ledger.Record(ctx, tx, accountID, models.LedgerPurchase, -post.PremiumPrice, "Purchase post: "+post.Title); err != nil {
			return nil, err
		}
	}
	grant := &models.PostPurchase{
		ID:        uuid.New(),
		AccountID: accountID,
		PostID:    postID,
		Price:     post.PremiumPrice,
	}
	if err := s.Purchases.CreateTx(ctx, tx, grant); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyOwned
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.Logger.Info("post purchased", "post_id", postID, "account_id", accountID, "price", post.PremiumPrice)
	return grant, nil
}

// HasAccess reports whether the viewer may read post's content. A nil
// accountID is an anonymous viewer.
func (s *PremiumService) HasAccess(ctx context.Context, accountID uuid.UUID, role models.Role, post *models.Post) (bool, error) {
	if !post.IsPremium {
		return true, nil
	}
	if accountID == uuid.Nil {
		return false, nil
	}
	if role == models.RoleAdmin {
		return true, nil
	}
	return s.Purchases.Exists(ctx, accountID, post.ID)
}

func (s *PremiumService) PurchaseHistory(ctx context.Context, accountID uuid.UUID) ([]*models.PostPurchase, error) {
	return s.Purchases.ListByAccountID(ctx, accountID)
}
