package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/models"
)

// PurchaseRepo stores premium-post access grants.
type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

const purchaseColumns = `id, account_id, post_id, price, created_at`

func scanPurchase(row pgx.Row) (*models.PostPurchase, error) {
	var p models.PostPurchase
	if err := row.Scan(&p.ID, &p.AccountID, &p.PostID, &p.Price, &p.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// GetTx returns the grant for (accountID, postID) or ErrNotFound.
func (r *PurchaseRepo) GetTx(ctx context.Context, tx pgx.Tx, accountID, postID uuid.UUID) (*models.PostPurchase, error) {
	return scanPurchase(tx.QueryRow(ctx, `
		SELECT `+purchaseColumns+` FROM post_purchases WHERE account_id = $1 AND post_id = $2
	`, accountID, postID))
}

// CreateTx inserts a grant. A second grant for the same pair returns ErrDuplicate.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.PostPurchase) error {
	return mapErr(tx.QueryRow(ctx, `
		INSERT INTO post_purchases (id, account_id, post_id, price)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, p.ID, p.AccountID, p.PostID, p.Price).Scan(&p.CreatedAt))
}

func (r *PurchaseRepo) Exists(ctx context.Context, accountID, postID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM post_purchases WHERE account_id = $1 AND post_id = $2)
	`, accountID, postID).Scan(&ok)
	return ok, err
}

func (r *PurchaseRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.PostPurchase, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+purchaseColumns+` FROM post_purchases WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.PostPurchase{}
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}
