package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/models"
)

type OrderRepo struct {
	pool *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{pool: pool}
}

const orderColumns = `id, account_id, product_id, account_info, price, created_at`

// CreateTx inserts an order inside the given transaction.
func (r *OrderRepo) CreateTx(ctx context.Context, tx pgx.Tx, o *models.Order) error {
	return tx.QueryRow(ctx, `
		INSERT INTO orders (id, account_id, product_id, account_info, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, o.ID, o.AccountID, o.ProductID, o.AccountInfo, o.Price).Scan(&o.CreatedAt)
}

func (r *OrderRepo) list(ctx context.Context, q string, args ...any) ([]*models.Order, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.AccountID, &o.ProductID, &o.AccountInfo, &o.Price, &o.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, &o)
	}
	return list, rows.Err()
}

func (r *OrderRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

func (r *OrderRepo) List(ctx context.Context, limit int) ([]*models.Order, error) {
	return r.list(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC LIMIT $1`, limit)
}

func (r *OrderRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	return n, err
}
