package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/models"
)

type TopupRepo struct {
	pool *pgxpool.Pool
}

func NewTopupRepo(pool *pgxpool.Pool) *TopupRepo {
	return &TopupRepo{pool: pool}
}

const topupColumns = `id, account_id, amount, godcoin_amount, method, status, created_at, processed_at, processed_by`

func scanTopup(row pgx.Row) (*models.TopupRequest, error) {
	var t models.TopupRequest
	err := row.Scan(&t.ID, &t.AccountID, &t.Amount, &t.GodCoinAmount, &t.Method, &t.Status, &t.CreatedAt, &t.ProcessedAt, &t.ProcessedBy)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

// Create inserts a pending top-up request.
func (r *TopupRepo) Create(ctx context.Context, t *models.TopupRequest) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO topup_requests (id, account_id, amount, godcoin_amount, method, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.AccountID, t.Amount, t.GodCoinAmount, t.Method, t.Status).Scan(&t.CreatedAt)
}

// GetByIDForUpdate locks the request row. Call within a transaction.
func (r *TopupRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.TopupRequest, error) {
	return scanTopup(tx.QueryRow(ctx, `SELECT `+topupColumns+` FROM topup_requests WHERE id = $1 FOR UPDATE`, id))
}

// MarkProcessed moves a pending request to a terminal status. The status guard
// makes a second transition affect no rows, reported as ErrNotFound.
func (r *TopupRepo) MarkProcessed(ctx context.Context, tx pgx.Tx, id uuid.UUID, status models.TopupStatus, at time.Time, by uuid.UUID) error {
	tag, err := tx.Exec(ctx, `
		UPDATE topup_requests SET status = $2, processed_at = $3, processed_by = $4
		WHERE id = $1 AND status = 'pending'
	`, id, status, at, by)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TopupRepo) list(ctx context.Context, q string, args ...any) ([]*models.TopupRequest, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.TopupRequest{}
	for rows.Next() {
		t, err := scanTopup(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TopupRepo) ListByAccountID(ctx context.Context, accountID uuid.UUID) ([]*models.TopupRequest, error) {
	return r.list(ctx, `SELECT `+topupColumns+` FROM topup_requests WHERE account_id = $1 ORDER BY created_at DESC`, accountID)
}

// ListByStatus returns requests in the given status, newest first. An empty status lists all.
func (r *TopupRepo) ListByStatus(ctx context.Context, status models.TopupStatus, limit int) ([]*models.TopupRequest, error) {
	if status == "" {
		return r.list(ctx, `SELECT `+topupColumns+` FROM topup_requests ORDER BY created_at DESC LIMIT $1`, limit)
	}
	return r.list(ctx, `SELECT `+topupColumns+` FROM topup_requests WHERE status = $1 ORDER BY created_at DESC LIMIT $2`, status, limit)
}

func (r *TopupRepo) CountByStatus(ctx context.Context, status models.TopupStatus) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM topup_requests WHERE status = $1`, status).Scan(&n)
	return n, err
}
