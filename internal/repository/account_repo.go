package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/models"
)

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, username, email, password_hash, role, balance, created_at`

func scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.Balance, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &a, nil
}

// Create inserts a with a zero balance. Balance is only ever changed through the ledger.
func (r *AccountRepo) Create(ctx context.Context, a *models.Account) error {
	return r.CreateTx(ctx, nil, a)
}

// CreateTx is Create inside the given transaction; a nil tx uses the pool.
func (r *AccountRepo) CreateTx(ctx context.Context, tx pgx.Tx, a *models.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	const q = `
		INSERT INTO accounts (id, username, email, password_hash, role, balance)
		VALUES ($1, $2, $3, $4, $5, 0)
		RETURNING balance, created_at`
	var row pgx.Row
	if tx != nil {
		row = tx.QueryRow(ctx, q, a.ID, a.Username, a.Email, a.PasswordHash, a.Role)
	} else {
		row = r.pool.QueryRow(ctx, q, a.ID, a.Username, a.Email, a.PasswordHash, a.Role)
	}
	return mapErr(row.Scan(&a.Balance, &a.CreatedAt))
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, email))
}

func (r *AccountRepo) List(ctx context.Context, limit int) ([]*models.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// Update saves username, email and role. A name or email already in use
// returns ErrDuplicate.
func (r *AccountRepo) Update(ctx context.Context, a *models.Account) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE accounts SET username = $2, email = $3, role = $4 WHERE id = $1
	`, a.ID, a.Username, a.Email, a.Role)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns the number of accounts and the total GodCoin held by them.
func (r *AccountRepo) Stats(ctx context.Context) (count, totalBalance int, err error) {
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(balance), 0) FROM accounts`).Scan(&count, &totalBalance)
	return count, totalBalance, err
}

// GetByIDForUpdate locks the account row for update. Call within a transaction.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Account, error) {
	return scanAccount(tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id))
}

// DeductBalance atomically deducts amount if balance >= amount and returns the new balance.
// ErrNotFound means the row is missing or the balance is too low.
func (r *AccountRepo) DeductBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance - $1
		WHERE id = $2 AND balance >= $1
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, mapErr(err)
}

// AddBalance adds amount to the account and returns the new balance.
func (r *AccountRepo) AddBalance(ctx context.Context, tx pgx.Tx, id uuid.UUID, amount int) (newBalance int, err error) {
	err = tx.QueryRow(ctx, `
		UPDATE accounts SET balance = balance + $1
		WHERE id = $2
		RETURNING balance
	`, amount, id).Scan(&newBalance)
	return newBalance, mapErr(err)
}
