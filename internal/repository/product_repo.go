package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/models"
)

type ProductRepo struct {
	pool *pgxpool.Pool
}

func NewProductRepo(pool *pgxpool.Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

const productColumns = `id, name, description, price, image, stock, sold_count, inventory_file, created_at`

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Stock, &p.SoldCount, &p.InventoryFile, &p.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *ProductRepo) Create(ctx context.Context, p *models.Product) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO products (id, name, description, price, image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING stock, sold_count, created_at
	`, p.ID, p.Name, p.Description, p.Price, p.Image).Scan(&p.Stock, &p.SoldCount, &p.CreatedAt)
}

func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
}

// GetByIDForUpdate locks the product row. Holding this lock serializes
// inventory pops for the product across processes.
func (r *ProductRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*models.Product, error) {
	return scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
}

// UpdateDetails writes the catalogue fields. Stock, sold_count and the
// inventory file are owned by the inventory workflows.
func (r *ProductRepo) UpdateDetails(ctx context.Context, p *models.Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET name = $2, description = $3, price = $4, image = $5
		WHERE id = $1
	`, p.ID, p.Name, p.Description, p.Price, p.Image)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCounters sets the cached stock and the sold counter.
func (r *ProductRepo) UpdateCounters(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock, soldCount int) error {
	_, err := tx.Exec(ctx, `UPDATE products SET stock = $2, sold_count = $3 WHERE id = $1`, id, stock, soldCount)
	return err
}

// RecordSale sets the cached stock and counts one more sale relative to the
// stored sold_count.
func (r *ProductRepo) RecordSale(ctx context.Context, tx pgx.Tx, id uuid.UUID, stock int) error {
	tag, err := tx.Exec(ctx, `UPDATE products SET stock = $2, sold_count = sold_count + 1 WHERE id = $1`, id, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetInventory points the product at a new inventory file.
func (r *ProductRepo) SetInventory(ctx context.Context, tx pgx.Tx, id uuid.UUID, file string, stock, soldCount int) error {
	_, err := tx.Exec(ctx, `
		UPDATE products SET inventory_file = $2, stock = $3, sold_count = $4 WHERE id = $1
	`, id, file, stock, soldCount)
	return err
}

func (r *ProductRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	return mapErr(err)
}

func (r *ProductRepo) List(ctx context.Context, limit int) ([]*models.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// ListStocked returns the IDs of products that have an inventory file.
func (r *ProductRepo) ListStocked(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM products WHERE inventory_file IS NOT NULL AND inventory_file <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProductRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n)
	return n, err
}
