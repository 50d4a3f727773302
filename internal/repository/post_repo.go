package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/godweb/backend/internal/models"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `id, title, content, thumbnail, is_premium, premium_price, author_id, views, created_at, updated_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Thumbnail, &p.IsPremium, &p.PremiumPrice, &p.AuthorID, &p.Views, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func (r *PostRepo) Create(ctx context.Context, p *models.Post) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO posts (id, title, content, thumbnail, is_premium, premium_price, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING views, created_at, updated_at
	`, p.ID, p.Title, p.Content, p.Thumbnail, p.IsPremium, p.PremiumPrice, p.AuthorID).Scan(&p.Views, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

func (r *PostRepo) Update(ctx context.Context, p *models.Post) error {
	return mapErr(r.pool.QueryRow(ctx, `
		UPDATE posts SET title = $2, content = $3, thumbnail = $4, is_premium = $5, premium_price = $6, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, p.ID, p.Title, p.Content, p.Thumbnail, p.IsPremium, p.PremiumPrice).Scan(&p.UpdatedAt))
}

// Delete removes a post. Posts that have been bought return ErrReferenced.
func (r *PostRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepo) IncrementViews(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, id)
	return err
}

func (r *PostRepo) List(ctx context.Context, limit int) ([]*models.Post, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+postColumns+` FROM posts ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *PostRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&n)
	return n, err
}
