package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baraholka/marketbot/internal/domain"
)

// PostRepository encapsulates listing persistence.
type PostRepository interface {
	Create(ctx context.Context, post *domain.Post) error
	CountAll(ctx context.Context) (int, error)
}

type postRepository struct {
	pool *pgxpool.Pool
}

// NewPostRepository instantiates repository.
func NewPostRepository(pool *pgxpool.Pool) PostRepository {
	return &postRepository{pool: pool}
}

func (r *postRepository) Create(ctx context.Context, post *domain.Post) error {
	const query = `
        INSERT INTO posts (user_id, photo_id, title, price, description, status)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if post.Status == "" {
		post.Status = domain.PostStatusActive
	}
	return r.pool.QueryRow(ctx, query,
		post.UserID,
		post.PhotoID,
		post.Title,
		post.Price,
		post.Description,
		post.Status,
	).Scan(&post.ID, &post.CreatedAt)
}

func (r *postRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
