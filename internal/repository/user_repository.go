package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baraholka/marketbot/internal/domain"
)

// UserRepository encapsulates user persistence.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Upsert creates the user on first contact and keeps the username
	// fresh on later ones; other fields are untouched for existing rows.
	Upsert(ctx context.Context, user *domain.User) error
	SetBanned(ctx context.Context, id int64, banned bool) error
	SetPrivilege(ctx context.Context, id int64, privilege domain.Privilege) error
	ResetAccount(ctx context.Context, id int64) error
	ResetCooldown(ctx context.Context, id int64) error
	RecordPost(ctx context.Context, id int64, at time.Time) error
	IncrementReferrals(ctx context.Context, id int64) error
	Counts(ctx context.Context) (total, banned int, err error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `
        SELECT id, username, privilege, posts_count, referrals_count,
               referrer_id, last_post_time, banned, created_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `
        SELECT id, username, privilege, posts_count, referrals_count,
               referrer_id, last_post_time, banned, created_at
        FROM users WHERE username=$1`
	return r.fetchSingle(ctx, query, username)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Privilege,
		&user.PostsCount,
		&user.ReferralsCount,
		&user.ReferrerID,
		&user.LastPostTime,
		&user.Banned,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Upsert(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, username, privilege, referrer_id)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username
        RETURNING privilege, posts_count, referrals_count, referrer_id,
                  last_post_time, banned, created_at`
	if user.Privilege == "" {
		user.Privilege = domain.PrivilegeUser
	}
	return r.pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Privilege,
		user.ReferrerID,
	).Scan(
		&user.Privilege,
		&user.PostsCount,
		&user.ReferralsCount,
		&user.ReferrerID,
		&user.LastPostTime,
		&user.Banned,
		&user.CreatedAt,
	)
}

func (r *userRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	return r.exec(ctx, `UPDATE users SET banned=$1 WHERE id=$2`, banned, id)
}

func (r *userRepository) SetPrivilege(ctx context.Context, id int64, privilege domain.Privilege) error {
	return r.exec(ctx, `UPDATE users SET privilege=$1 WHERE id=$2`, privilege, id)
}

func (r *userRepository) ResetAccount(ctx context.Context, id int64) error {
	return r.exec(ctx, `
        UPDATE users SET posts_count=0, referrals_count=0,
            last_post_time=NULL, privilege='user'
        WHERE id=$1`, id)
}

func (r *userRepository) ResetCooldown(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET last_post_time=NULL WHERE id=$1`, id)
}

func (r *userRepository) RecordPost(ctx context.Context, id int64, at time.Time) error {
	return r.exec(ctx, `
        UPDATE users SET posts_count=posts_count+1, last_post_time=$1
        WHERE id=$2`, at, id)
}

func (r *userRepository) IncrementReferrals(ctx context.Context, id int64) error {
	return r.exec(ctx, `UPDATE users SET referrals_count=referrals_count+1 WHERE id=$1`, id)
}

func (r *userRepository) Counts(ctx context.Context) (int, int, error) {
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE banned) FROM users`
	var total, banned int
	if err := r.pool.QueryRow(ctx, query).Scan(&total, &banned); err != nil {
		return 0, 0, err
	}
	return total, banned, nil
}

func (r *userRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
