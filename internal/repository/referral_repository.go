package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baraholka/marketbot/internal/domain"
)

// ErrAlreadyReferred signals the referred user was recorded before;
// a user can be referred at most once.
var ErrAlreadyReferred = errors.New("user already referred")

// ReferralRepository encapsulates referral persistence.
type ReferralRepository interface {
	Add(ctx context.Context, referral *domain.Referral) error
	CountByReferrer(ctx context.Context, referrerID int64) (int, error)
}

type referralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository instantiates repository.
func NewReferralRepository(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepository{pool: pool}
}

func (r *referralRepository) Add(ctx context.Context, referral *domain.Referral) error {
	const query = `
        INSERT INTO referrals (referrer_id, referred_id)
        VALUES ($1,$2)
        RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, query,
		referral.ReferrerID,
		referral.ReferredID,
	).Scan(&referral.ID, &referral.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyReferred
	}
	return err
}

func (r *referralRepository) CountByReferrer(ctx context.Context, referrerID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM referrals WHERE referrer_id=$1`, referrerID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
