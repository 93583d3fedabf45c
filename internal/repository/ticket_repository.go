package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baraholka/marketbot/internal/domain"
)

// TicketRepository encapsulates ticket persistence. Every mutation is a
// single atomic statement; the service layer never mutates rows in place.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error)
	ListByOwner(ctx context.Context, userID int64) ([]domain.Ticket, error)
	ListByAdmin(ctx context.Context, adminID int64, status domain.TicketStatus) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus, adminID *int64) error
	Delete(ctx context.Context, id int64) error
	CountByStatus(ctx context.Context, status domain.TicketStatus) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (user_id, theme, status, admin_id)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusNew
	}
	return r.pool.QueryRow(ctx, query,
		ticket.UserID,
		ticket.Theme,
		ticket.Status,
		ticket.AdminID,
	).Scan(&ticket.ID, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        SELECT id, user_id, theme, status, admin_id, created_at
        FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.UserID,
		&ticket.Theme,
		&ticket.Status,
		&ticket.AdminID,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) ListByStatus(ctx context.Context, status domain.TicketStatus) ([]domain.Ticket, error) {
	const query = `
        SELECT id, user_id, theme, status, admin_id, created_at
        FROM tickets WHERE status=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByOwner(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	const query = `
        SELECT id, user_id, theme, status, admin_id, created_at
        FROM tickets WHERE user_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListByAdmin(ctx context.Context, adminID int64, status domain.TicketStatus) ([]domain.Ticket, error) {
	const query = `
        SELECT id, user_id, theme, status, admin_id, created_at
        FROM tickets WHERE admin_id=$1 AND status=$2 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, adminID, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id int64, status domain.TicketStatus, adminID *int64) error {
	const query = `
        UPDATE tickets SET status=$1, admin_id=COALESCE($2, admin_id)
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, status, adminID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	// ticket_messages rows go with the ticket via ON DELETE CASCADE.
	const query = `DELETE FROM tickets WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) CountByStatus(ctx context.Context, status domain.TicketStatus) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE status=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, status).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.UserID,
			&ticket.Theme,
			&ticket.Status,
			&ticket.AdminID,
			&ticket.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
