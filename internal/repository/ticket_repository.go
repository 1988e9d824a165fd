package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suporte-central/pendentes/internal/domain"
)

const ticketColumns = `id, subject, description, priority, sector, status, created_on, end_date,
       requester_email, assigned_to_email, hidden, updated_at`

const ticketColumnsQualified = `t.id, t.subject, t.description, t.priority, t.sector, t.status, t.created_on, t.end_date,
       t.requester_email, t.assigned_to_email, t.hidden, t.updated_at`

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) (*domain.Ticket, error)
	ToggleStatus(ctx context.Context, id int64) (*domain.Ticket, domain.TicketStatus, error)
	ToggleHidden(ctx context.Context, id int64) (*domain.Ticket, error)
	SetHidden(ctx context.Context, id int64, hidden bool) (*domain.Ticket, bool, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

// Create inserts the ticket. Status, created_on and hidden come from the row
// defaults unless set, and are scanned back along with the id.
func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, description, priority, sector, status, created_on, end_date,
                             requester_email, assigned_to_email, hidden)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING ` + ticketColumns
	row := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Sector,
		ticket.Status,
		ticket.CreatedOn,
		ticket.EndDate,
		ticket.RequesterEmail,
		ticket.AssignedToEmail,
		ticket.Hidden,
	)
	return scanTicket(row, ticket)
}

// Update writes the editable fields only; id, status, created_on and hidden
// are never touched here.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, priority=$3, sector=$4, end_date=$5,
            requester_email=$6, assigned_to_email=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING ` + ticketColumns
	row := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Sector,
		ticket.EndDate,
		ticket.RequesterEmail,
		ticket.AssignedToEmail,
		ticket.ID,
	)
	return scanTicket(row, ticket)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `DELETE FROM tickets WHERE id=$1 RETURNING ` + ticketColumns
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ToggleStatus flips Aberto/Resolvido in one statement and returns the
// previous status alongside the updated row.
func (r *ticketRepository) ToggleStatus(ctx context.Context, id int64) (*domain.Ticket, domain.TicketStatus, error) {
	const query = `
        WITH prev AS (SELECT id, status FROM tickets WHERE id=$1 FOR UPDATE)
        UPDATE tickets t
        SET status = CASE WHEN prev.status = 'Aberto' THEN 'Resolvido' ELSE 'Aberto' END,
            updated_at = NOW()
        FROM prev
        WHERE t.id = prev.id
        RETURNING ` + ticketColumnsQualified + `, prev.status`
	var (
		ticket domain.Ticket
		old    domain.TicketStatus
	)
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket, &old); err != nil {
		return nil, "", err
	}
	return &ticket, old, nil
}

func (r *ticketRepository) ToggleHidden(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET hidden = NOT hidden, updated_at = NOW()
        WHERE id=$1
        RETURNING ` + ticketColumns
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SetHidden stores an explicit archived flag and reports the previous one.
func (r *ticketRepository) SetHidden(ctx context.Context, id int64, hidden bool) (*domain.Ticket, bool, error) {
	const query = `
        WITH prev AS (SELECT id, hidden FROM tickets WHERE id=$1 FOR UPDATE)
        UPDATE tickets t
        SET hidden = $2, updated_at = NOW()
        FROM prev
        WHERE t.id = prev.id
        RETURNING ` + ticketColumnsQualified + `, prev.hidden`
	var (
		ticket domain.Ticket
		old    bool
	)
	if err := scanTicket(r.pool.QueryRow(ctx, query, id, hidden), &ticket, &old); err != nil {
		return nil, false, err
	}
	return &ticket, old, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	query, countQuery, args := buildListQuery(filter)

	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Ticket{}, 0, nil
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.Ticket{}
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, 0, err
		}
		result = append(result, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket, extra ...any) error {
	dest := []any{
		&ticket.ID,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Sector,
		&ticket.Status,
		&ticket.CreatedOn,
		&ticket.EndDate,
		&ticket.RequesterEmail,
		&ticket.AssignedToEmail,
		&ticket.Hidden,
		&ticket.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}
