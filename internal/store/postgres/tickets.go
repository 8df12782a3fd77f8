package postgres

import (
	"context"
	"errors"
	"strconv"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/jackc/pgx/v5"
)

const ticketColumns = `t.ticket_id, t.member_id, t.subject, t.message, t.priority, t.status, t.assigned_to, t.created_at, t.updated_at`

func ticketFields(ticket *models.Ticket) []any {
	return []any{&ticket.ID, &ticket.MemberID, &ticket.Subject, &ticket.Message, &ticket.Priority, &ticket.Status,
		&ticket.AssignedTo, &ticket.CreatedAt, &ticket.UpdatedAt}
}

func normalizeTicket(ticket *models.Ticket) {
	ticket.CreatedAt = ticket.CreatedAt.UTC()
	ticket.UpdatedAt = ticket.UpdatedAt.UTC()
}

func (s *Store) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets t
		ORDER BY t.created_at DESC, t.ticket_id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		var ticket models.Ticket
		if err := rows.Scan(ticketFields(&ticket)...); err != nil {
			return nil, err
		}
		normalizeTicket(&ticket)
		tickets = append(tickets, ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID int64) (models.Ticket, bool, error) {
	var ticket models.Ticket
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM tickets t WHERE t.ticket_id = $1`, ticketID)
	if err := row.Scan(ticketFields(&ticket)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	normalizeTicket(&ticket)
	return ticket, true, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	ticket.Status = models.TicketOpen
	ticket.AssignedTo = nil
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tickets (member_id, subject, message, priority, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ticket_id, created_at, updated_at
	`, ticket.MemberID, ticket.Subject, ticket.Message, ticket.Priority, ticket.Status)
	if err := row.Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return models.Ticket{}, mapError(err)
	}
	normalizeTicket(&ticket)
	return ticket, nil
}

func (s *Store) ApplyTicketAction(ctx context.Context, input store.TicketActionInput) (ticket models.Ticket, err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Ticket{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	row := tx.QueryRow(ctx, `
		SELECT `+ticketColumns+`
		FROM tickets t
		WHERE t.ticket_id = $1
		FOR UPDATE
	`, input.TicketID)
	if err = row.Scan(ticketFields(&ticket)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrNotFound
		}
		return models.Ticket{}, err
	}
	if !store.ValidTicketTransition(input.Action, ticket.Status) {
		err = store.ErrInvalidState
		return models.Ticket{}, err
	}
	if input.Action == "assign" {
		if input.AssignedTo == nil {
			err = store.ErrInvalidReference
			return models.Ticket{}, err
		}
		ticket.AssignedTo = input.AssignedTo
	}
	ticket.Status = store.TicketActionTarget(input.Action, ticket.Status)

	row = tx.QueryRow(ctx, `
		UPDATE tickets
		SET status = $1, assigned_to = $2, updated_at = NOW()
		WHERE ticket_id = $3
		RETURNING updated_at
	`, ticket.Status, ticket.AssignedTo, ticket.ID)
	if err = row.Scan(&ticket.UpdatedAt); err != nil {
		err = mapError(err)
		return models.Ticket{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return models.Ticket{}, err
	}
	normalizeTicket(&ticket)
	return ticket, nil
}

func (s *Store) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_user_id, action, target_type, target_id, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ActorUserID, entry.Action, entry.TargetType, entry.TargetID, entry.IP, entry.UserAgent)
	return err
}

func (s *Store) ListAudit(ctx context.Context, filter store.AuditFilter) ([]models.AuditEntry, error) {
	query := `
		SELECT audit_id, actor_user_id, action, target_type, target_id, ip, user_agent, created_at
		FROM audit_logs
		WHERE 1=1
	`
	args := []any{}
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		query += ` AND actor_user_id = $` + strconv.Itoa(len(args))
	}
	args = append(args, store.AuditListLimit)
	query += ` ORDER BY created_at DESC, audit_id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var entry models.AuditEntry
		if err := rows.Scan(&entry.ID, &entry.ActorUserID, &entry.Action, &entry.TargetType, &entry.TargetID, &entry.IP, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) DashboardSummary(ctx context.Context) (models.DashboardSummary, error) {
	summary := models.DashboardSummary{
		CarsByStatus: map[string]int{
			models.CarStatusAvailable: 0,
			models.CarStatusReserved:  0,
			models.CarStatusSold:      0,
		},
	}
	row := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(1) FROM brands),
			(SELECT COUNT(1) FROM members),
			(SELECT COUNT(1) FROM service_bookings WHERE status = 'pending'),
			(SELECT COUNT(1) FROM sell_listings WHERE status = 'pending'),
			(SELECT COUNT(1) FROM tickets WHERE status IN ('open', 'in_progress'))
	`)
	if err := row.Scan(&summary.Brands, &summary.Members, &summary.PendingBookings, &summary.PendingListings, &summary.OpenTickets); err != nil {
		return models.DashboardSummary{}, err
	}

	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(1) FROM cars GROUP BY status`)
	if err != nil {
		return models.DashboardSummary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return models.DashboardSummary{}, err
		}
		summary.CarsByStatus[status] = count
	}
	if err := rows.Err(); err != nil {
		return models.DashboardSummary{}, err
	}
	return summary, nil
}
