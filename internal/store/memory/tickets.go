package memory

import (
	"context"
	"sort"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"
)

func (s *Store) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickets := make([]models.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		tickets = append(tickets, ticket)
	}
	sort.Slice(tickets, func(i, j int) bool {
		if !tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
		}
		return tickets[i].ID > tickets[j].ID
	})
	return tickets, nil
}

func (s *Store) GetTicket(ctx context.Context, ticketID int64) (models.Ticket, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[ticketID]
	return ticket, ok, nil
}

func (s *Store) CreateTicket(ctx context.Context, ticket models.Ticket) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.MemberID != nil {
		if _, ok := s.members[*ticket.MemberID]; !ok {
			return models.Ticket{}, store.ErrInvalidReference
		}
	}
	ticket.ID = s.nextID("tickets")
	ticket.Status = models.TicketOpen
	ticket.AssignedTo = nil
	ticket.CreatedAt = s.now()
	ticket.UpdatedAt = ticket.CreatedAt
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (s *Store) ApplyTicketAction(ctx context.Context, input store.TicketActionInput) (models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[input.TicketID]
	if !ok {
		return models.Ticket{}, store.ErrNotFound
	}
	if !store.ValidTicketTransition(input.Action, ticket.Status) {
		return models.Ticket{}, store.ErrInvalidState
	}
	if input.Action == "assign" {
		if input.AssignedTo == nil {
			return models.Ticket{}, store.ErrInvalidReference
		}
		if _, ok := s.users[*input.AssignedTo]; !ok {
			return models.Ticket{}, store.ErrInvalidReference
		}
		assignee := *input.AssignedTo
		ticket.AssignedTo = &assignee
	}
	ticket.Status = store.TicketActionTarget(input.Action, ticket.Status)
	ticket.UpdatedAt = s.now()
	s.tickets[ticket.ID] = ticket
	return ticket, nil
}

func (s *Store) InsertAudit(ctx context.Context, entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextID("audit_logs")
	entry.CreatedAt = s.now()
	s.audit[entry.ID] = entry
	return nil
}

func (s *Store) ListAudit(ctx context.Context, filter store.AuditFilter) ([]models.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []models.AuditEntry{}
	for _, entry := range s.audit {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.UserID != 0 && entry.ActorUserID != filter.UserID {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
	if len(entries) > store.AuditListLimit {
		entries = entries[:store.AuditListLimit]
	}
	return entries, nil
}

func (s *Store) DashboardSummary(ctx context.Context) (models.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary := models.DashboardSummary{
		Brands:  len(s.brands),
		Members: len(s.members),
		CarsByStatus: map[string]int{
			models.CarStatusAvailable: 0,
			models.CarStatusReserved:  0,
			models.CarStatusSold:      0,
		},
	}
	for _, car := range s.cars {
		summary.CarsByStatus[car.Status]++
	}
	for _, booking := range s.bookings {
		if booking.Status == models.BookingPending {
			summary.PendingBookings++
		}
	}
	for _, listing := range s.listings {
		if listing.Status == models.ListingPending {
			summary.PendingListings++
		}
	}
	for _, ticket := range s.tickets {
		if ticket.Status == models.TicketOpen || ticket.Status == models.TicketInProgress {
			summary.OpenTickets++
		}
	}
	return summary, nil
}
