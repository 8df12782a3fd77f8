package httpapi

import (
	"net/http"

	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/go-chi/chi/v5"
)

type ticketRequest struct {
	MemberID *int64 `json:"member_id" validate:"omitempty,gt=0"`
	Subject  string `json:"subject" validate:"required,max=200"`
	Message  string `json:"message"`
	Priority string `json:"priority" validate:"omitempty,oneof=low normal high"`
}

type ticketAssignRequest struct {
	AssignedTo *int64 `json:"assigned_to" validate:"required,gt=0"`
}

func (h *Handler) ticketRoutes(r chi.Router) {
	r.Use(requirePermission(permissionTicketsManage))
	r.Get("/", h.listTickets)
	r.Get("/{id}", h.getTicket)
	r.Post("/", h.createTicket)
	r.Post("/{id}/{action}", h.ticketAction)
}

func (h *Handler) listTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.store.ListTickets(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *Handler) getTicket(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := parseID(w, r)
	if !ok {
		return
	}
	ticket, found, err := h.store.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) createTicket(w http.ResponseWriter, r *http.Request) {
	var req ticketRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}
	created, err := h.store.CreateTicket(r.Context(), models.Ticket{
		MemberID: req.MemberID,
		Subject:  req.Subject,
		Message:  req.Message,
		Priority: priority,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "ticket.create", "ticket", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ticketAction(w http.ResponseWriter, r *http.Request) {
	ticketID, ok := parseID(w, r)
	if !ok {
		return
	}
	action := chi.URLParam(r, "action")
	if !store.KnownTicketAction(action) {
		writeNotFound(w)
		return
	}
	input := store.TicketActionInput{TicketID: ticketID, Action: action}
	if action == "assign" {
		var req ticketAssignRequest
		if !h.decodeRequest(w, r, &req) {
			return
		}
		input.AssignedTo = req.AssignedTo
	}
	updated, err := h.store.ApplyTicketAction(r.Context(), input)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "ticket."+action, "ticket", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}
