package httpapi

import (
	"net/http"
	"time"

	"volterra/admin-service/internal/models"

	"github.com/go-chi/chi/v5"
)

type bookingRequest struct {
	MemberID    int64     `json:"member_id" validate:"required,gt=0"`
	CarID       *int64    `json:"car_id" validate:"omitempty,gt=0"`
	ServiceType string    `json:"service_type" validate:"required,max=80"`
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	Notes       string    `json:"notes"`
}

type bookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

func (h *Handler) bookingRoutes(r chi.Router) {
	r.Use(requirePermission(permissionBookingsManage))
	r.Get("/", h.listBookings)
	r.Get("/{id}", h.getBooking)
	r.Post("/", h.createBooking)
	r.Patch("/{id}/status", h.updateBookingStatus)
}

func (h *Handler) listBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.store.ListBookings(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *Handler) getBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := parseID(w, r)
	if !ok {
		return
	}
	booking, found, err := h.store.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	created, err := h.store.CreateBooking(r.Context(), models.ServiceBooking{
		MemberID:    req.MemberID,
		CarID:       req.CarID,
		ServiceType: req.ServiceType,
		ScheduledAt: req.ScheduledAt.UTC(),
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "booking.create", "booking", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateBookingStatus(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req bookingStatusRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	updated, err := h.store.UpdateBookingStatus(r.Context(), bookingID, req.Status)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "booking.status."+updated.Status, "booking", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}
