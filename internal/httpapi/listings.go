package httpapi

import (
	"net/http"

	"volterra/admin-service/internal/models"

	"github.com/go-chi/chi/v5"
)

type listingRequest struct {
	CarID       int64  `json:"car_id" validate:"required,gt=0"`
	MemberID    int64  `json:"member_id" validate:"required,gt=0"`
	AskingPrice int64  `json:"asking_price" validate:"gt=0"`
	Notes       string `json:"notes"`
}

type listingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected sold"`
}

func (h *Handler) listingRoutes(r chi.Router) {
	r.Use(requirePermission(permissionListingsManage))
	r.Get("/", h.listListings)
	r.Get("/{id}", h.getListing)
	r.Post("/", h.createListing)
	r.Patch("/{id}/status", h.updateListingStatus)
}

func (h *Handler) listListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.store.ListListings(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listings)
}

func (h *Handler) getListing(w http.ResponseWriter, r *http.Request) {
	listingID, ok := parseID(w, r)
	if !ok {
		return
	}
	listing, found, err := h.store.GetListing(r.Context(), listingID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

func (h *Handler) createListing(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	created, err := h.store.CreateListing(r.Context(), models.SellListing{
		CarID:       req.CarID,
		MemberID:    req.MemberID,
		AskingPrice: req.AskingPrice,
		Notes:       req.Notes,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "listing.create", "sell_listing", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateListingStatus(w http.ResponseWriter, r *http.Request) {
	listingID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req listingStatusRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	updated, err := h.store.UpdateListingStatus(r.Context(), listingID, req.Status)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "listing.status."+updated.Status, "sell_listing", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}
