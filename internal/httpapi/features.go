package httpapi

import (
	"net/http"

	"volterra/admin-service/internal/models"

	"github.com/go-chi/chi/v5"
)

type featureRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

func (h *Handler) featureRoutes(r chi.Router) {
	r.Get("/", h.listFeatures)
	r.Group(func(r chi.Router) {
		r.Use(requirePermission(permissionCatalogWrite))
		r.Post("/", h.createFeature)
		r.Put("/{id}", h.updateFeature)
		r.Delete("/{id}", h.deleteFeature)
	})
}

func (h *Handler) listFeatures(w http.ResponseWriter, r *http.Request) {
	features, err := h.store.ListFeatures(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, features)
}

func (h *Handler) createFeature(w http.ResponseWriter, r *http.Request) {
	var req featureRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	created, err := h.store.CreateFeature(r.Context(), models.Feature{Name: req.Name})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "feature.create", "feature", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateFeature(w http.ResponseWriter, r *http.Request) {
	featureID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req featureRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	updated, err := h.store.UpdateFeature(r.Context(), models.Feature{ID: featureID, Name: req.Name})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "feature.update", "feature", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteFeature(w http.ResponseWriter, r *http.Request) {
	featureID, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteFeature(r.Context(), featureID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "feature.delete", "feature", featureID)
	w.WriteHeader(http.StatusNoContent)
}
