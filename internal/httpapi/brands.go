package httpapi

import (
	"net/http"

	"volterra/admin-service/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
)

type brandRequest struct {
	Name    string  `json:"name" validate:"required,max=100"`
	Slug    string  `json:"slug" validate:"omitempty,max=120"`
	LogoURL *string `json:"logo_url" validate:"omitempty,url"`
}

// brand reports false when neither slug nor name yields any slug characters.
func (req brandRequest) brand() (models.Brand, bool) {
	source := req.Slug
	if source == "" {
		source = req.Name
	}
	brandSlug := slug.Make(source)
	if brandSlug == "" {
		return models.Brand{}, false
	}
	return models.Brand{Name: req.Name, Slug: brandSlug, LogoURL: req.LogoURL}, true
}

func writeInvalidSlug(w http.ResponseWriter) {
	writeError(w, http.StatusBadRequest, "invalid_request", "invalid fields: slug")
}

func (h *Handler) brandRoutes(r chi.Router) {
	r.Get("/", h.listBrands)
	r.Get("/{id}", h.getBrand)
	r.Group(func(r chi.Router) {
		r.Use(requirePermission(permissionCatalogWrite))
		r.Post("/", h.createBrand)
		r.Put("/{id}", h.updateBrand)
		r.Delete("/{id}", h.deleteBrand)
	})
}

func (h *Handler) listBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.store.ListBrands(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brands)
}

func (h *Handler) getBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := parseID(w, r)
	if !ok {
		return
	}
	brand, found, err := h.store.GetBrand(r.Context(), brandID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, brand)
}

func (h *Handler) createBrand(w http.ResponseWriter, r *http.Request) {
	var req brandRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	brand, ok := req.brand()
	if !ok {
		writeInvalidSlug(w)
		return
	}
	created, err := h.store.CreateBrand(r.Context(), brand)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "brand.create", "brand", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req brandRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	brand, ok := req.brand()
	if !ok {
		writeInvalidSlug(w)
		return
	}
	brand.ID = brandID
	updated, err := h.store.UpdateBrand(r.Context(), brand)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "brand.update", "brand", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteBrand(w http.ResponseWriter, r *http.Request) {
	brandID, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteBrand(r.Context(), brandID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "brand.delete", "brand", brandID)
	w.WriteHeader(http.StatusNoContent)
}
