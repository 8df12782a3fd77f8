package httpapi

import (
	"net/http"
	"strings"

	"volterra/admin-service/internal/models"

	"github.com/go-chi/chi/v5"
)

type memberRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=40"`
}

func (req memberRequest) member() models.Member {
	return models.Member{Name: req.Name, Email: strings.TrimSpace(req.Email), Phone: req.Phone}
}

func (h *Handler) memberRoutes(r chi.Router) {
	r.With(requirePermission(permissionMembersRead)).Get("/", h.listMembers)
	r.With(requirePermission(permissionMembersRead)).Get("/{id}", h.getMember)
	r.With(requirePermission(permissionMembersWrite)).Post("/", h.createMember)
	r.With(requirePermission(permissionMembersWrite)).Put("/{id}", h.updateMember)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.ListMembers(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseID(w, r)
	if !ok {
		return
	}
	member, found, err := h.store.GetMember(r.Context(), memberID)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	created, err := h.store.CreateMember(r.Context(), req.member())
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "member.create", "member", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := parseID(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	member := req.member()
	member.ID = memberID
	updated, err := h.store.UpdateMember(r.Context(), member)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	h.recordAudit(r, "member.update", "member", updated.ID)
	writeJSON(w, http.StatusOK, updated)
}
