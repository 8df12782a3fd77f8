package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"volterra/admin-service/internal/auth"
	"volterra/admin-service/internal/store"
)

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.DashboardSummary(r.Context())
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}
	h.writeAudit(w, r, filter)
}

// handleOwnAudit serves users without audit.read: only their own entries.
func (h *Handler) handleOwnAudit(w http.ResponseWriter, r *http.Request) {
	filter, ok := auditFilter(w, r)
	if !ok {
		return
	}
	user := auth.UserFromContext(r.Context())
	if filter.UserID != 0 && filter.UserID != user.ID {
		writeError(w, http.StatusForbidden, "access_denied", "insufficient role")
		return
	}
	filter.UserID = user.ID
	h.writeAudit(w, r, filter)
}

func auditFilter(w http.ResponseWriter, r *http.Request) (store.AuditFilter, bool) {
	filter := store.AuditFilter{Action: strings.TrimSpace(r.URL.Query().Get("action"))}
	if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || userID <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "user_id must be a positive integer")
			return store.AuditFilter{}, false
		}
		filter.UserID = userID
	}
	return filter, true
}

func (h *Handler) writeAudit(w http.ResponseWriter, r *http.Request, filter store.AuditFilter) {
	entries, err := h.store.ListAudit(r.Context(), filter)
	if err != nil {
		h.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
