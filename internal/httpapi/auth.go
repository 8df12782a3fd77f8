package httpapi

import (
	"errors"
	"net/http"
	"time"

	"volterra/admin-service/internal/auth"
	"volterra/admin-service/internal/models"
	"volterra/admin-service/internal/store"

	"github.com/go-chi/chi/v5"
)

// userView is the public projection of a signed-in user.
type userView struct {
	ID    int64       `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
	Image *string     `json:"image"`
}

func newUserView(user *models.User) *userView {
	if user == nil {
		return nil
	}
	return &userView{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role, Image: user.Image}
}

type sessionResponse struct {
	User *userView `json:"user"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	User      *userView `json:"user"`
	SessionID string    `json:"session_id"`
	ExpiresAt string    `json:"expires_at"`
}

func (h *Handler) authRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Get("/session", h.handleSession)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, newUserView(user))
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{User: newUserView(auth.UserFromContext(r.Context()))})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeRequest(w, r, &req) {
		return
	}
	user, session, err := h.resolver.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
			return
		}
		h.internalError(w, r, err)
		return
	}
	if err := h.resolver.IssueCookie(w, session); err != nil {
		h.internalError(w, r, err)
		return
	}
	r = r.WithContext(auth.WithUser(r.Context(), &user))
	h.recordAudit(r, "auth.login", "user", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		User:      newUserView(&user),
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.resolver.Logout(r.Context(), r); err != nil {
		h.internalError(w, r, err)
		return
	}
	if user := auth.UserFromContext(r.Context()); user != nil {
		h.recordAudit(r, "auth.logout", "user", user.ID)
	}
	h.resolver.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
