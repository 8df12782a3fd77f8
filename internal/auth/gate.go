package auth

import (
	"encoding/json"
	"net/http"

	"volterra/admin-service/internal/models"
)

// Guard renders Content when the request user is allowed and Fallback
// otherwise. Without a Fallback a denied request gets 204 and no body.
type Guard struct {
	Allowed  RoleSet
	Content  http.Handler
	Fallback http.Handler
}

func (g Guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if g.Content != nil && g.Allowed.Allows(user) {
		g.Content.ServeHTTP(w, r)
		return
	}
	if g.Fallback != nil {
		g.Fallback.ServeHTTP(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RequireRoles answers 401 for anonymous requests and 403 when the user's
// role is outside roles.
func RequireRoles(roles ...models.Role) func(http.Handler) http.Handler {
	set := NewRoleSet(roles...)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}
			if !set.Allows(user) {
				writeError(w, http.StatusForbidden, "access_denied", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: responseError{Code: code, Message: message}})
}
