package auth

import (
	"context"

	"volterra/admin-service/internal/models"
)

type userContextKey struct{}

// WithUser returns a copy of ctx carrying user. A nil user leaves ctx anonymous.
func WithUser(ctx context.Context, user *models.User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the identity resolved for the request, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey{}).(*models.User)
	return user
}
