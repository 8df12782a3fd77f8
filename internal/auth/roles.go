package auth

import "volterra/admin-service/internal/models"

// RoleSet is an allow-list of roles. Unknown role strings are never members.
type RoleSet map[models.Role]struct{}

func NewRoleSet(roles ...models.Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, role := range roles {
		if role.Valid() {
			set[role] = struct{}{}
		}
	}
	return set
}

// Allows reports whether user holds one of the roles in s. An absent user is
// always denied.
func (s RoleSet) Allows(user *models.User) bool {
	if user == nil {
		return false
	}
	_, ok := s[user.Role]
	return ok
}

func Allowed(user *models.User, roles ...models.Role) bool {
	return NewRoleSet(roles...).Allows(user)
}
