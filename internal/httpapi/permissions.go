package httpapi

import (
	"net/http"

	"volterra/admin-service/internal/auth"
	"volterra/admin-service/internal/models"
)

type permission string

const (
	permissionCatalogWrite   permission = "catalog.write"
	permissionMembersRead    permission = "members.read"
	permissionMembersWrite   permission = "members.write"
	permissionBookingsManage permission = "bookings.manage"
	permissionListingsManage permission = "listings.manage"
	permissionTicketsManage  permission = "tickets.manage"
	permissionDashboardRead  permission = "dashboard.read"
	permissionAuditRead      permission = "audit.read"
)

var allRoles = []models.Role{models.RoleAdmin, models.RoleManager, models.RoleStaff}

func hasPermission(role models.Role, perm permission) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleManager:
		return perm != permissionAuditRead
	case models.RoleStaff:
		switch perm {
		case permissionMembersRead, permissionBookingsManage, permissionTicketsManage, permissionDashboardRead:
			return true
		default:
			return false
		}
	default:
		return false
	}
}

// rolesWith lists the roles granted perm.
func rolesWith(perm permission) []models.Role {
	var roles []models.Role
	for _, role := range allRoles {
		if hasPermission(role, perm) {
			roles = append(roles, role)
		}
	}
	return roles
}

func requirePermission(perm permission) func(http.Handler) http.Handler {
	return auth.RequireRoles(rolesWith(perm)...)
}
