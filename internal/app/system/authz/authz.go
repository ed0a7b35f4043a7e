// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/cafehub/internal/app/system/auth"
)

// Back-office roles. Admins manage everything; editors manage the content
// and catalog resources their descriptors open to them.
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
)

// UserCtx returns the user's role (lowercased), name, and a found flag.
// Visitors get "visitor", "", false.
func UserCtx(r *http.Request) (role string, name string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return "visitor", "", false
	}
	return strings.ToLower(user.Role), user.Name, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	role, _, ok := UserCtx(r)
	return ok && role == RoleAdmin
}

// IsStaff reports whether the user may enter the back-office at all.
func IsStaff(r *http.Request) bool {
	return HasAnyRole(r, RoleAdmin, RoleEditor)
}

// HasAnyRole reports whether the current request's user has any of the given roles.
// Returns false if no user is present (i.e., not signed in).
func HasAnyRole(r *http.Request, roles ...string) bool {
	role, _, ok := UserCtx(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if role == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}

// CanManage reports whether the user may manage a resource restricted to
// roles. Admins always can; an empty list means any staff role.
func CanManage(r *http.Request, roles []string) bool {
	if IsAdmin(r) {
		return true
	}
	if len(roles) == 0 {
		return IsStaff(r)
	}
	return HasAnyRole(r, roles...)
}

// Role returns the current user's role (lowercased) and whether a user is present.
func Role(r *http.Request) (string, bool) {
	role, _, ok := UserCtx(r)
	return role, ok
}
