// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/system/authz"
	"github.com/dalemusser/cafehub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// NavItem is one back-office navigation entry.
type NavItem struct {
	Label  string
	Href   string
	Roles  []string // empty: any staff role
	Active bool
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	data := struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}{
//	    BaseVM: viewdata.NewBaseVM(r, "Productos", "/admin"),
//	}
type BaseVM struct {
	SiteName string

	// User context (from auth middleware)
	IsLoggedIn bool
	IsStaff    bool
	IsAdmin    bool
	Role       string
	UserName   string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string

	// CSRF protection
	CSRFToken string

	// ModalOpen locks page scrolling while any modal is showing.
	ModalOpen bool

	Nav []NavItem
}

var siteName = models.DefaultSiteName

// adminNav is filled by the crud feature at startup.
var adminNav []NavItem

// SetSiteName overrides the default site name. Call once at startup.
func SetSiteName(name string) {
	if name != "" {
		siteName = name
	}
}

// SetAdminNav sets the back-office menu. Call once at startup.
func SetAdminNav(items []NavItem) {
	adminNav = append([]NavItem(nil), items...)
}

// NewBaseVM creates a fully populated BaseVM for a page.
//
// Parameters:
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	role, name, signedIn := authz.UserCtx(r)

	vm := BaseVM{
		SiteName:    siteName,
		IsLoggedIn:  signedIn,
		IsStaff:     authz.IsStaff(r),
		IsAdmin:     authz.IsAdmin(r),
		Role:        role,
		UserName:    name,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}

	if vm.IsStaff {
		for _, it := range adminNav {
			if !authz.CanManage(r, it.Roles) {
				continue
			}
			it.Active = it.Href == vm.CurrentPath
			vm.Nav = append(vm.Nav, it)
		}
	}
	return vm
}
