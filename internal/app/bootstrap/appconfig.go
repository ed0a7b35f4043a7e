// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers
// ports, TLS, logging and CORS; everything CafeHub itself needs lives here.
type AppConfig struct {
	// Café backend
	APIBaseURL  string // REST root, e.g. http://localhost:8080
	FilesBucket string // storage bucket passed to /files/upload (blank: backend default)

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: cafehub-session)
	SessionDomain string // Cookie domain (blank means current host)
	SessionTTL    time.Duration
	CSRFKey       string // blank derives one from SessionKey

	// Back-office accounts, "login:hash" or "login:role:hash"
	AdminUsers []string

	// Google sign-in (optional)
	GoogleClientID      string
	GoogleClientSecret  string
	GoogleAllowedEmails []string

	// Public URL of this site, used for the OAuth callback
	BaseURL string

	// Audit database (optional)
	MongoURI      string
	MongoDatabase string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	// Back-office UI state
	AlertDuration time.Duration // how long an alert stays up
	UIStateTTL    time.Duration // idle time before per-session screen state is dropped
	UploadMaxMB   int           // limit for file fields that declare none
}
