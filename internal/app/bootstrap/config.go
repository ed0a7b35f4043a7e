// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// devSessionKey is the placeholder default; ValidateConfig refuses it in prod.
const devSessionKey = "dev-only-change-me-please-0123456789ABCDEF"

// appConfigKeys defines the configuration keys for CafeHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: api_base_url, session_name, etc.
//   - Environment variables: CAFEHUB_API_BASE_URL, CAFEHUB_SESSION_NAME, etc.
//   - Command-line flags: --api_base_url, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "api_base_url", Default: "http://localhost:8080", Desc: "Café backend REST root"},
	{Name: "files_bucket", Default: "", Desc: "Storage bucket for uploads (blank: backend default)"},

	{Name: "session_key", Default: devSessionKey, Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "cafehub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_ttl", Default: "12h", Desc: "Session lifetime (e.g., 12h, 30m)"},
	{Name: "csrf_key", Default: "", Desc: "CSRF signing key (blank derives one from session_key)"},

	{Name: "admin_users", Default: "", Desc: "Comma-separated back-office accounts: login:bcrypt-hash or login:role:bcrypt-hash"},

	// Google OAuth configuration
	{Name: "google_client_id", Default: "", Desc: "Google OAuth2 client ID"},
	{Name: "google_client_secret", Default: "", Desc: "Google OAuth2 client secret"},
	{Name: "google_allowed_emails", Default: "", Desc: "Comma-separated Google addresses allowed into the back office"},
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Public URL of this site (OAuth callback)"},

	// Audit database
	{Name: "mongo_uri", Default: "", Desc: "MongoDB connection URI for the audit log (blank disables it)"},
	{Name: "mongo_database", Default: "cafehub", Desc: "MongoDB database name"},
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Back-office UI
	{Name: "alert_duration", Default: "5s", Desc: "How long an alert stays visible"},
	{Name: "ui_state_ttl", Default: "2h", Desc: "Idle time before per-session screen state is dropped"},
	{Name: "upload_max_mb", Default: 5, Desc: "Upload size limit for fields that declare none"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// Precedence is flags > env (CAFEHUB_*) > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAFEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		APIBaseURL:  appValues.String("api_base_url"),
		FilesBucket: appValues.String("files_bucket"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionTTL:    appValues.Duration("session_ttl", 12*time.Hour),
		CSRFKey:       appValues.String("csrf_key"),

		AdminUsers: splitList(appValues.String("admin_users")),

		GoogleClientID:      appValues.String("google_client_id"),
		GoogleClientSecret:  appValues.String("google_client_secret"),
		GoogleAllowedEmails: splitList(appValues.String("google_allowed_emails")),
		BaseURL:             appValues.String("base_url"),

		MongoURI:      appValues.String("mongo_uri"),
		MongoDatabase: appValues.String("mongo_database"),
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		AlertDuration: appValues.Duration("alert_duration", alerts.DefaultDuration),
		UIStateTTL:    appValues.Duration("ui_state_ttl", 2*time.Hour),
		UploadMaxMB:   appValues.Int("upload_max_mb"),
	}

	return coreCfg, appCfg, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var auditModes = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// ValidateConfig performs app-specific config validation.
//
// The backend URL must be absolute; the Mongo URI is only checked when
// one is set. Production refuses the development session key.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	u, err := url.Parse(appCfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_base_url %q: must be an absolute http(s) URL", appCfg.APIBaseURL)
	}

	if appCfg.MongoURI != "" {
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	}

	for key, v := range map[string]string{"audit_log_auth": appCfg.AuditLogAuth, "audit_log_admin": appCfg.AuditLogAdmin} {
		if !auditModes[v] {
			return fmt.Errorf("%s must be one of all, db, log, off (got %q)", key, v)
		}
	}

	if appCfg.GoogleClientID != "" && len(appCfg.GoogleAllowedEmails) == 0 {
		logger.Warn("Google sign-in is configured but google_allowed_emails is empty; nobody can use it")
	}

	if coreCfg != nil && coreCfg.Env == "prod" && appCfg.SessionKey == devSessionKey {
		return errors.New("session_key must be set in production")
	}
	return nil
}
