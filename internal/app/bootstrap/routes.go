// internal/app/bootstrap/routes.go
package bootstrap

import (
	"crypto/sha256"
	"net/http"

	alertsfeature "github.com/dalemusser/cafehub/internal/app/features/alerts"
	auditlogfeature "github.com/dalemusser/cafehub/internal/app/features/auditlog"
	authgooglefeature "github.com/dalemusser/cafehub/internal/app/features/authgoogle"
	"github.com/dalemusser/cafehub/internal/app/features/crud"
	dashboardfeature "github.com/dalemusser/cafehub/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/cafehub/internal/app/features/errors"
	healthfeature "github.com/dalemusser/cafehub/internal/app/features/health"
	loginfeature "github.com/dalemusser/cafehub/internal/app/features/login"
	logoutfeature "github.com/dalemusser/cafehub/internal/app/features/logout"
	storefrontfeature "github.com/dalemusser/cafehub/internal/app/features/storefront"
	"github.com/dalemusser/cafehub/internal/app/resources"
	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/cafehub/internal/app/store/oauthstate"
	"github.com/dalemusser/cafehub/internal/app/system/alerts"
	"github.com/dalemusser/cafehub/internal/app/system/apiclient"
	"github.com/dalemusser/cafehub/internal/app/system/auditlog"
	"github.com/dalemusser/cafehub/internal/app/system/auth"
	"github.com/dalemusser/cafehub/internal/app/system/authz"
	"github.com/dalemusser/cafehub/internal/app/system/metrics"
	"github.com/dalemusser/cafehub/internal/app/system/ratelimit"
	"github.com/dalemusser/cafehub/internal/app/system/uploader"
	"github.com/dalemusser/cafehub/internal/app/system/viewdata"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for CafeHub.
//
// The public storefront is mounted at "/", sign-in at /login and
// /auth/google, and the back office (dashboard plus one screen per resource
// descriptor) under /admin for the admin and editor roles.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionTTL, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	accounts, err := loginfeature.ParseAccounts(appCfg.AdminUsers)
	if err != nil {
		logger.Error("admin_users rejected", zap.Error(err))
		return nil, err
	}
	if len(accounts) == 0 {
		logger.Warn("no admin_users configured; password sign-in is disabled")
	}

	registry, err := resources.LoadDescriptors()
	if err != nil {
		logger.Error("resource descriptors failed to load", zap.Error(err))
		return nil, err
	}

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	clock := clockwork.NewRealClock()
	m := metrics.New("cafehub")
	errLog := errorsfeature.NewErrorLogger(logger)

	// Backend access
	api := apiclient.New(appCfg.APIBaseURL, logger, apiclient.WithObserver(m))
	admin := apiclient.NewAdmin(api)
	files := uploader.New(api.HTTPClient(), api.BaseURL(), logger,
		uploader.WithBucket(appCfg.FilesBucket),
		uploader.WithObserver(m),
		uploader.WithClock(clock))

	// Audit trail, persisted only when a database is configured.
	var (
		auditSink   auditlog.Sink
		auditStore  *audit.Store
		auditReader dashboardfeature.AuditReader
		states      authgooglefeature.StateStore = oauthstate.NewMemory(clock)
		mongoPinger healthfeature.Pinger
	)
	if deps.MongoDatabase != nil {
		auditStore = audit.New(deps.MongoDatabase)
		auditSink, auditReader = auditStore, auditStore
		states = oauthstate.New(deps.MongoDatabase)
		mongoPinger = deps.MongoClient
	}
	auditLog := auditlog.New(auditSink, logger, auditlog.Config{Auth: appCfg.AuditLogAuth, Admin: appCfg.AuditLogAdmin})

	hub := alerts.NewHub(clock, appCfg.AlertDuration, appCfg.UIStateTTL)
	crudHandler, err := crud.NewHandler(registry, crud.Deps{
		Admin:       admin,
		Uploader:    files,
		Uploads:     uploader.NewRegistry(clock, 0),
		Alerts:      hub,
		Audit:       auditLog,
		Metrics:     m,
		Clock:       clock,
		StateTTL:    appCfg.UIStateTTL,
		Log:         logger,
		UploadMaxMB: appCfg.UploadMaxMB,
	})
	if err != nil {
		logger.Error("back-office screens failed to build", zap.Error(err))
		return nil, err
	}
	nav := crudHandler.Nav()
	if auditStore != nil {
		nav = append(nav, viewdata.NavItem{Label: "Auditoría", Href: "/admin/auditoria", Roles: []string{authz.RoleAdmin}})
	}
	viewdata.SetAdminNav(nav)

	r := chi.NewRouter()

	// CSRF protection for every form post. Development runs over plain HTTP,
	// where gorilla/csrf must be told not to insist on a TLS referer.
	if !secure {
		r.Use(plaintextCSRF)
	}
	r.Use(csrf.Protect(csrfKey(appCfg),
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.RequestHeader("X-CSRF-Token"),
	))

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check and metrics
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(api, mongoPinger, logger)))
	r.Handle("/metrics", m.Handler())

	// Static assets with pre-compressed file support (gzip/brotli)
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Public storefront
	storeHandler := storefrontfeature.NewHandler(apiclient.NewCatalog(api), files, errLog, clock, logger)
	r.Mount("/", storefrontfeature.Routes(storeHandler))

	// Authentication
	googleHandler := authgooglefeature.NewHandler(sessionMgr, auditLog, m, states,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL,
		appCfg.GoogleAllowedEmails, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	loginHandler := loginfeature.NewHandler(accounts, sessionMgr, ratelimit.NewLoginLimiter(), auditLog, m, errLog, googleHandler.IsConfigured(), logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLog, logger, hub, crudHandler)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// Error pages
	errorsHandler := errorsfeature.NewHandler()
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.NotFound(errorsHandler.NotFound)

	// Back office
	r.With(sessionMgr.RequireSignedIn).Mount("/alerts", alertsfeature.Routes(alertsfeature.NewHandler(hub, logger)))

	adminRouter := dashboardfeature.Routes(dashboardfeature.NewHandler(admin, auditReader, logger), sessionMgr)
	adminRouter.Group(func(ar chi.Router) {
		ar.Use(sessionMgr.RequireRole(authz.RoleAdmin, authz.RoleEditor))
		crudHandler.MountRoutes(ar, sessionMgr)
	})
	if auditStore != nil {
		adminRouter.Mount("/auditoria", auditlogfeature.Routes(auditlogfeature.NewHandler(auditStore, errLog, logger), sessionMgr))
	}
	r.Mount("/admin", adminRouter)

	logger.Info("routes built",
		zap.Int("screens", len(crudHandler.Screens())),
		zap.Int("accounts", len(accounts)),
		zap.Bool("google", googleHandler.IsConfigured()),
		zap.Bool("audit_db", deps.MongoDatabase != nil))
	return r, nil
}

// csrfKey returns the 32-byte CSRF key, derived from the session key when
// csrf_key is unset or not exactly 32 bytes.
func csrfKey(cfg AppConfig) []byte {
	if len(cfg.CSRFKey) == 32 {
		return []byte(cfg.CSRFKey)
	}
	seed := cfg.CSRFKey
	if seed == "" {
		seed = "csrf:" + cfg.SessionKey
	}
	sum := sha256.Sum256([]byte(seed))
	return sum[:]
}

func plaintextCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}
