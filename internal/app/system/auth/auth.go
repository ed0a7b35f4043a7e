// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session keys                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	DefaultSessionName = "cafehub-session"

	isAuthKey    = "is_authenticated"
	userIDKey    = "user_id"
	loginIDKey   = "login_id"
	userNameKey  = "user_name"
	userRoleKey  = "user_role"
	methodKey    = "auth_method"
	sessionIDKey = "session_id"
	anonIDKey    = "anon_id"
)

// ErrNoSessionKey is returned when the session secret is not configured.
var ErrNoSessionKey = errors.New("session key is empty; provide ≥32 random chars")

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID      string
	Name    string
	LoginID string
	Role    string
	Method  string

	// SessionID identifies the browser session; per-session UI state and
	// alert queues are keyed by it.
	SessionID string
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	viewerKey      ctxKey = "viewerID"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// ViewerID returns the id alerts and UI state are keyed by: the signed-in
// session id, or an anonymous id for visitors.
func ViewerID(r *http.Request) string {
	if u, ok := CurrentUser(r); ok && u.SessionID != "" {
		return u.SessionID
	}
	if id, ok := r.Context().Value(viewerKey).(string); ok {
		return id
	}
	return ""
}

// WithTestUser injects u the way LoadSessionUser does.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| SessionManager                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionManager wraps the cookie store and the auth middleware.
type SessionManager struct {
	store  *sessions.CookieStore
	name   string
	logger *zap.Logger
}

// NewSessionManager builds the cookie store. secure selects Secure cookies
// with SameSite=None; otherwise SameSite=Lax for http://localhost.
func NewSessionManager(sessionKey, name, domain string, ttl time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, ErrNoSessionKey
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = DefaultSessionName
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("ttl", ttl))

	return &SessionManager{store: store, name: name, logger: logger}, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name is the cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// GetSession returns the named session. A cookie that no longer decodes
// yields a fresh session together with the error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// IsStaleCookie reports whether err came from a cookie that failed to
// decode, typically after the session key was rotated or the cookie expired.
func IsStaleCookie(err error) bool {
	var scErr securecookie.Error
	return errors.As(err, &scErr) && scErr.IsDecode()
}

// load returns the session, logging cookies that could not be read. The
// session is always usable; a bad cookie is replaced on the next save.
func (sm *SessionManager) load(r *http.Request) *sessions.Session {
	sess, err := sm.GetSession(r)
	if err != nil {
		if IsStaleCookie(err) {
			sm.logger.Debug("session cookie invalid, using fresh session", zap.Error(err))
		} else {
			sm.logger.Warn("session store error, using fresh session", zap.Error(err))
		}
	}
	return sess
}

// SignIn stores u in a fresh session and returns the session id assigned.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) (string, error) {
	sess := sm.load(r)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sid := uuid.NewString()
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[loginIDKey] = u.LoginID
	sess.Values[userNameKey] = u.Name
	sess.Values[userRoleKey] = u.Role
	sess.Values[methodKey] = u.Method
	sess.Values[sessionIDKey] = sid
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return sid, nil
}

// SignOut expires the cookie. It returns the session id that ended, if any.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) (string, error) {
	sess := sm.load(r)
	sid := getString(sess, sessionIDKey)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return sid, fmt.Errorf("clear session: %w", err)
	}
	return sid, nil
}

// LoadSessionUser injects the user into context if they are logged in.
// Visitors get an anonymous viewer id so storefront alerts still have a
// queue.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sm.load(r)

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			u := &SessionUser{
				ID:        getString(sess, userIDKey),
				LoginID:   getString(sess, loginIDKey),
				Name:      getString(sess, userNameKey),
				Role:      getString(sess, userRoleKey),
				Method:    getString(sess, methodKey),
				SessionID: getString(sess, sessionIDKey),
			}
			r = withUser(r, u)
			next.ServeHTTP(w, r)
			return
		}

		anon := getString(sess, anonIDKey)
		if anon == "" {
			anon = uuid.NewString()
			sess.Values[anonIDKey] = anon
			if err := sess.Save(r, w); err != nil {
				sm.logger.Debug("anonymous session not saved", zap.Error(err))
			}
		}
		r = r.WithContext(context.WithValue(r.Context(), viewerKey, "anon-"+anon))
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized with a plain error body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		redirectToLogin(w, r)
	})
}

// RequireRole ensures the signed-in user has one of the allowed roles.
// Roles compare case-insensitively.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				redirectToLogin(w, r)
				return
			}

			if _, has := set[strings.ToLower(u.Role)]; !has {
				if r.Header.Get("HX-Request") == "true" {
					w.Header().Set("HX-Redirect", "/forbidden")
					w.WriteHeader(http.StatusForbidden)
					return
				}
				if wantsHTML(r) {
					http.Redirect(w, r, "/forbidden", http.StatusSeeOther)
					return
				}
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(currentURI(r))

	// HTMX: full-page client redirect (no partial swap)
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login?return="+ret)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, "/login?return="+ret, http.StatusSeeOther)
		return
	}
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func currentURI(r *http.Request) string {
	u := *r.URL
	return u.RequestURI()
}
