// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/cafehub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
type Config struct {
	// Auth controls logging for sign-in and sign-out events.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Auth string
	// Admin controls logging for back-office record changes and uploads.
	// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
	Admin string
}

// Sink persists audit events. *audit.Store is the production sink.
type Sink interface {
	Log(ctx context.Context, event audit.Event) error
}

// Logger provides convenience methods for logging audit events.
// It logs to MongoDB (via a Sink) and to structured logs (via zap). Without
// a sink, "db" destinations are skipped.
type Logger struct {
	store  Sink
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger. store may be nil when no database is
// configured.
func New(store Sink, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}

	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	if event.Resource != "" {
		fields = append(fields, zap.String("resource", event.Resource))
	}
	if event.RecordKey != "" {
		fields = append(fields, zap.String("record_key", event.RecordKey))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// A nil logger is a no-op so handlers under test can run without one.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	default:
		setting = "all"
	}

	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func fromRequest(r *http.Request, event audit.Event) audit.Event {
	if r != nil {
		event.IP = ratelimit.ClientIP(r)
		event.UserAgent = r.UserAgent()
	}
	return event
}

/*─────────────────────────────────────────────────────────────────────────────*
| Authentication events                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, loginID, name, method string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		Actor:     loginID,
		ActorName: name,
		Success:   true,
		Details:   map[string]string{"method": method},
	}))
}

// LoginFailedUnknownUser logs an attempt with a login id that does not exist.
func (l *Logger) LoginFailedUnknownUser(ctx context.Context, r *http.Request, attempted string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedUnknownUser,
		Actor:         attempted,
		FailureReason: "unknown user",
	}))
}

// LoginFailedWrongPassword logs a bad password for an existing account.
func (l *Logger) LoginFailedWrongPassword(ctx context.Context, r *http.Request, loginID string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedWrongPassword,
		Actor:         loginID,
		FailureReason: "wrong password",
	}))
}

// LoginFailedRateLimit logs a throttled attempt.
func (l *Logger) LoginFailedRateLimit(ctx context.Context, r *http.Request, loginID string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedRateLimit,
		Actor:         loginID,
		FailureReason: "rate limited",
	}))
}

// LoginFailedNotAllowed logs an external identity that is not on the
// allow-list (or an account without back-office access).
func (l *Logger) LoginFailedNotAllowed(ctx context.Context, r *http.Request, loginID, method string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailedNotAllowed,
		Actor:         loginID,
		FailureReason: "not allowed",
		Details:       map[string]string{"method": method},
	}))
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, loginID string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		Actor:     loginID,
		Success:   true,
	}))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Back-office events                                                           |
*─────────────────────────────────────────────────────────────────────────────*/

// Actions accepted by RecordMutation.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

var mutationEvents = map[string]string{
	ActionCreate: audit.EventRecordCreated,
	ActionUpdate: audit.EventRecordUpdated,
	ActionDelete: audit.EventRecordDeleted,
}

// RecordMutation logs a create, update or delete against a back-office
// resource. A non-nil err records the failure with the backend's message.
func (l *Logger) RecordMutation(ctx context.Context, r *http.Request, actor, resource, action, key string, err error) {
	eventType, ok := mutationEvents[action]
	if !ok {
		return
	}
	event := audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		Actor:     actor,
		Resource:  resource,
		RecordKey: key,
		Success:   err == nil,
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	l.Log(ctx, fromRequest(r, event))
}

// FileUploaded logs a file sent to the backend storage endpoint.
func (l *Logger) FileUploaded(ctx context.Context, r *http.Request, actor, resource, folder, url string, err error) {
	event := audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventFileUploaded,
		Actor:     actor,
		Resource:  resource,
		Success:   err == nil,
		Details:   map[string]string{"folder": folder},
	}
	if url != "" {
		event.Details["url"] = url
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	l.Log(ctx, fromRequest(r, event))
}
