package auditlog_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/dalemusser/cafehub/internal/app/store/audit"
	"github.com/dalemusser/cafehub/internal/app/system/auditlog"
	"github.com/dalemusser/cafehub/internal/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
}

func (s *memSink) Log(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memSink) all() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, "ana", "Ana", "password")
	logger.Logout(ctx, req, "ana")
	logger.RecordMutation(ctx, req, "ana", "productos", auditlog.ActionDelete, "10", nil)
}

func TestLogger_Destinations(t *testing.T) {
	tests := []struct {
		setting string
		wantDB  int
		wantLog int
	}{
		{"all", 1, 1},
		{"db", 1, 0},
		{"log", 0, 1},
		{"off", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			sink := &memSink{}
			logger := auditlog.New(sink, zap.New(core), auditlog.Config{Auth: tt.setting, Admin: tt.setting})
			ctx, cancel := testutil.TestContext()
			defer cancel()

			logger.LoginSuccess(ctx, httptest.NewRequest("POST", "/login", nil), "ana", "Ana", "password")

			if got := len(sink.all()); got != tt.wantDB {
				t.Errorf("stored events: got %d, want %d", got, tt.wantDB)
			}
			if got := logs.FilterMessage("audit event").Len(); got != tt.wantLog {
				t.Errorf("zap entries: got %d, want %d", got, tt.wantLog)
			}
		})
	}
}

func TestLogger_CategoriesAreIndependent(t *testing.T) {
	sink := &memSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Auth: "off", Admin: "db"})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/admin/productos/save", nil)

	logger.LoginSuccess(ctx, req, "ana", "Ana", "password")
	logger.RecordMutation(ctx, req, "ana", "productos", auditlog.ActionCreate, "10", nil)

	events := sink.all()
	if len(events) != 1 || events[0].EventType != audit.EventRecordCreated {
		t.Fatalf("events: %+v", events)
	}
}

func TestLogger_RecordMutationFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &memSink{}
	logger := auditlog.New(sink, zap.New(core), auditlog.Config{Auth: "all", Admin: "all"})
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("POST", "/admin/condiciones/delete/confirm", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	logger.RecordMutation(ctx, req, "ana", "condiciones", auditlog.ActionDelete, "1",
		errors.New("referenced by other records"))

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("stored events: got %d, want 1", len(events))
	}
	e := events[0]
	if e.Success || e.FailureReason != "referenced by other records" {
		t.Errorf("failure not recorded: %+v", e)
	}
	if e.Resource != "condiciones" || e.RecordKey != "1" || e.IP != "203.0.113.9" {
		t.Errorf("event fields: %+v", e)
	}

	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if len(warn) != 1 {
		t.Fatalf("warn entries: got %d, want 1", len(warn))
	}
	if got := warn[0].ContextMap()["resource"]; got != "condiciones" {
		t.Errorf("zap resource field: got %v", got)
	}
}

func TestLogger_UnknownActionIgnored(t *testing.T) {
	sink := &memSink{}
	logger := auditlog.New(sink, zap.NewNop(), auditlog.Config{Admin: "db"})
	logger.RecordMutation(context.Background(), nil, "ana", "productos", "archive", "10", nil)
	if n := len(sink.all()); n != 0 {
		t.Errorf("unknown action stored %d events", n)
	}
}

func TestLogger_NilStoreSkipsDB(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "all"})
	logger.Logout(context.Background(), httptest.NewRequest("POST", "/logout", nil), "ana")
	if logs.FilterMessage("audit event").Len() != 1 {
		t.Error("zap destination should still receive the event")
	}
}

func TestLogger_StoreErrorIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &memSink{err: errors.New("write failed")}
	logger := auditlog.New(sink, zap.New(core), auditlog.Config{Admin: "db"})
	logger.FileUploaded(context.Background(), nil, "ana", "senas", "senas", "", nil)
	if logs.FilterMessage("failed to store audit event").Len() != 1 {
		t.Error("store failure not reported")
	}
}
