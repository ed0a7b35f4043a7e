package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Backend is an in-process stand-in for the café REST backend. Handlers are
// keyed by method and path; anything unregistered answers 404 text/plain,
// which the API client treats as a transport failure.
type Backend struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    []Call
}

// Call is one request the backend received.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// NewBackend starts a Backend that is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{handlers: make(map[string]http.HandlerFunc)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Server.Close)
	return b
}

func (b *Backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))
	b.mu.Lock()
	b.calls = append(b.calls, Call{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(body)})
	h := b.handlers[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	h(w, r)
}

// Handle registers h for method and path.
func (b *Backend) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method+" "+path] = h
}

// Succeed answers method+path with a SUCCESS envelope carrying datos.
func (b *Backend) Succeed(method, path string, datos any) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteEnvelope(w, "SUCCESS", datos, "")
	})
}

// Fail answers method+path with an application error envelope.
func (b *Backend) Fail(method, path, mensaje string) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteEnvelope(w, "ERROR", nil, mensaje)
	})
}

// Calls returns a copy of every request received so far.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallCount counts requests matching method and path.
func (b *Backend) CallCount(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// WriteEnvelope writes the backend's JSON envelope.
func WriteEnvelope(w http.ResponseWriter, tipo string, datos any, mensaje string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"tipo":    tipo,
		"datos":   datos,
		"mensaje": mensaje,
	})
}
