// internal/app/system/apiclient/client.go
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// User-facing messages. Transport detail never reaches the UI.
const (
	MsgConnection = "Error al conectar con el servidor"
	MsgRequest    = "Error en la petición"
)

// maxBody bounds how much of a backend response is read.
const maxBody = 16 << 20

// Result is the outcome of one backend call.
//
// Success is true only when the backend answered with a SUCCESS envelope.
// Transport is true when the call never produced a usable envelope; in that
// case Message is always MsgConnection.
type Result struct {
	Success   bool
	Data      json.RawMessage
	Message   string
	Transport bool
}

type envelope struct {
	Tipo    string          `json:"tipo"`
	Datos   json.RawMessage `json:"datos"`
	Mensaje string          `json:"mensaje"`
}

// Observer receives one sample per backend call. metrics.Collector satisfies it.
type Observer interface {
	ObserveAPICall(method, outcome string, d time.Duration)
}

// Client talks to the café backend. It keeps no cache, never retries and
// never dedups in-flight requests. Safe for concurrent use.
type Client struct {
	baseURL string
	hc      *http.Client
	log     *zap.Logger
	obs     Observer
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default traced http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.obs = o }
}

// New constructs a Client for baseURL (e.g. http://localhost:8080).
func New(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		log:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// BaseURL returns the configured backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// HTTPClient exposes the underlying client for helpers that speak to
// non-envelope endpoints on the same backend (file upload/delete).
func (c *Client) HTTPClient() *http.Client { return c.hc }

// Call performs one request and maps every outcome into a Result.
// It never panics and never returns a Go error.
func (c *Client) Call(ctx context.Context, method, endpoint string, body any) (res Result) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			c.log.Error("api call panicked",
				zap.String("method", method),
				zap.String("endpoint", endpoint),
				zap.Any("panic", p))
			res = transportFailure()
		}
		c.observe(method, res, time.Since(start))
	}()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.log.Error("api call: encode body", zap.String("endpoint", endpoint), zap.Error(err))
			return transportFailure()
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rdr)
	if err != nil {
		c.log.Error("api call: build request", zap.String("endpoint", endpoint), zap.Error(err))
		return transportFailure()
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("api call: transport error",
			zap.String("method", method),
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return transportFailure()
	}
	defer resp.Body.Close()

	// Only a declared non-JSON type is rejected; a missing header still
	// gets its body decoded.
	if ct := resp.Header.Get("Content-Type"); ct != "" && !isJSON(ct) {
		c.log.Warn("api call: non-JSON response",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("content_type", resp.Header.Get("Content-Type")))
		return transportFailure()
	}

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&env); err != nil {
		c.log.Warn("api call: decode envelope", zap.String("endpoint", endpoint), zap.Error(err))
		return transportFailure()
	}

	if env.Tipo == "SUCCESS" {
		return Result{Success: true, Data: env.Datos}
	}
	msg := env.Mensaje
	if msg == "" {
		msg = MsgRequest
	}
	return Result{Message: msg}
}

func (c *Client) observe(method string, res Result, d time.Duration) {
	if c.obs == nil {
		return
	}
	outcome := "success"
	switch {
	case res.Transport:
		outcome = "transport"
	case !res.Success:
		outcome = "application"
	}
	c.obs.ObserveAPICall(method, outcome, d)
}

func transportFailure() Result {
	return Result{Message: MsgConnection, Transport: true}
}

func isJSON(ct string) bool {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

/*─────────────────────────────────────────────────────────────────────────────*
| Typed errors                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// Kind classifies a failed call.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindApplication
)

// Error is returned by the typed helpers. Message is safe to show to users.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// AsError converts a failed Result into an *Error.
func (r Result) AsError() *Error {
	if r.Success {
		return nil
	}
	if r.Transport {
		return &Error{Kind: KindTransport, Message: r.Message}
	}
	return &Error{Kind: KindApplication, Message: r.Message}
}

// Message extracts a user-facing message from any error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}
