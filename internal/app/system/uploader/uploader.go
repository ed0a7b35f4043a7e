// internal/app/system/uploader/uploader.go
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Backend file endpoints.
const (
	UploadPath    = "/api/upload-to-wasabi"
	DeletePath    = "/api/delete-from-wasabi"
	FilesPath     = "/api/files"
	DefaultBucket = "cafe2"
)

// MsgUploadFailed is shown for any failure after validation passed.
const MsgUploadFailed = "Error al subir archivo"

// ErrUploadFailed wraps every post-validation upload failure.
var ErrUploadFailed = errors.New(MsgUploadFailed)

// Observer receives upload outcomes ("ok", "rejected", "failed").
type Observer interface {
	ObserveUpload(outcome string)
}

// Uploader moves files to the backend's object storage. The reference it
// returns is stored verbatim in records.
type Uploader struct {
	hc      *http.Client
	baseURL string
	bucket  string
	log     *zap.Logger
	obs     Observer
	clock   clockwork.Clock
}

// Option customizes an Uploader.
type Option func(*Uploader)

// WithClock replaces the real clock (tests drive progress with a fake one).
func WithClock(c clockwork.Clock) Option { return func(u *Uploader) { u.clock = c } }

// WithObserver attaches a metrics observer.
func WithObserver(o Observer) Option { return func(u *Uploader) { u.obs = o } }

// WithBucket sets the bucket used when building proxy URLs.
func WithBucket(b string) Option { return func(u *Uploader) { u.bucket = b } }

// New builds an Uploader that talks to baseURL through hc.
func New(hc *http.Client, baseURL string, logger *zap.Logger, opts ...Option) *Uploader {
	u := &Uploader{
		hc:      hc,
		baseURL: strings.TrimRight(baseURL, "/"),
		bucket:  DefaultBucket,
		log:     logger,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(u)
	}
	if u.hc == nil {
		u.hc = http.DefaultClient
	}
	if u.log == nil {
		u.log = zap.NewNop()
	}
	return u
}

type uploadResponse struct {
	FileURL string `json:"fileUrl"`
}

// Upload validates f, sends it, and returns the reference the backend
// assigned. progress may be nil. A validation failure returns
// *ValidationError without touching the network.
func (u *Uploader) Upload(ctx context.Context, f File, o Options, progress *Progress) (string, error) {
	o = o.WithDefaults()
	if err := Validate(f, o); err != nil {
		u.observe("rejected")
		return "", err
	}
	if progress == nil {
		progress = &Progress{}
	}

	progress.start()
	stop := make(chan struct{})
	done := make(chan struct{})
	go simulate(u.clock, progress, stop, done)

	ref, err := u.send(ctx, f, GenerateKey(o.Folder, f.Name, u.clock.Now()))

	close(stop)
	<-done
	progress.finish(err == nil)

	if err != nil {
		u.observe("failed")
		u.log.Warn("upload failed", zap.String("file", f.Name), zap.Error(err))
		return "", ErrUploadFailed
	}
	u.observe("ok")
	return ref, nil
}

func (u *Uploader) send(ctx context.Context, f File, key string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", path.Base(f.Name))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f.Body); err != nil {
		return "", err
	}
	if err := mw.WriteField("fileName", key); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+UploadPath, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", errors.New("upload: unexpected status " + resp.Status)
	}
	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", err
	}
	if out.FileURL == "" {
		return "", errors.New("upload: response missing fileUrl")
	}
	return out.FileURL, nil
}

// Delete removes a stored object. It is only ever called explicitly; clearing
// a form field never deletes anything.
func (u *Uploader) Delete(ctx context.Context, ref string) error {
	key := KeyFromURL(ref)
	if key == "" {
		return nil
	}
	body, _ := json.Marshal(map[string]string{"fileName": key})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+DeletePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := u.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.New("delete file: unexpected status " + resp.Status)
	}
	return nil
}

// ProxyURL turns a stored reference into something a browser can load.
//
//   - "" stays "".
//   - absolute http(s) URLs pass through.
//   - legacy inline "data:" references pass through unchanged. They are
//     deprecated; new uploads never produce them.
//   - anything else is treated as a storage key served by the backend proxy.
func (u *Uploader) ProxyURL(ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http"):
		return ref
	case IsLegacyInline(ref):
		return ref
	}
	return u.baseURL + FilesPath + "/" + url.PathEscape(u.bucket) + "/" + strings.TrimLeft(ref, "/")
}

// IsLegacyInline reports whether ref is an embedded base64 payload from the
// old inline-storage path.
func IsLegacyInline(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}

// KeyFromURL extracts the object name the delete endpoint expects: the last
// path segment of the reference.
func KeyFromURL(ref string) string {
	if ref == "" || IsLegacyInline(ref) {
		return ""
	}
	if u, err := url.Parse(ref); err == nil && u.Path != "" {
		ref = u.Path
	}
	ref = strings.TrimRight(ref, "/")
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}

func (u *Uploader) observe(outcome string) {
	if u.obs != nil {
		u.obs.ObserveUpload(outcome)
	}
}
