// internal/app/system/uploader/validate.go
package uploader

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	DefaultAccept    = "image/*"
	DefaultMaxSizeMB = 5
	DefaultFolder    = "uploads"
)

// Options constrain one upload field.
type Options struct {
	Accept    string // MIME pattern such as "image/*", "video/*" or "*/*"
	MaxSizeMB int
	Folder    string
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.Accept == "" {
		o.Accept = DefaultAccept
	}
	if o.MaxSizeMB <= 0 {
		o.MaxSizeMB = DefaultMaxSizeMB
	}
	if o.Folder == "" {
		o.Folder = DefaultFolder
	}
	return o
}

// MaxBytes is the size limit in bytes.
func (o Options) MaxBytes() int64 {
	return int64(o.WithDefaults().MaxSizeMB) * 1024 * 1024
}

// File is a candidate upload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ValidationError is a client-side rejection; no network call was made.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validate checks type and size against o.
func Validate(f File, o Options) error {
	o = o.WithDefaults()
	if !Accepts(o.Accept, f.ContentType) {
		return &ValidationError{Message: "Tipo de archivo no permitido. Se esperaba: " + o.Accept}
	}
	if f.Size > o.MaxBytes() {
		return TooLarge(o)
	}
	return nil
}

// Sniff detects the content type from the leading bytes of r and rewinds
// it. Callers validate this type, never one the client declared.
func Sniff(r io.ReadSeeker) (string, error) {
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}
	return mt.String(), nil
}

// TooLarge is the size rejection for o. Handlers use it when the request
// body itself exceeds the limit.
func TooLarge(o Options) *ValidationError {
	o = o.WithDefaults()
	return &ValidationError{Message: fmt.Sprintf("El archivo es demasiado grande. Máximo %dMB", o.MaxSizeMB)}
}

// Accepts reports whether contentType satisfies the accept pattern.
// The pattern may list several comma-separated entries; "*/*" accepts
// anything and "type/*" accepts any subtype.
func Accepts(accept, contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, pat := range strings.Split(accept, ",") {
		pat = strings.ToLower(strings.TrimSpace(pat))
		switch {
		case pat == "":
			continue
		case pat == "*/*" || pat == "*":
			return true
		case ct == "":
			continue
		case strings.HasSuffix(pat, "/*"):
			if strings.HasPrefix(ct, strings.TrimSuffix(pat, "*")) {
				return true
			}
		case pat == ct:
			return true
		}
	}
	return false
}

// GenerateKey builds a storage key "<folder>/<unix-millis>-<token>.<ext>".
// The token makes keys unique even within the same millisecond.
func GenerateKey(folder, filename string, now time.Time) string {
	if folder == "" {
		folder = DefaultFolder
	}
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:13]
	key := fmt.Sprintf("%s/%d-%s", folder, now.UnixMilli(), token)
	if ext := strings.TrimPrefix(path.Ext(filename), "."); ext != "" {
		key += "." + strings.ToLower(ext)
	}
	return key
}
