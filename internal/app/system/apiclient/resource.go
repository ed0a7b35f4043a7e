// internal/app/system/apiclient/resource.go
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Resource is a typed view over one REST collection (e.g. /condiciones).
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource binds T to the collection at path.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

// Path returns the collection path.
func (r *Resource[T]) Path() string { return r.path }

// List fetches the whole collection.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	return r.ListAt(ctx, r.path)
}

// ListAt fetches a list from an arbitrary endpoint that returns T items
// (filter endpoints such as /condiciones/estado/true).
func (r *Resource[T]) ListAt(ctx context.Context, endpoint string) ([]T, error) {
	return decodeList[T](r.c.Call(ctx, http.MethodGet, endpoint, nil))
}

// Get fetches one record.
func (r *Resource[T]) Get(ctx context.Context, key string) (T, error) {
	return decodeOne[T](r.c.Call(ctx, http.MethodGet, r.itemPath(key), nil))
}

// Create posts a new record and returns what the backend stored.
func (r *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	return decodeOne[T](r.c.Call(ctx, http.MethodPost, r.path, v))
}

// Update replaces the record at key.
func (r *Resource[T]) Update(ctx context.Context, key string, v T) (T, error) {
	return decodeOne[T](r.c.Call(ctx, http.MethodPut, r.itemPath(key), v))
}

// Delete removes the record at key.
func (r *Resource[T]) Delete(ctx context.Context, key string) error {
	res := r.c.Call(ctx, http.MethodDelete, r.itemPath(key), nil)
	if !res.Success {
		return res.AsError()
	}
	return nil
}

func (r *Resource[T]) itemPath(key string) string {
	return r.path + "/" + url.PathEscape(key)
}

func decodeList[T any](res Result) ([]T, error) {
	if !res.Success {
		return nil, res.AsError()
	}
	out := []T{}
	if isNull(res.Data) {
		return out, nil
	}
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return nil, &Error{Kind: KindTransport, Message: MsgConnection}
	}
	return out, nil
}

func decodeOne[T any](res Result) (T, error) {
	var zero T
	if !res.Success {
		return zero, res.AsError()
	}
	if isNull(res.Data) {
		return zero, nil
	}
	var out T
	if err := json.Unmarshal(res.Data, &out); err != nil {
		return zero, &Error{Kind: KindTransport, Message: MsgConnection}
	}
	return out, nil
}

func isNull(b json.RawMessage) bool {
	b = bytes.TrimSpace(b)
	return len(b) == 0 || bytes.Equal(b, []byte("null"))
}
