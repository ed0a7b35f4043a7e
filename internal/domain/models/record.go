// internal/domain/models/record.go
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Record is implemented by every resource the back-office manages.
// Key is empty until the backend has persisted the record.
type Record interface {
	Key() string
	Label() string
}

// ID is a backend identifier. The backend emits numeric ids, but string ids
// are accepted so callers never have to care.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Base carries the fields every backend record shares.
type Base struct {
	ID     ID    `json:"id,omitempty"`
	Status *bool `json:"status,omitempty"`
}

func (b Base) Key() string { return string(b.ID) }

// Active reports the status flag; an absent flag counts as active.
func (b Base) Active() bool { return b.Status == nil || *b.Status }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }
