package models

import (
	"bytes"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-bankconnect/core"
)

// timestampLayouts covers the formats the server has been observed to emit
// for *_date and *_timestamp fields. They are tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp is a point in time decoded from a date-like JSON field. Fields
// whose wire names end in _date or _timestamp use this type so that the
// server's assorted date renderings all land in a time.Time.
type Timestamp struct {
	time.Time
}

func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t.UTC()}
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if t == nil {
		return goerrors.New("models: unmarshal into nil timestamp", goerrors.CategoryInternal)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		t.Time = time.Time{}
		return nil
	}
	if trimmed[0] != '"' || trimmed[len(trimmed)-1] != '"' {
		return goerrors.New("models: timestamp must be a JSON string", goerrors.CategoryBadInput).
			WithTextCode(core.ErrorCodeJSON)
	}
	raw := strings.TrimSpace(string(trimmed[1 : len(trimmed)-1]))
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return goerrors.New("models: unrecognized timestamp "+raw, goerrors.CategoryBadInput).
		WithTextCode(core.ErrorCodeJSON).
		WithMetadata(map[string]any{"value": raw})
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

func (t *Timestamp) Equal(other *Timestamp) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.Time.Equal(other.Time)
}
