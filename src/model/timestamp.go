package model

import (
	"bytes"
	"fmt"
	"time"
)

// TimestampLayout is the wall-clock format used in the state file. Fractions are
// always written with six digits.
const TimestampLayout = "2006-01-02 15:04:05.000000"

var timestampParseLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

// Timestamp is a UTC instant with microsecond resolution, serialized as a naive
// "YYYY-MM-DD HH:MM:SS.ffffff" string. Naive values are always read as UTC, whatever
// the host zone; files written with local wall-clock times load shifted by that offset.
type Timestamp struct {
	time.Time
}

// NewTimestamp normalizes t to UTC and truncates it to microseconds so that a value
// survives a save/load cycle unchanged.
func NewTimestamp(t time.Time) Timestamp {
	if t.IsZero() {
		return Timestamp{}
	}
	return Timestamp{Time: t.UTC().Truncate(time.Microsecond)}
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("timestamp must be a string, got %s", data)
	}
	raw := string(data[1 : len(data)-1])
	if raw == "" {
		*t = Timestamp{}
		return nil
	}
	for _, layout := range timestampParseLayouts {
		parsed, err := time.Parse(layout, raw)
		if err == nil {
			*t = NewTimestamp(parsed)
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", raw)
}
