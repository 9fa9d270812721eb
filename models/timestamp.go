package models

import (
	"encoding/json"
	"time"
)

// Timestamp is a capture instant that may be unknown. The zero value is
// unknown, which is distinct from the Unix epoch.
type Timestamp struct {
	t     time.Time
	known bool
}

// Known wraps t as a determinate timestamp, normalized to UTC.
func Known(t time.Time) Timestamp {
	return Timestamp{t: t.UTC(), known: true}
}

// Unknown returns the indeterminate timestamp.
func Unknown() Timestamp {
	return Timestamp{}
}

func (ts Timestamp) IsKnown() bool {
	return ts.known
}

// Time returns the instant and whether it is known.
func (ts Timestamp) Time() (time.Time, bool) {
	return ts.t, ts.known
}

// Before reports whether both timestamps are known and ts is strictly earlier.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.known && other.known && ts.t.Before(other.t)
}

// Sub returns ts-other when both are known.
func (ts Timestamp) Sub(other Timestamp) (time.Duration, bool) {
	if !ts.known || !other.known {
		return 0, false
	}
	return ts.t.Sub(other.t), true
}

func (ts Timestamp) Equal(other Timestamp) bool {
	if ts.known != other.known {
		return false
	}
	return !ts.known || ts.t.Equal(other.t)
}

func (ts Timestamp) String() string {
	if !ts.known {
		return "unknown"
	}
	return ts.t.Format(time.RFC3339)
}

// Ptr returns the instant as a nullable time, for storage.
func (ts Timestamp) Ptr() *time.Time {
	if !ts.known {
		return nil
	}
	t := ts.t
	return &t
}

func (ts Timestamp) MarshalJSON() ([]byte, error) {
	if !ts.known {
		return []byte("null"), nil
	}
	return json.Marshal(ts.t.Format(time.RFC3339Nano))
}

// CompareTimestamps orders known instants ascending and places unknown
// after every known instant. Two unknowns compare equal.
func CompareTimestamps(a, b Timestamp) int {
	switch {
	case a.known && b.known:
		return a.t.Compare(b.t)
	case a.known:
		return -1
	case b.known:
		return 1
	default:
		return 0
	}
}
