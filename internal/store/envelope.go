package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope wraps every synchronized payload with the time it was written.
// The same shape is used locally and as a field of the remote document.
type Envelope struct {
	LastUpdated string          `json:"lastUpdated"`
	Data        json.RawMessage `json:"data"`
}

// NewEnvelope encodes data stamped with at.
func NewEnvelope(data any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding envelope data: %w", err)
	}
	return Envelope{
		LastUpdated: at.UTC().Format(time.RFC3339Nano),
		Data:        raw,
	}, nil
}

// Timestamp parses LastUpdated. A missing or malformed value yields the
// zero time, which orders before every real timestamp.
func (e Envelope) Timestamp() time.Time {
	if e.LastUpdated == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, e.LastUpdated); err == nil {
			return t
		}
	}
	return time.Time{}
}

// Decode unmarshals the payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("envelope has no data")
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decoding envelope data: %w", err)
	}
	return nil
}
