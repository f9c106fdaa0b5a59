package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/cadence/internal/canonical"
	"github.com/roach88/cadence/internal/review"
)

// marshalResponses converts responses to canonical JSON TEXT for storage.
func marshalResponses(r review.Responses) (string, error) {
	data, err := canonical.Marshal(map[string]string(r))
	if err != nil {
		return "", fmt.Errorf("marshal responses: %w", err)
	}
	return string(data), nil
}

// unmarshalResponses parses stored JSON TEXT. Empty text yields an empty,
// non-nil map.
func unmarshalResponses(data string) (review.Responses, error) {
	r := review.Responses{}
	if data == "" || data == "{}" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("unmarshal responses: %w", err)
	}
	return r, nil
}

// marshalNorthStars converts an area to goal map to canonical JSON TEXT.
func marshalNorthStars(stars map[string]string) (string, error) {
	if stars == nil {
		stars = map[string]string{}
	}
	data, err := canonical.Marshal(stars)
	if err != nil {
		return "", fmt.Errorf("marshal north stars: %w", err)
	}
	return string(data), nil
}

func unmarshalNorthStars(data string) (map[string]string, error) {
	stars := map[string]string{}
	if data == "" || data == "{}" {
		return stars, nil
	}
	if err := json.Unmarshal([]byte(data), &stars); err != nil {
		return nil, fmt.Errorf("unmarshal north stars: %w", err)
	}
	return stars, nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
