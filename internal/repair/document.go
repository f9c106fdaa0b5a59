package repair

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Document is a legacy export: a list of review entries as written by
// older clients. JSON exports parse too, JSON being a subset of YAML.
type Document struct {
	Reviews []Entry `yaml:"reviews"`
}

// Entry is one exported review. Older exports used userId/type instead of
// owner/cadence and kept some answers under customFields.
type Entry struct {
	ID      string `yaml:"id"`
	Owner   string `yaml:"owner"`
	UserID  string `yaml:"userId"`
	Cadence string `yaml:"cadence"`
	Type    string `yaml:"type"`

	// Period is the period label (2025-W03, 2025-03, 2025-Q1, 2025).
	Period string `yaml:"period"`

	CompletedAt  Timestamp         `yaml:"completedAt"`
	Responses    map[string]string `yaml:"responses"`
	CustomFields map[string]string `yaml:"customFields"`
}

// EffectiveOwner returns owner, falling back to the legacy userId.
func (e Entry) EffectiveOwner() string {
	if e.Owner != "" {
		return strings.TrimSpace(e.Owner)
	}
	return strings.TrimSpace(e.UserID)
}

// EffectiveCadence returns cadence, falling back to the legacy type.
func (e Entry) EffectiveCadence() string {
	if e.Cadence != "" {
		return e.Cadence
	}
	return e.Type
}

// Timestamp accepts Unix milliseconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (ts *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: completedAt must be a scalar", node.Line)
	}
	if node.Tag == "!!int" {
		ms, err := strconv.ParseInt(node.Value, 10, 64)
		if err != nil {
			return fmt.Errorf("line %d: completedAt: %w", node.Line, err)
		}
		ts.Time = time.UnixMilli(ms).UTC()
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, node.Value); err == nil {
			ts.Time = t.UTC().Truncate(time.Millisecond)
			return nil
		}
	}
	return fmt.Errorf("line %d: completedAt %q is neither milliseconds nor RFC 3339", node.Line, node.Value)
}

// LoadDocument parses a legacy export.
func LoadDocument(r io.Reader) (Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return Document{}, nil
		}
		return Document{}, fmt.Errorf("parse export: %w", err)
	}
	return doc, nil
}
