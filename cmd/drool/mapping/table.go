package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/cqframework/cqftooling/models/drool"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

// Target is the FHIR resource type and element path a source field maps to.
// Either part may be empty on its own.
type Target struct {
	ResourceType string `json:"resourceType,omitempty"`
	Path         string `json:"path,omitempty"`
}

// Table is an immutable lookup from "Template.dotted.path" keys to targets.
type Table struct {
	entries map[string]Target
}

// Key builds the lookup key for a template name and slash-delimited node path.
func Key(templateName, nodePath string) string {
	return drool.FieldRef{TemplateName: templateName, NodePath: nodePath}.Key()
}

// New creates a table from the given entries.
func New(entries map[string]Target) *Table {
	t := &Table{entries: make(map[string]Target, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	return t
}

// Lookup resolves a source field. A missing key is the normal "not supported
// yet" case.
func (t *Table) Lookup(field drool.FieldRef) (Target, bool) {
	target, ok := t.entries[field.Key()]
	return target, ok
}

// Len returns the number of mapped keys.
func (t *Table) Len() int {
	return len(t.entries)
}

// Keys returns all mapped keys, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// With returns a copy of the table with overrides applied on top.
func (t *Table) With(overrides map[string]Target) *Table {
	merged := New(t.entries)
	for k, v := range overrides {
		merged.entries[k] = v
	}
	return merged
}

// Load reads a JSON object of key -> target from filePath and applies it on
// top of base.
func Load(filePath string, base *Table, log zerolog.Logger) (*Table, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	overrides := make(map[string]Target)
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mapping file %s: %w", filePath, err)
	}

	for key := range overrides {
		if !strings.Contains(key, ".") {
			return nil, fmt.Errorf("invalid mapping key %q in %s: expected Template.path", key, filePath)
		}
	}

	log.Debug().
		Str("file", filePath).
		Int("overrides", len(overrides)).
		Msg("Loaded field mapping overrides")

	return base.With(overrides), nil
}
