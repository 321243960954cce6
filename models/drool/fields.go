package drool

import (
	"strings"

	"golang.org/x/exp/slices"
)

// FieldRef is a (template, slash-delimited path) pair of the source vocabulary.
type FieldRef struct {
	TemplateName string `json:"templateName"`
	NodePath     string `json:"nodePath"`
}

// Key returns the dotted lookup key, e.g. "Problem.problemCode".
func (f FieldRef) Key() string {
	return f.TemplateName + "." + strings.ReplaceAll(f.NodePath, "/", ".")
}

// FieldSet records the source fields seen during one generation run.
type FieldSet struct {
	seen  map[FieldRef]struct{}
	order []FieldRef
}

// NewFieldSet creates an empty set.
func NewFieldSet() *FieldSet {
	return &FieldSet{seen: make(map[FieldRef]struct{})}
}

// Add records a field, keeping first-seen order. It reports whether the
// field was new.
func (s *FieldSet) Add(f FieldRef) bool {
	if _, ok := s.seen[f]; ok {
		return false
	}
	s.seen[f] = struct{}{}
	s.order = append(s.order, f)
	return true
}

// Contains reports whether the field was recorded.
func (s *FieldSet) Contains(f FieldRef) bool {
	_, ok := s.seen[f]
	return ok
}

// Len returns the number of distinct fields.
func (s *FieldSet) Len() int {
	return len(s.order)
}

// Fields returns the fields in first-seen order.
func (s *FieldSet) Fields() []FieldRef {
	return slices.Clone(s.order)
}

// Sorted returns the fields ordered by lookup key.
func (s *FieldSet) Sorted() []FieldRef {
	out := slices.Clone(s.order)
	slices.SortFunc(out, func(a, b FieldRef) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}
