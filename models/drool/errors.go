package drool

import (
	"errors"
	"fmt"
)

// ErrDepthExceeded is returned when predicate nesting is deeper than allowed.
var ErrDepthExceeded = errors.New("predicate nesting depth exceeded")

// DiagnosticKind classifies a problem found while walking a document.
type DiagnosticKind string

const (
	ExplicitlyUnimplemented DiagnosticKind = "ExplicitlyUnimplemented"
	UnsupportedSourceShape  DiagnosticKind = "UnsupportedSourceShape"
	StructuralInconsistency DiagnosticKind = "StructuralInconsistency"
	DepthExceeded           DiagnosticKind = "DepthExceeded"
)

// Fatal reports whether the diagnostic aborts the owning condition.
func (k DiagnosticKind) Fatal() bool {
	return k == StructuralInconsistency || k == DepthExceeded
}

// StructuralError reports a source node whose shape cannot be translated.
type StructuralError struct {
	Kind   NodeKind
	NodeID string
	Reason string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.NodeID, e.Reason)
}

// DepthError wraps ErrDepthExceeded with the node where the limit was hit.
type DepthError struct {
	NodeID string
	Limit  int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("%v at %q (limit %d)", ErrDepthExceeded, e.NodeID, e.Limit)
}

func (e *DepthError) Unwrap() error {
	return ErrDepthExceeded
}

// ClassifyError maps an error raised for a condition to its diagnostic kind.
func ClassifyError(err error) DiagnosticKind {
	if errors.Is(err, ErrDepthExceeded) {
		return DepthExceeded
	}
	return StructuralInconsistency
}
