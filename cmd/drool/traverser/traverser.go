// Package traverser walks a Drool export depth first and hands every node to
// a Visitor after its children.
package traverser

import (
	"fmt"

	"github.com/cqframework/cqftooling/models/drool"
	"github.com/rs/zerolog"
)

// DefaultMaxDepth bounds predicate nesting.
const DefaultMaxDepth = 128

// Visitor receives every node of a condition in post-order. Returning an
// error aborts the condition being walked; sibling conditions continue.
type Visitor interface {
	Visit(node drool.Node) error
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(node drool.Node) error

func (f VisitorFunc) Visit(node drool.Node) error {
	return f(node)
}

// Diagnostic describes a problem found in one condition.
type Diagnostic struct {
	Kind          drool.DiagnosticKind `json:"kind"`
	ConditionID   string               `json:"conditionId,omitempty"`
	ConditionName string               `json:"conditionName,omitempty"`
	NodeID        string               `json:"nodeId,omitempty"`
	Message       string               `json:"message"`
	Err           error                `json:"-"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: condition %q: %s", d.Kind, d.ConditionName, d.Message)
}

// Report summarizes one traversal.
type Report struct {
	Completed   int          `json:"completed"`
	Skipped     int          `json:"skipped"`
	Failed      int          `json:"failed"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Fatal returns the diagnostics that aborted a condition.
func (r *Report) Fatal() []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind.Fatal() {
			out = append(out, d)
		}
	}
	return out
}

// Option configures a Traverser.
type Option func(*Traverser)

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(t *Traverser) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// Traverser drives a Visitor over a document.
type Traverser struct {
	visitor  Visitor
	maxDepth int
	log      zerolog.Logger
}

// New creates a Traverser for visitor.
func New(visitor Visitor, log zerolog.Logger, opts ...Option) *Traverser {
	t := &Traverser{
		visitor:  visitor,
		maxDepth: DefaultMaxDepth,
		log:      log,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Traverse walks every condition of doc in document order. Conditions marked
// as not yet implemented are skipped; a condition that fails does not stop
// the others.
func (t *Traverser) Traverse(doc *drool.Document) *Report {
	report := &Report{}
	if doc == nil {
		return report
	}

	for i, cond := range doc.Conditions {
		if cond == nil {
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Kind:    drool.UnsupportedSourceShape,
				Message: fmt.Sprintf("condition %d is null", i),
			})
			t.log.Warn().Int("index", i).Msg("Skipping null condition")
			continue
		}

		if cond.NotImplemented() {
			report.Skipped++
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Kind:          drool.ExplicitlyUnimplemented,
				ConditionID:   cond.ID,
				ConditionName: cond.Name,
				NodeID:        cond.ID,
				Message:       "condition is marked as not yet implemented",
			})
			t.log.Warn().
				Str("condition", cond.Name).
				Msg("Skipping condition marked as not yet implemented")
			continue
		}

		w := &walk{traverser: t, condition: cond}
		err := w.run()
		report.Diagnostics = append(report.Diagnostics, w.diagnostics...)
		if err != nil {
			report.Failed++
			report.Diagnostics = append(report.Diagnostics, Diagnostic{
				Kind:          drool.ClassifyError(err),
				ConditionID:   cond.ID,
				ConditionName: cond.Name,
				NodeID:        w.failedAt,
				Message:       err.Error(),
				Err:           err,
			})
			t.log.Error().Err(err).
				Str("condition", cond.Name).
				Msg("Failed to traverse condition")
			continue
		}
		report.Completed++
	}

	t.log.Debug().
		Int("completed", report.Completed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Completed traversal")

	return report
}

// walk holds the state of one condition traversal.
type walk struct {
	traverser   *Traverser
	condition   *drool.Condition
	diagnostics []Diagnostic
	failedAt    string
}

func (w *walk) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while traversing condition %q: %v", w.condition.ID, r)
		}
	}()

	for _, p := range w.condition.Predicates {
		if err := w.predicate(p, 1); err != nil {
			return err
		}
	}
	return w.visit(w.condition)
}

func (w *walk) visit(node drool.Node) error {
	if err := w.traverser.visitor.Visit(node); err != nil {
		if w.failedAt == "" {
			w.failedAt = node.NodeID()
		}
		return err
	}
	return nil
}

func (w *walk) predicate(p *drool.Predicate, depth int) error {
	if p == nil {
		return nil
	}
	if depth > w.traverser.maxDepth {
		w.failedAt = p.ID
		return &drool.DepthError{NodeID: p.ID, Limit: w.traverser.maxDepth}
	}

	for _, child := range p.Predicates {
		if err := w.predicate(child, depth+1); err != nil {
			return err
		}
	}
	for _, part := range p.PredicateParts {
		if err := w.predicatePart(part); err != nil {
			return err
		}
	}
	return w.visit(p)
}

func (w *walk) predicatePart(part *drool.PredicatePart) error {
	if part == nil {
		return nil
	}

	if part.FollowsSource() {
		if err := w.sourcePredicatePart(part.SourcePredicatePart); err != nil {
			return err
		}
	} else {
		if part.DataInputNode != nil {
			if err := w.visit(part.DataInputNode); err != nil {
				return err
			}
		}
		if err := w.concepts(part.PredicatePartConcepts); err != nil {
			return err
		}
	}

	if part.CriteriaResourceParam != nil {
		if err := w.visit(part.CriteriaResourceParam); err != nil {
			return err
		}
	}
	return w.visit(part)
}

func (w *walk) sourcePredicatePart(src *drool.SourcePredicatePart) error {
	switch src.PartType {
	case drool.PartTypeDataInput:
		if len(src.PredicatePartConcepts) > 0 {
			if err := w.concepts(src.PredicatePartConcepts); err != nil {
				return err
			}
		}
	case drool.PartTypeModelElement:
		if src.DataInputNode != nil {
			if err := w.visit(src.DataInputNode); err != nil {
				return err
			}
		}
	case drool.PartTypeResource:
		// Operator information is not available on this shape.
	case drool.PartTypeText:
	default:
		w.unsupported(src, fmt.Sprintf("unknown source predicate part type %q", src.PartType))
	}
	return w.visit(src)
}

func (w *walk) concepts(concepts []*drool.PredicatePartConcept) error {
	for _, c := range concepts {
		if c == nil {
			continue
		}
		if err := w.visit(c); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) unsupported(node drool.Node, msg string) {
	w.diagnostics = append(w.diagnostics, Diagnostic{
		Kind:          drool.UnsupportedSourceShape,
		ConditionID:   w.condition.ID,
		ConditionName: w.condition.Name,
		NodeID:        node.NodeID(),
		Message:       msg,
	})
	w.traverser.log.Debug().
		Str("condition", w.condition.Name).
		Str("node", node.NodeID()).
		Msg(msg)
}
