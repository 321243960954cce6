// Package visitor turns a walked Drool export into CQL define blocks.
//
// An RCKMSVisitor builds one define block per predicate. Nested predicates
// become their own blocks and are referenced from the parent by alias, and
// every code literal is registered under a generated alias. A visitor owns
// the output of exactly one document.
package visitor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cqframework/cqftooling/cmd/drool/mapping"
	"github.com/cqframework/cqftooling/cmd/drool/traverser"
	"github.com/cqframework/cqftooling/models/cql"
	"github.com/cqframework/cqftooling/models/drool"
	"github.com/rs/zerolog"
)

// ErrAlreadyUsed is returned when a visitor is asked to walk a second document.
var ErrAlreadyUsed = errors.New("visitor has already walked a document")

// Option configures an RCKMSVisitor.
type Option func(*RCKMSVisitor)

// WithMaxDepth bounds predicate nesting for both the traverser and the builder.
func WithMaxDepth(depth int) Option {
	return func(v *RCKMSVisitor) {
		if depth > 0 {
			v.maxDepth = depth
		}
	}
}

// RCKMSVisitor accumulates define blocks and code literals for one document.
type RCKMSVisitor struct {
	table    *mapping.Table
	output   *cql.Output
	fields   *drool.FieldSet
	maxDepth int
	unnamed  int
	used     bool
	log      zerolog.Logger
}

// New creates a visitor resolving source fields through table.
func New(table *mapping.Table, log zerolog.Logger, opts ...Option) *RCKMSVisitor {
	v := &RCKMSVisitor{
		table:    table,
		output:   cql.NewOutput(),
		fields:   drool.NewFieldSet(),
		maxDepth: traverser.DefaultMaxDepth,
		log:      log,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Output returns the alias -> statement map built so far.
func (v *RCKMSVisitor) Output() *cql.Output {
	return v.output
}

// Fields returns the source fields seen so far.
func (v *RCKMSVisitor) Fields() *drool.FieldSet {
	return v.fields
}

// Walk traverses doc with this visitor. It may be called once.
func (v *RCKMSVisitor) Walk(doc *drool.Document) (*traverser.Report, error) {
	if v.used {
		return nil, ErrAlreadyUsed
	}
	v.used = true

	t := traverser.New(v, v.log, traverser.WithMaxDepth(v.maxDepth))
	return t.Traverse(doc), nil
}

// Visit implements traverser.Visitor. Source fields are recorded as soon as
// they are reached, so a condition that later fails still reports them.
// Predicates are checked when reached; the condition, visited last, builds
// its blocks.
func (v *RCKMSVisitor) Visit(node drool.Node) error {
	switch n := node.(type) {
	case *drool.Condition:
		return v.visitCondition(n)
	case *drool.Predicate:
		return validatePredicate(n)
	case *drool.DataInputNode:
		v.fields.Add(n.Field())
		return nil
	case *drool.PredicatePart:
		// The traverser follows the source part only, but the builder still
		// resolves the part's own field.
		if n.FollowsSource() && n.DataInputNode != nil {
			v.fields.Add(n.DataInputNode.Field())
		}
		return nil
	default:
		v.log.Trace().
			Str("kind", node.Kind().String()).
			Str("node", node.NodeID()).
			Msg("Visited node")
		return nil
	}
}

// visitCondition builds every top-level predicate into a staging fork that is
// committed only when the whole condition succeeds.
func (v *RCKMSVisitor) visitCondition(c *drool.Condition) error {
	b := &builder{
		visitor:   v,
		out:       v.output.Fork(),
		condition: c,
	}

	for _, p := range c.Predicates {
		if p == nil {
			continue
		}
		if _, err := b.predicate(p, 1); err != nil {
			return err
		}
	}

	staged := b.out.Len()
	if err := b.out.Commit(); err != nil {
		return fmt.Errorf("failed to commit condition %q: %w", c.ID, err)
	}

	v.log.Debug().
		Str("condition", c.Name).
		Int("entries", staged).
		Msg("Generated CQL statements for condition")
	return nil
}

// validatePredicate rejects a predicate whose bodies cannot be joined.
func validatePredicate(p *drool.Predicate) error {
	bodies := 0
	for _, child := range p.Predicates {
		if child != nil {
			bodies++
		}
	}
	if !p.IsGroup() && hasParts(p) {
		bodies++
	}
	if bodies < 2 {
		return nil
	}

	if _, ok := conjunction(p.PredicateConjunction); !ok {
		reason := fmt.Sprintf("%d bodies need a conjunction but none is set", bodies)
		if p.PredicateConjunction != drool.ConjunctionNone {
			reason = fmt.Sprintf("unknown conjunction %q", p.PredicateConjunction)
		}
		return &drool.StructuralError{Kind: drool.KindPredicate, NodeID: p.ID, Reason: reason}
	}
	return nil
}

func hasParts(p *drool.Predicate) bool {
	for _, part := range p.PredicateParts {
		if part != nil {
			return true
		}
	}
	return false
}

func conjunction(c drool.Conjunction) (cql.Conjunction, bool) {
	switch strings.ToUpper(string(c)) {
	case string(drool.ConjunctionAnd):
		return cql.ConjunctionAnd, true
	case string(drool.ConjunctionOr):
		return cql.ConjunctionOr, true
	}
	return cql.ConjunctionNone, false
}
