// Package generator runs one traversal per document and collects the
// generated statements, the seen source fields and the diagnostics.
package generator

import (
	"errors"

	"github.com/cqframework/cqftooling/cmd/drool/mapping"
	"github.com/cqframework/cqftooling/cmd/drool/traverser"
	"github.com/cqframework/cqftooling/cmd/drool/visitor"
	"github.com/cqframework/cqftooling/models/cql"
	"github.com/cqframework/cqftooling/models/drool"
	"github.com/rs/zerolog"
)

// Result is everything one document produced.
type Result struct {
	Output *cql.Output
	Fields *drool.FieldSet
	Report *traverser.Report
}

// Generator is safe for concurrent use: every call builds its own visitor
// and the mapping table is never mutated.
type Generator struct {
	table    *mapping.Table
	maxDepth int
	log      zerolog.Logger
}

// New creates a Generator. A nil table falls back to mapping.Default().
func New(table *mapping.Table, maxDepth int, log zerolog.Logger) *Generator {
	if table == nil {
		table = mapping.Default()
	}
	return &Generator{
		table:    table,
		maxDepth: maxDepth,
		log:      log,
	}
}

// Generate translates doc.
func (g *Generator) Generate(doc *drool.Document) (*Result, error) {
	if doc == nil {
		return nil, errors.New("no document to generate from")
	}

	v := visitor.New(g.table, g.log, visitor.WithMaxDepth(g.maxDepth))
	report, err := v.Walk(doc)
	if err != nil {
		return nil, err
	}

	g.log.Info().
		Int("conditions", len(doc.Conditions)).
		Int("completed", report.Completed).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("statements", v.Output().Len()).
		Int("fields", v.Fields().Len()).
		Msg("Generated CQL statements")

	return &Result{
		Output: v.Output(),
		Fields: v.Fields(),
		Report: report,
	}, nil
}
