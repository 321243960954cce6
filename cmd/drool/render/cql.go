// Package render writes generated statements as CQL library text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cqframework/cqftooling/models/cql"
	"github.com/rs/zerolog"
)

// Library holds the header of the rendered library.
type Library struct {
	Name        string
	Version     string
	FHIRVersion string
}

// CQLRenderer renders an output map as a CQL library.
type CQLRenderer struct {
	lib Library
	log zerolog.Logger
}

// NewCQLRenderer creates a renderer for lib.
func NewCQLRenderer(lib Library, log zerolog.Logger) *CQLRenderer {
	if lib.FHIRVersion == "" {
		lib.FHIRVersion = "4.0.1"
	}
	return &CQLRenderer{lib: lib, log: log}
}

// Render writes the library to w: header, code systems, codes, then every
// define in registration order.
func (r *CQLRenderer) Render(w io.Writer, out *cql.Output) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "library %s", identifier(r.lib.Name))
	if r.lib.Version != "" {
		fmt.Fprintf(bw, " version %s", literal(r.lib.Version))
	}
	fmt.Fprintf(bw, "\n\nusing FHIR version %s\n\n", literal(r.lib.FHIRVersion))
	bw.WriteString("include FHIRHelpers version '4.0.1' called FHIRHelpers\n\n")

	codes := out.Codes()
	systems := codeSystems(codes)
	for _, s := range systems {
		fmt.Fprintf(bw, "codesystem %s: %s\n", quote(s.name), literal(s.uri))
	}
	if len(systems) > 0 {
		bw.WriteString("\n")
	}

	for _, c := range codes {
		fmt.Fprintf(bw, "code %s: %s from %s display %s\n",
			quote(c.Alias), literal(c.Code), quote(systemName(c)), literal(c.Display))
	}
	if len(codes) > 0 {
		bw.WriteString("\n")
	}

	bw.WriteString("context Patient\n")

	for _, block := range out.Blocks() {
		fmt.Fprintf(bw, "\ndefine %s:\n  %s\n", quote(block.Alias()), r.expression(block))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write CQL: %w", err)
	}
	return nil
}

// RenderString renders the library to a string.
func (r *CQLRenderer) RenderString(out *cql.Output) (string, error) {
	var sb strings.Builder
	if err := r.Render(&sb, out); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (r *CQLRenderer) expression(block *cql.DefineBlock) string {
	if len(block.Bodies) == 0 {
		return "null"
	}

	var sb strings.Builder
	for i, body := range block.Bodies {
		if i > 0 {
			conj := body.Conjunction
			if conj == cql.ConjunctionNone {
				conj = cql.ConjunctionAnd
			}
			fmt.Fprintf(&sb, "\n    %s ", conj)
		}
		sb.WriteString(r.body(block.Alias(), body))
	}
	return sb.String()
}

func (r *CQLRenderer) body(alias string, body *cql.DefineStatementBody) string {
	if body.IsReference() {
		return quote(body.Reference)
	}
	if body.Retrieve == nil || body.Retrieve.ResourceType == "" {
		r.log.Debug().Str("define", alias).Msg("Rendering body without a mapped resource type")
		return "null /* unmapped source field */"
	}

	retrieve := "[" + body.Retrieve.ResourceType + "]"
	where := body.Where
	if where == nil || where.Path == "" {
		return "exists (" + retrieve + ")"
	}
	if where.Concept == "" {
		return fmt.Sprintf("exists (%s R where R.%s is not null)", retrieve, where.Path)
	}
	return fmt.Sprintf("exists (%s R where R.%s %s %s)", retrieve, where.Path, Operator(where.Operator), quote(where.Concept))
}

// Operator translates a source operator name to CQL. Unknown names are
// returned unchanged.
func Operator(name string) string {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "EQUAL", "EQUALS", "IS", "=", "~":
		return "~"
	case "NOT_EQUAL", "NOTEQUAL", "NOT_EQUALS", "IS_NOT", "!=", "!~":
		return "!~"
	case "IN", "IN_VALUESET", "MEMBER_OF":
		return "in"
	case "GREATER_THAN", ">":
		return ">"
	case "GREATER_THAN_OR_EQUAL", ">=":
		return ">="
	case "LESS_THAN", "<":
		return "<"
	case "LESS_THAN_OR_EQUAL", "<=":
		return "<="
	default:
		return name
	}
}

type codeSystem struct {
	name string
	uri  string
}

var knownSystems = map[string]string{
	"http://snomed.info/sct":                      "SNOMEDCT",
	"2.16.840.1.113883.6.96":                      "SNOMEDCT",
	"http://loinc.org":                            "LOINC",
	"2.16.840.1.113883.6.1":                       "LOINC",
	"http://hl7.org/fhir/sid/icd-10-cm":           "ICD10CM",
	"2.16.840.1.113883.6.90":                      "ICD10CM",
	"http://www.nlm.nih.gov/research/umls/rxnorm": "RXNORM",
	"2.16.840.1.113883.6.88":                      "RXNORM",
	cql.UnspecifiedSystem:                         "Unspecified",
}

func systemName(c *cql.DirectReferenceCode) string {
	if c.SystemName != "" {
		return c.SystemName
	}
	uri := c.SystemURI()
	if name, ok := knownSystems[strings.TrimPrefix(uri, "urn:oid:")]; ok {
		return name
	}
	if name, ok := knownSystems[uri]; ok {
		return name
	}
	return uri
}

func codeSystems(codes []*cql.DirectReferenceCode) []codeSystem {
	seen := make(map[string]bool)
	var out []codeSystem
	for _, c := range codes {
		name := systemName(c)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, codeSystem{name: name, uri: c.SystemURI()})
	}
	return out
}

func identifier(s string) string {
	if s == "" {
		return "Library"
	}
	for _, r := range s {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return quote(s)
		}
	}
	return s
}

func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func literal(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s) + "'"
}
