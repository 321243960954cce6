// Package cql is the in-memory model of generated CQL library statements.
// It is filled while walking a source document and consumed by a renderer.
package cql

import "strings"

// Conjunction joins a define body to the body before it.
type Conjunction string

const (
	ConjunctionNone Conjunction = ""
	ConjunctionAnd  Conjunction = "and"
	ConjunctionOr   Conjunction = "or"
)

// Retrieve is the "[ResourceType]" half of an expression.
type Retrieve struct {
	ResourceType string `json:"resourceType,omitempty"`
}

// WhereClause filters a retrieve by element path, operator and code alias.
type WhereClause struct {
	ResourceType string `json:"resourceType,omitempty"`
	Path         string `json:"path,omitempty"`
	Operator     string `json:"operator,omitempty"`
	Concept      string `json:"concept,omitempty"`
}

// DefineStatement names a define block.
type DefineStatement struct {
	Alias string `json:"alias,omitempty"`
}

// DefineStatementBody is one operand of a define. It either carries its own
// retrieve and where clause, or references another define by alias.
type DefineStatementBody struct {
	Conjunction Conjunction  `json:"conjunction,omitempty"`
	Retrieve    *Retrieve    `json:"retrieve,omitempty"`
	Where       *WhereClause `json:"where,omitempty"`
	Reference   string       `json:"reference,omitempty"`
}

// IsReference reports whether the body points at another define.
func (b *DefineStatementBody) IsReference() bool {
	return b.Reference != ""
}

// DefineBlock is one named CQL define.
type DefineBlock struct {
	Statement *DefineStatement       `json:"statement"`
	Bodies    []*DefineStatementBody `json:"bodies,omitempty"`
}

// NewDefineBlock returns a block with an empty statement.
func NewDefineBlock() *DefineBlock {
	return &DefineBlock{Statement: &DefineStatement{}}
}

// Alias returns the statement alias, or "" for an unnamed block.
func (b *DefineBlock) Alias() string {
	if b.Statement == nil {
		return ""
	}
	return b.Statement.Alias
}

// DirectReferenceCode is a single terminology code literal.
type DirectReferenceCode struct {
	Alias      string `json:"alias"`
	Display    string `json:"display"`
	Code       string `json:"code"`
	System     string `json:"system,omitempty"`
	SystemName string `json:"systemName,omitempty"`
}

// NewDirectReferenceCode builds an unregistered code literal.
func NewDirectReferenceCode(display, code string) *DirectReferenceCode {
	return &DirectReferenceCode{Display: display, Code: code}
}

// Same reports whether two literals denote the same coded value.
func (c *DirectReferenceCode) Same(other *DirectReferenceCode) bool {
	return c.Code == other.Code && c.Display == other.Display && c.System == other.System
}

// UnspecifiedSystem stands in for codes whose concept carried no code system.
const UnspecifiedSystem = "urn:cqf:unspecified"

// SystemURI returns the code system as a URI. Bare OIDs get the urn:oid
// prefix.
func (c *DirectReferenceCode) SystemURI() string {
	if c.System == "" {
		return UnspecifiedSystem
	}
	if !strings.Contains(c.System, ":") {
		return "urn:oid:" + c.System
	}
	return c.System
}

// Entry is a registered output statement: a *DefineBlock or a
// *DirectReferenceCode.
type Entry interface {
	entry()
}

func (*DefineBlock) entry()         {}
func (*DirectReferenceCode) entry() {}
