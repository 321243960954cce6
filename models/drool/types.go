// Package drool holds the condition-criteria object graph exported by the
// RCKMS rules authoring tool ("Drool" export) and the deserializer for it.
package drool

import "strings"

// NodeKind identifies one shape of the closed source node hierarchy.
type NodeKind int

const (
	KindCondition NodeKind = iota
	KindPredicate
	KindPredicatePart
	KindSourcePredicatePart
	KindDataInputNode
	KindPredicatePartConcept
	KindOpenCdsConcept
	KindCriteriaResourceParam
)

func (k NodeKind) String() string {
	switch k {
	case KindCondition:
		return "Condition"
	case KindPredicate:
		return "Predicate"
	case KindPredicatePart:
		return "PredicatePart"
	case KindSourcePredicatePart:
		return "SourcePredicatePart"
	case KindDataInputNode:
		return "DataInputNode"
	case KindPredicatePartConcept:
		return "PredicatePartConcept"
	case KindOpenCdsConcept:
		return "OpenCdsConcept"
	case KindCriteriaResourceParam:
		return "CriteriaResourceParam"
	default:
		return "Unknown"
	}
}

// Node is implemented by every type of the source graph.
type Node interface {
	Kind() NodeKind
	NodeID() string
}

// PartType discriminates the operand carried by a predicate part.
type PartType string

const (
	PartTypeModelElement PartType = "ModelElement"
	PartTypeText         PartType = "Text"
	PartTypeDataInput    PartType = "DataInput"
	PartTypeResource     PartType = "Resource"
)

// Known reports whether the part type is one of the supported discriminants.
func (t PartType) Known() bool {
	switch t {
	case PartTypeModelElement, PartTypeText, PartTypeDataInput, PartTypeResource:
		return true
	}
	return false
}

// Conjunction joins the children of a predicate group.
type Conjunction string

const (
	ConjunctionNone Conjunction = ""
	ConjunctionAnd  Conjunction = "AND"
	ConjunctionOr   Conjunction = "OR"
)

// PredicateTypeGroup marks a predicate that only groups other predicates.
const PredicateTypeGroup = "PredicateGroup"

// NotImplementedMarker flags a Condition whose criteria are not supported yet.
const NotImplementedMarker = "not yet implemented"

// Document is the root of one export: an ordered list of conditions.
type Document struct {
	Conditions []*Condition `json:"conditions"`
}

// Condition is the root of one clinical criteria tree.
type Condition struct {
	ID         string       `json:"id,omitempty"`
	Name       string       `json:"name,omitempty"`
	Predicates []*Predicate `json:"predicates,omitempty"`
}

func (c *Condition) Kind() NodeKind { return KindCondition }
func (c *Condition) NodeID() string { return c.ID }

// NotImplemented reports whether the condition name carries the
// case-insensitive "not yet implemented" marker.
func (c *Condition) NotImplemented() bool {
	return strings.Contains(strings.ToLower(c.Name), NotImplementedMarker)
}

// Predicate is a single rule or a group of rules joined by a conjunction.
type Predicate struct {
	ID                   string           `json:"id,omitempty"`
	PredicateType        string           `json:"predicateType,omitempty"`
	PredicateConjunction Conjunction      `json:"predicateConjunction,omitempty"`
	Predicates           []*Predicate     `json:"predicates,omitempty"`
	PredicateParts       []*PredicatePart `json:"predicateParts,omitempty"`
}

func (p *Predicate) Kind() NodeKind { return KindPredicate }
func (p *Predicate) NodeID() string { return p.ID }

// IsGroup reports whether the predicate is a pure grouping container.
func (p *Predicate) IsGroup() bool {
	return strings.EqualFold(p.PredicateType, PredicateTypeGroup)
}

// PredicatePart is one atomic comparison within a predicate.
type PredicatePart struct {
	ID                    string                  `json:"id,omitempty"`
	PartType              PartType                `json:"partType,omitempty"`
	PartAlias             string                  `json:"partAlias,omitempty"`
	Text                  string                  `json:"text,omitempty"`
	DataInputNode         *DataInputNode          `json:"dataInputNode,omitempty"`
	CriteriaResourceParam *CriteriaResourceParam  `json:"criteriaResourceParam,omitempty"`
	PredicatePartConcepts []*PredicatePartConcept `json:"predicatePartConcepts,omitempty"`
	SourcePredicatePart   *SourcePredicatePart    `json:"sourcePredicatePart,omitempty"`
}

func (p *PredicatePart) Kind() NodeKind { return KindPredicatePart }
func (p *PredicatePart) NodeID() string { return p.ID }

// FollowsSource reports whether the operand comes from the nested source
// part rather than from the part's own data input and concepts.
func (p *PredicatePart) FollowsSource() bool {
	return p.SourcePredicatePart != nil && len(p.PredicatePartConcepts) == 0
}

// SourcePredicatePart is the nested operand of a predicate part.
type SourcePredicatePart struct {
	ID                    string                  `json:"id,omitempty"`
	PartType              PartType                `json:"partType,omitempty"`
	PartAlias             string                  `json:"partAlias,omitempty"`
	Text                  string                  `json:"text,omitempty"`
	DataInputNode         *DataInputNode          `json:"dataInputNode,omitempty"`
	CriteriaResourceParam *CriteriaResourceParam  `json:"criteriaResourceParam,omitempty"`
	PredicatePartConcepts []*PredicatePartConcept `json:"predicatePartConcepts,omitempty"`
}

func (s *SourcePredicatePart) Kind() NodeKind { return KindSourcePredicatePart }
func (s *SourcePredicatePart) NodeID() string { return s.ID }

// DataInputNode identifies a field of the source vocabulary.
type DataInputNode struct {
	ID           string `json:"id,omitempty"`
	TemplateName string `json:"templateName,omitempty"`
	NodePath     string `json:"nodePath,omitempty"`
}

func (d *DataInputNode) Kind() NodeKind { return KindDataInputNode }
func (d *DataInputNode) NodeID() string { return d.ID }

// Field returns the (template, path) pair the node points at.
func (d *DataInputNode) Field() FieldRef {
	return FieldRef{TemplateName: d.TemplateName, NodePath: d.NodePath}
}

// CriteriaResourceParam carries the comparison operator of a part.
type CriteriaResourceParam struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

func (c *CriteriaResourceParam) Kind() NodeKind { return KindCriteriaResourceParam }
func (c *CriteriaResourceParam) NodeID() string { return c.ID }

// PredicatePartConcept wraps the terminology on the right side of a part.
type PredicatePartConcept struct {
	ID             string          `json:"id,omitempty"`
	OpenCdsConcept *OpenCdsConcept `json:"openCdsConcept,omitempty"`
}

func (p *PredicatePartConcept) Kind() NodeKind { return KindPredicatePartConcept }
func (p *PredicatePartConcept) NodeID() string { return p.ID }

// OpenCdsConcept is a coded terminology reference.
type OpenCdsConcept struct {
	ID             string `json:"id,omitempty"`
	Code           string `json:"code,omitempty"`
	DisplayName    string `json:"displayName,omitempty"`
	CodeSystem     string `json:"codeSystem,omitempty"`
	CodeSystemName string `json:"codeSystemName,omitempty"`
}

func (o *OpenCdsConcept) Kind() NodeKind { return KindOpenCdsConcept }
func (o *OpenCdsConcept) NodeID() string { return o.ID }
