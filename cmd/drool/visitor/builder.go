package visitor

import (
	"strconv"

	"github.com/cqframework/cqftooling/models/cql"
	"github.com/cqframework/cqftooling/models/drool"
)

// builder assembles the blocks of one condition.
type builder struct {
	visitor   *RCKMSVisitor
	out       *cql.Output
	condition *drool.Condition
}

// statement is the in-progress define of one predicate. All parts of the
// predicate write into the same retrieve and where clause.
type statement struct {
	retrieve *cql.Retrieve
	where    *cql.WhereClause
	define   *cql.DefineStatement
}

// predicate builds the block for p. Nested predicates are built first and
// referenced by alias; the direct parts are merged into a single body.
func (b *builder) predicate(p *drool.Predicate, depth int) (*cql.DefineBlock, error) {
	if depth > b.visitor.maxDepth {
		return nil, &drool.DepthError{NodeID: p.ID, Limit: b.visitor.maxDepth}
	}
	if err := validatePredicate(p); err != nil {
		return nil, err
	}

	conj, _ := conjunction(p.PredicateConjunction)
	block := cql.NewDefineBlock()
	var bodies []*cql.DefineStatementBody
	add := func(body *cql.DefineStatementBody) {
		if len(bodies) > 0 {
			body.Conjunction = conj
		}
		bodies = append(bodies, body)
	}

	for _, child := range p.Predicates {
		if child == nil {
			continue
		}
		childBlock, err := b.predicate(child, depth+1)
		if err != nil {
			return nil, err
		}
		add(&cql.DefineStatementBody{Reference: childBlock.Alias()})
	}

	if hasParts(p) {
		st := &statement{
			retrieve: &cql.Retrieve{},
			where:    &cql.WhereClause{},
			define:   block.Statement,
		}
		for _, part := range p.PredicateParts {
			if part != nil {
				b.predicatePart(part, st)
			}
		}
		// A group only borrows its parts for naming.
		if !p.IsGroup() {
			add(&cql.DefineStatementBody{Retrieve: st.retrieve, Where: st.where})
		}
	}
	block.Bodies = bodies

	// Parents reference children by alias, so every block needs a name.
	if block.Alias() == "" {
		block.Statement.Alias = b.syntheticAlias(p)
	}
	b.out.RegisterBlock(block)
	return block, nil
}

// syntheticAlias names an unnamed predicate. The counter lives on the visitor
// so unnamed predicates of different conditions never share a name.
func (b *builder) syntheticAlias(p *drool.Predicate) string {
	prefix := p.PredicateType
	if prefix == "" {
		prefix = "Predicate"
	}
	id := p.ID
	if id == "" {
		b.visitor.unnamed++
		id = strconv.Itoa(b.visitor.unnamed)
		if b.condition.ID != "" {
			id = b.condition.ID + "." + id
		}
	}
	return prefix + "-" + id
}

func (b *builder) predicatePart(part *drool.PredicatePart, st *statement) {
	if part.CriteriaResourceParam != nil {
		b.operator(part.CriteriaResourceParam, st.where)
	}
	if part.DataInputNode != nil {
		b.dataInput(part.DataInputNode, st)
	}
	if part.FollowsSource() {
		b.sourcePart(part.SourcePredicatePart, st)
	}
	b.concepts(part.PredicatePartConcepts, st.where)

	switch part.PartType {
	case drool.PartTypeText, drool.PartTypeModelElement:
		name := part.PartAlias
		if name == "" {
			name = part.Text
		}
		if name == "" {
			return
		}
		if part.ID != "" {
			name += "-" + part.ID
		}
		st.define.Alias = name
	}
}

func (b *builder) sourcePart(src *drool.SourcePredicatePart, st *statement) {
	if src.CriteriaResourceParam != nil {
		b.operator(src.CriteriaResourceParam, st.where)
	}
	switch src.PartType {
	case drool.PartTypeDataInput:
		b.concepts(src.PredicatePartConcepts, st.where)
	case drool.PartTypeModelElement:
		if src.DataInputNode != nil {
			b.dataInput(src.DataInputNode, st)
		}
	}
}

// dataInput resolves a source field through the mapping table. Unmapped
// fields leave the retrieve and where clause untouched.
func (b *builder) dataInput(node *drool.DataInputNode, st *statement) {
	field := node.Field()

	target, ok := b.visitor.table.Lookup(field)
	if !ok {
		b.visitor.log.Debug().
			Str("condition", b.condition.Name).
			Str("field", field.Key()).
			Msg("No mapping for source field")
		return
	}
	if target.ResourceType != "" {
		st.retrieve.ResourceType = target.ResourceType
		st.where.ResourceType = target.ResourceType
	}
	if target.Path != "" {
		st.where.Path = target.Path
	}
}

// operator copies the raw operator name; it is not checked against any
// operator vocabulary.
func (b *builder) operator(param *drool.CriteriaResourceParam, where *cql.WhereClause) {
	where.Operator = param.Name
}

func (b *builder) concepts(concepts []*drool.PredicatePartConcept, where *cql.WhereClause) {
	for _, c := range concepts {
		if c != nil && c.OpenCdsConcept != nil {
			b.openCdsConcept(c.OpenCdsConcept, where)
		}
	}
}

// openCdsConcept registers a code literal and points the where clause at it.
// When several concepts hit the same clause the last one is kept.
func (b *builder) openCdsConcept(concept *drool.OpenCdsConcept, where *cql.WhereClause) {
	if concept.Code == "" || concept.DisplayName == "" {
		return
	}

	code := cql.NewDirectReferenceCode(concept.DisplayName, concept.Code)
	code.System = concept.CodeSystem
	code.SystemName = concept.CodeSystemName
	alias := b.out.RegisterCode(code)

	if where.Concept != "" && where.Concept != alias {
		b.visitor.log.Warn().
			Str("condition", b.condition.Name).
			Str("previous", where.Concept).
			Str("concept", alias).
			Msg("Several concepts on one where clause; keeping the last")
	}
	where.Concept = alias
}
