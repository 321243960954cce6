package traverser

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cqframework/cqftooling/models/drool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder logs "Kind:id" for every visited node.
type recorder struct {
	visits []string
	failOn string
	panics string
}

func (r *recorder) Visit(node drool.Node) error {
	key := fmt.Sprintf("%s:%s", node.Kind(), node.NodeID())
	if node.NodeID() == r.panics {
		panic("boom")
	}
	if node.NodeID() == r.failOn {
		return &drool.StructuralError{Kind: node.Kind(), NodeID: node.NodeID(), Reason: "rejected"}
	}
	r.visits = append(r.visits, key)
	return nil
}

func nestedCondition(id string) *drool.Condition {
	return &drool.Condition{
		ID:   id,
		Name: "Condition " + id,
		Predicates: []*drool.Predicate{
			{
				ID:                   id + "-root",
				PredicateType:        drool.PredicateTypeGroup,
				PredicateConjunction: drool.ConjunctionAnd,
				Predicates: []*drool.Predicate{
					{
						ID: id + "-a",
						PredicateParts: []*drool.PredicatePart{
							{
								ID:                    id + "-a1",
								PartType:              drool.PartTypeModelElement,
								DataInputNode:         &drool.DataInputNode{ID: id + "-din"},
								CriteriaResourceParam: &drool.CriteriaResourceParam{ID: id + "-op"},
								PredicatePartConcepts: []*drool.PredicatePartConcept{{ID: id + "-c1"}, {ID: id + "-c2"}},
							},
						},
					},
					{ID: id + "-b"},
				},
			},
		},
	}
}

func TestTraversePostOrder(t *testing.T) {
	rec := &recorder{}
	report := New(rec, zerolog.Nop()).Traverse(&drool.Document{Conditions: []*drool.Condition{nestedCondition("x")}})

	assert.Equal(t, []string{
		"DataInputNode:x-din",
		"PredicatePartConcept:x-c1",
		"PredicatePartConcept:x-c2",
		"CriteriaResourceParam:x-op",
		"PredicatePart:x-a1",
		"Predicate:x-a",
		"Predicate:x-b",
		"Predicate:x-root",
		"Condition:x",
	}, rec.visits)
	assert.Equal(t, 1, report.Completed)
	assert.Empty(t, report.Diagnostics)
}

func TestTraverseChildrenBeforeParent(t *testing.T) {
	rec := &recorder{}
	New(rec, zerolog.Nop()).Traverse(&drool.Document{Conditions: []*drool.Condition{nestedCondition("x")}})

	index := make(map[string]int)
	for i, v := range rec.visits {
		index[v] = i
	}
	assert.Less(t, index["Predicate:x-a"], index["Predicate:x-root"])
	assert.Less(t, index["Predicate:x-b"], index["Predicate:x-root"])
	assert.Less(t, index["PredicatePart:x-a1"], index["Predicate:x-a"])
	assert.Less(t, index["Predicate:x-root"], index["Condition:x"])
}

func TestTraverseSkipsNotImplemented(t *testing.T) {
	skipped := nestedCondition("skip")
	skipped.Name = "Example (Not Yet Implemented)"

	rec := &recorder{}
	report := New(rec, zerolog.Nop()).Traverse(&drool.Document{
		Conditions: []*drool.Condition{skipped, nestedCondition("ok")},
	})

	for _, v := range rec.visits {
		assert.NotContains(t, v, "skip")
	}
	assert.Contains(t, rec.visits, "Condition:ok")
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Completed)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, drool.ExplicitlyUnimplemented, report.Diagnostics[0].Kind)
	assert.Empty(t, report.Fatal())
}

func TestTraverseSourcePredicatePart(t *testing.T) {
	tests := []struct {
		name   string
		source *drool.SourcePredicatePart
		want   []string
		diag   bool
	}{
		{
			name: "data input with concepts",
			source: &drool.SourcePredicatePart{
				ID: "s", PartType: drool.PartTypeDataInput,
				PredicatePartConcepts: []*drool.PredicatePartConcept{{ID: "sc"}},
			},
			want: []string{"PredicatePartConcept:sc", "SourcePredicatePart:s"},
		},
		{
			name:   "plain data input",
			source: &drool.SourcePredicatePart{ID: "s", PartType: drool.PartTypeDataInput},
			want:   []string{"SourcePredicatePart:s"},
		},
		{
			name: "model element",
			source: &drool.SourcePredicatePart{
				ID: "s", PartType: drool.PartTypeModelElement,
				DataInputNode: &drool.DataInputNode{ID: "sd"},
			},
			want: []string{"DataInputNode:sd", "SourcePredicatePart:s"},
		},
		{
			name: "resource is deferred",
			source: &drool.SourcePredicatePart{
				ID: "s", PartType: drool.PartTypeResource,
				DataInputNode: &drool.DataInputNode{ID: "sd"},
			},
			want: []string{"SourcePredicatePart:s"},
		},
		{
			name:   "text",
			source: &drool.SourcePredicatePart{ID: "s", PartType: drool.PartTypeText, Text: "x"},
			want:   []string{"SourcePredicatePart:s"},
		},
		{
			name: "unknown tag",
			source: &drool.SourcePredicatePart{
				ID: "s", PartType: "Spreadsheet",
				DataInputNode: &drool.DataInputNode{ID: "sd"},
			},
			want: []string{"SourcePredicatePart:s"},
			diag: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := &drool.Condition{ID: "c", Predicates: []*drool.Predicate{{
				ID: "p",
				PredicateParts: []*drool.PredicatePart{{
					ID:                    "pp",
					SourcePredicatePart:   tt.source,
					CriteriaResourceParam: &drool.CriteriaResourceParam{ID: "op"},
				}},
			}}}

			rec := &recorder{}
			report := New(rec, zerolog.Nop()).Traverse(&drool.Document{Conditions: []*drool.Condition{cond}})

			want := append(append([]string{}, tt.want...),
				"CriteriaResourceParam:op", "PredicatePart:pp", "Predicate:p", "Condition:c")
			assert.Equal(t, want, rec.visits)
			assert.Equal(t, 1, report.Completed)
			if tt.diag {
				require.Len(t, report.Diagnostics, 1)
				assert.Equal(t, drool.UnsupportedSourceShape, report.Diagnostics[0].Kind)
				assert.Equal(t, "s", report.Diagnostics[0].NodeID)
			} else {
				assert.Empty(t, report.Diagnostics)
			}
		})
	}
}

func TestTraverseDirectConceptsWinOverSource(t *testing.T) {
	cond := &drool.Condition{ID: "c", Predicates: []*drool.Predicate{{
		ID: "p",
		PredicateParts: []*drool.PredicatePart{{
			ID:                    "pp",
			DataInputNode:         &drool.DataInputNode{ID: "d"},
			PredicatePartConcepts: []*drool.PredicatePartConcept{{ID: "c1"}},
			SourcePredicatePart: &drool.SourcePredicatePart{
				ID: "s", PartType: drool.PartTypeModelElement,
				DataInputNode: &drool.DataInputNode{ID: "sd"},
			},
		}},
	}}}

	rec := &recorder{}
	New(rec, zerolog.Nop()).Traverse(&drool.Document{Conditions: []*drool.Condition{cond}})
	assert.Equal(t, []string{
		"DataInputNode:d", "PredicatePartConcept:c1", "PredicatePart:pp", "Predicate:p", "Condition:c",
	}, rec.visits)
}

func TestTraverseFailureIsolatedToCondition(t *testing.T) {
	rec := &recorder{failOn: "bad-a"}
	report := New(rec, zerolog.Nop()).Traverse(&drool.Document{
		Conditions: []*drool.Condition{nestedCondition("bad"), nestedCondition("good")},
	})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Completed)
	assert.Contains(t, rec.visits, "Condition:good")
	assert.NotContains(t, rec.visits, "Condition:bad")

	fatal := report.Fatal()
	require.Len(t, fatal, 1)
	assert.Equal(t, drool.StructuralInconsistency, fatal[0].Kind)
	assert.Equal(t, "bad-a", fatal[0].NodeID)
	assert.Equal(t, "bad", fatal[0].ConditionID)
}

func TestTraverseRecoversPanic(t *testing.T) {
	rec := &recorder{panics: "bad-b"}
	report := New(rec, zerolog.Nop()).Traverse(&drool.Document{
		Conditions: []*drool.Condition{nestedCondition("bad"), nestedCondition("good")},
	})

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Completed)
	require.Len(t, report.Fatal(), 1)
	assert.Contains(t, report.Fatal()[0].Message, "panic")
}

func TestTraverseDepthGuard(t *testing.T) {
	root := &drool.Predicate{ID: "p0"}
	cur := root
	for i := 1; i <= 10; i++ {
		next := &drool.Predicate{ID: fmt.Sprintf("p%d", i)}
		cur.Predicates = []*drool.Predicate{next}
		cur = next
	}
	cond := &drool.Condition{ID: "deep", Predicates: []*drool.Predicate{root}}

	rec := &recorder{}
	report := New(rec, zerolog.Nop(), WithMaxDepth(5)).Traverse(&drool.Document{Conditions: []*drool.Condition{cond}})

	assert.Empty(t, rec.visits)
	require.Len(t, report.Fatal(), 1)
	d := report.Fatal()[0]
	assert.Equal(t, drool.DepthExceeded, d.Kind)
	assert.Equal(t, "p5", d.NodeID)
	assert.True(t, errors.Is(d.Err, drool.ErrDepthExceeded))

	rec = &recorder{}
	report = New(rec, zerolog.Nop(), WithMaxDepth(20)).Traverse(&drool.Document{Conditions: []*drool.Condition{cond}})
	assert.Equal(t, 1, report.Completed)
	assert.Len(t, rec.visits, 12)
}

func TestTraverseNilBranches(t *testing.T) {
	cond := &drool.Condition{ID: "c", Predicates: []*drool.Predicate{
		nil,
		{ID: "p", Predicates: []*drool.Predicate{nil}, PredicateParts: []*drool.PredicatePart{nil, {ID: "pp"}}},
	}}

	visited := 0
	v := VisitorFunc(func(drool.Node) error { visited++; return nil })
	report := New(v, zerolog.Nop()).Traverse(&drool.Document{Conditions: []*drool.Condition{cond, nil}})

	assert.Equal(t, 3, visited)
	assert.Equal(t, 1, report.Completed)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, drool.UnsupportedSourceShape, report.Diagnostics[0].Kind)
	assert.Equal(t, "condition 1 is null", report.Diagnostics[0].Message)
	assert.Empty(t, report.Fatal())
	assert.Equal(t, 0, New(v, zerolog.Nop()).Traverse(nil).Completed)
}
