package coverage

import (
	"bytes"
	"testing"
	"time"

	"github.com/cqframework/cqftooling/cmd/drool/mapping"
	"github.com/cqframework/cqftooling/models/drool"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(refs ...drool.FieldRef) *drool.FieldSet {
	s := drool.NewFieldSet()
	for _, r := range refs {
		s.Add(r)
	}
	return s
}

func TestBuild(t *testing.T) {
	table := mapping.New(map[string]mapping.Target{
		"Problem.problemCode": {ResourceType: "Condition", Path: "code"},
	})

	report := Build(fields(
		drool.FieldRef{TemplateName: "Vaccine", NodePath: "vaccineCode"},
		drool.FieldRef{TemplateName: "Problem", NodePath: "problemCode"},
	), table)

	require.Len(t, report.Rows, 2)
	assert.Equal(t, 1, report.Mapped)
	assert.Equal(t, 1, report.Unmapped)

	assert.Equal(t, Row{
		TemplateName: "Problem",
		NodePath:     "problemCode",
		Key:          "Problem.problemCode",
		Mapped:       true,
		ResourceType: "Condition",
		Path:         "code",
	}, report.Rows[0])
	assert.Equal(t, "Vaccine.vaccineCode", report.Rows[1].Key)
	assert.False(t, report.Rows[1].Mapped)

	assert.Equal(t, []Row{report.Rows[1]}, report.UnmappedRows())
}

func TestBuildEmpty(t *testing.T) {
	report := Build(drool.NewFieldSet(), mapping.Default())
	assert.Empty(t, report.Rows)
	assert.NotNil(t, report.Rows)
	assert.Nil(t, report.UnmappedRows())
}

func TestWriteTable(t *testing.T) {
	report := Build(fields(
		drool.FieldRef{TemplateName: "LabResult", NodePath: "specimen/specimenType"},
		drool.FieldRef{TemplateName: "Unknown", NodePath: "thing"},
	), mapping.Default())

	var buf bytes.Buffer
	report.WriteTable(&buf)

	out := buf.String()
	assert.Contains(t, out, "LabResult.specimen.specimenType")
	assert.Contains(t, out, "Specimen")
	assert.Contains(t, out, "Unknown.thing")
	assert.Contains(t, out, "false")
}

func TestRecords(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	report := &Report{Rows: []Row{{Key: "A.b", TemplateName: "A", NodePath: "b"}}}

	recs := records("run-1", "RCKMS", at, report)
	require.Len(t, recs, 1)
	assert.Equal(t, "run-1", recs[0].RunID)
	assert.Equal(t, "RCKMS", recs[0].Library)
	assert.Equal(t, at, recs[0].RecordedAt)
	assert.Equal(t, "A.b", recs[0].Key)
}

func TestInsertBindsEveryColumn(t *testing.T) {
	query, args, err := sqlx.Named(insertRow, record{
		Row:     Row{Key: "A.b", TemplateName: "A", NodePath: "b", Mapped: true},
		RunID:   "run-1",
		Library: "RCKMS",
	})
	require.NoError(t, err)
	assert.NotContains(t, query, ":run_id")
	assert.Len(t, args, 9)
	assert.Equal(t, "run-1", args[0])
	assert.Equal(t, "A.b", args[2])
	assert.Equal(t, true, args[5])
}
