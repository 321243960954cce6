package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cqframework/cqftooling/models/drool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "Problem.problemCode", Key("Problem", "problemCode"))
	assert.Equal(t, "LabResult.specimen.specimenType", Key("LabResult", "specimen/specimenType"))
}

func TestDefaultLookup(t *testing.T) {
	table := Default()

	tests := []struct {
		name   string
		field  drool.FieldRef
		want   Target
		wantOK bool
	}{
		{
			name:   "problem code",
			field:  drool.FieldRef{TemplateName: "Problem", NodePath: "problemCode"},
			want:   Target{ResourceType: "Condition", Path: "code"},
			wantOK: true,
		},
		{
			name:   "slash path",
			field:  drool.FieldRef{TemplateName: "LabResult", NodePath: "specimen/specimenType"},
			want:   Target{ResourceType: "Specimen", Path: "type"},
			wantOK: true,
		},
		{
			name:   "resource type only",
			field:  drool.FieldRef{TemplateName: "Encounter", NodePath: "encounter"},
			want:   Target{ResourceType: "Encounter"},
			wantOK: true,
		},
		{
			name:   "path only",
			field:  drool.FieldRef{TemplateName: "Report", NodePath: "reportingJurisdiction"},
			want:   Target{Path: "jurisdiction"},
			wantOK: true,
		},
		{
			name:  "unsupported medication",
			field: drool.FieldRef{TemplateName: "Medication", NodePath: "medicationCode"},
		},
		{
			name:  "unknown template",
			field: drool.FieldRef{TemplateName: "Nope", NodePath: "problemCode"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := table.Lookup(tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithDoesNotMutate(t *testing.T) {
	base := New(map[string]Target{"A.b": {ResourceType: "Observation"}})
	merged := base.With(map[string]Target{"C.d": {Path: "code"}})

	assert.Equal(t, 1, base.Len())
	assert.Equal(t, []string{"A.b", "C.d"}, merged.Keys())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"Medication.medicationCode": {"resourceType": "MedicationRequest", "path": "medication"},
		"Problem.problemCode": {"resourceType": "Condition", "path": "code.coding"}
	}`), 0644))

	table, err := Load(path, Default(), zerolog.Nop())
	require.NoError(t, err)

	got, ok := table.Lookup(drool.FieldRef{TemplateName: "Medication", NodePath: "medicationCode"})
	require.True(t, ok)
	assert.Equal(t, "MedicationRequest", got.ResourceType)

	got, _ = table.Lookup(drool.FieldRef{TemplateName: "Problem", NodePath: "problemCode"})
	assert.Equal(t, "code.coding", got.Path)

	got, _ = Default().Lookup(drool.FieldRef{TemplateName: "Problem", NodePath: "problemCode"})
	assert.Equal(t, "code", got.Path)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.json"), Default(), zerolog.Nop())
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nodot": {"path": "x"}}`), 0644))
	_, err = Load(bad, Default(), zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodot")
}
