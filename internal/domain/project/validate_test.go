package project_test

import (
	"testing"

	"github.com/probelab/headnotes/internal/domain/project"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validDoc = `{
	"modelName": "gpt2-small",
	"numLayers": 12,
	"numHeads": 12,
	"annotations": {"L2H5": {"layer": 2, "head": 5, "tags": ["reasoning/causal"]}},
	"tags": ["reasoning/causal"],
	"createdAt": "2026-03-01T10:00:00Z",
	"updatedAt": "2026-03-01T10:05:00Z"
}`

func TestParseDocument_Valid(t *testing.T) {
	doc, err := project.ParseDocument([]byte(validDoc))
	require.NoError(t, err)
	assert.Equal(t, "gpt2-small", doc.ModelName)
	assert.Equal(t, 12, doc.NumLayers)
	assert.Contains(t, doc.Annotations, "L2H5")
	assert.Equal(t, []string{"reasoning/causal"}, doc.Tags)
}

func TestParseDocument_NamedFailures(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"not an object", `[1,2,3]`, "document"},
		{"missing modelName", `{"numLayers":1,"numHeads":1,"annotations":{},"tags":[],"createdAt":"x"}`, "modelName"},
		{"modelName wrong type", `{"modelName":7,"numLayers":1,"numHeads":1,"annotations":{},"tags":[],"createdAt":"x"}`, "modelName"},
		{"numLayers wrong type", `{"modelName":"m","numLayers":"1","numHeads":1,"annotations":{},"tags":[],"createdAt":"x"}`, "numLayers"},
		{"annotations wrong type", `{"modelName":"m","numLayers":1,"numHeads":1,"annotations":[],"tags":[],"createdAt":"x"}`, "annotations"},
		{"tags wrong type", `{"modelName":"m","numLayers":1,"numHeads":1,"annotations":{},"tags":[1],"createdAt":"x"}`, "tags"},
		{"missing createdAt", `{"modelName":"m","numLayers":1,"numHeads":1,"annotations":{},"tags":[]}`, "createdAt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := project.ParseDocument([]byte(tc.body))
			require.Error(t, err)
			var fieldErr *project.FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}

func TestParseImportFile_RequiresCoreFields(t *testing.T) {
	_, err := project.ParseImportFile([]byte(`{"modelName":"m","annotations":{}}`))
	assert.ErrorIs(t, err, project.ErrNotAProject, "missing tags field is rejected")

	_, err = project.ParseImportFile([]byte(`not json`))
	assert.ErrorIs(t, err, project.ErrNotAProject)

	doc, err := project.ParseImportFile([]byte(`{"modelName":"m","annotations":{},"tags":["a"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, doc.Tags)
	assert.NotNil(t, doc.Annotations)
}
