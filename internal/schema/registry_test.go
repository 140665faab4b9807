package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archay0/bpmnMATLAB/internal/ir"
)

func fieldNames(s *Schema) []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func TestDefault_LoadsEmbeddedCatalog(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, kind := range []ir.Kind{
		ir.KindPhases, ir.KindProcess, ir.KindElements, ir.KindFlows,
		ir.KindResources, ir.KindPools, ir.KindLanes,
		ir.KindModules, ir.KindParts, ir.KindSubparts,
	} {
		_, ok := reg.Get(kind)
		assert.True(t, ok, "missing schema for %s", kind)
	}
}

func TestDefault_ProcessDefinitions(t *testing.T) {
	s, ok := MustDefault().Get(ir.KindProcess)
	require.True(t, ok)

	assert.Equal(t, "process_id", s.IDField)
	assert.Equal(t, "PROC_", s.Prefix)
	assert.Equal(t, []string{
		"process_id", "process_name", "description", "version",
		"author", "creation_date", "last_modified", "status",
	}, fieldNames(s))

	version, _ := s.Field("version")
	assert.True(t, version.HasDefault)
	assert.Equal(t, "1.0", version.Default)
	assert.False(t, version.Required)

	created, _ := s.Field("creation_date")
	assert.Equal(t, []Type{TypeString, TypeNull}, created.Types)
	assert.Equal(t, FormatDateTime, created.Format)

	id, _ := s.Field("process_id")
	assert.True(t, id.Required)
	assert.Equal(t, []string{"id"}, id.Aliases)
	assert.Empty(t, id.Format)
}

func TestDefault_ElementsDeriveTheirPrefix(t *testing.T) {
	s, ok := MustDefault().Get(ir.KindElements)
	require.True(t, ok)
	assert.Equal(t, "element_id", s.IDField)
	assert.Empty(t, s.Prefix)

	x, ok := s.Field("position_x")
	require.True(t, ok)
	assert.Equal(t, []Type{TypeNumber}, x.Types)
}

func TestDefault_FlowAliases(t *testing.T) {
	s, _ := MustDefault().Get(ir.KindFlows)
	src, ok := s.Field("source_ref")
	require.True(t, ok)
	assert.Equal(t, []string{"source", "sourceRef"}, src.Aliases)
}

func TestDefault_NumericDefault(t *testing.T) {
	s, _ := MustDefault().Get(ir.KindParts)
	q, ok := s.Field("quantity")
	require.True(t, ok)
	assert.True(t, q.HasDefault)
	assert.EqualValues(t, 1, q.Default)
	assert.Empty(t, s.IDField)
}

func TestGet_UnknownKind(t *testing.T) {
	_, ok := MustDefault().Get(ir.Kind("integrity_issues"))
	assert.False(t, ok)
}

func TestLoad_RejectsUnknownType(t *testing.T) {
	src := `
#Type: "string" | "number"
#Field: {
	"type": #Type | [...#Type]
	required?: bool
}
#Kind: {
	fields: [string]: #Field
}
kinds: [string]: #Kind
kinds: widgets: fields: name: {"type": "text"}
`
	_, err := Load([]byte(src), "bad.cue")
	require.Error(t, err)

	var catErr *CatalogError
	assert.True(t, errors.As(err, &catErr))
}

func TestLoad_RejectsUndeclaredIDField(t *testing.T) {
	src := `
kinds: widgets: {
	id: "widget_id"
	fields: name: {"type": "string"}
}
`
	_, err := Load([]byte(src), "bad.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget_id")
}

func TestLoad_MissingKinds(t *testing.T) {
	_, err := Load([]byte(`other: 1`), "empty.cue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no kinds")
}

func TestLookup(t *testing.T) {
	r := MustDefault()
	s, err := r.Lookup(ir.KindLanes)
	require.NoError(t, err)
	assert.Equal(t, "lane_id", s.IDField)

	_, err = r.Lookup("gizmos")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.ErrorContains(t, err, `"gizmos"`)
}
