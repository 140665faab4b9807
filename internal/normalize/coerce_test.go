package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archay0/bpmnMATLAB/internal/schema"
)

func field(types ...schema.Type) schema.Field {
	return schema.Field{Name: "f", Types: types}
}

func TestCoerce_SingleType(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		typ      schema.Type
		want     any
		wantDiag bool
	}{
		{"string passthrough", "abc", schema.TypeString, "abc", false},
		{"int to string", 42, schema.TypeString, "42", false},
		{"float to string", 2.5, schema.TypeString, "2.5", false},
		{"integral float to string", float64(7), schema.TypeString, "7", false},
		{"bool to string", true, schema.TypeString, "true", false},
		{"map to string", map[string]any{"a": 1}, schema.TypeString, `{"a":1}`, false},
		{"numeric string to number", " 3.25 ", schema.TypeNumber, 3.25, false},
		{"int to number", 3, schema.TypeNumber, float64(3), false},
		{"bad number falls back to zero", "abc", schema.TypeNumber, float64(0), true},
		{"float to integer truncates", 3.9, schema.TypeInteger, int64(3), false},
		{"string to integer", "12", schema.TypeInteger, int64(12), false},
		{"decimal string is not an integer", "3.5", schema.TypeInteger, int64(0), true},
		{"yes is true", "YES", schema.TypeBoolean, true, false},
		{"1 is true", "1", schema.TypeBoolean, true, false},
		{"no is false", "no", schema.TypeBoolean, false, false},
		{"nonzero is true", 2.0, schema.TypeBoolean, true, false},
		{"list stays list", []any{"a"}, schema.TypeArray, []any{"a"}, false},
		{"json text to list", `["a","b"]`, schema.TypeArray, []any{"a", "b"}, false},
		{"scalar is not a list", 5, schema.TypeArray, 5, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, diag := Coerce(tt.value, field(tt.typ))
			assert.Equal(t, tt.want, got)
			if tt.wantDiag {
				require.NotNil(t, diag)
				assert.Equal(t, CodeCoercion, diag.Code)
				assert.Equal(t, "f", diag.Field)
			} else {
				assert.Nil(t, diag)
			}
		})
	}
}

func TestCoerce_Alternatives(t *testing.T) {
	f := field(schema.TypeString, schema.TypeNull)

	got, diag := Coerce(nil, f)
	assert.Nil(t, got)
	assert.Nil(t, diag)

	got, diag = Coerce(9, f)
	assert.Equal(t, "9", got)
	assert.Nil(t, diag)

	numFirst := field(schema.TypeNumber, schema.TypeString)
	got, _ = Coerce("4", numFirst)
	assert.Equal(t, float64(4), got)
	got, _ = Coerce("four", numFirst)
	assert.Equal(t, "four", got)

	none := field(schema.TypeNumber, schema.TypeNull)
	got, diag = Coerce("four", none)
	assert.Equal(t, "four", got, "no alternative fits so the value is unchanged")
	require.NotNil(t, diag)
	assert.Equal(t, CodeCoercion, diag.Code)
}

func TestCoerce_DateTimeSentinel(t *testing.T) {
	f := schema.Field{Name: "creation_date", Types: []schema.Type{schema.TypeString, schema.TypeNull}, Format: schema.FormatDateTime}

	tests := []struct {
		in   any
		want any
	}{
		{"2024-03-01T09:30:00Z", "2024-03-01T09:30:00Z"},
		{"2024-03-01", DateTimeSentinel},
		{"10:30", DateTimeSentinel},
		{"", DateTimeSentinel},
		{nil, nil},
	}
	for _, tt := range tests {
		got, diag := Coerce(tt.in, f)
		assert.Equal(t, tt.want, got)
		if tt.want == DateTimeSentinel {
			require.NotNil(t, diag)
			assert.Equal(t, CodeDateTime, diag.Code)
		}
	}
}

func TestCoerce_NFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	got, _ := Coerce(decomposed, field(schema.TypeString))
	assert.Equal(t, "Caf\u00e9", got)
}
