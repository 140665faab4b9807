package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecord_Accessors(t *testing.T) {
	r := Record{
		"name":  "Review",
		"x":     float64(120),
		"y":     "40.5",
		"n":     7,
		"refs":  []any{"TASK_001", nil, "TASK_002"},
		"one":   "TASK_003",
		"empty": nil,
	}

	assert.Equal(t, "Review", r.String("name"))
	assert.Equal(t, "7", r.String("n"))
	assert.Equal(t, "", r.String("empty"))
	assert.Equal(t, "", r.String("missing"))
	assert.True(t, r.Has("empty"))
	assert.False(t, r.Has("missing"))

	x, ok := r.Float("x")
	assert.True(t, ok)
	assert.Equal(t, 120.0, x)
	y, ok := r.Float("y")
	assert.True(t, ok)
	assert.Equal(t, 40.5, y)
	_, ok = r.Float("name")
	assert.False(t, ok)

	assert.Equal(t, []string{"TASK_001", "TASK_002"}, r.Strings("refs"))
	assert.Equal(t, []string{"TASK_003"}, r.Strings("one"))
	assert.Nil(t, r.Strings("missing"))
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := Record{"a": "1"}
	c := r.Clone()
	c["a"] = "2"
	assert.Equal(t, "1", r["a"])
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"high", SeverityHigh},
		{" HIGH ", SeverityHigh},
		{"critical", SeverityHigh},
		{"Low", SeverityLow},
		{"info", SeverityLow},
		{"medium", SeverityMedium},
		{"", SeverityMedium},
		{"whatever", SeverityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.in))
		})
	}
}
