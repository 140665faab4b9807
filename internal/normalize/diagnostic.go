package normalize

import (
	"fmt"

	"github.com/archay0/bpmnMATLAB/internal/ir"
)

// Code identifies a diagnostic category.
type Code string

const (
	CodeNotRecord       Code = "N101" // batch item is not a record; dropped
	CodeMissingRequired Code = "N102" // required field absent with no default; record dropped
	CodeCoercion        Code = "N103" // value could not be coerced; fallback applied
	CodeDateTime        Code = "N104" // date-time value replaced by the sentinel
	CodeIDSynthesized   Code = "N105" // identifier generated from position
	CodeIDRewritten     Code = "N106" // identifier re-prefixed
	CodeIDCollision     Code = "N107" // identifier already taken; renumbered
	CodeBackFilled      Code = "N108" // foreign key copied from ambient context
	CodeNoSchema        Code = "N109" // kind has no schema; records passed through
	CodeMalformedRef    Code = "N110" // flow endpoint is not an identifier; record dropped
	CodeUnparseable     Code = "N111" // opaque text did not contain a batch
)

// Diagnostic is a non-fatal note about one record or the whole batch.
// Index is the item's 0-based position in the raw batch, or -1 for the batch.
type Diagnostic struct {
	Kind    ir.Kind `json:"kind"`
	Index   int     `json:"index"`
	Field   string  `json:"field,omitempty"`
	Code    Code    `json:"code"`
	Message string  `json:"message"`
}

func (d Diagnostic) Error() string {
	loc := string(d.Kind)
	if d.Index >= 0 {
		loc = fmt.Sprintf("%s[%d]", d.Kind, d.Index)
	}
	if d.Field != "" {
		loc += "." + d.Field
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, loc, d.Message)
}

// Drops reports whether the diagnostic removed a record from the output.
func (d Diagnostic) Drops() bool {
	switch d.Code {
	case CodeNotRecord, CodeMissingRequired, CodeMalformedRef:
		return true
	}
	return false
}
