package normalize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/archay0/bpmnMATLAB/internal/schema"
)

// DateTimeSentinel replaces date-time strings that carry no time component.
const DateTimeSentinel = "2025-04-26T12:00:00Z"

var errNull = errors.New("value is null")

// Coerce converts value to the field's declared type.
//
// With a single declared type a failed conversion falls back (0 for numbers,
// "" for strings, false for booleans) and reports a diagnostic; arrays and
// nulls that cannot convert are left unchanged. With alternatives, each type
// is tried in order and the first clean conversion wins; "null" matches only
// a nil value. If none fits the value is returned unchanged.
//
// A date-time field whose string value lacks either a "T" or a ":" is replaced
// with DateTimeSentinel.
//
// Coerce never panics and never fails; the diagnostic is nil when nothing
// noteworthy happened.
func Coerce(value any, f schema.Field) (any, *Diagnostic) {
	out, diag := coerceTypes(value, f)
	if f.Format == schema.FormatDateTime {
		if s, ok := out.(string); ok && !(strings.Contains(s, "T") && strings.Contains(s, ":")) {
			return DateTimeSentinel, &Diagnostic{
				Field:   f.Name,
				Code:    CodeDateTime,
				Message: fmt.Sprintf("%q is not a timestamp; using %s", s, DateTimeSentinel),
			}
		}
	}
	return out, diag
}

func coerceTypes(value any, f schema.Field) (any, *Diagnostic) {
	if len(f.Types) == 1 {
		t := f.Types[0]
		out, err := convert(value, t)
		if err == nil {
			return out, nil
		}
		fallback, changed := zeroValue(t, value)
		msg := fmt.Sprintf("cannot convert %s to %s: %v", describe(value), t, err)
		if changed {
			msg += fmt.Sprintf("; using %v", fallback)
		}
		return fallback, &Diagnostic{Field: f.Name, Code: CodeCoercion, Message: msg}
	}

	for _, t := range f.Types {
		if t == schema.TypeNull && value != nil {
			continue
		}
		if out, err := convert(value, t); err == nil {
			return out, nil
		}
	}
	return value, &Diagnostic{
		Field:   f.Name,
		Code:    CodeCoercion,
		Message: fmt.Sprintf("%s matches none of %v; left unchanged", describe(value), f.Types),
	}
}

// zeroValue is the fallback for a failed single-type conversion.
func zeroValue(t schema.Type, value any) (any, bool) {
	switch t {
	case schema.TypeNumber:
		return float64(0), true
	case schema.TypeInteger:
		return int64(0), true
	case schema.TypeString:
		return "", true
	case schema.TypeBoolean:
		return false, true
	}
	return value, false
}

func convert(value any, t schema.Type) (any, error) {
	switch t {
	case schema.TypeString:
		return toString(value)
	case schema.TypeNumber:
		return toNumber(value)
	case schema.TypeInteger:
		return toInteger(value)
	case schema.TypeBoolean:
		return toBoolean(value), nil
	case schema.TypeArray:
		return toArray(value)
	case schema.TypeNull:
		if value == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("expected null")
	}
	return nil, fmt.Errorf("unknown type %q", t)
}

func toString(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, errNull
	case string:
		return norm.NFC.String(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	case json.Number:
		return v.String(), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value), nil
	}
	return norm.NFC.String(string(data)), nil
}

func toNumber(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, errNull
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case bool:
		if v {
			return float64(1), nil
		}
		return float64(0), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("not a number")
		}
		return f, nil
	case json.Number:
		return v.Float64()
	}
	if i, ok := asInt64(value); ok {
		return float64(i), nil
	}
	return nil, fmt.Errorf("not a number")
}

func toInteger(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, errNull
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("not finite")
		}
		return int64(v), nil
	case float32:
		return int64(v), nil
	case bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not an integer")
		}
		return i, nil
	case json.Number:
		return v.Int64()
	}
	if i, ok := asInt64(value); ok {
		return i, nil
	}
	return nil, fmt.Errorf("not an integer")
}

func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

// toBoolean accepts "true", "yes" and "1" in any case; anything else is cast by truthiness.
func toBoolean(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1":
			return true
		}
		return false
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	}
	if i, ok := asInt64(value); ok {
		return i != 0
	}
	return true
}

func toArray(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, errNull
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case string:
		var arr []any
		if err := json.Unmarshal([]byte(strings.TrimSpace(v)), &arr); err != nil {
			return nil, fmt.Errorf("not an array")
		}
		return arr, nil
	}
	return nil, fmt.Errorf("not an array")
}

func describe(value any) string {
	if value == nil {
		return "null"
	}
	if s, ok := value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%T", value)
}
