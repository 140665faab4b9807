package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/archay0/bpmnMATLAB/internal/ir"
)

//go:embed catalog.cue
var catalogSource []byte

// Type is a declared field type.
type Type string

const (
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeNull    Type = "null"
)

// FormatDateTime tags string fields holding timestamps.
const FormatDateTime = "date-time"

// Field declares one field of a kind.
//
// Types holds a single type or an ordered list of alternatives.
type Field struct {
	Name       string
	Types      []Type
	Required   bool
	Default    any
	HasDefault bool
	Format     string
	Aliases    []string
}

// Schema is the ordered field list of one kind plus its identifier rule.
//
// IDField is empty for kinds without canonical identifiers. Prefix is empty
// for kinds whose prefix is derived per record (elements).
type Schema struct {
	Kind    ir.Kind
	IDField string
	Prefix  string
	Fields  []Field
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Registry is a read-only catalog of schemas keyed by kind.
type Registry struct {
	schemas map[ir.Kind]*Schema
}

// CatalogError reports a malformed schema catalog.
type CatalogError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CatalogError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the embedded catalog.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		defaultRegistry, defaultErr = Load(catalogSource, "catalog.cue")
	})
	return defaultRegistry, defaultErr
}

// MustDefault is Default for callers that treat a broken embedded catalog as a programming error.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load compiles a CUE catalog. The source must declare a top-level kinds
// struct whose entries conform to #Kind.
func Load(src []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	kindsVal := v.LookupPath(cue.ParsePath("kinds"))
	if !kindsVal.Exists() {
		return nil, &CatalogError{Field: "kinds", Message: "catalog declares no kinds", Pos: v.Pos()}
	}

	iter, err := kindsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	reg := &Registry{schemas: make(map[ir.Kind]*Schema)}
	for iter.Next() {
		s, err := parseKind(ir.Kind(iter.Label()), iter.Value())
		if err != nil {
			return nil, err
		}
		reg.schemas[s.Kind] = s
	}
	return reg, nil
}

// Get returns the schema for kind. A missing schema is not an error.
func (r *Registry) Get(kind ir.Kind) (*Schema, bool) {
	s, ok := r.schemas[kind]
	return s, ok
}

// ErrUnknownKind is returned by Lookup for a kind the catalog does not declare.
var ErrUnknownKind = errors.New("unknown kind")

// Lookup is Get for callers that require a schema.
func (r *Registry) Lookup(kind ir.Kind) (*Schema, error) {
	s, ok := r.schemas[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	return s, nil
}

// Kinds lists the catalog's kinds in sorted order.
func (r *Registry) Kinds() []ir.Kind {
	out := make([]ir.Kind, 0, len(r.schemas))
	for k := range r.schemas {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func parseKind(kind ir.Kind, v cue.Value) (*Schema, error) {
	s := &Schema{Kind: kind}

	// Fields skips optional arcs, so only attributes the catalog sets are seen.
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		val := iter.Value()
		switch iter.Label() {
		case "id":
			if s.IDField, err = val.String(); err != nil {
				return nil, formatCUEError(err)
			}
		case "prefix":
			if s.Prefix, err = val.String(); err != nil {
				return nil, formatCUEError(err)
			}
		case "fields":
			fieldIter, err := val.Fields()
			if err != nil {
				return nil, formatCUEError(err)
			}
			for fieldIter.Next() {
				f, err := parseField(fieldIter.Label(), fieldIter.Value())
				if err != nil {
					return nil, err
				}
				s.Fields = append(s.Fields, f)
			}
		}
	}

	if s.IDField != "" {
		if _, ok := s.Field(s.IDField); !ok {
			return nil, &CatalogError{
				Field:   string(kind) + ".id",
				Message: fmt.Sprintf("id field %q is not declared", s.IDField),
				Pos:     v.Pos(),
			}
		}
	}
	return s, nil
}

func parseField(name string, v cue.Value) (Field, error) {
	f := Field{Name: name}

	iter, err := v.Fields()
	if err != nil {
		return Field{}, formatCUEError(err)
	}
	for iter.Next() {
		val := iter.Value()
		switch iter.Label() {
		case "type":
			if f.Types, err = parseTypes(name, val); err != nil {
				return Field{}, err
			}
		case "required":
			if f.Required, err = val.Bool(); err != nil {
				return Field{}, formatCUEError(err)
			}
		case "default":
			var d any
			if err := val.Decode(&d); err != nil {
				return Field{}, formatCUEError(err)
			}
			f.Default = d
			f.HasDefault = true
		case "format":
			if f.Format, err = val.String(); err != nil {
				return Field{}, formatCUEError(err)
			}
		case "aliases":
			if f.Aliases, err = stringList(val); err != nil {
				return Field{}, err
			}
		}
	}
	if len(f.Types) == 0 {
		return Field{}, &CatalogError{Field: name, Message: "no type declared", Pos: v.Pos()}
	}
	return f, nil
}

func parseTypes(name string, v cue.Value) ([]Type, error) {
	switch v.IncompleteKind() {
	case cue.StringKind:
		t, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return []Type{Type(t)}, nil
	case cue.ListKind:
		names, err := stringList(v)
		if err != nil {
			return nil, err
		}
		types := make([]Type, len(names))
		for i, n := range names {
			types[i] = Type(n)
		}
		return types, nil
	}
	return nil, &CatalogError{
		Field:   name,
		Message: fmt.Sprintf("unsupported type declaration: %v", v.IncompleteKind()),
		Pos:     v.Pos(),
	}
}

func stringList(v cue.Value) ([]string, error) {
	list, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError keeps the first CUE error and its source position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CatalogError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &CatalogError{Field: "cue", Message: first.Error()}
}
