// Package schema is the static catalog of entity schemas.
//
// The catalog is written in CUE (catalog.cue, embedded at build time) and
// constrained by #Field and #Kind definitions, so a typo in a type name or
// an unknown attribute fails at load rather than at normalization time.
// Each kind lists its fields in order with a type or list of alternative
// types, a required flag, an optional default, an optional format tag, and
// input aliases. Kinds with canonical identifiers also name their id field
// and prefix.
//
// Lookup is the whole contract: Get(kind) returns the schema or reports
// absence. Callers treat absence as "pass records through unchanged".
package schema
