// Package normalize turns raw collaborator output into schema-conformant
// records.
//
// A batch goes through the same steps on every call: items that are not
// records are dropped, input aliases are folded onto canonical field names,
// process_id and pool_id are back-filled from the run, identifiers are
// assigned or repaired, and each declared field is defaulted, rejected or
// coerced. Everything that changed or was excluded is reported as a
// Diagnostic; nothing here returns an error.
//
// Normalizing an already-normalized batch with the same ambient values
// yields the same records and no diagnostics.
package normalize
