// Package ir holds the data model shared by every stage of a generation run.
//
// Records are untyped field maps exactly as they leave the normalizer.
// A Context accumulates validated batches keyed by Kind; each mutation
// returns a new Context with a bumped version so earlier snapshots stay
// valid for the stage that received them.
//
// Fingerprint hashes the canonical JSON of a context's records so two runs
// that produced the same model can be recognized.
//
// This package imports nothing internal. All other internal packages
// import ir.
package ir
