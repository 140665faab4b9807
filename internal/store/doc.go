// Package store persists the artifacts of a generation run.
//
// Each run gets its own location holding JSON documents keyed by name
// (raw_<stage>.json, <kind>.json, complete_context.json and so on) and,
// optionally, the compiled process.bpmn. Dir writes to the filesystem;
// Memory keeps everything in a map for tests.
package store
