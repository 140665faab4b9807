// Package pipeline sequences the generation stages of a run.
//
// A run walks a fixed stage list (phases, process header, elements, pools
// and lanes, flows, resources, integrity audit, optional product
// specifications). Each stage asks the generator for content, normalizes it
// and appends the survivors to an immutable ir.Context that the next stage
// reads. Stages are gated on their inputs: a hard stage that fails or
// yields nothing stops the stages that depend on it, while soft stages only
// log their failures.
//
// Whatever happens, a run ends in finalize, which persists the context,
// stage timings, normalizer diagnostics, the compiled BPMN document when
// there are elements, and a Summary whose Success flag is the run's
// verdict. Panics inside a stage are recovered into a StageError.
//
// Runs share nothing mutable, so RunMany can execute them concurrently.
package pipeline
