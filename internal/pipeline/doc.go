// Package pipeline defines the fixed, ordered production stage sequence and
// the next-stage resolution every transition in the system derives from.
//
// The ordering here is the single source of truth: job-level advancement,
// batch routing, and skip handling all resolve "what comes next" through
// Next rather than re-deriving stage order locally.
package pipeline
