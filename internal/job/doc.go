// Package job defines the order-tracking data model: jobs, their batches,
// and the append-only transition history both carry.
//
// Values in this package are plain data. All workflow semantics live in
// internal/engine, which consumes a Job value and produces a new one;
// Clone exists so the engine can guarantee callers never observe partial
// updates through shared slices or maps.
package job
