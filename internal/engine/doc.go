// Package engine implements the workflow transitions that advance jobs and
// batches through the production pipeline.
//
// Every operation is pure: it takes a Job value, returns a new Job value with
// exactly one history entry appended, and never touches shared state. Unknown
// identifiers and invalid preconditions echo the input back unchanged rather
// than failing; callers that need to surface "not found" compare history
// length before and after. Persistence, broadcasting, and write serialization
// per job id are the caller's responsibility (see internal/workflow).
package engine
