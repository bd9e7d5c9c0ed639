// Package services provides shared error classification for the layers that
// sit around the pure workflow engine: the store, the workflow manager, and
// the API surface.
package services
