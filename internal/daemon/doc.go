// Package daemon runs the background service: single-instance locking, the
// workflow reminder loop, and the HTTP API.
package daemon
