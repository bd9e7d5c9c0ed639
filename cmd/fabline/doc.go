// Command fabline is the operator CLI for the job-order tracking daemon.
// It talks HTTP to a running fablined instance and falls back to opening the
// job database directly when the daemon is not reachable.
package main
