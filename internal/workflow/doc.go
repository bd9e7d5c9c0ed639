// Package workflow coordinates job transitions against the store. It
// serializes transitions per job, publishes applied transitions to the event
// hub, pushes notifications, and runs the rework reminder loop.
package workflow
