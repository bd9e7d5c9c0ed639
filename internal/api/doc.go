// Package api exposes job workflow operations as transport-friendly DTOs
// shared by the HTTP server and the CLI renderers.
package api
