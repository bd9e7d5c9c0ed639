// Package config loads and validates fabline's TOML configuration.
package config
