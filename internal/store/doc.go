// Package store persists job aggregates in SQLite. A job row owns its
// batches and history; saves replace the aggregate inside one transaction,
// except history, which is insert-only.
package store
