package testsupport

import (
	"context"
	"testing"

	"fabline/internal/config"
	"fabline/internal/engine"
	"fabline/internal/job"
	"fabline/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewJob creates and persists a fresh job at the design stage.
func NewJob(t testing.TB, st *store.Store, id, code string, quantity int) *job.Job {
	t.Helper()

	eng := engine.New()
	created := eng.NewJob(engine.NewJobParams{
		ID:       id,
		Code:     code,
		Customer: "Test Customer",
		Quantity: quantity,
	}, "tester")
	if err := st.CreateJob(context.Background(), &created); err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return &created
}
