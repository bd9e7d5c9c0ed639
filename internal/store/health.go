package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Health aggregates job state for status output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	summary := HealthSummary{}

	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1), COALESCE(SUM(completed), 0) FROM jobs`)
	var completed int
	if err := row.Scan(&summary.Total, &completed); err != nil {
		return HealthSummary{}, fmt.Errorf("job counts: %w", err)
	}
	summary.Completed = completed
	summary.Active = summary.Total - completed

	row = s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT job_id) FROM batches WHERE scrapped = 1`)
	if err := row.Scan(&summary.Scrapped); err != nil {
		return HealthSummary{}, fmt.Errorf("scrap counts: %w", err)
	}
	return summary, nil
}

// CheckHealth returns diagnostic information about the job database,
// including jobs whose batch quantities no longer sum to the order total.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("job database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat job database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("job database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("job database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping job database: %w", err)
	}
	health.DatabaseReadable = true

	expected := []string{"jobs", "batches", "job_history"}
	present := make(map[string]struct{})
	rows, err := s.db.QueryContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("query table info: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("scan table info: %w", err)
		}
		present[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("iterate table info: %w", err)
	}
	for _, name := range expected {
		if _, ok := present[name]; ok {
			health.TablesPresent = append(health.TablesPresent, name)
		} else {
			health.MissingTables = append(health.MissingTables, name)
		}
	}

	if len(health.MissingTables) == 0 {
		row := s.db.QueryRowContext(connCtx, "SELECT COUNT(1) FROM jobs")
		if err := row.Scan(&health.TotalJobs); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count jobs: %w", err)
		}

		// Splits, returns, and scraps must conserve quantity; a mismatch
		// here means a transition was persisted partially.
		unbalanced, err := s.db.QueryContext(connCtx,
			`SELECT j.id FROM jobs j
             JOIN batches b ON b.job_id = j.id
             GROUP BY j.id
             HAVING SUM(b.quantity) != j.total_quantity`)
		if err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("quantity check: %w", err)
		}
		defer unbalanced.Close()
		for unbalanced.Next() {
			var id string
			if err := unbalanced.Scan(&id); err != nil {
				health.Error = err.Error()
				return health, fmt.Errorf("scan quantity check: %w", err)
			}
			health.UnbalancedJobs = append(health.UnbalancedJobs, id)
		}
		if err := unbalanced.Err(); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("iterate quantity check: %w", err)
		}
	}

	row := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}
