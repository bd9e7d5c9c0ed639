package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fabline/internal/job"
	"fabline/internal/pipeline"
	"fabline/internal/services"
)

const jobColumns = "id, code, customer, description, total_quantity, current_stage, qc_status, completed, skipped_stages, dispatch_status, rejection_reason, stage_status_json, stage_times_json, created_at, updated_at"

const batchColumns = "job_id, id, stage, quantity, status, reprocess_count, pending_since, next_reminder, rejection_reason, return_origin_stage, scrapped, scrap_reason, position, created_at, updated_at"

const historyColumns = "id, job_id, batch_id, scope, action, stage, occurred_at, actor, details"

// CreateJob inserts a new job aggregate. The job id must not already exist.
func (s *Store) CreateJob(ctx context.Context, record *job.Job) error {
	if record == nil {
		return errors.New("job is nil")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin create tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		skipped, err := marshalSkippedStages(record.SkippedStages)
		if err != nil {
			return err
		}
		stageStatus, err := marshalStageStatus(record.StageStatus)
		if err != nil {
			return err
		}
		stageTimes, err := marshalStageTimes(record.StageTimes)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			record.Code,
			record.Customer,
			record.Description,
			record.TotalQuantity,
			string(record.CurrentStage),
			string(record.QCStatus),
			boolToInt(record.Completed),
			skipped,
			string(record.DispatchStatus),
			nullableString(record.RejectionReason),
			stageStatus,
			stageTimes,
			formatTime(record.CreatedAt),
			formatTime(record.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		if err := writeBatches(ctx, tx, record); err != nil {
			return err
		}
		if err := writeHistory(ctx, tx, record); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit create: %w", err)
		}
		return nil
	})
}

// SaveJob persists changes to an existing job aggregate. Batches are
// replaced wholesale; history rows are only ever added.
func (s *Store) SaveJob(ctx context.Context, record *job.Job) error {
	if record == nil {
		return errors.New("job is nil")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin save tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		skipped, err := marshalSkippedStages(record.SkippedStages)
		if err != nil {
			return err
		}
		stageStatus, err := marshalStageStatus(record.StageStatus)
		if err != nil {
			return err
		}
		stageTimes, err := marshalStageTimes(record.StageTimes)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE jobs
             SET code = ?, customer = ?, description = ?, total_quantity = ?,
                 current_stage = ?, qc_status = ?, completed = ?, skipped_stages = ?,
                 dispatch_status = ?, rejection_reason = ?, stage_status_json = ?,
                 stage_times_json = ?, updated_at = ?
             WHERE id = ?`,
			record.Code,
			record.Customer,
			record.Description,
			record.TotalQuantity,
			string(record.CurrentStage),
			string(record.QCStatus),
			boolToInt(record.Completed),
			skipped,
			string(record.DispatchStatus),
			nullableString(record.RejectionReason),
			stageStatus,
			stageTimes,
			formatTime(record.UpdatedAt),
			record.ID,
		)
		if err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return services.Wrap(services.ErrNotFound, "store", "save", "job "+record.ID, nil)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE job_id = ?`, record.ID); err != nil {
			return fmt.Errorf("replace batches: %w", err)
		}
		if err := writeBatches(ctx, tx, record); err != nil {
			return err
		}
		if err := writeHistory(ctx, tx, record); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit save: %w", err)
		}
		return nil
	})
}

func writeBatches(ctx context.Context, tx *sql.Tx, record *job.Job) error {
	for position, batch := range record.Batches {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO batches (`+batchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID,
			batch.ID,
			string(batch.Stage),
			batch.Quantity,
			string(batch.Status),
			batch.ReprocessCount,
			nullableTime(batch.PendingSince),
			nullableTime(batch.NextReminder),
			nullableString(batch.RejectionReason),
			nullableString(string(batch.ReturnOriginStage)),
			boolToInt(batch.Scrapped),
			nullableString(batch.ScrapReason),
			position,
			formatTime(batch.CreatedAt),
			formatTime(batch.UpdatedAt),
		); err != nil {
			return fmt.Errorf("insert batch %s: %w", batch.ID, err)
		}
	}
	return nil
}

func writeHistory(ctx context.Context, tx *sql.Tx, record *job.Job) error {
	insert := func(entry job.HistoryEntry, scope string) error {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO job_history (`+historyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			entry.ID,
			record.ID,
			nullableString(entry.BatchID),
			scope,
			string(entry.Action),
			string(entry.Stage),
			formatTime(entry.Timestamp),
			entry.User,
			nullableString(entry.Details),
		)
		if err != nil {
			return fmt.Errorf("insert history %s: %w", entry.ID, err)
		}
		return nil
	}

	// Job history is kept newest-first in memory; insert oldest-first so
	// rowid order matches event order.
	for i := len(record.History) - 1; i >= 0; i-- {
		if err := insert(record.History[i], historyScopeJob); err != nil {
			return err
		}
	}
	for _, batch := range record.Batches {
		for _, entry := range batch.History {
			if err := insert(entry, historyScopeBatch); err != nil {
				return err
			}
		}
	}
	return nil
}

// GetJob fetches a job aggregate by identifier. A missing id yields nil.
func (s *Store) GetJob(ctx context.Context, id string) (*job.Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	record, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if err := s.loadBatches(ctx, record); err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all jobs ordered by creation time, without batch or
// history detail.
func (s *Store) List(ctx context.Context) ([]*job.Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs ORDER BY created_at, id`)
}

// ListByStage returns jobs currently at the given stage.
func (s *Store) ListByStage(ctx context.Context, stage pipeline.Stage) ([]*job.Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE current_stage = ? ORDER BY created_at, id`, string(stage))
}

// ListActive returns jobs that have not completed dispatch.
func (s *Store) ListActive(ctx context.Context) ([]*job.Job, error) {
	return s.list(ctx, `SELECT `+jobColumns+` FROM jobs WHERE completed = 0 ORDER BY created_at, id`)
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]*job.Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		record, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, record)
	}
	return jobs, rows.Err()
}

func (s *Store) loadBatches(ctx context.Context, record *job.Job) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+batchColumns+` FROM batches WHERE job_id = ? ORDER BY position`, record.ID)
	if err != nil {
		return fmt.Errorf("load batches: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			jobID        string
			id           string
			stage        string
			quantity     int
			status       string
			reprocess    int
			pendingRaw   sql.NullString
			reminderRaw  sql.NullString
			rejection    sql.NullString
			returnOrigin sql.NullString
			scrapped     sql.NullInt64
			scrapReason  sql.NullString
			position     int
			createdRaw   string
			updatedRaw   string
		)
		if err := rows.Scan(&jobID, &id, &stage, &quantity, &status, &reprocess,
			&pendingRaw, &reminderRaw, &rejection, &returnOrigin, &scrapped,
			&scrapReason, &position, &createdRaw, &updatedRaw); err != nil {
			return fmt.Errorf("scan batch: %w", err)
		}
		batch := job.Batch{
			ID:                id,
			JobID:             jobID,
			Stage:             pipeline.Stage(stage),
			Quantity:          quantity,
			Status:            job.BatchStatus(status),
			ReprocessCount:    reprocess,
			RejectionReason:   rejection.String,
			ReturnOriginStage: pipeline.Stage(returnOrigin.String),
			ScrapReason:       scrapReason.String,
		}
		if scrapped.Valid {
			batch.Scrapped = scrapped.Int64 != 0
		}
		if pendingRaw.Valid {
			batch.PendingSince = parseTimePtr(pendingRaw.String)
		}
		if reminderRaw.Valid {
			batch.NextReminder = parseTimePtr(reminderRaw.String)
		}
		if created, err := parseTimeString(createdRaw); err == nil {
			batch.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			batch.UpdatedAt = updated
		}
		record.Batches = append(record.Batches, batch)
	}
	return rows.Err()
}

func (s *Store) loadHistory(ctx context.Context, record *job.Job) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+historyColumns+` FROM job_history WHERE job_id = ? ORDER BY rowid`, record.ID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	batchIndex := make(map[string]int, len(record.Batches))
	for i := range record.Batches {
		batchIndex[record.Batches[i].ID] = i
	}

	for rows.Next() {
		var (
			id          string
			jobID       string
			batchID     sql.NullString
			scope       string
			action      string
			stage       string
			occurredRaw string
			actor       string
			details     sql.NullString
		)
		if err := rows.Scan(&id, &jobID, &batchID, &scope, &action, &stage,
			&occurredRaw, &actor, &details); err != nil {
			return fmt.Errorf("scan history: %w", err)
		}
		entry := job.HistoryEntry{
			ID:      id,
			JobID:   jobID,
			BatchID: batchID.String,
			Action:  job.HistoryAction(action),
			Stage:   pipeline.Stage(stage),
			User:    actor,
			Details: details.String,
		}
		if occurred, err := parseTimeString(occurredRaw); err == nil {
			entry.Timestamp = occurred
		}
		switch scope {
		case historyScopeBatch:
			if idx, ok := batchIndex[entry.BatchID]; ok {
				// Batch history stays oldest-first; rowid order already is.
				record.Batches[idx].History = append(record.Batches[idx].History, entry)
			}
		default:
			// Job history is newest-first; rows arrive oldest-first, so prepend.
			record.History = append([]job.HistoryEntry{entry}, record.History...)
		}
	}
	return rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*job.Job, error) {
	var (
		id          string
		code        string
		customer    string
		description string
		quantity    int
		stage       string
		qcStatus    string
		completed   sql.NullInt64
		skippedRaw  sql.NullString
		dispatch    string
		rejection   sql.NullString
		statusRaw   sql.NullString
		timesRaw    sql.NullString
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(&id, &code, &customer, &description, &quantity, &stage,
		&qcStatus, &completed, &skippedRaw, &dispatch, &rejection, &statusRaw,
		&timesRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	record := &job.Job{
		ID:              id,
		Code:            code,
		Customer:        customer,
		Description:     description,
		TotalQuantity:   quantity,
		CurrentStage:    pipeline.Stage(stage),
		QCStatus:        job.QCStatus(qcStatus),
		DispatchStatus:  job.DispatchStatus(dispatch),
		RejectionReason: rejection.String,
	}
	if completed.Valid {
		record.Completed = completed.Int64 != 0
	}

	skipped, err := unmarshalSkippedStages(skippedRaw.String)
	if err != nil {
		return nil, err
	}
	record.SkippedStages = skipped

	stageStatus, err := unmarshalStageStatus(statusRaw.String)
	if err != nil {
		return nil, err
	}
	record.StageStatus = stageStatus

	stageTimes, err := unmarshalStageTimes(timesRaw.String)
	if err != nil {
		return nil, err
	}
	record.StageTimes = stageTimes

	if created, err := parseTimeString(createdRaw); err == nil {
		record.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		record.UpdatedAt = updated
	}
	return record, nil
}

// Remove deletes a job aggregate by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes all jobs, batches, and history.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of jobs grouped by current stage, in pipeline order.
func (s *Store) Stats(ctx context.Context) (map[pipeline.Stage]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT current_stage, COUNT(1) FROM jobs GROUP BY current_stage`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[pipeline.Stage]int)
	for rows.Next() {
		var stage string
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, err
		}
		stats[pipeline.Stage(stage)] = count
	}
	return stats, rows.Err()
}
