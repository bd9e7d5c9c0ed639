package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DueReminders returns batches whose follow-up reminder is at or before the
// cutoff. Scrapped batches never remind.
func (s *Store) DueReminders(ctx context.Context, cutoff time.Time) ([]ReminderDue, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT b.job_id, j.code, b.id, b.stage, b.quantity, b.status, b.pending_since, b.next_reminder
         FROM batches b
         JOIN jobs j ON j.id = b.job_id
         WHERE b.next_reminder IS NOT NULL
           AND b.next_reminder <= ?
           AND b.scrapped = 0
         ORDER BY b.next_reminder, b.job_id, b.id`,
		formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer rows.Close()

	var due []ReminderDue
	for rows.Next() {
		var (
			reminder    ReminderDue
			pendingRaw  sql.NullString
			reminderRaw string
		)
		if err := rows.Scan(&reminder.JobID, &reminder.JobCode, &reminder.BatchID,
			&reminder.Stage, &reminder.Quantity, &reminder.Status,
			&pendingRaw, &reminderRaw); err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		if pendingRaw.Valid {
			reminder.PendingSince = parseTimePtr(pendingRaw.String)
		}
		if at, err := parseTimeString(reminderRaw); err == nil {
			reminder.NextReminder = at
		}
		due = append(due, reminder)
	}
	return due, rows.Err()
}

// BumpReminder reschedules a batch's next reminder after one has fired.
func (s *Store) BumpReminder(ctx context.Context, jobID, batchID string, next time.Time) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE batches SET next_reminder = ? WHERE job_id = ? AND id = ?`,
		formatTime(next), jobID, batchID)
	if err != nil {
		return fmt.Errorf("bump reminder: %w", err)
	}
	if _, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	return nil
}
