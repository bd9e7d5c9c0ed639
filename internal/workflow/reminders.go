package workflow

import (
	"context"
	"errors"
	"time"

	"fabline/internal/logging"
	"fabline/internal/store"
)

// Start begins the background reminder loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.runReminders(runCtx)
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runReminders(ctx context.Context) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(m.pollInterval):
		}
		m.PollReminders(ctx)
	}
}

// PollReminders fires follow-up notifications for every batch whose reminder
// has come due, then reschedules each for the next morning.
func (m *Manager) PollReminders(ctx context.Context) {
	now := time.Now()
	due, err := m.store.DueReminders(ctx, now)
	if err != nil {
		m.setLastError(err)
		m.logger.Error("reminder poll failed", logging.Error(err))
		return
	}
	m.mu.Lock()
	m.lastPoll = now
	m.mu.Unlock()

	for _, reminder := range due {
		if err := m.notifier.NotifyReworkDue(ctx, reminder.JobCode, reminder.BatchID, reminder.Stage, reminder.Quantity); err != nil {
			m.logger.Warn("reminder notification failed",
				logging.String(logging.FieldJobID, reminder.JobID),
				logging.String(logging.FieldBatchID, reminder.BatchID),
				logging.Error(err),
			)
		}
		next := m.nextReminderTime(now)
		if err := m.store.BumpReminder(ctx, reminder.JobID, reminder.BatchID, next); err != nil {
			m.setLastError(err)
			m.logger.Error("reminder reschedule failed",
				logging.String(logging.FieldJobID, reminder.JobID),
				logging.String(logging.FieldBatchID, reminder.BatchID),
				logging.Error(err),
			)
			continue
		}
		m.logger.Info("rework reminder sent",
			logging.String(logging.FieldJobID, reminder.JobID),
			logging.String(logging.FieldBatchID, reminder.BatchID),
			logging.String(logging.FieldStage, reminder.Stage),
		)
	}
}

// nextReminderTime returns the next calendar day at the configured reminder
// hour in local time.
func (m *Manager) nextReminderTime(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), m.reminderHour, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, 1)
}

// Status describes the manager's runtime state.
type Status struct {
	Running   bool
	LastPoll  time.Time
	LastError string
	Health    store.HealthSummary
}

// Status reports whether the reminder loop is running and summarizes store
// health.
func (m *Manager) Status(ctx context.Context) Status {
	m.mu.Lock()
	status := Status{
		Running:  m.running,
		LastPoll: m.lastPoll,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	m.mu.Unlock()

	if health, err := m.store.Health(ctx); err == nil {
		status.Health = health
	}
	return status
}
