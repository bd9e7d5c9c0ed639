package engine

import (
	"time"

	"fabline/internal/job"
	"fabline/internal/pipeline"
)

// reminderHour is the local hour of day rework follow-up reminders land on.
const reminderHour = 9

// Engine computes job and batch state transitions. The zero value is not
// usable; construct with New.
type Engine struct {
	now func() time.Time
}

// New returns an engine stamping transitions with the wall clock.
func New() *Engine {
	return &Engine{now: time.Now}
}

// NewWithClock returns an engine using the provided clock. Used in tests.
func NewWithClock(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// nextReminderAfter returns the next calendar day at the reminder hour in
// the timestamp's location, the follow-up SLA marker for pending rework.
func nextReminderAfter(now time.Time) time.Time {
	day := time.Date(now.Year(), now.Month(), now.Day(), reminderHour, 0, 0, 0, now.Location())
	return day.AddDate(0, 0, 1)
}

// recordJobHistory prepends an entry to the job history (newest-first).
func recordJobHistory(j *job.Job, action job.HistoryAction, user, details string, at time.Time) {
	entry := job.NewHistoryEntry(j.ID, "", action, j.CurrentStage, user, details, at)
	history := make([]job.HistoryEntry, 0, len(j.History)+1)
	history = append(history, entry)
	history = append(history, j.History...)
	j.History = history
	j.UpdatedAt = at
}

// recordBatchHistory appends an entry to a batch history (oldest-first).
func recordBatchHistory(j *job.Job, b *job.Batch, action job.HistoryAction, user, details string, at time.Time) {
	entry := job.NewHistoryEntry(j.ID, b.ID, action, b.Stage, user, details, at)
	b.History = append(b.History, entry)
	b.UpdatedAt = at
	j.UpdatedAt = at
}

// stageRecord returns the job's record for a stage, synthesizing a pending
// record when none exists yet.
func stageRecord(j *job.Job, stage pipeline.Stage) job.StageRecord {
	if rec, ok := j.StageStatus[stage]; ok {
		return rec
	}
	return job.StageRecord{Status: job.StagePending}
}

func setStageRecord(j *job.Job, stage pipeline.Stage, rec job.StageRecord) {
	if j.StageStatus == nil {
		j.StageStatus = make(map[pipeline.Stage]job.StageRecord)
	}
	j.StageStatus[stage] = rec
}

// accumulateStageTime adds elapsed milliseconds to the job's per-stage total.
func accumulateStageTime(j *job.Job, stage pipeline.Stage, from, to time.Time) {
	if from.IsZero() || !to.After(from) {
		return
	}
	if j.StageTimes == nil {
		j.StageTimes = make(map[pipeline.Stage]int64)
	}
	j.StageTimes[stage] += to.Sub(from).Milliseconds()
}

// stampPending marks a batch as awaiting work and schedules its follow-up
// reminder for the next morning.
func stampPending(b *job.Batch, at time.Time) {
	since := at
	reminder := nextReminderAfter(at)
	b.PendingSince = &since
	b.NextReminder = &reminder
}

// reconcileCurrentStage recomputes the job's displayed stage as the most
// advanced stage among its batches. The job-level field is a projection of
// the batch collection, not an independent source of truth.
func reconcileCurrentStage(j *job.Job) {
	stages := make([]pipeline.Stage, 0, len(j.Batches))
	for i := range j.Batches {
		stages = append(stages, j.Batches[i].Stage)
	}
	if most := pipeline.MostAdvanced(stages); most != "" {
		j.CurrentStage = most
	}
}
