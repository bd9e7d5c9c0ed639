package api

import (
	"time"

	"fabline/internal/events"
	"fabline/internal/job"
	"fabline/internal/workflow"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimestampPtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTimestamp(*t)
}

// FromJob converts a job aggregate into its API view.
func FromJob(j *job.Job) JobView {
	if j == nil {
		return JobView{}
	}
	view := JobView{
		ID:              j.ID,
		Code:            j.Code,
		Customer:        j.Customer,
		Description:     j.Description,
		TotalQuantity:   j.TotalQuantity,
		CurrentStage:    string(j.CurrentStage),
		QCStatus:        string(j.QCStatus),
		Completed:       j.Completed,
		DispatchStatus:  string(j.DispatchStatus),
		RejectionReason: j.RejectionReason,
		CreatedAt:       formatTimestamp(j.CreatedAt),
		UpdatedAt:       formatTimestamp(j.UpdatedAt),
	}
	for _, stage := range j.SkippedStages {
		view.SkippedStages = append(view.SkippedStages, string(stage))
	}
	for i := range j.Batches {
		view.Batches = append(view.Batches, FromBatch(&j.Batches[i]))
	}
	for _, entry := range j.History {
		view.History = append(view.History, FromHistory(entry))
	}
	if len(j.StageStatus) > 0 {
		view.StageStatus = make(map[string]StageRecordView, len(j.StageStatus))
		for stage, rec := range j.StageStatus {
			view.StageStatus[string(stage)] = StageRecordView{
				Status:      string(rec.Status),
				StartedAt:   formatTimestampPtr(rec.StartedAt),
				CompletedAt: formatTimestampPtr(rec.CompletedAt),
				Workers:     append([]string(nil), rec.Workers...),
				QCBy:        rec.QCBy,
				QCDate:      formatTimestampPtr(rec.QCDate),
			}
		}
	}
	if len(j.StageTimes) > 0 {
		view.StageTimesMS = make(map[string]int64, len(j.StageTimes))
		for stage, ms := range j.StageTimes {
			view.StageTimesMS[string(stage)] = ms
		}
	}
	return view
}

// FromJobs converts a list of job aggregates.
func FromJobs(jobs []*job.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, FromJob(j))
	}
	return views
}

// FromBatch converts a batch into its API view.
func FromBatch(b *job.Batch) BatchView {
	if b == nil {
		return BatchView{}
	}
	view := BatchView{
		ID:                b.ID,
		JobID:             b.JobID,
		Stage:             string(b.Stage),
		Quantity:          b.Quantity,
		Status:            string(b.Status),
		ReprocessCount:    b.ReprocessCount,
		PendingSince:      formatTimestampPtr(b.PendingSince),
		NextReminder:      formatTimestampPtr(b.NextReminder),
		RejectionReason:   b.RejectionReason,
		ReturnOriginStage: string(b.ReturnOriginStage),
		Scrapped:          b.Scrapped,
		ScrapReason:       b.ScrapReason,
		CreatedAt:         formatTimestamp(b.CreatedAt),
		UpdatedAt:         formatTimestamp(b.UpdatedAt),
	}
	for _, entry := range b.History {
		view.History = append(view.History, FromHistory(entry))
	}
	return view
}

// FromWorkflowStatus converts manager status into its API view.
func FromWorkflowStatus(status workflow.Status) WorkflowStatus {
	view := WorkflowStatus{
		Running:   status.Running,
		LastError: status.LastError,
		Total:     status.Health.Total,
		Active:    status.Health.Active,
		Completed: status.Health.Completed,
		Scrapped:  status.Health.Scrapped,
	}
	if !status.LastPoll.IsZero() {
		view.LastPoll = formatTimestamp(status.LastPoll)
	}
	return view
}

// FromEvents converts hub events into their API views.
func FromEvents(evts []events.JobEvent) []EventView {
	if len(evts) == 0 {
		return nil
	}
	out := make([]EventView, 0, len(evts))
	for _, evt := range evts {
		out = append(out, EventView{
			Sequence:  evt.Sequence,
			Timestamp: formatTimestamp(evt.Timestamp),
			JobID:     evt.JobID,
			JobCode:   evt.JobCode,
			BatchID:   evt.BatchID,
			Action:    evt.Action,
			Stage:     evt.Stage,
			User:      evt.User,
			Details:   evt.Details,
		})
	}
	return out
}

// FromHistory converts an audit entry into its API view.
func FromHistory(entry job.HistoryEntry) HistoryView {
	return HistoryView{
		ID:        entry.ID,
		JobID:     entry.JobID,
		BatchID:   entry.BatchID,
		Action:    string(entry.Action),
		Stage:     string(entry.Stage),
		Timestamp: formatTimestamp(entry.Timestamp),
		User:      entry.User,
		Details:   entry.Details,
	}
}
