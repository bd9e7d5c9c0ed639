package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// JobView describes a job in a transport-friendly format.
type JobView struct {
	ID              string                     `json:"id"`
	Code            string                     `json:"code"`
	Customer        string                     `json:"customer"`
	Description     string                     `json:"description,omitempty"`
	TotalQuantity   int                        `json:"totalQuantity"`
	CurrentStage    string                     `json:"currentStage"`
	QCStatus        string                     `json:"qcStatus"`
	Completed       bool                       `json:"completed"`
	SkippedStages   []string                   `json:"skippedStages,omitempty"`
	DispatchStatus  string                     `json:"dispatchStatus,omitempty"`
	RejectionReason string                     `json:"rejectionReason,omitempty"`
	Batches         []BatchView                `json:"batches,omitempty"`
	History         []HistoryView              `json:"history,omitempty"`
	StageStatus     map[string]StageRecordView `json:"stageStatus,omitempty"`
	StageTimesMS    map[string]int64           `json:"stageTimesMs,omitempty"`
	CreatedAt       string                     `json:"createdAt,omitempty"`
	UpdatedAt       string                     `json:"updatedAt,omitempty"`
}

// BatchView describes a batch in a transport-friendly format.
type BatchView struct {
	ID                string        `json:"id"`
	JobID             string        `json:"jobId"`
	Stage             string        `json:"stage"`
	Quantity          int           `json:"quantity"`
	Status            string        `json:"status"`
	ReprocessCount    int           `json:"reprocessCount"`
	PendingSince      string        `json:"pendingSince,omitempty"`
	NextReminder      string        `json:"nextReminder,omitempty"`
	RejectionReason   string        `json:"rejectionReason,omitempty"`
	ReturnOriginStage string        `json:"returnOriginStage,omitempty"`
	Scrapped          bool          `json:"scrapped"`
	ScrapReason       string        `json:"scrapReason,omitempty"`
	History           []HistoryView `json:"history,omitempty"`
	CreatedAt         string        `json:"createdAt,omitempty"`
	UpdatedAt         string        `json:"updatedAt,omitempty"`
}

// HistoryView describes one audit entry.
type HistoryView struct {
	ID        string `json:"id"`
	JobID     string `json:"jobId"`
	BatchID   string `json:"batchId,omitempty"`
	Action    string `json:"action"`
	Stage     string `json:"stage"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	Details   string `json:"details,omitempty"`
}

// StageRecordView describes per-stage progress on a job.
type StageRecordView struct {
	Status      string   `json:"status"`
	StartedAt   string   `json:"startedAt,omitempty"`
	CompletedAt string   `json:"completedAt,omitempty"`
	Workers     []string `json:"workers,omitempty"`
	QCBy        string   `json:"qcBy,omitempty"`
	QCDate      string   `json:"qcDate,omitempty"`
}

// TransitionRequest carries one requested job or batch transition.
type TransitionRequest struct {
	Action   string `json:"action"`
	User     string `json:"user"`
	BatchID  string `json:"batchId,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Stage    string `json:"stage,omitempty"`
	Status   string `json:"status,omitempty"`
}

// TransitionResponse reports the outcome of a transition request.
type TransitionResponse struct {
	Applied bool    `json:"applied"`
	Job     JobView `json:"job"`
}

// CreateJobRequest carries a new order registration.
type CreateJobRequest struct {
	ID          string `json:"id,omitempty"`
	Code        string `json:"code"`
	Customer    string `json:"customer"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	User        string `json:"user"`
}

// JobListResponse wraps a collection of jobs for API responses.
type JobListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job JobView `json:"job"`
}

// StatsResponse provides job counts keyed by stage.
type StatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running   bool   `json:"running"`
	LastPoll  string `json:"lastPoll,omitempty"`
	LastError string `json:"lastError,omitempty"`
	Total     int    `json:"total"`
	Active    int    `json:"active"`
	Completed int    `json:"completed"`
	Scrapped  int    `json:"scrapped"`
}

// EventView describes one published transition event.
type EventView struct {
	Sequence  uint64 `json:"seq"`
	Timestamp string `json:"ts"`
	JobID     string `json:"jobId"`
	JobCode   string `json:"jobCode,omitempty"`
	BatchID   string `json:"batchId,omitempty"`
	Action    string `json:"action"`
	Stage     string `json:"stage,omitempty"`
	User      string `json:"user,omitempty"`
	Details   string `json:"details,omitempty"`
}

// EventStreamResponse wraps a batch of transition events plus the cursor to
// resume from.
type EventStreamResponse struct {
	Events []EventView `json:"events"`
	Next   uint64      `json:"next"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool           `json:"running"`
	PID          int            `json:"pid"`
	DBPath       string         `json:"dbPath"`
	LockFilePath string         `json:"lockFilePath"`
	Workflow     WorkflowStatus `json:"workflow"`
}
