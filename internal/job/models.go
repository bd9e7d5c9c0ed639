package job

import (
	"strings"
	"time"

	"fabline/internal/pipeline"
)

// QCStatus tracks the quality-control gate for a job's current stage.
type QCStatus string

const (
	QCPending  QCStatus = "pending"
	QCReady    QCStatus = "ready_for_qc"
	QCApproved QCStatus = "approved"
	QCRejected QCStatus = "rejected"
)

// DispatchStatus tracks the post-production close-out sub-sequence.
type DispatchStatus string

const (
	DispatchNone           DispatchStatus = ""
	DispatchDispatched     DispatchStatus = "dispatched"
	DispatchInvoicePending DispatchStatus = "invoice_pending"
	DispatchPaymentPending DispatchStatus = "payment_pending"
	DispatchClosed         DispatchStatus = "closed"
)

// BatchStatus is the lifecycle of one batch within a job.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchInProgress BatchStatus = "in_progress"
	BatchCompleted  BatchStatus = "completed"
	BatchRejected   BatchStatus = "rejected"
	BatchOKQuality  BatchStatus = "ok_quality"
	BatchReturned   BatchStatus = "returned"
	BatchScrapped   BatchStatus = "scrapped"
)

// StageWorkStatus is the per-stage status recorded on a job.
type StageWorkStatus string

const (
	StagePending    StageWorkStatus = "pending"
	StageInProgress StageWorkStatus = "in_progress"
	StageCompleted  StageWorkStatus = "completed"
)

// StageRecord captures status, timing, and assignment for one stage of a job.
type StageRecord struct {
	Status      StageWorkStatus `json:"status"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Workers     []string        `json:"workers,omitempty"`
	QCBy        string          `json:"qc_by,omitempty"`
	QCDate      *time.Time      `json:"qc_date,omitempty"`
}

// Batch is an independently routed sub-quantity of a job's total.
type Batch struct {
	ID                string          `json:"id"`
	JobID             string          `json:"job_id"`
	Stage             pipeline.Stage  `json:"stage"`
	Quantity          int             `json:"quantity"`
	Status            BatchStatus     `json:"status"`
	ReprocessCount    int             `json:"reprocess_count"`
	PendingSince      *time.Time      `json:"pending_since,omitempty"`
	NextReminder      *time.Time      `json:"next_reminder,omitempty"`
	RejectionReason   string          `json:"rejection_reason,omitempty"`
	ReturnOriginStage pipeline.Stage  `json:"return_origin_stage,omitempty"`
	Scrapped          bool            `json:"scrapped"`
	ScrapReason       string          `json:"scrap_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	History           []HistoryEntry  `json:"history,omitempty"` // oldest-first
}

// Job is the unit of a customer order moving through the pipeline.
type Job struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	Customer      string         `json:"customer"`
	Description   string         `json:"description"`
	TotalQuantity int            `json:"total_quantity"`

	CurrentStage    pipeline.Stage   `json:"current_stage"`
	QCStatus        QCStatus         `json:"qc_status"`
	Completed       bool             `json:"completed"`
	SkippedStages   []pipeline.Stage `json:"skipped_stages,omitempty"`
	DispatchStatus  DispatchStatus   `json:"dispatch_status,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`

	Batches []Batch        `json:"batches,omitempty"`
	History []HistoryEntry `json:"history,omitempty"` // newest-first

	StageStatus map[pipeline.Stage]StageRecord `json:"stage_status,omitempty"`
	StageTimes  map[pipeline.Stage]int64       `json:"stage_times,omitempty"` // milliseconds

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the job. Every slice and map reference is
// fresh, so mutating the copy can never alias state visible to holders of
// the original.
func (j Job) Clone() Job {
	cp := j
	if j.SkippedStages != nil {
		cp.SkippedStages = make([]pipeline.Stage, len(j.SkippedStages))
		copy(cp.SkippedStages, j.SkippedStages)
	}
	if j.History != nil {
		cp.History = make([]HistoryEntry, len(j.History))
		copy(cp.History, j.History)
	}
	if j.Batches != nil {
		cp.Batches = make([]Batch, len(j.Batches))
		for i, batch := range j.Batches {
			cp.Batches[i] = batch.Clone()
		}
	}
	if j.StageStatus != nil {
		cp.StageStatus = make(map[pipeline.Stage]StageRecord, len(j.StageStatus))
		for stage, record := range j.StageStatus {
			cp.StageStatus[stage] = record.Clone()
		}
	}
	if j.StageTimes != nil {
		cp.StageTimes = make(map[pipeline.Stage]int64, len(j.StageTimes))
		for stage, ms := range j.StageTimes {
			cp.StageTimes[stage] = ms
		}
	}
	return cp
}

// Clone returns a deep copy of the batch with an owned history slice.
func (b Batch) Clone() Batch {
	cp := b
	if b.History != nil {
		cp.History = make([]HistoryEntry, len(b.History))
		copy(cp.History, b.History)
	}
	cp.PendingSince = cloneTime(b.PendingSince)
	cp.NextReminder = cloneTime(b.NextReminder)
	return cp
}

// Clone returns a deep copy of the stage record.
func (r StageRecord) Clone() StageRecord {
	cp := r
	if r.Workers != nil {
		cp.Workers = make([]string, len(r.Workers))
		copy(cp.Workers, r.Workers)
	}
	cp.StartedAt = cloneTime(r.StartedAt)
	cp.CompletedAt = cloneTime(r.CompletedAt)
	cp.QCDate = cloneTime(r.QCDate)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

// FindBatch returns the index of a batch within the job, or -1 when absent.
func (j Job) FindBatch(batchID string) int {
	for i := range j.Batches {
		if j.Batches[i].ID == batchID {
			return i
		}
	}
	return -1
}

// BatchQuantityTotal sums the quantities across all batches, regardless of
// status. When batches exist this should equal TotalQuantity; splits,
// returns, and scraps conserve quantity rather than consume it.
func (j Job) BatchQuantityTotal() int {
	total := 0
	for i := range j.Batches {
		total += j.Batches[i].Quantity
	}
	return total
}

// QuantityBalanced reports whether batch quantities still account for the
// job's total. Jobs with no batches yet are trivially balanced.
func (j Job) QuantityBalanced() bool {
	if len(j.Batches) == 0 {
		return true
	}
	return j.BatchQuantityTotal() == j.TotalQuantity
}

// StageSkipped reports whether a stage is in the job's skip set.
func (j Job) StageSkipped(stage pipeline.Stage) bool {
	for _, s := range j.SkippedStages {
		if s == stage {
			return true
		}
	}
	return false
}

// ParseBatchStatus converts a string into a known BatchStatus.
func ParseBatchStatus(value string) (BatchStatus, bool) {
	normalized := BatchStatus(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case BatchPending, BatchInProgress, BatchCompleted, BatchRejected,
		BatchOKQuality, BatchReturned, BatchScrapped:
		return normalized, true
	default:
		return "", false
	}
}
