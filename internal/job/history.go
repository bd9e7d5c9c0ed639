package job

import (
	"time"

	"github.com/google/uuid"

	"fabline/internal/pipeline"
)

// HistoryAction identifies the transition a history entry records.
type HistoryAction string

const (
	ActionCreate           HistoryAction = "create"
	ActionStart            HistoryAction = "start"
	ActionPause            HistoryAction = "pause"
	ActionComplete         HistoryAction = "complete"
	ActionSkip             HistoryAction = "skip"
	ActionQCApprove        HistoryAction = "qc_approve"
	ActionQCReject         HistoryAction = "qc_reject"
	ActionDispatchReady    HistoryAction = "dispatch_ready"
	ActionDispatch         HistoryAction = "dispatch"
	ActionInvoiceGenerated HistoryAction = "invoice_generated"
	ActionPaymentReceived  HistoryAction = "payment_received"
	ActionOrderClosed      HistoryAction = "order_closed"
)

// HistoryEntry is one immutable audit record. Entries are only ever appended;
// nothing in the system mutates or reorders them once written.
type HistoryEntry struct {
	ID        string         `json:"id"`
	JobID     string         `json:"job_id"`
	BatchID   string         `json:"batch_id,omitempty"`
	Action    HistoryAction  `json:"action"`
	Stage     pipeline.Stage `json:"stage"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Details   string         `json:"details,omitempty"`
}

// NewHistoryEntry builds an audit record for a transition. The acting user is
// recorded verbatim; identity validation belongs to the caller.
func NewHistoryEntry(jobID, batchID string, action HistoryAction, stage pipeline.Stage, user, details string, at time.Time) HistoryEntry {
	return HistoryEntry{
		ID:        uuid.NewString(),
		JobID:     jobID,
		BatchID:   batchID,
		Action:    action,
		Stage:     stage,
		Timestamp: at,
		User:      user,
		Details:   details,
	}
}

// ActionForBatchStatus derives the history action recorded when a batch
// enters a status: completion and QC verdicts get their own actions, every
// other status change reads as the start of new work on the batch.
func ActionForBatchStatus(status BatchStatus) HistoryAction {
	switch status {
	case BatchCompleted:
		return ActionComplete
	case BatchRejected:
		return ActionQCReject
	case BatchOKQuality:
		return ActionQCApprove
	default:
		return ActionStart
	}
}
