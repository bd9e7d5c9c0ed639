package engine

import (
	"fmt"

	"github.com/google/uuid"

	"fabline/internal/job"
	"fabline/internal/pipeline"
)

// NewJobParams describes a new customer order.
type NewJobParams struct {
	ID          string
	Code        string
	Customer    string
	Description string
	Quantity    int
}

// NewJob creates a job at the design stage with an empty batch list and a
// single CREATE history entry. When no id is supplied one is generated.
func (e *Engine) NewJob(params NewJobParams, user string) job.Job {
	now := e.now()
	id := params.ID
	if id == "" {
		id = uuid.NewString()
	}
	j := job.Job{
		ID:            id,
		Code:          params.Code,
		Customer:      params.Customer,
		Description:   params.Description,
		TotalQuantity: params.Quantity,
		CurrentStage:  pipeline.StageDesign,
		QCStatus:      job.QCPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	recordJobHistory(&j, job.ActionCreate, user, fmt.Sprintf("order created: %d pcs", params.Quantity), now)
	return j
}

// StartStage marks the current stage in progress, stamps a start time, and
// assigns the acting user to the stage. Assignment is recorded per call
// without deduplication; repeated starts by the same user append again.
func (e *Engine) StartStage(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.Completed {
		return j
	}
	now := e.now()
	rec := stageRecord(&j, j.CurrentStage)
	rec.Status = job.StageInProgress
	if rec.StartedAt == nil {
		started := now
		rec.StartedAt = &started
	}
	rec.Workers = append(rec.Workers, user)
	setStageRecord(&j, j.CurrentStage, rec)
	recordJobHistory(&j, job.ActionStart, user, fmt.Sprintf("started %s", j.CurrentStage), now)
	return j
}

// PauseStage suspends work on the current stage. Elapsed time is banked into
// the stage total and the stage drops back to pending so it shows up as open
// work rather than in-flight.
func (e *Engine) PauseStage(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.Completed {
		return j
	}
	rec := stageRecord(&j, j.CurrentStage)
	if rec.Status != job.StageInProgress {
		return j
	}
	now := e.now()
	if rec.StartedAt != nil {
		accumulateStageTime(&j, j.CurrentStage, *rec.StartedAt, now)
		rec.StartedAt = nil
	}
	rec.Status = job.StagePending
	setStageRecord(&j, j.CurrentStage, rec)
	recordJobHistory(&j, job.ActionPause, user, fmt.Sprintf("paused %s", j.CurrentStage), now)
	return j
}

// CompleteStage stamps the current stage completed. At dispatch the job
// becomes permanently completed; at every earlier stage the job stops at the
// QC gate and cannot advance until QC acts.
func (e *Engine) CompleteStage(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.Completed {
		return j
	}
	now := e.now()
	rec := stageRecord(&j, j.CurrentStage)
	rec.Status = job.StageCompleted
	completed := now
	rec.CompletedAt = &completed
	if rec.StartedAt != nil {
		accumulateStageTime(&j, j.CurrentStage, *rec.StartedAt, now)
	}
	setStageRecord(&j, j.CurrentStage, rec)

	if j.CurrentStage == pipeline.StageDispatch {
		j.Completed = true
		recordJobHistory(&j, job.ActionComplete, user, "dispatch complete, order finished", now)
		return j
	}
	j.QCStatus = job.QCReady
	recordJobHistory(&j, job.ActionComplete, user, fmt.Sprintf("completed %s, awaiting QC", j.CurrentStage), now)
	return j
}

// ApproveQC records QC approval on the current stage and advances the job to
// the next unskipped stage, or completes the job when none remain. The QC
// gate resets to pending for the new stage.
func (e *Engine) ApproveQC(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.Completed {
		return j
	}
	now := e.now()
	rec := stageRecord(&j, j.CurrentStage)
	rec.QCBy = user
	qcDate := now
	rec.QCDate = &qcDate
	setStageRecord(&j, j.CurrentStage, rec)

	next := pipeline.Next(j.CurrentStage, j.SkippedStages)
	if next == pipeline.StageCompleted {
		j.Completed = true
		j.QCStatus = job.QCApproved
		recordJobHistory(&j, job.ActionQCApprove, user, "QC approved, order finished", now)
		return j
	}
	recordJobHistory(&j, job.ActionQCApprove, user, fmt.Sprintf("QC approved, moved to %s", next), now)
	j.CurrentStage = next
	j.QCStatus = job.QCPending
	return j
}

// RejectQC sends the current stage back to open work without advancing.
// The rejection reason is kept as state; it drives rework routing and
// display, not just an error message.
func (e *Engine) RejectQC(in job.Job, user, reason string) job.Job {
	j := in.Clone()
	if j.Completed {
		return j
	}
	now := e.now()
	rec := stageRecord(&j, j.CurrentStage)
	rec.Status = job.StagePending
	rec.CompletedAt = nil
	setStageRecord(&j, j.CurrentStage, rec)
	j.QCStatus = job.QCPending
	j.RejectionReason = reason
	recordJobHistory(&j, job.ActionQCReject, user, fmt.Sprintf("QC rejected: %s", reason), now)
	return j
}

// SkipStage bypasses the current stage without a QC gate, recording the
// skip so all future next-stage resolution omits it. Design and dispatch
// are never skippable.
func (e *Engine) SkipStage(in job.Job, user, reason string) job.Job {
	j := in.Clone()
	if j.Completed || !pipeline.CanSkip(j.CurrentStage) {
		return j
	}
	now := e.now()
	if !j.StageSkipped(j.CurrentStage) {
		j.SkippedStages = append(j.SkippedStages, j.CurrentStage)
	}
	next := pipeline.Next(j.CurrentStage, j.SkippedStages)
	recordJobHistory(&j, job.ActionSkip, user, fmt.Sprintf("skipped %s: %s", j.CurrentStage, reason), now)
	if next == pipeline.StageCompleted {
		j.Completed = true
		return j
	}
	j.CurrentStage = next
	j.QCStatus = job.QCPending
	return j
}

// MarkDispatchReady flags a finished order as staged for pickup. It records
// the audit entry only; the dispatch status chain starts with MarkDispatched.
func (e *Engine) MarkDispatchReady(in job.Job, user string) job.Job {
	j := in.Clone()
	if !j.Completed || j.DispatchStatus != job.DispatchNone {
		return j
	}
	recordJobHistory(&j, job.ActionDispatchReady, user, "goods staged for dispatch", e.now())
	return j
}

// MarkDispatched starts the close-out chain for a finished order.
func (e *Engine) MarkDispatched(in job.Job, user string) job.Job {
	j := in.Clone()
	if !j.Completed || j.DispatchStatus != job.DispatchNone {
		return j
	}
	j.DispatchStatus = job.DispatchDispatched
	recordJobHistory(&j, job.ActionDispatch, user, "order dispatched to customer", e.now())
	return j
}

// GenerateInvoice records the invoice raised against a dispatched order.
func (e *Engine) GenerateInvoice(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.DispatchStatus != job.DispatchDispatched {
		return j
	}
	j.DispatchStatus = job.DispatchInvoicePending
	recordJobHistory(&j, job.ActionInvoiceGenerated, user, "invoice generated", e.now())
	return j
}

// RecordPayment records payment received against the invoice.
func (e *Engine) RecordPayment(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.DispatchStatus != job.DispatchInvoicePending {
		return j
	}
	j.DispatchStatus = job.DispatchPaymentPending
	recordJobHistory(&j, job.ActionPaymentReceived, user, "payment received", e.now())
	return j
}

// CloseOrder closes a paid order. Terminal for the dispatch chain.
func (e *Engine) CloseOrder(in job.Job, user string) job.Job {
	j := in.Clone()
	if j.DispatchStatus != job.DispatchPaymentPending {
		return j
	}
	j.DispatchStatus = job.DispatchClosed
	recordJobHistory(&j, job.ActionOrderClosed, user, "order closed", e.now())
	return j
}
