package engine

import (
	"fmt"

	"fabline/internal/job"
	"fabline/internal/pipeline"
)

// CreateInitialBatch lazily synthesizes batch B1 carrying the job's full
// quantity at the job's current stage. Idempotent: a job that already has
// batches is echoed back unchanged.
func (e *Engine) CreateInitialBatch(in job.Job) job.Job {
	j := in.Clone()
	if len(j.Batches) > 0 {
		return j
	}
	now := e.now()
	b := job.Batch{
		ID:        "B1",
		JobID:     j.ID,
		Stage:     j.CurrentStage,
		Quantity:  j.TotalQuantity,
		Status:    job.BatchPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stampPending(&b, now)
	recordBatchHistory(&j, &b, job.ActionCreate, "", fmt.Sprintf("batch created: %d pcs", b.Quantity), now)
	j.Batches = append(j.Batches, b)
	return j
}

// UpdateBatchStatus sets a batch's status. Statuses that put the batch back
// into a waiting state (pending, ok_quality) restart the follow-up reminder
// clock. Unknown batch ids echo the job unchanged.
func (e *Engine) UpdateBatchStatus(in job.Job, batchID string, status job.BatchStatus, user, reason string) job.Job {
	j := in.Clone()
	idx := j.FindBatch(batchID)
	if idx < 0 {
		return j
	}
	now := e.now()
	b := &j.Batches[idx]
	b.Status = status
	if status == job.BatchPending || status == job.BatchOKQuality {
		stampPending(b, now)
	}
	if status == job.BatchRejected && reason != "" {
		b.RejectionReason = reason
	}
	details := fmt.Sprintf("status set to %s", status)
	if reason != "" {
		details = fmt.Sprintf("%s: %s", details, reason)
	}
	recordBatchHistory(&j, b, job.ActionForBatchStatus(status), user, details, now)
	return j
}

// ReprocessBatch resets a batch to pending for rework after a batch-level QC
// rejection, counting the reprocess round and restarting the reminder clock.
func (e *Engine) ReprocessBatch(in job.Job, batchID, user string) job.Job {
	j := in.Clone()
	idx := j.FindBatch(batchID)
	if idx < 0 {
		return j
	}
	now := e.now()
	b := &j.Batches[idx]
	b.Status = job.BatchPending
	b.ReprocessCount++
	stampPending(b, now)
	recordBatchHistory(&j, b, job.ActionStart, user, fmt.Sprintf("reprocess round %d", b.ReprocessCount), now)
	return j
}

// SplitBatch divides a batch into a completed portion of doneQty and a new
// pending batch carrying the remainder at the same stage. When doneQty
// covers the whole batch this degrades to a plain completion. The two
// resulting quantities always sum to the original.
func (e *Engine) SplitBatch(in job.Job, batchID string, doneQty int, user string) job.Job {
	if doneQty <= 0 {
		return in.Clone()
	}
	j := in.Clone()
	idx := j.FindBatch(batchID)
	if idx < 0 {
		return j
	}
	if doneQty >= j.Batches[idx].Quantity {
		return e.UpdateBatchStatus(in, batchID, job.BatchCompleted, user, "")
	}

	now := e.now()
	newID := j.NextBatchID()
	b := &j.Batches[idx]
	remainder := b.Quantity - doneQty
	b.Quantity = doneQty
	b.Status = job.BatchCompleted
	recordBatchHistory(&j, b, job.ActionComplete,
		user, fmt.Sprintf("%d pcs done, %d pcs continue as %s", doneQty, remainder, newID), now)

	rest := job.Batch{
		ID:        newID,
		JobID:     j.ID,
		Stage:     b.Stage,
		Quantity:  remainder,
		Status:    job.BatchPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stampPending(&rest, now)
	rest.History = append(rest.History, job.NewHistoryEntry(
		j.ID, newID, job.ActionCreate, rest.Stage, user,
		fmt.Sprintf("split from %s: %d pcs", batchID, remainder), now))
	j.Batches = append(j.Batches, rest)
	return j
}

// MoveBatchToNextStage is the QC approval step for a batch: it resolves the
// next stage from the batch's own position, moves the batch there as fresh
// pending work, or completes the batch when the walk is exhausted. The job's
// displayed stage is reconciled from the batch collection afterwards.
func (e *Engine) MoveBatchToNextStage(in job.Job, batchID, user string) job.Job {
	j := in.Clone()
	idx := j.FindBatch(batchID)
	if idx < 0 {
		return j
	}
	b := &j.Batches[idx]
	if b.Scrapped {
		return j
	}
	now := e.now()
	next := pipeline.Next(b.Stage, j.SkippedStages)
	if next == pipeline.StageCompleted {
		b.Status = job.BatchCompleted
		recordBatchHistory(&j, b, job.ActionQCApprove, user, "process finished", now)
		reconcileCurrentStage(&j)
		return j
	}
	b.Stage = next
	b.Status = job.BatchPending
	stampPending(b, now)
	recordBatchHistory(&j, b, job.ActionQCApprove, user, fmt.Sprintf("QC approved, moved to %s", next), now)
	reconcileCurrentStage(&j)
	return j
}
