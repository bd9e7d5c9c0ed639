package engine

import (
	"fmt"

	"fabline/internal/job"
	"fabline/internal/pipeline"
)

// HandleCustomerReturn routes delivered quantity sent back by a customer.
// A full return relabels the batch in place; a partial return shrinks the
// original (which stays delivered) and creates a dedicated return batch at
// dispatch carrying the returned quantity and the stage it must re-enter.
// Quantities are conserved across the split.
func (e *Engine) HandleCustomerReturn(in job.Job, batchID string, returnQty int, reason string, originStage pipeline.Stage, user string) job.Job {
	j := in.Clone()
	idx := j.FindBatch(batchID)
	if idx < 0 || returnQty <= 0 {
		return j
	}
	now := e.now()
	b := &j.Batches[idx]

	if returnQty >= b.Quantity {
		b.Status = job.BatchReturned
		b.ReturnOriginStage = originStage
		b.RejectionReason = reason
		recordBatchHistory(&j, b, job.ActionForBatchStatus(job.BatchReturned),
			user, fmt.Sprintf("customer returned %d pcs: %s", b.Quantity, reason), now)
		return j
	}

	newID := j.NextReturnBatchID()
	b.Quantity -= returnQty
	b.UpdatedAt = now

	ret := job.Batch{
		ID:                newID,
		JobID:             j.ID,
		Stage:             pipeline.StageDispatch,
		Quantity:          returnQty,
		Status:            job.BatchReturned,
		ReturnOriginStage: originStage,
		RejectionReason:   reason,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	ret.History = append(ret.History, job.NewHistoryEntry(
		j.ID, newID, job.ActionCreate, ret.Stage, user,
		fmt.Sprintf("customer returned %d pcs from %s: %s", returnQty, batchID, reason), now))
	j.Batches = append(j.Batches, ret)
	j.UpdatedAt = now
	return j
}

// ReprocessReturnBatch re-enters a returned batch into production at an
// arbitrary target stage. Returns do not follow sequential advancement:
// the origin of the defect decides where work restarts.
func (e *Engine) ReprocessReturnBatch(in job.Job, batchID string, targetStage pipeline.Stage, user string) job.Job {
	j := in.Clone()
	idx := j.FindBatch(batchID)
	if idx < 0 || pipeline.Index(targetStage) < 0 {
		return j
	}
	b := &j.Batches[idx]
	if b.Status != job.BatchReturned {
		return j
	}
	now := e.now()
	b.Stage = targetStage
	b.Status = job.BatchPending
	b.ReprocessCount++
	b.ReturnOriginStage = ""
	stampPending(b, now)
	recordBatchHistory(&j, b, job.ActionStart, user, fmt.Sprintf("return re-entered production at %s", targetStage), now)
	reconcileCurrentStage(&j)
	return j
}

// ScrapBatch permanently removes a batch from production. Terminal: scrapped
// batches are excluded from all further routing and reminders.
func (e *Engine) ScrapBatch(in job.Job, batchID, reason, user string) job.Job {
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
	b.Status = job.BatchScrapped
	b.Scrapped = true
	b.ScrapReason = reason
	b.NextReminder = nil
	recordBatchHistory(&j, b, job.ActionForBatchStatus(job.BatchScrapped),
		user, fmt.Sprintf("scrapped: %s", reason), now)
	return j
}
