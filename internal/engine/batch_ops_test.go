package engine_test

import (
	"testing"

	"fabline/internal/engine"
	"fabline/internal/job"
	"fabline/internal/pipeline"
)

// productionJob returns a 100-piece order advanced past design with its
// initial batch created at cutting.
func productionJob(t *testing.T, e *engine.Engine) job.Job {
	t.Helper()
	j := newOrder(t, e, 100)
	j = e.CompleteStage(j, "alice")
	j = e.ApproveQC(j, "qc-bob")
	if j.CurrentStage != pipeline.StageCutting {
		t.Fatalf("setup: stage = %s", j.CurrentStage)
	}
	return e.CreateInitialBatch(j)
}

func TestCreateInitialBatch(t *testing.T) {
	e := testEngine(t)
	j := newOrder(t, e, 100)
	j = e.CreateInitialBatch(j)

	if len(j.Batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(j.Batches))
	}
	b := j.Batches[0]
	if b.ID != "B1" || b.Quantity != 100 || b.Status != job.BatchPending || b.Stage != pipeline.StageDesign {
		t.Fatalf("unexpected initial batch: %#v", b)
	}
	if b.PendingSince == nil || b.NextReminder == nil {
		t.Fatal("expected reminder stamps on pending batch")
	}
	if got, want := b.NextReminder.Hour(), 9; got != want {
		t.Fatalf("reminder hour = %d, expected %d", got, want)
	}
	if !b.NextReminder.After(*b.PendingSince) {
		t.Fatal("reminder must be after pendingSince")
	}

	// Idempotent: a second call changes nothing.
	again := e.CreateInitialBatch(j)
	if len(again.Batches) != 1 || len(again.Batches[0].History) != len(b.History) {
		t.Fatal("createInitialBatch must be idempotent")
	}
}

func TestUpdateBatchStatusHistoryActions(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)

	cases := []struct {
		status job.BatchStatus
		action job.HistoryAction
	}{
		{job.BatchInProgress, job.ActionStart},
		{job.BatchCompleted, job.ActionComplete},
		{job.BatchRejected, job.ActionQCReject},
		{job.BatchOKQuality, job.ActionQCApprove},
	}
	for _, tc := range cases {
		j = e.UpdateBatchStatus(j, "B1", tc.status, "alice", "")
		b := j.Batches[0]
		if b.Status != tc.status {
			t.Fatalf("status = %s, expected %s", b.Status, tc.status)
		}
		newest := b.History[len(b.History)-1]
		if newest.Action != tc.action {
			t.Fatalf("status %s recorded action %s, expected %s", tc.status, newest.Action, tc.action)
		}
	}

	b := j.Batches[0]
	if b.NextReminder == nil {
		t.Fatal("ok_quality must restamp the reminder clock")
	}
}

func TestUpdateBatchStatusUnknownBatchIsNoop(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	before := len(j.Batches[0].History)
	out := e.UpdateBatchStatus(j, "B99", job.BatchCompleted, "alice", "")
	if len(out.Batches[0].History) != before || out.Batches[0].Status != j.Batches[0].Status {
		t.Fatal("unknown batch id must echo the job unchanged")
	}
}

func TestReprocessBatchCountsRounds(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j = e.UpdateBatchStatus(j, "B1", job.BatchRejected, "qc-bob", "weld spatter")
	j = e.ReprocessBatch(j, "B1", "alice")
	j = e.UpdateBatchStatus(j, "B1", job.BatchRejected, "qc-bob", "still failing")
	j = e.ReprocessBatch(j, "B1", "alice")

	b := j.Batches[0]
	if b.Status != job.BatchPending {
		t.Fatalf("status = %s, expected pending", b.Status)
	}
	if b.ReprocessCount != 2 {
		t.Fatalf("reprocess count = %d, expected 2", b.ReprocessCount)
	}
	if b.PendingSince == nil || b.NextReminder == nil {
		t.Fatal("reprocess must restamp the reminder clock")
	}
}

func TestSplitBatchConservesQuantity(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j = e.SplitBatch(j, "B1", 60, "alice")

	if len(j.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(j.Batches))
	}
	b1, b2 := j.Batches[0], j.Batches[1]
	if b1.ID != "B1" || b1.Quantity != 60 || b1.Status != job.BatchCompleted {
		t.Fatalf("original after split: %#v", b1)
	}
	if b2.ID != "B2" || b2.Quantity != 40 || b2.Status != job.BatchPending {
		t.Fatalf("new batch after split: %#v", b2)
	}
	if b1.Stage != pipeline.StageCutting || b2.Stage != pipeline.StageCutting {
		t.Fatal("both halves must stay at the split stage")
	}
	if !j.QuantityBalanced() {
		t.Fatalf("quantity conservation violated: %d of %d", j.BatchQuantityTotal(), j.TotalQuantity)
	}
}

func TestSplitBatchFullQuantityDegradesToCompletion(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j = e.SplitBatch(j, "B1", 100, "alice")
	if len(j.Batches) != 1 {
		t.Fatalf("full-quantity split must not create a batch, got %d", len(j.Batches))
	}
	if j.Batches[0].Status != job.BatchCompleted {
		t.Fatalf("status = %s, expected completed", j.Batches[0].Status)
	}
}

func TestSplitBatchIDsStayUniqueAcrossSplits(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j = e.SplitBatch(j, "B1", 50, "alice")
	j = e.SplitBatch(j, "B2", 20, "alice")
	j = e.SplitBatch(j, "B3", 10, "alice")

	seen := map[string]bool{}
	for _, b := range j.Batches {
		if seen[b.ID] {
			t.Fatalf("duplicate batch id %s", b.ID)
		}
		seen[b.ID] = true
	}
	if !seen["B4"] {
		t.Fatalf("expected suffixes to increase, batches: %v", seen)
	}
	if !j.QuantityBalanced() {
		t.Fatal("quantity conservation violated across repeated splits")
	}
}

func TestMoveBatchToNextStageRespectsSkips(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j.SkippedStages = []pipeline.Stage{pipeline.StageBending, pipeline.StagePunching}

	j = e.MoveBatchToNextStage(j, "B1", "qc-bob")
	b := j.Batches[0]
	if b.Stage != pipeline.StageFabrication {
		t.Fatalf("batch stage = %s, expected fabrication", b.Stage)
	}
	if b.Status != job.BatchPending {
		t.Fatalf("batch status = %s, expected pending", b.Status)
	}
	newest := b.History[len(b.History)-1]
	if newest.Action != job.ActionQCApprove {
		t.Fatalf("move recorded %s, expected qc_approve", newest.Action)
	}
}

func TestMoveBatchTerminalCompletes(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j.Batches[0].Stage = pipeline.StageDispatch
	j = e.MoveBatchToNextStage(j, "B1", "qc-bob")
	if j.Batches[0].Status != job.BatchCompleted {
		t.Fatalf("status = %s, expected completed at end of sequence", j.Batches[0].Status)
	}
}

func TestCurrentStageIsProjectionOfBatches(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)
	j = e.SplitBatch(j, "B1", 60, "alice")
	j = e.UpdateBatchStatus(j, "B1", job.BatchOKQuality, "qc-bob", "")

	// Advance B1 twice; B2 stays at cutting.
	j = e.MoveBatchToNextStage(j, "B1", "qc-bob")
	j = e.MoveBatchToNextStage(j, "B1", "qc-bob")

	most := pipeline.MostAdvanced(batchStages(j))
	if j.CurrentStage != most {
		t.Fatalf("currentStage = %s, projection = %s", j.CurrentStage, most)
	}
	if j.CurrentStage != pipeline.StagePunching {
		t.Fatalf("currentStage = %s, expected punching", j.CurrentStage)
	}
}

func batchStages(j job.Job) []pipeline.Stage {
	stages := make([]pipeline.Stage, 0, len(j.Batches))
	for _, b := range j.Batches {
		stages = append(stages, b.Stage)
	}
	return stages
}

func TestBatchHistoryAppendOnly(t *testing.T) {
	e := testEngine(t)
	j := productionJob(t, e)

	var lengths []int
	record := func(out job.Job) {
		total := 0
		for _, b := range out.Batches {
			total += len(b.History)
		}
		lengths = append(lengths, total)
	}
	record(j)

	j = e.UpdateBatchStatus(j, "B1", job.BatchInProgress, "alice", "")
	record(j)
	j = e.SplitBatch(j, "B1", 60, "alice")
	record(j)
	j = e.MoveBatchToNextStage(j, "B2", "qc-bob")
	record(j)

	// Split writes the completion entry on the original and a birth entry on
	// the new batch; every other operation appends exactly one entry.
	expectedDeltas := []int{1, 2, 1}
	for i, delta := range expectedDeltas {
		if lengths[i+1]-lengths[i] != delta {
			t.Fatalf("op %d history delta = %d, expected %d", i, lengths[i+1]-lengths[i], delta)
		}
	}
}
