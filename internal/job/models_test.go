package job_test

import (
	"testing"
	"time"

	"fabline/internal/job"
	"fabline/internal/pipeline"
)

func sampleJob() job.Job {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	started := now.Add(-time.Hour)
	return job.Job{
		ID:            "job-1",
		Code:          "FAB-1001",
		Customer:      "Acme Sheet Metal",
		TotalQuantity: 100,
		CurrentStage:  pipeline.StageCutting,
		QCStatus:      job.QCPending,
		SkippedStages: []pipeline.Stage{pipeline.StagePowderCoating},
		Batches: []job.Batch{
			{
				ID:       "B1",
				JobID:    "job-1",
				Stage:    pipeline.StageCutting,
				Quantity: 60,
				Status:   job.BatchPending,
				History: []job.HistoryEntry{
					{ID: "h1", JobID: "job-1", BatchID: "B1", Action: job.ActionCreate},
				},
			},
			{ID: "B2", JobID: "job-1", Stage: pipeline.StageCutting, Quantity: 40, Status: job.BatchCompleted},
		},
		History: []job.HistoryEntry{
			{ID: "h0", JobID: "job-1", Action: job.ActionCreate},
		},
		StageStatus: map[pipeline.Stage]job.StageRecord{
			pipeline.StageCutting: {
				Status:    job.StageInProgress,
				StartedAt: &started,
				Workers:   []string{"alice"},
			},
		},
		StageTimes: map[pipeline.Stage]int64{pipeline.StageDesign: 3_600_000},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestCloneIsDeep(t *testing.T) {
	original := sampleJob()
	cp := original.Clone()

	cp.SkippedStages[0] = pipeline.StageAssembly
	cp.Batches[0].Quantity = 1
	cp.Batches[0].History[0].ID = "mutated"
	cp.History[0].ID = "mutated"
	record := cp.StageStatus[pipeline.StageCutting]
	record.Workers[0] = "mallory"
	cp.StageTimes[pipeline.StageDesign] = 0

	if original.SkippedStages[0] != pipeline.StagePowderCoating {
		t.Fatal("clone aliased skipped stages")
	}
	if original.Batches[0].Quantity != 60 {
		t.Fatal("clone aliased batches")
	}
	if original.Batches[0].History[0].ID != "h1" {
		t.Fatal("clone aliased batch history")
	}
	if original.History[0].ID != "h0" {
		t.Fatal("clone aliased job history")
	}
	if original.StageStatus[pipeline.StageCutting].Workers[0] != "alice" {
		t.Fatal("clone aliased stage workers")
	}
	if original.StageTimes[pipeline.StageDesign] != 3_600_000 {
		t.Fatal("clone aliased stage times")
	}
}

func TestQuantityBalanced(t *testing.T) {
	j := sampleJob()
	if !j.QuantityBalanced() {
		t.Fatalf("expected balanced quantities, batch total %d of %d", j.BatchQuantityTotal(), j.TotalQuantity)
	}
	j.Batches[0].Quantity = 10
	if j.QuantityBalanced() {
		t.Fatal("expected imbalance to be detected")
	}
	j.Batches = nil
	if !j.QuantityBalanced() {
		t.Fatal("job without batches is trivially balanced")
	}
}

func TestFindBatch(t *testing.T) {
	j := sampleJob()
	if idx := j.FindBatch("B2"); idx != 1 {
		t.Fatalf("FindBatch(B2) = %d, expected 1", idx)
	}
	if idx := j.FindBatch("B99"); idx != -1 {
		t.Fatalf("FindBatch(B99) = %d, expected -1", idx)
	}
}

func TestNextBatchID(t *testing.T) {
	j := sampleJob()
	if id := j.NextBatchID(); id != "B3" {
		t.Fatalf("NextBatchID = %s, expected B3", id)
	}
	j.Batches = append(j.Batches, job.Batch{ID: "B7-R"})
	if id := j.NextBatchID(); id != "B8" {
		t.Fatalf("NextBatchID after return batch = %s, expected B8", id)
	}
	if id := j.NextReturnBatchID(); id != "B8-R" {
		t.Fatalf("NextReturnBatchID = %s, expected B8-R", id)
	}
	empty := job.Job{}
	if id := empty.NextBatchID(); id != "B1" {
		t.Fatalf("NextBatchID on empty job = %s, expected B1", id)
	}
}

func TestBatchNumber(t *testing.T) {
	cases := []struct {
		id string
		n  int
		ok bool
	}{
		{"B1", 1, true},
		{"B12-R", 12, true},
		{" B3 ", 3, true},
		{"X4", 0, false},
		{"B", 0, false},
		{"B-R", 0, false},
	}
	for _, tc := range cases {
		n, ok := job.BatchNumber(tc.id)
		if ok != tc.ok || n != tc.n {
			t.Fatalf("BatchNumber(%q) = (%d, %v), expected (%d, %v)", tc.id, n, ok, tc.n, tc.ok)
		}
	}
}

func TestActionForBatchStatus(t *testing.T) {
	cases := map[job.BatchStatus]job.HistoryAction{
		job.BatchCompleted:  job.ActionComplete,
		job.BatchRejected:   job.ActionQCReject,
		job.BatchOKQuality:  job.ActionQCApprove,
		job.BatchPending:    job.ActionStart,
		job.BatchReturned:   job.ActionStart,
		job.BatchScrapped:   job.ActionStart,
		job.BatchInProgress: job.ActionStart,
	}
	for status, expected := range cases {
		if got := job.ActionForBatchStatus(status); got != expected {
			t.Fatalf("ActionForBatchStatus(%s) = %s, expected %s", status, got, expected)
		}
	}
}
