package api_test

import (
	"context"
	"testing"

	"fabline/internal/api"
	"fabline/internal/logging"
	"fabline/internal/pipeline"
	"fabline/internal/services"
	"fabline/internal/testsupport"
	"fabline/internal/workflow"
)

func newService(t *testing.T) *api.JobService {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManagerWithNotifier(cfg, st, logging.NewNop(), nil)
	return api.NewJobService(mgr)
}

func createJob(t *testing.T, svc *api.JobService, id string) api.JobView {
	t.Helper()
	view, err := svc.Create(context.Background(), api.CreateJobRequest{
		ID:       id,
		Code:     "JOB-" + id,
		Customer: "Acme Metals",
		Quantity: 100,
		User:     "planner",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return *view
}

func transition(t *testing.T, svc *api.JobService, jobID string, req api.TransitionRequest) *api.TransitionResponse {
	t.Helper()
	resp, err := svc.Transition(context.Background(), jobID, req)
	if err != nil {
		t.Fatalf("Transition %s: %v", req.Action, err)
	}
	return resp
}

func TestCreateAndDescribe(t *testing.T) {
	svc := newService(t)
	created := createJob(t, svc, "j1")
	if created.CurrentStage != string(pipeline.StageDesign) {
		t.Fatalf("new job stage = %s", created.CurrentStage)
	}
	if len(created.History) != 1 || created.History[0].Action != "create" {
		t.Fatalf("history = %+v", created.History)
	}

	view, err := svc.Describe(context.Background(), "j1")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if view == nil || view.Code != "JOB-j1" {
		t.Fatalf("describe = %+v", view)
	}

	missing, err := svc.Describe(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Describe missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing job should be nil, got %+v", missing)
	}
}

func TestTransitionWalksDesignIntoCutting(t *testing.T) {
	svc := newService(t)
	createJob(t, svc, "j1")

	resp := transition(t, svc, "j1", api.TransitionRequest{Action: api.ActionStart, User: "designer"})
	if !resp.Applied {
		t.Fatal("start should apply")
	}
	transition(t, svc, "j1", api.TransitionRequest{Action: api.ActionComplete, User: "designer"})
	resp = transition(t, svc, "j1", api.TransitionRequest{Action: api.ActionQCApprove, User: "qc"})
	if resp.Job.CurrentStage != string(pipeline.StageCutting) {
		t.Fatalf("stage after approve = %s", resp.Job.CurrentStage)
	}

	resp = transition(t, svc, "j1", api.TransitionRequest{Action: api.ActionCreateBatch, User: "planner"})
	if len(resp.Job.Batches) != 1 || resp.Job.Batches[0].ID != "B1" {
		t.Fatalf("batches = %+v", resp.Job.Batches)
	}
	if resp.Job.Batches[0].Quantity != 100 {
		t.Fatalf("B1 quantity = %d", resp.Job.Batches[0].Quantity)
	}
}

func TestTransitionSplitAndReturn(t *testing.T) {
	svc := newService(t)
	createJob(t, svc, "j1")
	for _, req := range []api.TransitionRequest{
		{Action: api.ActionStart, User: "w"},
		{Action: api.ActionComplete, User: "w"},
		{Action: api.ActionQCApprove, User: "qc"},
		{Action: api.ActionCreateBatch, User: "planner"},
	} {
		transition(t, svc, "j1", req)
	}

	resp := transition(t, svc, "j1", api.TransitionRequest{
		Action: api.ActionSplitBatch, User: "op", BatchID: "B1", Quantity: 60,
	})
	if !resp.Applied || len(resp.Job.Batches) != 2 {
		t.Fatalf("split outcome: applied=%v batches=%+v", resp.Applied, resp.Job.Batches)
	}
	if resp.Job.Batches[1].ID != "B2" || resp.Job.Batches[1].Quantity != 40 {
		t.Fatalf("remainder = %+v", resp.Job.Batches[1])
	}

	resp = transition(t, svc, "j1", api.TransitionRequest{
		Action: api.ActionCustomerReturn, User: "sales",
		BatchID: "B1", Quantity: 10, Reason: "scratched", Stage: "powder_coating",
	})
	if len(resp.Job.Batches) != 3 || resp.Job.Batches[2].ID != "B3-R" {
		t.Fatalf("return outcome = %+v", resp.Job.Batches)
	}

	total := 0
	for _, batch := range resp.Job.Batches {
		total += batch.Quantity
	}
	if total != resp.Job.TotalQuantity {
		t.Fatalf("quantity not conserved: %d != %d", total, resp.Job.TotalQuantity)
	}
}

func TestTransitionValidation(t *testing.T) {
	svc := newService(t)
	createJob(t, svc, "j1")
	ctx := context.Background()

	_, err := svc.Transition(ctx, "j1", api.TransitionRequest{Action: "explode", User: "w"})
	if !services.IsValidation(err) {
		t.Fatalf("unknown action should be a validation error, got %v", err)
	}
	_, err = svc.Transition(ctx, "j1", api.TransitionRequest{Action: api.ActionSplitBatch, User: "w"})
	if !services.IsValidation(err) {
		t.Fatalf("missing batch id should be a validation error, got %v", err)
	}
	_, err = svc.Transition(ctx, "j1", api.TransitionRequest{
		Action: api.ActionCustomerReturn, User: "w", BatchID: "B1", Quantity: 1, Stage: "warehouse",
	})
	if !services.IsValidation(err) {
		t.Fatalf("unknown stage should be a validation error, got %v", err)
	}
	_, err = svc.Transition(ctx, "j1", api.TransitionRequest{
		Action: api.ActionBatchStatus, User: "w", BatchID: "B1", Status: "unheard_of",
	})
	if !services.IsValidation(err) {
		t.Fatalf("unknown status should be a validation error, got %v", err)
	}

	_, err = svc.Transition(ctx, "absent", api.TransitionRequest{Action: api.ActionStart, User: "w"})
	if !services.IsNotFound(err) {
		t.Fatalf("missing job should be not-found, got %v", err)
	}
}

func TestListByStageAndStats(t *testing.T) {
	svc := newService(t)
	createJob(t, svc, "j1")
	createJob(t, svc, "j2")
	for _, req := range []api.TransitionRequest{
		{Action: api.ActionStart, User: "w"},
		{Action: api.ActionComplete, User: "w"},
		{Action: api.ActionQCApprove, User: "qc"},
	} {
		transition(t, svc, "j2", req)
	}

	all, err := svc.List(context.Background(), "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("list = %d jobs", len(all))
	}

	cutting, err := svc.List(context.Background(), "cutting")
	if err != nil {
		t.Fatalf("List cutting: %v", err)
	}
	if len(cutting) != 1 || cutting[0].ID != "j2" {
		t.Fatalf("cutting list = %+v", cutting)
	}

	if _, err := svc.List(context.Background(), "warehouse"); !services.IsValidation(err) {
		t.Fatalf("unknown stage filter should be a validation error, got %v", err)
	}

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["design"] != 1 || stats["cutting"] != 1 {
		t.Fatalf("stats = %v", stats)
	}
}
