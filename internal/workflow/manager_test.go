package workflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"fabline/internal/engine"
	"fabline/internal/job"
	"fabline/internal/logging"
	"fabline/internal/services"
	"fabline/internal/testsupport"
	"fabline/internal/workflow"
)

type recordingNotifier struct {
	mu       sync.Mutex
	rework   []string
	qc       []string
	returns  []string
	scrapped []string
	dispatch []string
	closed   []string
}

func (r *recordingNotifier) NotifyReworkDue(_ context.Context, jobCode, batchID, _ string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rework = append(r.rework, jobCode+"/"+batchID)
	return nil
}

func (r *recordingNotifier) NotifyQCRejected(_ context.Context, jobCode, stage, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.qc = append(r.qc, jobCode+"@"+stage)
	return nil
}

func (r *recordingNotifier) NotifyCustomerReturn(_ context.Context, jobCode, batchID string, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.returns = append(r.returns, jobCode+"/"+batchID)
	return nil
}

func (r *recordingNotifier) NotifyBatchScrapped(_ context.Context, jobCode, batchID string, _ int, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapped = append(r.scrapped, jobCode+"/"+batchID)
	return nil
}

func (r *recordingNotifier) NotifyJobDispatched(_ context.Context, jobCode string, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatch = append(r.dispatch, jobCode)
	return nil
}

func (r *recordingNotifier) NotifyOrderClosed(_ context.Context, jobCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, jobCode)
	return nil
}

func (r *recordingNotifier) NotifyError(context.Context, error, string) error { return nil }
func (r *recordingNotifier) TestNotification(context.Context) error           { return nil }

func newTestManager(t *testing.T) (*workflow.Manager, *recordingNotifier) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	notifier := &recordingNotifier{}
	return workflow.NewManagerWithNotifier(cfg, st, logging.NewNop(), notifier), notifier
}

func mustCreate(t *testing.T, mgr *workflow.Manager, id string) *job.Job {
	t.Helper()
	created, err := mgr.CreateJob(context.Background(), engine.NewJobParams{
		ID:       id,
		Code:     "JOB-" + id,
		Customer: "Acme Metals",
		Quantity: 100,
	}, "planner")
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return created
}

func TestCreateJobValidatesInput(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.CreateJob(ctx, engine.NewJobParams{Code: "X", Quantity: 1}, "planner")
	if !services.IsValidation(err) {
		t.Fatalf("missing id should be a validation error, got %v", err)
	}
	_, err = mgr.CreateJob(ctx, engine.NewJobParams{ID: "j1", Code: "X", Quantity: 0}, "planner")
	if !services.IsValidation(err) {
		t.Fatalf("zero quantity should be a validation error, got %v", err)
	}
}

func TestCreateJobRejectsDuplicates(t *testing.T) {
	mgr, _ := newTestManager(t)
	mustCreate(t, mgr, "j1")

	_, err := mgr.CreateJob(context.Background(), engine.NewJobParams{
		ID: "j1", Code: "JOB-j1", Quantity: 10,
	}, "planner")
	if err == nil || services.IsNotFound(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestApplyMissingJobIsNotFound(t *testing.T) {
	mgr, _ := newTestManager(t)
	_, _, err := mgr.Apply(context.Background(), "absent", func(eng *engine.Engine, current job.Job) job.Job {
		return eng.StartStage(current, "worker")
	})
	if !services.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestApplyPersistsAndPublishes(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()
	mustCreate(t, mgr, "j1")

	updated, applied, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, current job.Job) job.Job {
		return eng.StartStage(current, "designer")
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !applied {
		t.Fatal("start should be applied")
	}
	if updated.StageStatus[updated.CurrentStage].Status != job.StageInProgress {
		t.Fatalf("stage record = %+v", updated.StageStatus[updated.CurrentStage])
	}

	reloaded, err := mgr.Store().GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if len(reloaded.History) != len(updated.History) {
		t.Fatalf("persisted history = %d entries, want %d", len(reloaded.History), len(updated.History))
	}

	tail, _ := mgr.Events().Tail(10)
	if len(tail) != 2 {
		t.Fatalf("event count = %d, want create+start", len(tail))
	}
	if tail[1].Action != string(job.ActionStart) || tail[1].JobID != "j1" {
		t.Fatalf("last event = %+v", tail[1])
	}
}

func TestApplyRefusedTransitionIsNoOp(t *testing.T) {
	mgr, _ := newTestManager(t)
	ctx := context.Background()
	created := mustCreate(t, mgr, "j1")

	echoed, applied, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, current job.Job) job.Job {
		// Dispatch chain is not reachable from design.
		return eng.MarkDispatched(current, "worker")
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if applied {
		t.Fatal("out-of-order dispatch must not apply")
	}
	if len(echoed.History) != len(created.History) {
		t.Fatal("refused transition must not write history")
	}

	tail, _ := mgr.Events().Tail(10)
	if len(tail) != 1 {
		t.Fatalf("refused transition published events: %+v", tail)
	}
}

func TestApplySerialTransitionsReachDispatch(t *testing.T) {
	mgr, notifier := newTestManager(t)
	ctx := context.Background()
	mustCreate(t, mgr, "j1")

	steps := []workflow.Mutation{
		func(eng *engine.Engine, j job.Job) job.Job { return eng.StartStage(j, "w") },
		func(eng *engine.Engine, j job.Job) job.Job { return eng.CompleteStage(j, "w") },
		func(eng *engine.Engine, j job.Job) job.Job { return eng.ApproveQC(j, "qc") },
	}
	// Walk design through every production stage to dispatch.
	for i := 0; i < 8; i++ {
		for _, step := range steps {
			if _, _, err := mgr.Apply(ctx, "j1", step); err != nil {
				t.Fatalf("Apply: %v", err)
			}
		}
	}

	current, err := mgr.Store().GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if !current.Completed {
		t.Fatalf("job should be completed after the full walk, at %s", current.CurrentStage)
	}

	if _, _, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		return eng.MarkDispatchReady(j, "w")
	}); err != nil {
		t.Fatalf("Apply dispatch_ready: %v", err)
	}
	if _, _, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		return eng.MarkDispatched(j, "w")
	}); err != nil {
		t.Fatalf("Apply dispatched: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.dispatch) != 1 || notifier.dispatch[0] != "JOB-j1" {
		t.Fatalf("dispatch notifications = %v", notifier.dispatch)
	}
}

func TestApplyNotifiesQCRejection(t *testing.T) {
	mgr, notifier := newTestManager(t)
	ctx := context.Background()
	mustCreate(t, mgr, "j1")

	if _, _, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		return eng.CompleteStage(eng.StartStage(j, "w"), "w")
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, _, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		return eng.RejectQC(j, "qc", "misaligned holes")
	}); err != nil {
		t.Fatalf("Apply reject: %v", err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.qc) != 1 {
		t.Fatalf("qc notifications = %v", notifier.qc)
	}
}

func TestPollRemindersNotifiesAndReschedules(t *testing.T) {
	mgr, notifier := newTestManager(t)
	ctx := context.Background()
	mustCreate(t, mgr, "j1")

	// Move to cutting and materialize B1, which schedules a reminder.
	if _, _, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		j = eng.StartStage(j, "w")
		j = eng.CompleteStage(j, "w")
		j = eng.ApproveQC(j, "qc")
		return eng.CreateInitialBatch(j)
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	// Backdate the reminder so the poll sees it as due.
	if err := mgr.Store().BumpReminder(ctx, "j1", "B1", time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("BumpReminder: %v", err)
	}

	mgr.PollReminders(ctx)

	notifier.mu.Lock()
	rework := append([]string(nil), notifier.rework...)
	notifier.mu.Unlock()
	if len(rework) != 1 || rework[0] != "JOB-j1/B1" {
		t.Fatalf("rework notifications = %v", rework)
	}

	// The reminder must be pushed to the next morning, not fire again.
	due, err := mgr.Store().DueReminders(ctx, time.Now())
	if err != nil {
		t.Fatalf("DueReminders: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("reminder should be rescheduled, got %+v", due)
	}
}

func TestScrapNotification(t *testing.T) {
	mgr, notifier := newTestManager(t)
	ctx := context.Background()
	mustCreate(t, mgr, "j1")

	if _, _, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		j = eng.StartStage(j, "w")
		j = eng.CompleteStage(j, "w")
		j = eng.ApproveQC(j, "qc")
		return eng.CreateInitialBatch(j)
	}); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if _, applied, err := mgr.Apply(ctx, "j1", func(eng *engine.Engine, j job.Job) job.Job {
		return eng.ScrapBatch(j, "B1", "warped beyond tolerance", "supervisor")
	}); err != nil || !applied {
		t.Fatalf("Apply scrap: applied=%v err=%v", applied, err)
	}

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.scrapped) != 1 || notifier.scrapped[0] != "JOB-j1/B1" {
		t.Fatalf("scrap notifications = %v", notifier.scrapped)
	}
}

func TestStartStopReminderLoop(t *testing.T) {
	mgr, _ := newTestManager(t)
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := mgr.Start(context.Background()); err == nil {
		t.Fatal("second start should fail")
	}
	status := mgr.Status(context.Background())
	if !status.Running {
		t.Fatal("status should report running")
	}
	mgr.Stop()
	status = mgr.Status(context.Background())
	if status.Running {
		t.Fatal("status should report stopped")
	}
}
