package api

import (
	"context"
	"strings"

	"fabline/internal/engine"
	"fabline/internal/job"
	"fabline/internal/pipeline"
	"fabline/internal/services"
	"fabline/internal/workflow"
)

// Transition action names accepted by the API.
const (
	ActionStart           = "start"
	ActionPause           = "pause"
	ActionComplete        = "complete"
	ActionSkip            = "skip"
	ActionQCApprove       = "qc_approve"
	ActionQCReject        = "qc_reject"
	ActionDispatchReady   = "dispatch_ready"
	ActionDispatch        = "dispatch"
	ActionInvoice         = "invoice"
	ActionPayment         = "payment"
	ActionClose           = "close"
	ActionCreateBatch     = "create_batch"
	ActionBatchStatus     = "batch_status"
	ActionReprocessBatch  = "reprocess_batch"
	ActionSplitBatch      = "split_batch"
	ActionMoveBatch       = "move_batch"
	ActionCustomerReturn  = "customer_return"
	ActionReprocessReturn = "reprocess_return"
	ActionScrapBatch      = "scrap_batch"
)

// JobService exposes workflow operations returning API DTOs.
type JobService struct {
	mgr *workflow.Manager
}

// NewJobService constructs a JobService around the workflow manager.
func NewJobService(mgr *workflow.Manager) *JobService {
	if mgr == nil {
		return nil
	}
	return &JobService{mgr: mgr}
}

// List returns all jobs, optionally filtered to one stage.
func (s *JobService) List(ctx context.Context, stage string) ([]JobView, error) {
	if s == nil || s.mgr == nil {
		return nil, nil
	}
	if strings.TrimSpace(stage) != "" {
		parsed, ok := pipeline.ParseStage(stage)
		if !ok || parsed == pipeline.StageCompleted {
			return nil, services.Wrap(services.ErrValidation, "api", "list", "unknown stage "+stage, nil)
		}
		jobs, err := s.mgr.Store().ListByStage(ctx, parsed)
		if err != nil {
			return nil, err
		}
		return FromJobs(jobs), nil
	}
	jobs, err := s.mgr.Store().List(ctx)
	if err != nil {
		return nil, err
	}
	return FromJobs(jobs), nil
}

// Describe fetches a single job with batches and history.
func (s *JobService) Describe(ctx context.Context, id string) (*JobView, error) {
	if s == nil || s.mgr == nil {
		return nil, nil
	}
	record, err := s.mgr.Store().GetJob(ctx, id)
	if err != nil || record == nil {
		return nil, err
	}
	view := FromJob(record)
	return &view, nil
}

// Stats returns job counts keyed by stage string.
func (s *JobService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.mgr == nil {
		return nil, nil
	}
	stats, err := s.mgr.Store().Stats(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(stats))
	for stage, count := range stats {
		counts[string(stage)] = count
	}
	return counts, nil
}

// Create registers a new order.
func (s *JobService) Create(ctx context.Context, req CreateJobRequest) (*JobView, error) {
	if s == nil || s.mgr == nil {
		return nil, nil
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = strings.ToLower(strings.TrimSpace(req.Code))
	}
	created, err := s.mgr.CreateJob(ctx, engine.NewJobParams{
		ID:          id,
		Code:        req.Code,
		Customer:    req.Customer,
		Description: req.Description,
		Quantity:    req.Quantity,
	}, req.User)
	if err != nil {
		return nil, err
	}
	view := FromJob(created)
	return &view, nil
}

// Transition maps an action name onto the corresponding engine operation
// and applies it through the workflow manager.
func (s *JobService) Transition(ctx context.Context, jobID string, req TransitionRequest) (*TransitionResponse, error) {
	if s == nil || s.mgr == nil {
		return nil, nil
	}
	mutation, err := buildMutation(req)
	if err != nil {
		return nil, err
	}
	updated, applied, err := s.mgr.Apply(ctx, jobID, mutation)
	if err != nil {
		return nil, err
	}
	return &TransitionResponse{Applied: applied, Job: FromJob(updated)}, nil
}

func buildMutation(req TransitionRequest) (workflow.Mutation, error) {
	action := strings.ToLower(strings.TrimSpace(req.Action))
	user := req.User

	requireBatch := func() error {
		if strings.TrimSpace(req.BatchID) == "" {
			return services.Wrap(services.ErrValidation, "api", action, "batch id is required", nil)
		}
		return nil
	}
	parseStage := func(value string) (pipeline.Stage, error) {
		parsed, ok := pipeline.ParseStage(value)
		if !ok || parsed == pipeline.StageCompleted {
			return "", services.Wrap(services.ErrValidation, "api", action, "unknown stage "+value, nil)
		}
		return parsed, nil
	}

	switch action {
	case ActionStart:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.StartStage(j, user) }, nil
	case ActionPause:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.PauseStage(j, user) }, nil
	case ActionComplete:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.CompleteStage(j, user) }, nil
	case ActionSkip:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.SkipStage(j, user, req.Reason) }, nil
	case ActionQCApprove:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.ApproveQC(j, user) }, nil
	case ActionQCReject:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.RejectQC(j, user, req.Reason) }, nil
	case ActionDispatchReady:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.MarkDispatchReady(j, user) }, nil
	case ActionDispatch:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.MarkDispatched(j, user) }, nil
	case ActionInvoice:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.GenerateInvoice(j, user) }, nil
	case ActionPayment:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.RecordPayment(j, user) }, nil
	case ActionClose:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.CloseOrder(j, user) }, nil
	case ActionCreateBatch:
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.CreateInitialBatch(j) }, nil
	case ActionBatchStatus:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		status, ok := job.ParseBatchStatus(req.Status)
		if !ok {
			return nil, services.Wrap(services.ErrValidation, "api", action, "unknown batch status "+req.Status, nil)
		}
		return func(eng *engine.Engine, j job.Job) job.Job {
			return eng.UpdateBatchStatus(j, req.BatchID, status, user, req.Reason)
		}, nil
	case ActionReprocessBatch:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		return func(eng *engine.Engine, j job.Job) job.Job { return eng.ReprocessBatch(j, req.BatchID, user) }, nil
	case ActionSplitBatch:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		return func(eng *engine.Engine, j job.Job) job.Job {
			return eng.SplitBatch(j, req.BatchID, req.Quantity, user)
		}, nil
	case ActionMoveBatch:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		return func(eng *engine.Engine, j job.Job) job.Job {
			return eng.MoveBatchToNextStage(j, req.BatchID, user)
		}, nil
	case ActionCustomerReturn:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		origin, err := parseStage(req.Stage)
		if err != nil {
			return nil, err
		}
		return func(eng *engine.Engine, j job.Job) job.Job {
			return eng.HandleCustomerReturn(j, req.BatchID, req.Quantity, req.Reason, origin, user)
		}, nil
	case ActionReprocessReturn:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		target, err := parseStage(req.Stage)
		if err != nil {
			return nil, err
		}
		return func(eng *engine.Engine, j job.Job) job.Job {
			return eng.ReprocessReturnBatch(j, req.BatchID, target, user)
		}, nil
	case ActionScrapBatch:
		if err := requireBatch(); err != nil {
			return nil, err
		}
		return func(eng *engine.Engine, j job.Job) job.Job {
			return eng.ScrapBatch(j, req.BatchID, req.Reason, user)
		}, nil
	default:
		return nil, services.Wrap(services.ErrValidation, "api", "transition", "unknown action "+req.Action, nil)
	}
}
