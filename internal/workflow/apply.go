package workflow

import (
	"context"
	"strings"

	"fabline/internal/engine"
	"fabline/internal/events"
	"fabline/internal/job"
	"fabline/internal/logging"
	"fabline/internal/services"
)

// Mutation computes a job's next state. Mutations are pure; returning the
// input unchanged (apart from being a fresh copy) signals a refused
// transition.
type Mutation func(eng *engine.Engine, current job.Job) job.Job

// CreateJob registers a new order at the design stage.
func (m *Manager) CreateJob(ctx context.Context, params engine.NewJobParams, user string) (*job.Job, error) {
	if strings.TrimSpace(params.ID) == "" || strings.TrimSpace(params.Code) == "" {
		return nil, services.Wrap(services.ErrValidation, "workflow", "create", "job id and code are required", nil)
	}
	if params.Quantity <= 0 {
		return nil, services.Wrap(services.ErrValidation, "workflow", "create", "quantity must be positive", nil)
	}

	lock := m.jobLock(params.ID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.store.GetJob(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, services.Wrap(services.ErrConflict, "workflow", "create", "job "+params.ID+" already exists", nil)
	}

	created := m.engine.NewJob(params, user)
	if err := m.store.CreateJob(ctx, &created); err != nil {
		return nil, err
	}
	m.publishNew(created, nil)
	m.logger.Info("job created",
		logging.String(logging.FieldJobID, created.ID),
		logging.String(logging.FieldUser, user),
		logging.Int("quantity", created.TotalQuantity),
	)
	return &created, nil
}

// Apply loads a job, runs the mutation, and persists the result when the
// mutation changed anything. The returned bool reports whether a transition
// was applied; refused transitions leave the job untouched.
func (m *Manager) Apply(ctx context.Context, jobID string, mutate Mutation) (*job.Job, bool, error) {
	lock := m.jobLock(jobID)
	lock.Lock()
	defer lock.Unlock()

	current, err := m.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, services.Wrap(services.ErrNotFound, "workflow", "apply", "job "+jobID, nil)
	}

	next := mutate(m.engine, *current)

	seen := entryIDs(*current)
	fresh := newEntries(next, seen)
	if len(fresh) == 0 {
		// Refused transition: nothing to persist, echo current state.
		return current, false, nil
	}

	if err := m.store.SaveJob(ctx, &next); err != nil {
		return nil, false, err
	}
	m.publishNew(next, seen)
	m.notify(ctx, *current, next, fresh)
	for _, entry := range fresh {
		m.logger.Info("transition applied",
			logging.String(logging.FieldJobID, next.ID),
			logging.String(logging.FieldBatchID, entry.BatchID),
			logging.String(logging.FieldAction, string(entry.Action)),
			logging.String(logging.FieldStage, string(entry.Stage)),
			logging.String(logging.FieldUser, entry.User),
		)
	}
	return &next, true, nil
}

// entryIDs collects the ids of every history entry on the job and its
// batches.
func entryIDs(j job.Job) map[string]struct{} {
	ids := make(map[string]struct{}, len(j.History))
	for _, entry := range j.History {
		ids[entry.ID] = struct{}{}
	}
	for _, batch := range j.Batches {
		for _, entry := range batch.History {
			ids[entry.ID] = struct{}{}
		}
	}
	return ids
}

// newEntries returns history entries on the job that are absent from seen,
// in the order work happened.
func newEntries(j job.Job, seen map[string]struct{}) []job.HistoryEntry {
	var fresh []job.HistoryEntry
	// Job history is newest-first; walk backwards for chronological order.
	for i := len(j.History) - 1; i >= 0; i-- {
		entry := j.History[i]
		if _, ok := seen[entry.ID]; !ok {
			fresh = append(fresh, entry)
		}
	}
	for _, batch := range j.Batches {
		for _, entry := range batch.History {
			if _, ok := seen[entry.ID]; !ok {
				fresh = append(fresh, entry)
			}
		}
	}
	return fresh
}

func (m *Manager) publishNew(j job.Job, seen map[string]struct{}) {
	for _, entry := range newEntries(j, seen) {
		m.hub.Publish(events.JobEvent{
			Timestamp: entry.Timestamp,
			JobID:     j.ID,
			JobCode:   j.Code,
			BatchID:   entry.BatchID,
			Action:    string(entry.Action),
			Stage:     string(entry.Stage),
			User:      entry.User,
			Details:   entry.Details,
		})
	}
}

// notify pushes notifications for the transitions that warrant them.
// Delivery failures are logged, never surfaced to the caller.
func (m *Manager) notify(ctx context.Context, before, after job.Job, fresh []job.HistoryEntry) {
	report := func(err error, what string) {
		if err != nil {
			m.logger.Warn("notification delivery failed",
				logging.String(logging.FieldJobID, after.ID),
				logging.String("notification", what),
				logging.Error(err),
			)
		}
	}

	for _, entry := range fresh {
		switch entry.Action {
		case job.ActionQCReject:
			report(m.notifier.NotifyQCRejected(ctx, after.Code, string(entry.Stage), after.RejectionReason), "qc_rejected")
		case job.ActionDispatch:
			report(m.notifier.NotifyJobDispatched(ctx, after.Code, after.TotalQuantity), "dispatched")
		case job.ActionOrderClosed:
			report(m.notifier.NotifyOrderClosed(ctx, after.Code), "order_closed")
		}
	}

	// Returns and scraps are detected from batch status changes rather than
	// actions, since both record generic start entries.
	prior := make(map[string]job.Batch, len(before.Batches))
	for _, batch := range before.Batches {
		prior[batch.ID] = batch
	}
	for _, batch := range after.Batches {
		old, existed := prior[batch.ID]
		if batch.Status == job.BatchReturned && (!existed || old.Status != job.BatchReturned) {
			report(m.notifier.NotifyCustomerReturn(ctx, after.Code, batch.ID, batch.Quantity, batch.RejectionReason), "customer_return")
		}
		if batch.Scrapped && (!existed || !old.Scrapped) {
			report(m.notifier.NotifyBatchScrapped(ctx, after.Code, batch.ID, batch.Quantity, batch.ScrapReason), "batch_scrapped")
		}
	}
}
