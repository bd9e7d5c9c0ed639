package workflow

import (
	"log/slog"
	"sync"
	"time"

	"fabline/internal/config"
	"fabline/internal/engine"
	"fabline/internal/events"
	"fabline/internal/logging"
	"fabline/internal/notifications"
	"fabline/internal/store"
)

// Manager coordinates job transitions and the reminder loop.
type Manager struct {
	cfg      *config.Config
	store    *store.Store
	logger   *slog.Logger
	engine   *engine.Engine
	notifier notifications.Service
	hub      *events.Hub

	pollInterval time.Duration
	reminderHour int

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	running  bool
	cancel   func()
	wg       sync.WaitGroup
	lastErr  error
	lastPoll time.Time
}

// NewManager constructs a workflow manager with the default notifier.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, st, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom
// notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, st *store.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	pollInterval := time.Duration(cfg.Workflow.ReminderPollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = time.Minute
	}
	reminderHour := cfg.Workflow.ReminderHour
	if reminderHour < 0 || reminderHour > 23 {
		reminderHour = 9
	}
	return &Manager{
		cfg:          cfg,
		store:        st,
		logger:       logging.WithComponent(logger, "workflow"),
		engine:       engine.New(),
		notifier:     notifier,
		hub:          events.NewHub(cfg.Workflow.EventBufferSize),
		pollInterval: pollInterval,
		reminderHour: reminderHour,
		locks:        make(map[string]*sync.Mutex),
	}
}

// Events exposes the transition event hub for API streaming.
func (m *Manager) Events() *events.Hub {
	return m.hub
}

// Store exposes the backing store for read-only API queries.
func (m *Manager) Store() *store.Store {
	return m.store
}

// jobLock returns the mutex serializing transitions for one job id.
func (m *Manager) jobLock(jobID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[jobID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[jobID] = lock
	}
	return lock
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
