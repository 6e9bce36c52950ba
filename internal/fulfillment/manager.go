package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/notifications"
	"bindery/internal/queue"
	"bindery/internal/runner"
)

// Manager polls the queue for pending jobs and runs each one through a
// Fulfiller, persisting every state transition as it happens.
type Manager struct {
	cfg        *config.Config
	store      *queue.Store
	fulfiller  *Fulfiller
	notifier   notifications.Service
	logger     *slog.Logger
	pollWait   time.Duration
	errorRetry time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager constructs a queue-driven fulfillment manager.
func NewManager(cfg *config.Config, store *queue.Store, fulfiller *Fulfiller, notifier notifications.Service, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollWait := time.Duration(cfg.Workflow.QueuePollInterval) * time.Second
	if pollWait <= 0 {
		pollWait = time.Second
	}
	errorRetry := time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second
	if errorRetry <= 0 {
		errorRetry = 5 * time.Second
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		fulfiller:  fulfiller,
		notifier:   notifier,
		logger:     logging.NewComponentLogger(logger, "workflow"),
		pollWait:   pollWait,
		errorRetry: errorRetry,
	}
}

// Start begins background processing. Jobs stranded mid-flight by a previous
// run are reset to pending before polling begins.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	if reset, err := m.store.ResetStuckProcessing(runCtx); err != nil {
		m.logger.Warn("failed to reset stuck jobs", logging.Error(err))
	} else if reset > 0 {
		m.logger.Info("reset stuck jobs to pending", logging.Int64("count", reset))
	}

	go m.runLoop(runCtx)
	return nil
}

// Stop terminates background processing and waits for the current job to
// finish persisting its state.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runLoop(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := m.store.NextForStatuses(ctx, queue.StatusPending)
		if err != nil {
			m.logger.Error("failed to fetch next queue item",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_fetch_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			if !m.sleep(ctx, m.errorRetry) {
				return
			}
			continue
		}
		if item == nil {
			if !m.sleep(ctx, m.pollWait) {
				return
			}
			continue
		}

		m.processItem(ctx, item)
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (m *Manager) processItem(ctx context.Context, item *queue.Item) {
	logger := m.logger.With(
		logging.Int64(logging.FieldJobID, item.ID),
		logging.String(logging.FieldCorrelationID, item.RequestID),
	)
	logger.Info("processing fulfillment job", logging.String("request_path", item.RequestPath))

	persist := func() {
		if err := m.store.Update(ctx, item); err != nil {
			logger.Warn("failed to persist job state", logging.Error(err))
		}
	}

	observe := Observer(func(job *Job) {
		item.Status = job.Status
		if job.Title != "" {
			item.Title = job.Title
		}
		item.OutputPath = job.OutputPath
		item.RightsBuilt = job.RightsBuilt
		if job.Classified {
			item.Format = job.Format.String()
		}
		// Terminal states are persisted once, below, together with the
		// outcome message; persisting them here would expose a failed
		// status without its error text.
		if !item.IsTerminal() {
			persist()
		}
	})

	report := runner.ReporterFunc(func(message string) {
		item.ProgressStage = string(item.Status)
		item.ProgressMessage = message
		logger.Info(message, logging.String(logging.FieldStage, string(item.Status)))
		persist()
	})

	outcome := m.fulfiller.Run(ctx, item.RequestPath, report, observe)

	if outcome.Success {
		item.Status = queue.StatusCompleted
		item.SetProgressComplete("Completed", outcome.Message)
		persist()
		if err := m.notifier.NotifyFulfillmentCompleted(ctx, item.Title, outcome.Path); err != nil {
			logger.Warn("failed to send notification", logging.Error(err))
		}
		return
	}

	item.SetFailed(outcome.Message)
	persist()
	if err := m.notifier.NotifyError(ctx, errors.New(outcome.Message), "fulfillment"); err != nil {
		logger.Warn("failed to send notification", logging.Error(err))
	}
}
