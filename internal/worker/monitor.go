package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caretrack/priorauth/internal/automation"
	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/notification"
	"github.com/caretrack/priorauth/internal/repository"
	"github.com/caretrack/priorauth/internal/workflow"
	"go.uber.org/zap"
)

// PassResult summarizes one reconciliation pass
type PassResult struct {
	Processed int  `json:"processed"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Flagged   int  `json:"flagged"`
	Skipped   bool `json:"skipped"`
}

// itemHandler re-drives one request from its current state
type itemHandler func(ctx context.Context, req *models.AuthorizationRequest) error

// Monitor is the periodic reconciliation loop. Each tick selects a
// bounded batch of non-terminal requests, highest priority first, and
// re-drives every item through the same workflow and automation
// operations interactive callers use.
type Monitor struct {
	requestRepo *repository.RequestRepository
	engine      *workflow.Engine
	rulesEngine *automation.RulesEngine
	notifier    notification.Notifier
	logger      *zap.Logger

	interval       time.Duration
	batchSize      int
	itemTimeout    time.Duration
	deadlineWindow time.Duration
	now            func() time.Time

	handlers map[domain.State]itemHandler

	inFlight atomic.Bool
	mu       sync.Mutex
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	done     sync.WaitGroup
}

// MonitorConfig holds the monitor's tuning knobs
type MonitorConfig struct {
	Interval       time.Duration
	BatchSize      int
	ItemTimeout    time.Duration
	DeadlineWindow time.Duration
}

// NewMonitor creates a new background monitor. It panics if the handler
// table misses a non-terminal state, so an unhandled state is caught at
// startup rather than silently skipped at 3 a.m.
func NewMonitor(
	requestRepo *repository.RequestRepository,
	engine *workflow.Engine,
	rulesEngine *automation.RulesEngine,
	notifier notification.Notifier,
	cfg MonitorConfig,
	logger *zap.Logger,
) *Monitor {
	m := &Monitor{
		requestRepo:    requestRepo,
		engine:         engine,
		rulesEngine:    rulesEngine,
		notifier:       notifier,
		logger:         logger,
		interval:       cfg.Interval,
		batchSize:      cfg.BatchSize,
		itemTimeout:    cfg.ItemTimeout,
		deadlineWindow: cfg.DeadlineWindow,
		now:            time.Now,
	}

	m.handlers = map[domain.State]itemHandler{
		domain.StateIntake:         m.handleIntake,
		domain.StateValidation:     m.handleValidation,
		domain.StateSubmitted:      m.handleSubmitted,
		domain.StatePending:        m.handlePending,
		domain.StatePayerReview:    m.handlePayerReview,
		domain.StateClinicalReview: m.handleManualStage,
		domain.StateDecision:       m.handleManualStage,
		domain.StateAppeal:         m.handleManualStage,
	}

	for _, state := range []domain.State{
		domain.StateIntake, domain.StateValidation, domain.StateSubmitted,
		domain.StatePending, domain.StatePayerReview, domain.StateClinicalReview,
		domain.StateDecision, domain.StateAppeal,
	} {
		if _, ok := m.handlers[state]; !ok {
			panic(fmt.Sprintf("monitor: no handler for state %s", state))
		}
	}

	return m
}

// Start starts the monitor loop
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("background monitor is already running")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	m.logger.Info("BackgroundMonitor started",
		zap.Duration("interval", m.interval),
		zap.Int("batch_size", m.batchSize))

	m.done.Add(1)
	go func() {
		defer m.done.Done()
		m.loop()
	}()
	return nil
}

// Stop cancels the monitor loop and blocks until an in-flight pass has
// drained, so callers can safely tear down the database afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	if m.cancel != nil {
		m.cancel()
	}
	m.done.Wait()
	m.logger.Info("BackgroundMonitor stopped")
}

// Name returns the worker name for identification
func (m *Monitor) Name() string {
	return "BackgroundMonitor"
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.RunPass(m.ctx)

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.RunPass(m.ctx)
		}
	}
}

// RunPass executes one reconciliation pass. Overlapping invocations are
// rejected: a pass must finish (or time out item by item) before the
// next may start.
func (m *Monitor) RunPass(ctx context.Context) PassResult {
	if !m.inFlight.CompareAndSwap(false, true) {
		m.logger.Warn("Automation pass still running, skipping tick")
		return PassResult{Skipped: true}
	}
	defer m.inFlight.Store(false)

	result := PassResult{}

	requests, err := m.requestRepo.ListActive(ctx, domain.StateCompleted.String(), m.batchSize)
	if err != nil {
		m.logger.Error("Failed to select automation batch", zap.Error(err))
		return result
	}

	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}

		result.Processed++
		if err := m.processItem(ctx, req); err != nil {
			result.Failed++
			m.logger.Error("Automation item failed",
				zap.Int64("request_id", req.ID),
				zap.String("workflow_state", req.WorkflowState),
				zap.Error(err))
			continue
		}
		result.Succeeded++
	}

	result.Flagged = m.flagApproachingDeadlines(ctx)

	m.logger.Info("Automation pass complete",
		zap.Int("processed", result.Processed),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
		zap.Int("flagged", result.Flagged))

	return result
}

// processItem dispatches one request to its state handler under the
// per-item timeout. The handler runs in its own goroutine so a handler
// that ignores cancellation still cannot hold up the batch; on timeout
// the abandoned handler finishes in the background against a cancelled
// context. A panic in a handler is converted to an error so one
// poisoned item cannot take down the batch.
func (m *Monitor) processItem(ctx context.Context, req *models.AuthorizationRequest) error {
	state := domain.State(req.WorkflowState)
	handler, ok := m.handlers[state]
	if !ok {
		if state.IsTerminal() {
			return nil
		}
		return fmt.Errorf("no handler for state %s", state)
	}

	itemCtx, cancel := context.WithTimeout(ctx, m.itemTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("item processing panicked: %v", p)
			}
		}()
		done <- handler(itemCtx, req)
	}()

	select {
	case err := <-done:
		return err
	case <-itemCtx.Done():
		return fmt.Errorf("item processing timed out after %s: %w", m.itemTimeout, itemCtx.Err())
	}
}

func (m *Monitor) handleIntake(ctx context.Context, req *models.AuthorizationRequest) error {
	if outcome, err := m.rulesEngine.ProcessAutoApproval(ctx, req.ID); err != nil {
		return err
	} else if outcome.Approved || outcome.AlreadyCompleted {
		return nil
	}

	_, err := m.engine.Advance(ctx, req.ID, domain.StateValidation,
		models.AutomatedSystemActor, "re-running intake validation")
	return err
}

func (m *Monitor) handleValidation(ctx context.Context, req *models.AuthorizationRequest) error {
	if outcome, err := m.rulesEngine.ProcessAutoApproval(ctx, req.ID); err != nil {
		return err
	} else if outcome.Approved || outcome.AlreadyCompleted {
		return nil
	}

	if req.ServiceType == "" || req.PayerID == "" {
		m.logger.Debug("Request still incomplete after validation",
			zap.Int64("request_id", req.ID))
		return nil
	}

	_, err := m.engine.Advance(ctx, req.ID, domain.StateSubmitted,
		models.AutomatedSystemActor, "validation passed")
	return err
}

func (m *Monitor) handleSubmitted(ctx context.Context, req *models.AuthorizationRequest) error {
	if outcome, err := m.rulesEngine.ProcessAutoApproval(ctx, req.ID); err != nil {
		return err
	} else if outcome.Approved || outcome.AlreadyCompleted {
		return nil
	}

	_, err := m.engine.Advance(ctx, req.ID, domain.StatePayerReview,
		models.AutomatedSystemActor, "submitted to payer review")
	return err
}

func (m *Monitor) handlePending(ctx context.Context, req *models.AuthorizationRequest) error {
	if outcome, err := m.rulesEngine.ProcessAutoApproval(ctx, req.ID); err != nil {
		return err
	} else if outcome.Approved || outcome.AlreadyCompleted {
		return nil
	}

	_, err := m.engine.Advance(ctx, req.ID, domain.StatePayerReview,
		models.AutomatedSystemActor, "re-queued request resumed")
	return err
}

func (m *Monitor) handlePayerReview(ctx context.Context, req *models.AuthorizationRequest) error {
	if outcome, err := m.rulesEngine.ProcessAutoApproval(ctx, req.ID); err != nil {
		return err
	} else if outcome.Approved || outcome.AlreadyCompleted {
		return nil
	}

	// Requests the payer did not auto-approve and that carry no
	// supporting documents need a clinician's eyes.
	if len(req.Documents) == 0 {
		_, err := m.engine.Advance(ctx, req.ID, domain.StateClinicalReview,
			models.AutomatedSystemActor, "routed to clinical review: no supporting documents")
		return err
	}
	return nil
}

// handleManualStage covers the stages a human must move: it retries
// auto-approval (criteria may have been refreshed) and otherwise leaves
// the request alone.
func (m *Monitor) handleManualStage(ctx context.Context, req *models.AuthorizationRequest) error {
	_, err := m.rulesEngine.ProcessAutoApproval(ctx, req.ID)
	return err
}

func (m *Monitor) flagApproachingDeadlines(ctx context.Context) int {
	cutoff := m.now().Add(m.deadlineWindow)

	requests, err := m.requestRepo.ListNearingDeadline(ctx, domain.StateCompleted.String(), cutoff, m.batchSize)
	if err != nil {
		m.logger.Error("Failed to scan for approaching deadlines", zap.Error(err))
		return 0
	}

	for _, req := range requests {
		daysRemaining := int(req.ServiceDate.Sub(m.now()).Hours() / 24)
		m.notifier.FlagApproachingDeadline(req, daysRemaining)
	}
	return len(requests)
}
