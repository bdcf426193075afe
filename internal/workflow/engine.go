package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/enrichment"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/priority"
	"github.com/caretrack/priorauth/internal/repository"
	"github.com/caretrack/priorauth/pkg/database"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hook runs after a request enters a state. Hooks are best effort:
// a failing hook is logged and never rolls back the transition.
type Hook func(ctx context.Context, req *models.AuthorizationRequest)

// TransitionResult reports the state and status a request holds after
// a successful advance
type TransitionResult struct {
	State  string `json:"state"`
	Status string `json:"status"`
}

// Engine is the workflow state machine over the transactional store.
// All request mutations flow through it.
type Engine struct {
	db           *database.DB
	graph        *domain.Graph
	requestRepo  *repository.RequestRepository
	historyRepo  *repository.HistoryRepository
	decisionRepo *repository.DecisionRepository
	enricher     *enrichment.Enricher
	logger       *zap.Logger
	now          func() time.Time

	hooks map[domain.State][]Hook
}

// NewEngine creates a new workflow engine
func NewEngine(
	db *database.DB,
	graph *domain.Graph,
	requestRepo *repository.RequestRepository,
	historyRepo *repository.HistoryRepository,
	decisionRepo *repository.DecisionRepository,
	enricher *enrichment.Enricher,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		db:           db,
		graph:        graph,
		requestRepo:  requestRepo,
		historyRepo:  historyRepo,
		decisionRepo: decisionRepo,
		enricher:     enricher,
		logger:       logger,
		now:          time.Now,
		hooks:        make(map[domain.State][]Hook),
	}
}

// OnEnter registers a state-entry hook
func (e *Engine) OnEnter(state domain.State, hook Hook) {
	e.hooks[state] = append(e.hooks[state], hook)
}

// CreateAuthorizationRequest enriches, scores, validates and persists a
// new request in the intake state. Validation failures surface a
// ValidationError before anything is written.
func (e *Engine) CreateAuthorizationRequest(ctx context.Context, draft *models.AuthorizationRequest, actor string) (*models.AuthorizationRequest, error) {
	req := e.enricher.Enrich(ctx, draft)

	req.PriorityScore = priority.ScoreRequest(req, e.now())

	if missing := e.missingRequiredFields(req); len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	initial := e.graph.InitialState()
	status, _ := initial.DefaultStatus()

	req.RequestNumber = newRequestNumber(e.now())
	req.WorkflowState = initial.String()
	req.Status = status
	req.CreatedBy = actor

	err := e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := e.requestRepo.Create(ctx, tx, req); err != nil {
			return err
		}

		entry := &models.WorkflowHistoryEntry{
			AuthorizationID: req.ID,
			State:           req.WorkflowState,
			Status:          req.Status,
			Notes:           "request created",
			Actor:           actor,
		}
		return e.historyRepo.Create(ctx, tx, entry)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create authorization request: %w", err)
	}

	e.logger.Info("Authorization request created",
		zap.Int64("id", req.ID),
		zap.String("request_number", req.RequestNumber),
		zap.String("service_type", req.ServiceType),
		zap.String("urgency", req.UrgencyLevel),
		zap.Int("priority", req.PriorityScore))

	e.fireHooks(ctx, initial, req)

	return req, nil
}

// Advance moves a request along one edge of the transition graph using
// the state's default status. Use Complete for terminal transitions,
// which require a caller-supplied status.
func (e *Engine) Advance(ctx context.Context, requestID int64, target domain.State, actor, notes string) (*TransitionResult, error) {
	status, ok := target.DefaultStatus()
	if !ok {
		return nil, fmt.Errorf("%w: state %s requires an explicit status, use Complete", domain.ErrInvalidState, target)
	}
	return e.advance(ctx, requestID, target, status, actor, notes, nil)
}

// Complete moves a request into the terminal completed state with the
// approved or denied status and records the matching decision in the
// same transaction. A crash leaves neither the transition nor the
// decision committed.
func (e *Engine) Complete(ctx context.Context, requestID int64, status string, decision *models.Decision, actor, notes string) (*TransitionResult, error) {
	if status != models.StatusApproved && status != models.StatusDenied {
		return nil, fmt.Errorf("%w: completion status must be approved or denied, got %q", domain.ErrInvalidState, status)
	}

	extra := func(tx *sql.Tx, req *models.AuthorizationRequest) error {
		decision.AuthorizationID = req.ID
		return e.decisionRepo.Create(ctx, tx, decision)
	}
	return e.advance(ctx, requestID, domain.StateCompleted, status, actor, notes, extra)
}

// advance performs the read / validate / compare-and-swap / append
// sequence. extra, when set, runs inside the same transaction.
func (e *Engine) advance(ctx context.Context, requestID int64, target domain.State, status, actor, notes string, extra func(*sql.Tx, *models.AuthorizationRequest) error) (*TransitionResult, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidState, target)
	}

	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrRequestNotFound, requestID)
	}

	current := domain.State(req.WorkflowState)
	if !e.graph.CanTransition(current, target) {
		return nil, fmt.Errorf("%w: %s -> %s (request %d)", domain.ErrInvalidTransition, current, target, requestID)
	}

	err = e.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		// The WHERE guard on the previously-read state is what makes
		// this safe against a concurrent advance on the same request.
		if err := e.requestRepo.UpdateState(ctx, tx, requestID, current.String(), target.String(), status); err != nil {
			if errors.Is(err, repository.ErrStaleState) {
				return fmt.Errorf("%w: request %d moved past %s", domain.ErrConcurrentUpdate, requestID, current)
			}
			return err
		}

		entry := &models.WorkflowHistoryEntry{
			AuthorizationID: requestID,
			State:           target.String(),
			Status:          status,
			Notes:           notes,
			Actor:           actor,
		}
		if err := e.historyRepo.Create(ctx, tx, entry); err != nil {
			return err
		}

		if extra != nil {
			return extra(tx, req)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Workflow advanced",
		zap.Int64("request_id", requestID),
		zap.String("from", current.String()),
		zap.String("to", target.String()),
		zap.String("status", status),
		zap.String("actor", actor))

	req.WorkflowState = target.String()
	req.Status = status
	e.fireHooks(ctx, target, req)

	return &TransitionResult{State: target.String(), Status: status}, nil
}

// CurrentState reads a request's current state under a fresh read
func (e *Engine) CurrentState(ctx context.Context, requestID int64) (domain.State, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return "", err
	}
	if req == nil {
		return "", fmt.Errorf("%w: id=%d", ErrRequestNotFound, requestID)
	}
	return domain.State(req.WorkflowState), nil
}

// GetRequest loads a request by ID
func (e *Engine) GetRequest(ctx context.Context, requestID int64) (*models.AuthorizationRequest, error) {
	req, err := e.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("%w: id=%d", ErrRequestNotFound, requestID)
	}
	return req, nil
}

// History returns the ordered lifecycle of a request
func (e *Engine) History(ctx context.Context, requestID int64) ([]*models.WorkflowHistoryEntry, error) {
	return e.historyRepo.GetByAuthorizationID(ctx, requestID)
}

func (e *Engine) fireHooks(ctx context.Context, state domain.State, req *models.AuthorizationRequest) {
	for _, hook := range e.hooks[state] {
		func() {
			defer func() {
				if p := recover(); p != nil {
					e.logger.Error("State-entry hook panicked",
						zap.String("state", state.String()),
						zap.Int64("request_id", req.ID),
						zap.Any("panic", p))
				}
			}()
			hook(ctx, req)
		}()
	}
}

func (e *Engine) missingRequiredFields(req *models.AuthorizationRequest) []string {
	var missing []string
	if strings.TrimSpace(req.PatientID) == "" {
		missing = append(missing, "patient_id")
	}
	if strings.TrimSpace(req.ProviderID) == "" {
		missing = append(missing, "provider_id")
	}
	if strings.TrimSpace(req.PracticeID) == "" {
		missing = append(missing, "practice_id")
	}
	if strings.TrimSpace(req.ServiceType) == "" {
		missing = append(missing, "service_type")
	}
	return missing
}

// newRequestNumber builds a human-readable request number like
// PA-20260115-7F3A21D4
func newRequestNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:8]
	return fmt.Sprintf("PA-%s-%s", now.Format("20060102"), suffix)
}
