package automation

import (
	"context"

	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/workflow"
	"go.uber.org/zap"
)

// Actions holds the secondary, best-effort automation triggered from
// state-entry hooks. Every method swallows its own failures: these
// actions are additive and must never be a prerequisite for a request's
// base correctness.
type Actions struct {
	engine *workflow.Engine
	logger *zap.Logger
}

// NewActions creates the secondary action set
func NewActions(engine *workflow.Engine, logger *zap.Logger) *Actions {
	return &Actions{
		engine: engine,
		logger: logger,
	}
}

// RegisterHooks wires the actions into the workflow engine
func (a *Actions) RegisterHooks() {
	a.engine.OnEnter(domain.StateIntake, a.ScheduleValidation)
	a.engine.OnEnter(domain.StatePayerReview, a.SchedulePayerSubmission)
}

// ScheduleValidation queues a validation pass for a freshly created
// request whose enrichment left gaps
func (a *Actions) ScheduleValidation(ctx context.Context, req *models.AuthorizationRequest) {
	if req.ServiceType != models.ServiceTypeOther && req.PayerID != "" {
		return
	}

	if _, err := a.engine.Advance(ctx, req.ID, domain.StateValidation,
		models.AutomatedSystemActor, "scheduled validation: enrichment incomplete"); err != nil {
		a.logger.Warn("Validation scheduling failed",
			zap.Int64("request_id", req.ID),
			zap.Error(err))
	}
}

// SchedulePayerSubmission notes that the request is ready to go to the
// payer. Actual submission belongs to the payer connectivity
// collaborator; this only records the intent.
func (a *Actions) SchedulePayerSubmission(ctx context.Context, req *models.AuthorizationRequest) {
	a.logger.Info("Payer submission scheduled",
		zap.Int64("request_id", req.ID),
		zap.String("payer_id", req.PayerID),
		zap.String("service_type", req.ServiceType))
}
