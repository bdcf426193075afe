package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/enrichment"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/repository"
	"github.com/caretrack/priorauth/pkg/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*Engine, *repository.RequestRepository) {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.NewInMemory(logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations())

	requestRepo := repository.NewRequestRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	decisionRepo := repository.NewDecisionRepository(db.DB, logger)
	enricher := enrichment.NewEnricher(nil, logger)

	engine := NewEngine(db, domain.NewGraph(), requestRepo, historyRepo, decisionRepo, enricher, logger)
	return engine, requestRepo
}

func validDraft() *models.AuthorizationRequest {
	return &models.AuthorizationRequest{
		PatientID:      "pat-1",
		ProviderID:     "prov-1",
		PracticeID:     "prac-1",
		ProcedureCodes: []string{"70551"},
		DiagnosisCodes: []string{"M54.5"},
		ServiceDate:    time.Now().Add(30 * 24 * time.Hour),
	}
}

func TestCreateAuthorizationRequest(t *testing.T) {
	engine, _ := newTestEngine(t)

	req, err := engine.CreateAuthorizationRequest(context.Background(), validDraft(), "dr.smith")
	require.NoError(t, err)

	assert.NotZero(t, req.ID)
	assert.NotEmpty(t, req.RequestNumber)
	assert.Equal(t, domain.StateIntake.String(), req.WorkflowState)
	assert.Equal(t, models.StatusDraft, req.Status)
	assert.Equal(t, models.ServiceTypeImaging, req.ServiceType, "service type inferred from codes")
	assert.NotZero(t, req.PriorityScore)
	assert.Equal(t, "dr.smith", req.CreatedBy)

	history, err := engine.History(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.StateIntake.String(), history[0].State)
	assert.Equal(t, "dr.smith", history[0].Actor)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	engine, requestRepo := newTestEngine(t)

	draft := &models.AuthorizationRequest{
		PatientID:   "pat-1",
		ServiceDate: time.Now().Add(10 * 24 * time.Hour),
		// no procedure codes either, so service_type enriches to "other",
		// which still counts as set; provider and practice stay missing
	}

	_, err := engine.CreateAuthorizationRequest(context.Background(), draft, "dr.smith")
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Missing, "provider_id")
	assert.Contains(t, ve.Missing, "practice_id")
	assert.NotContains(t, ve.Missing, "patient_id")

	// nothing persisted
	requests, err := requestRepo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestAdvanceAlongValidEdges(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req, err := engine.CreateAuthorizationRequest(ctx, validDraft(), "dr.smith")
	require.NoError(t, err)

	steps := []struct {
		target     domain.State
		wantStatus string
	}{
		{domain.StateValidation, models.StatusDraft},
		{domain.StateSubmitted, models.StatusSubmitted},
		{domain.StatePayerReview, models.StatusPending},
		{domain.StateDecision, models.StatusPending},
	}

	for _, step := range steps {
		result, err := engine.Advance(ctx, req.ID, step.target, "reviewer-1", "")
		require.NoError(t, err, "advance to %s", step.target)
		assert.Equal(t, step.target.String(), result.State)
		assert.Equal(t, step.wantStatus, result.Status)
	}

	history, err := engine.History(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Len(t, history, len(steps)+1)
}

func TestAdvanceRejectsNonAdjacentTarget(t *testing.T) {
	engine, requestRepo := newTestEngine(t)
	ctx := context.Background()

	req, err := engine.CreateAuthorizationRequest(ctx, validDraft(), "dr.smith")
	require.NoError(t, err)

	_, err = engine.Advance(ctx, req.ID, domain.StateDecision, "reviewer-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))

	// stored state provably unchanged
	stored, err := requestRepo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateIntake.String(), stored.WorkflowState)
	assert.Equal(t, models.StatusDraft, stored.Status)

	history, err := engine.History(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "no history appended for a rejected transition")
}

func TestAdvanceToCompletedRequiresComplete(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req, err := engine.CreateAuthorizationRequest(ctx, validDraft(), "dr.smith")
	require.NoError(t, err)

	_, err = engine.Advance(ctx, req.ID, domain.StateCompleted, "reviewer-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCompleteWritesDecisionAtomically(t *testing.T) {
	engine, requestRepo := newTestEngine(t)
	ctx := context.Background()

	req, err := engine.CreateAuthorizationRequest(ctx, validDraft(), "dr.smith")
	require.NoError(t, err)

	for _, target := range []domain.State{domain.StateSubmitted, domain.StatePayerReview, domain.StateDecision} {
		_, err = engine.Advance(ctx, req.ID, target, "reviewer-1", "")
		require.NoError(t, err)
	}

	decision := &models.Decision{
		Decision:            models.DecisionDenied,
		Reason:              "criteria not met on clinical review",
		AuthorizationNumber: "AUTH-TEST0001",
		Reviewer:            "reviewer-1",
	}
	result, err := engine.Complete(ctx, req.ID, models.StatusDenied, decision, "reviewer-1", "denied after review")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted.String(), result.State)
	assert.Equal(t, models.StatusDenied, result.Status)
	assert.NotZero(t, decision.ID)

	stored, err := requestRepo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, stored.Status)

	// completed is terminal: nothing moves it again
	_, err = engine.Advance(ctx, req.ID, domain.StateValidation, "reviewer-1", "")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestCompleteRejectsNonDecisionStatus(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	req, err := engine.CreateAuthorizationRequest(ctx, validDraft(), "dr.smith")
	require.NoError(t, err)

	_, err = engine.Complete(ctx, req.ID, models.StatusPending, &models.Decision{}, "reviewer-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestAdvanceUnknownRequest(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Advance(context.Background(), 9999, domain.StateValidation, "reviewer-1", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotFound))
}

func TestHookFailureDoesNotAffectTransition(t *testing.T) {
	engine, requestRepo := newTestEngine(t)
	ctx := context.Background()

	engine.OnEnter(domain.StateValidation, func(ctx context.Context, req *models.AuthorizationRequest) {
		panic("hook exploded")
	})

	req, err := engine.CreateAuthorizationRequest(ctx, validDraft(), "dr.smith")
	require.NoError(t, err)

	result, err := engine.Advance(ctx, req.ID, domain.StateValidation, "reviewer-1", "")
	require.NoError(t, err, "a panicking hook must not fail the advance")
	assert.Equal(t, domain.StateValidation.String(), result.State)

	stored, err := requestRepo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateValidation.String(), stored.WorkflowState)
}
