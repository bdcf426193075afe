package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/enrichment"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/repository"
	"github.com/caretrack/priorauth/internal/workflow"
	"github.com/caretrack/priorauth/pkg/database"
)

type listResponse struct {
	Success bool                           `json:"success"`
	Data    []*models.AuthorizationRequest `json:"data"`
	Error   string                         `json:"error"`
}

func newListRouter(t *testing.T) (*gin.Engine, *workflow.Engine) {
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
	engine := workflow.NewEngine(db, domain.NewGraph(), requestRepo, historyRepo, decisionRepo, enricher, logger)

	handlers := NewHandlers(engine, nil, nil, requestRepo, decisionRepo, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/v1/requests", handlers.ListRequests)
	return router, engine
}

func seedRequests(t *testing.T, engine *workflow.Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := engine.CreateAuthorizationRequest(context.Background(), &models.AuthorizationRequest{
			PatientID:      "pat-1",
			ProviderID:     "prov-1",
			PracticeID:     "prac-1",
			PayerID:        "payer-acme",
			ProcedureCodes: []string{"99213"},
			DiagnosisCodes: []string{"M54.5"},
			ServiceDate:    time.Now().Add(30 * 24 * time.Hour),
		}, "dr.smith")
		require.NoError(t, err)
	}
}

func TestListRequestsClampsNegativeOffset(t *testing.T) {
	router, engine := newListRouter(t)
	seedRequests(t, engine, 3)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?offset=-5", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 3, "a negative offset reads from the start of the list")
}

func TestListRequestsPaging(t *testing.T) {
	router, engine := newListRouter(t)
	seedRequests(t, engine, 5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/requests?limit=2&offset=4", nil)
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data, 1)
}
