package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caretrack/priorauth/internal/automation"
	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/repository"
	"github.com/caretrack/priorauth/internal/worker"
	"github.com/caretrack/priorauth/internal/workflow"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine       *workflow.Engine
	rulesEngine  *automation.RulesEngine
	monitor      *worker.Monitor
	requestRepo  *repository.RequestRepository
	decisionRepo *repository.DecisionRepository
	logger       *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine *workflow.Engine,
	rulesEngine *automation.RulesEngine,
	monitor *worker.Monitor,
	requestRepo *repository.RequestRepository,
	decisionRepo *repository.DecisionRepository,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		engine:       engine,
		rulesEngine:  rulesEngine,
		monitor:      monitor,
		requestRepo:  requestRepo,
		decisionRepo: decisionRepo,
		logger:       logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// CreateRequestBody is the creation payload
type CreateRequestBody struct {
	PatientID      string    `json:"patient_id"`
	ProviderID     string    `json:"provider_id"`
	PracticeID     string    `json:"practice_id"`
	PayerID        string    `json:"payer_id"`
	ServiceType    string    `json:"service_type"`
	ProcedureCodes []string  `json:"procedure_codes"`
	DiagnosisCodes []string  `json:"diagnosis_codes"`
	ServiceDate    time.Time `json:"service_date"`
	UrgencyLevel   string    `json:"urgency_level"`
	EstimatedCost  float64   `json:"estimated_cost"`
	ClinicalNotes  string    `json:"clinical_notes"`
	Actor          string    `json:"actor"`
}

// AdvanceBody is the advance payload
type AdvanceBody struct {
	TargetState string `json:"target_state"`
	Actor       string `json:"actor"`
	Notes       string `json:"notes"`
}

// Health reports liveness
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// CreateRequest creates a new authorization request
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	draft := &models.AuthorizationRequest{
		PatientID:      body.PatientID,
		ProviderID:     body.ProviderID,
		PracticeID:     body.PracticeID,
		PayerID:        body.PayerID,
		ServiceType:    body.ServiceType,
		ProcedureCodes: body.ProcedureCodes,
		DiagnosisCodes: body.DiagnosisCodes,
		ServiceDate:    body.ServiceDate,
		UrgencyLevel:   body.UrgencyLevel,
		EstimatedCost:  body.EstimatedCost,
		ClinicalNotes:  body.ClinicalNotes,
	}

	req, err := h.engine.CreateAuthorizationRequest(c.Request.Context(), draft, body.Actor)
	if err != nil {
		if workflow.IsValidationError(err) {
			c.JSON(http.StatusUnprocessableEntity, Response{Error: err.Error()})
			return
		}
		h.logger.Error("Request creation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to create request"})
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// GetRequest returns one request by ID
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	req, err := h.requestRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to load request"})
		return
	}
	if req == nil {
		c.JSON(http.StatusNotFound, Response{Error: "request not found"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// ListRequests returns a page of requests
func (h *Handlers) ListRequests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	requests, err := h.requestRepo.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to list requests"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: requests})
}

// GetHistory returns the ordered workflow history of a request
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	history, err := h.engine.History(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to load history"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// GetDecisions returns the decisions recorded for a request
func (h *Handlers) GetDecisions(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	decisions, err := h.decisionRepo.GetByAuthorizationID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, Response{Error: "failed to load decisions"})
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: decisions})
}

// AdvanceRequest advances a request one edge along the workflow graph
func (h *Handlers) AdvanceRequest(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var body AdvanceBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	result, err := h.engine.Advance(c.Request.Context(), id, domain.State(body.TargetState), body.Actor, body.Notes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidState):
			c.JSON(http.StatusConflict, Response{Error: err.Error()})
		case errors.Is(err, domain.ErrConcurrentUpdate):
			c.JSON(http.StatusConflict, Response{Error: err.Error()})
		case errors.Is(err, workflow.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, Response{Error: "request not found"})
		default:
			h.logger.Error("Advance failed", zap.Int64("request_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, Response{Error: "failed to advance request"})
		}
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

// RunAutomationPass triggers one reconciliation pass synchronously
func (h *Handlers) RunAutomationPass(c *gin.Context) {
	result := h.monitor.RunPass(c.Request.Context())
	c.JSON(http.StatusOK, Response{Success: true, Data: result})
}

func (h *Handlers) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Error: "invalid request id"})
		return 0, false
	}
	return id, true
}
