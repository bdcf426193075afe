package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/models"
	"github.com/caretrack/priorauth/internal/rules"
	"github.com/caretrack/priorauth/internal/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrRequirementsUnavailable marks an eligibility check that could not
// run because no payer requirements are on file. It is non-fatal: the
// request stays where it is and a later pass re-evaluates it.
var ErrRequirementsUnavailable = errors.New("no payer requirements found")

// Eligibility is the outcome of an auto-approval criteria check
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason"`
}

// Outcome reports what ProcessAutoApproval did for one request
type Outcome struct {
	RequestID        int64  `json:"request_id"`
	Approved         bool   `json:"approved"`
	AlreadyCompleted bool   `json:"already_completed"`
	Reason           string `json:"reason"`
}

// fastPath is the canonical next hop toward a completed decision. Every
// intermediate hop is a real edge of the transition graph, so the
// recorded history stays a valid walk.
var fastPath = map[domain.State]domain.State{
	domain.StateIntake:         domain.StateSubmitted,
	domain.StateValidation:     domain.StatePayerReview,
	domain.StateSubmitted:      domain.StatePayerReview,
	domain.StatePending:        domain.StatePayerReview,
	domain.StatePayerReview:    domain.StateDecision,
	domain.StateClinicalReview: domain.StateDecision,
	domain.StateAppeal:         domain.StateDecision,
}

// RulesEngine evaluates auto-approval eligibility and applies the
// decision through the workflow engine
type RulesEngine struct {
	source rules.Source
	engine *workflow.Engine
	logger *zap.Logger
}

// NewRulesEngine creates a new rules engine
func NewRulesEngine(source rules.Source, engine *workflow.Engine, logger *zap.Logger) *RulesEngine {
	return &RulesEngine{
		source: source,
		engine: engine,
		logger: logger,
	}
}

// CheckAutoApprovalCriteria evaluates whether a request qualifies for
// automatic approval under the payer's requirements. Unknown or missing
// requirements always fail closed.
func (r *RulesEngine) CheckAutoApprovalCriteria(req *models.AuthorizationRequest, reqs *models.PayerRequirements) Eligibility {
	if reqs == nil {
		return Eligibility{Eligible: false, Reason: ErrRequirementsUnavailable.Error()}
	}

	if reqs.MaxCost != nil && req.EstimatedCost > *reqs.MaxCost {
		return Eligibility{
			Eligible: false,
			Reason:   fmt.Sprintf("estimated cost %.2f exceeds payer maximum %.2f", req.EstimatedCost, *reqs.MaxCost),
		}
	}

	if len(reqs.ApprovedProcedures) > 0 && !intersects(req.ProcedureCodes, reqs.ApprovedProcedures) {
		return Eligibility{Eligible: false, Reason: "no procedure code on the payer's approved list"}
	}

	if len(reqs.ApprovedDiagnoses) > 0 && !anyHasPrefix(req.DiagnosisCodes, reqs.ApprovedDiagnoses) {
		return Eligibility{Eligible: false, Reason: "no diagnosis code matches an approved prefix"}
	}

	if !evalConditions(reqs.Conditions, req) {
		return Eligibility{Eligible: false, Reason: "payer rule conditions not met"}
	}

	return Eligibility{Eligible: true, Reason: "meets payer auto-approval criteria"}
}

// Evaluate looks up the payer requirements snapshot and checks the
// request against it
func (r *RulesEngine) Evaluate(ctx context.Context, req *models.AuthorizationRequest) (Eligibility, error) {
	if req.PayerID == "" {
		return Eligibility{Eligible: false, Reason: "request has no payer on record"}, nil
	}

	reqs, err := r.source.Lookup(ctx, req.PayerID, req.ServiceType)
	if err != nil {
		return Eligibility{}, fmt.Errorf("requirements lookup failed: %w", err)
	}

	return r.CheckAutoApprovalCriteria(req, reqs), nil
}

// ProcessAutoApproval re-reads the request, evaluates eligibility and,
// when eligible, walks the fast path to completed. The final transition
// and the decision row commit in one transaction; a request already in
// completed is a no-op, which is what makes retries safe.
func (r *RulesEngine) ProcessAutoApproval(ctx context.Context, requestID int64) (*Outcome, error) {
	state, err := r.engine.CurrentState(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if state.IsTerminal() {
		return &Outcome{RequestID: requestID, AlreadyCompleted: true, Reason: "request already completed"}, nil
	}

	req, err := r.engine.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}

	eligibility, err := r.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !eligibility.Eligible {
		r.logger.Debug("Request not eligible for auto-approval",
			zap.Int64("request_id", requestID),
			zap.String("reason", eligibility.Reason))
		return &Outcome{RequestID: requestID, Reason: eligibility.Reason}, nil
	}

	// Walk intermediate edges up to decision. Each hop is a committed,
	// valid transition; a crash mid-walk leaves a re-drivable state.
	for state != domain.StateDecision {
		next, ok := fastPath[state]
		if !ok {
			return nil, fmt.Errorf("%w: no auto-approval path from %s", domain.ErrInvalidTransition, state)
		}
		if _, err := r.engine.Advance(ctx, requestID, next, models.AutomatedSystemActor, "auto-approval fast path"); err != nil {
			return nil, err
		}
		state = next
	}

	decision := &models.Decision{
		AuthorizationID:     requestID,
		Decision:            models.DecisionApproved,
		Reason:              eligibility.Reason,
		AuthorizationNumber: newAuthorizationNumber(),
		Reviewer:            models.AutomatedSystemActor,
	}

	if _, err := r.engine.Complete(ctx, requestID, models.StatusApproved, decision,
		models.AutomatedSystemActor, "auto-approved"); err != nil {
		return nil, err
	}

	r.logger.Info("Request auto-approved",
		zap.Int64("request_id", requestID),
		zap.String("authorization_number", decision.AuthorizationNumber))

	return &Outcome{RequestID: requestID, Approved: true, Reason: eligibility.Reason}, nil
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	for _, v := range a {
		if set[v] {
			return true
		}
	}
	return false
}

func anyHasPrefix(codes, prefixes []string) bool {
	for _, code := range codes {
		for _, prefix := range prefixes {
			if strings.HasPrefix(code, prefix) {
				return true
			}
		}
	}
	return false
}

func newAuthorizationNumber() string {
	return "AUTH-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
}
