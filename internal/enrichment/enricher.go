package enrichment

import (
	"context"
	"strings"
	"time"

	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// PatientDirectory is the patient-records collaborator boundary.
// A failed or empty lookup is not an error for enrichment purposes.
type PatientDirectory interface {
	GetByID(ctx context.Context, id string) (*models.Patient, error)
}

// Clock abstracts time.Now so urgency detection is testable
type Clock func() time.Time

// Enricher infers missing request fields from submitted codes and
// identifiers. It is strictly additive: caller-supplied fields are never
// overwritten and any internal failure returns the input unchanged.
type Enricher struct {
	patients PatientDirectory
	now      Clock
	logger   *zap.Logger
}

// NewEnricher creates a new enricher
func NewEnricher(patients PatientDirectory, logger *zap.Logger) *Enricher {
	return &Enricher{
		patients: patients,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the clock, used by tests
func (e *Enricher) WithClock(now Clock) *Enricher {
	e.now = now
	return e
}

// Enrich fills unset fields on a copy of the request
func (e *Enricher) Enrich(ctx context.Context, req *models.AuthorizationRequest) *models.AuthorizationRequest {
	enriched := *req

	if enriched.ServiceType == "" {
		enriched.ServiceType = DetectServiceType(enriched.ProcedureCodes)
	}

	if enriched.PayerID == "" && enriched.PatientID != "" {
		e.detectPayerInfo(ctx, &enriched)
	}

	if enriched.UrgencyLevel == "" {
		enriched.UrgencyLevel = e.DetectUrgencyLevel(enriched.ServiceDate, enriched.DiagnosisCodes, enriched.ProcedureCodes)
	}

	if enriched.EstimatedCost == 0 {
		enriched.EstimatedCost = EstimateCost(enriched.ProcedureCodes)
	}

	return &enriched
}

// DetectServiceType matches procedure codes against the ordered range
// table; the first code that falls in a range decides, no match means other
func DetectServiceType(procedureCodes []string) string {
	for _, code := range procedureCodes {
		if r, ok := matchServiceCode(code); ok {
			return r.serviceType
		}
	}
	return models.ServiceTypeOther
}

// detectPayerInfo performs a single payer-of-record lookup. Absent or
// failed lookups leave the payer fields unset.
func (e *Enricher) detectPayerInfo(ctx context.Context, req *models.AuthorizationRequest) {
	if e.patients == nil {
		return
	}

	patient, err := e.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		e.logger.Warn("Payer lookup failed, leaving payer fields unset",
			zap.String("patient_id", req.PatientID),
			zap.Error(err))
		return
	}
	if patient == nil {
		return
	}

	req.PayerID = patient.PayerID
	req.PayerName = patient.PayerName
}

// DetectUrgencyLevel classifies a request by service-date proximity with
// diagnosis and procedure overrides taking precedence over the date
func (e *Enricher) DetectUrgencyLevel(serviceDate time.Time, diagnosisCodes, procedureCodes []string) string {
	for _, code := range diagnosisCodes {
		upper := strings.ToUpper(strings.TrimSpace(code))
		for _, prefix := range urgentDiagnosisPrefixes {
			if strings.HasPrefix(upper, prefix) {
				return models.UrgencyUrgent
			}
		}
	}

	for _, code := range procedureCodes {
		if urgentProcedureCodes[strings.TrimSpace(code)] {
			return models.UrgencyUrgent
		}
	}

	if serviceDate.IsZero() {
		return models.UrgencyRoutine
	}

	daysOut := serviceDate.Sub(e.now()).Hours() / 24
	switch {
	case daysOut <= 3:
		return models.UrgencyUrgent
	case daysOut <= 7:
		return models.UrgencyExpedited
	default:
		return models.UrgencyRoutine
	}
}

// EstimateCost sums the per-category base estimate for each matched
// procedure code, falling back to a fixed default when nothing matches
func EstimateCost(procedureCodes []string) float64 {
	total := 0.0
	for _, code := range procedureCodes {
		if r, ok := matchServiceCode(code); ok {
			total += r.baseCost
		}
	}
	if total == 0 {
		return defaultCostEstimate
	}
	return total
}
