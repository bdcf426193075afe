package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caretrack/priorauth/internal/models"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEnricher(patients PatientDirectory) *Enricher {
	return NewEnricher(patients, zap.NewNop()).WithClock(func() time.Time { return testNow })
}

type fakeDirectory struct {
	patient *models.Patient
	err     error
}

func (f *fakeDirectory) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	return f.patient, f.err
}

func TestDetectServiceType(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  string
	}{
		{name: "imaging range", codes: []string{"70551"}, want: models.ServiceTypeImaging},
		{name: "surgery range", codes: []string{"27447"}, want: models.ServiceTypeSurgery},
		{name: "physical therapy range", codes: []string{"97110"}, want: models.ServiceTypePhysicalTherapy},
		{name: "laboratory range", codes: []string{"80053"}, want: models.ServiceTypeLaboratory},
		{name: "dme prefix", codes: []string{"E0601"}, want: models.ServiceTypeDME},
		{name: "first match wins", codes: []string{"99213", "70551"}, want: models.ServiceTypeImaging},
		{name: "no match", codes: []string{"99213"}, want: models.ServiceTypeOther},
		{name: "empty codes", codes: nil, want: models.ServiceTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectServiceType(tt.codes))
		})
	}
}

func TestDetectUrgencyLevel(t *testing.T) {
	e := newTestEnricher(nil)

	tests := []struct {
		name       string
		serviceIn  time.Duration
		diagnoses  []string
		procedures []string
		want       string
	}{
		{name: "two days out is urgent", serviceIn: 48 * time.Hour, want: models.UrgencyUrgent},
		{name: "five days out is expedited", serviceIn: 5 * 24 * time.Hour, want: models.UrgencyExpedited},
		{name: "thirty days out is routine", serviceIn: 30 * 24 * time.Hour, want: models.UrgencyRoutine},
		{
			name:      "urgent diagnosis overrides distant date",
			serviceIn: 30 * 24 * time.Hour,
			diagnoses: []string{"I21.4"},
			want:      models.UrgencyUrgent,
		},
		{
			name:       "urgent procedure overrides distant date",
			serviceIn:  30 * 24 * time.Hour,
			procedures: []string{"31500"},
			want:       models.UrgencyUrgent,
		},
		{
			name:      "malignancy prefix is urgent",
			serviceIn: 60 * 24 * time.Hour,
			diagnoses: []string{"C50.911"},
			want:      models.UrgencyUrgent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.DetectUrgencyLevel(testNow.Add(tt.serviceIn), tt.diagnoses, tt.procedures)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimateCost(t *testing.T) {
	assert.Equal(t, 1200.0, EstimateCost([]string{"70551"}))
	assert.Equal(t, 1200.0+5000.0, EstimateCost([]string{"70551", "27447"}))
	assert.Equal(t, defaultCostEstimate, EstimateCost([]string{"99213"}))
	assert.Equal(t, defaultCostEstimate, EstimateCost(nil))
}

func TestEnrichFillsOnlyUnsetFields(t *testing.T) {
	e := newTestEnricher(&fakeDirectory{patient: &models.Patient{ID: "pat-1", PayerID: "payer-9", PayerName: "Acme Health"}})

	draft := &models.AuthorizationRequest{
		PatientID:      "pat-1",
		ProcedureCodes: []string{"70551"},
		ServiceDate:    testNow.Add(30 * 24 * time.Hour),
	}

	enriched := e.Enrich(context.Background(), draft)

	assert.Equal(t, models.ServiceTypeImaging, enriched.ServiceType)
	assert.Equal(t, "payer-9", enriched.PayerID)
	assert.Equal(t, models.UrgencyRoutine, enriched.UrgencyLevel)
	assert.Equal(t, 1200.0, enriched.EstimatedCost)

	// the draft itself stays untouched
	assert.Empty(t, draft.ServiceType)
	assert.Empty(t, draft.PayerID)
}

func TestEnrichNeverOverwritesCallerFields(t *testing.T) {
	e := newTestEnricher(&fakeDirectory{patient: &models.Patient{ID: "pat-1", PayerID: "payer-9"}})

	draft := &models.AuthorizationRequest{
		PatientID:      "pat-1",
		PayerID:        "payer-explicit",
		ServiceType:    models.ServiceTypeSurgery,
		UrgencyLevel:   models.UrgencyRoutine,
		EstimatedCost:  250,
		ProcedureCodes: []string{"70551"},
		ServiceDate:    testNow.Add(24 * time.Hour),
	}

	enriched := e.Enrich(context.Background(), draft)

	assert.Equal(t, "payer-explicit", enriched.PayerID)
	assert.Equal(t, models.ServiceTypeSurgery, enriched.ServiceType)
	assert.Equal(t, models.UrgencyRoutine, enriched.UrgencyLevel)
	assert.Equal(t, 250.0, enriched.EstimatedCost)
}

func TestEnrichDegradesOnLookupFailure(t *testing.T) {
	e := newTestEnricher(&fakeDirectory{err: errors.New("directory unavailable")})

	draft := &models.AuthorizationRequest{
		PatientID:      "pat-1",
		ProcedureCodes: []string{"70551"},
		ServiceDate:    testNow.Add(30 * 24 * time.Hour),
	}

	enriched := e.Enrich(context.Background(), draft)

	// payer fields stay unset, everything else is still inferred
	assert.Empty(t, enriched.PayerID)
	assert.Equal(t, models.ServiceTypeImaging, enriched.ServiceType)
}

func TestEnrichWithAbsentPatient(t *testing.T) {
	e := newTestEnricher(&fakeDirectory{})

	enriched := e.Enrich(context.Background(), &models.AuthorizationRequest{
		PatientID:   "unknown",
		ServiceDate: testNow.Add(10 * 24 * time.Hour),
	})

	assert.Empty(t, enriched.PayerID)
	assert.Empty(t, enriched.PayerName)
}
