package automation

import (
	"testing"

	"github.com/caretrack/priorauth/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestEvalCondition(t *testing.T) {
	req := &models.AuthorizationRequest{
		EstimatedCost:  750,
		PriorityScore:  60,
		UrgencyLevel:   models.UrgencyExpedited,
		ServiceType:    models.ServiceTypeImaging,
		PayerID:        "payer-1",
		ProcedureCodes: []string{"70551", "70553"},
		DiagnosisCodes: []string{"M54.5"},
	}

	tests := []struct {
		name string
		cond models.Condition
		want bool
	}{
		{name: "cost lte passes", cond: models.Condition{Field: "estimated_cost", Operator: models.OpLte, Value: 1000.0}, want: true},
		{name: "cost lte fails", cond: models.Condition{Field: "estimated_cost", Operator: models.OpLte, Value: 500.0}, want: false},
		{name: "cost gt int literal", cond: models.Condition{Field: "estimated_cost", Operator: models.OpGt, Value: 500}, want: true},
		{name: "urgency eq", cond: models.Condition{Field: "urgency_level", Operator: models.OpEq, Value: "expedited"}, want: true},
		{name: "urgency ne", cond: models.Condition{Field: "urgency_level", Operator: models.OpNe, Value: "urgent"}, want: true},
		{name: "service type in list", cond: models.Condition{Field: "service_type", Operator: models.OpIn, Value: []interface{}{"imaging", "laboratory"}}, want: true},
		{name: "service type not in list", cond: models.Condition{Field: "service_type", Operator: models.OpIn, Value: []interface{}{"surgery"}}, want: false},
		{name: "procedure codes contains", cond: models.Condition{Field: "procedure_codes", Operator: models.OpContains, Value: "70553"}, want: true},
		{name: "diagnosis codes prefix", cond: models.Condition{Field: "diagnosis_codes", Operator: models.OpPrefix, Value: "M54"}, want: true},
		{name: "unknown field fails closed", cond: models.Condition{Field: "member_months", Operator: models.OpGt, Value: 1}, want: false},
		{name: "unknown operator fails closed", cond: models.Condition{Field: "estimated_cost", Operator: "matches", Value: 750.0}, want: false},
		{name: "mistyped literal fails closed", cond: models.Condition{Field: "estimated_cost", Operator: models.OpLte, Value: "1000"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evalCondition(tt.cond, req))
		})
	}
}

func TestEvalConditionsConjunction(t *testing.T) {
	req := &models.AuthorizationRequest{EstimatedCost: 750, UrgencyLevel: models.UrgencyRoutine}

	all := []models.Condition{
		{Field: "estimated_cost", Operator: models.OpLte, Value: 1000.0},
		{Field: "urgency_level", Operator: models.OpEq, Value: "routine"},
	}
	assert.True(t, evalConditions(all, req))

	oneFails := append(all, models.Condition{Field: "estimated_cost", Operator: models.OpGt, Value: 1000.0})
	assert.False(t, evalConditions(oneFails, req))

	assert.True(t, evalConditions(nil, req), "no conditions means no constraint")
}
