package automation

import (
	"strings"

	"github.com/caretrack/priorauth/internal/models"
)

// evalConditions reports whether every condition holds for the request.
// Conditions are the closed (field, operator, literal) model. An unknown
// field, unknown operator or mistyped literal evaluates to false so
// rules can never approve by accident.
func evalConditions(conditions []models.Condition, req *models.AuthorizationRequest) bool {
	for _, cond := range conditions {
		if !evalCondition(cond, req) {
			return false
		}
	}
	return true
}

func evalCondition(cond models.Condition, req *models.AuthorizationRequest) bool {
	switch cond.Field {
	case "estimated_cost":
		return evalNumeric(req.EstimatedCost, cond)
	case "priority_score":
		return evalNumeric(float64(req.PriorityScore), cond)
	case "urgency_level":
		return evalString(req.UrgencyLevel, cond)
	case "service_type":
		return evalString(req.ServiceType, cond)
	case "payer_id":
		return evalString(req.PayerID, cond)
	case "procedure_codes":
		return evalList(req.ProcedureCodes, cond)
	case "diagnosis_codes":
		return evalList(req.DiagnosisCodes, cond)
	default:
		return false
	}
}

func evalNumeric(value float64, cond models.Condition) bool {
	want, ok := toFloat(cond.Value)
	if !ok {
		return false
	}
	switch cond.Operator {
	case models.OpEq:
		return value == want
	case models.OpNe:
		return value != want
	case models.OpLt:
		return value < want
	case models.OpLte:
		return value <= want
	case models.OpGt:
		return value > want
	case models.OpGte:
		return value >= want
	default:
		return false
	}
}

func evalString(value string, cond models.Condition) bool {
	switch cond.Operator {
	case models.OpEq:
		want, ok := cond.Value.(string)
		return ok && value == want
	case models.OpNe:
		want, ok := cond.Value.(string)
		return ok && value != want
	case models.OpPrefix:
		want, ok := cond.Value.(string)
		return ok && strings.HasPrefix(value, want)
	case models.OpIn:
		return listContains(cond.Value, value)
	default:
		return false
	}
}

func evalList(values []string, cond models.Condition) bool {
	switch cond.Operator {
	case models.OpContains:
		want, ok := cond.Value.(string)
		if !ok {
			return false
		}
		for _, v := range values {
			if v == want {
				return true
			}
		}
		return false
	case models.OpPrefix:
		want, ok := cond.Value.(string)
		if !ok {
			return false
		}
		for _, v := range values {
			if strings.HasPrefix(v, want) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func listContains(value interface{}, want string) bool {
	switch list := value.(type) {
	case []string:
		for _, v := range list {
			if v == want {
				return true
			}
		}
	case []interface{}:
		for _, v := range list {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// toFloat accepts the numeric types JSON decoding can produce
func toFloat(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
