// Package priority computes the processing priority of authorization
// requests. The score is a pure function of urgency, service date and
// estimated cost so it can always be recomputed from the request itself.
package priority

import (
	"time"

	"github.com/caretrack/priorauth/internal/models"
)

// DefaultScore is returned when the inputs cannot be scored; request
// creation must not block on a scoring failure
const DefaultScore = 10

var urgencyBase = map[string]int{
	models.UrgencyUrgent:    100,
	models.UrgencyExpedited: 50,
	models.UrgencyRoutine:   10,
}

// Score computes the priority for a request as of now. Higher means
// more urgent. Within an urgency tier, nearer service dates never score
// below farther ones.
func Score(urgencyLevel string, serviceDate time.Time, estimatedCost float64, now time.Time) int {
	base, ok := urgencyBase[urgencyLevel]
	if !ok || serviceDate.IsZero() {
		return DefaultScore
	}

	score := base + dateProximityBonus(serviceDate, now) + costBonus(estimatedCost)
	if score < 0 {
		return DefaultScore
	}
	return score
}

// ScoreRequest scores a request from its own fields
func ScoreRequest(req *models.AuthorizationRequest, now time.Time) int {
	return Score(req.UrgencyLevel, req.ServiceDate, req.EstimatedCost, now)
}

// dateProximityBonus grows monotonically as the service date approaches
func dateProximityBonus(serviceDate, now time.Time) int {
	daysOut := int(serviceDate.Sub(now).Hours() / 24)
	switch {
	case daysOut <= 1:
		return 30
	case daysOut <= 3:
		return 20
	case daysOut <= 7:
		return 10
	case daysOut <= 14:
		return 5
	default:
		return 0
	}
}

// costBonus nudges expensive requests up within their tier. The bonus
// is capped below the gap between urgency tiers so cost can never
// outrank urgency.
func costBonus(estimatedCost float64) int {
	switch {
	case estimatedCost >= 10000:
		return 9
	case estimatedCost >= 5000:
		return 6
	case estimatedCost >= 1000:
		return 3
	default:
		return 0
	}
}
