package priority

import (
	"testing"
	"time"

	"github.com/caretrack/priorauth/internal/models"
	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func TestUrgencyTierOrdering(t *testing.T) {
	serviceDate := now.Add(10 * 24 * time.Hour)
	cost := 2000.0

	urgent := Score(models.UrgencyUrgent, serviceDate, cost, now)
	expedited := Score(models.UrgencyExpedited, serviceDate, cost, now)
	routine := Score(models.UrgencyRoutine, serviceDate, cost, now)

	assert.Greater(t, urgent, expedited)
	assert.Greater(t, expedited, routine)
}

func TestNearerDatesScoreAtLeastAsHigh(t *testing.T) {
	cost := 500.0
	days := []int{1, 2, 3, 5, 7, 10, 14, 21, 60}

	for _, urgency := range []string{models.UrgencyUrgent, models.UrgencyExpedited, models.UrgencyRoutine} {
		prev := -1
		for i := len(days) - 1; i >= 0; i-- {
			serviceDate := now.Add(time.Duration(days[i]) * 24 * time.Hour)
			score := Score(urgency, serviceDate, cost, now)
			if prev >= 0 {
				assert.GreaterOrEqual(t, score, prev,
					"urgency %s: score at %d days should be >= score at farther date", urgency, days[i])
			}
			prev = score
		}
	}
}

func TestCostNeverOutranksUrgency(t *testing.T) {
	serviceDate := now.Add(10 * 24 * time.Hour)

	cheapUrgent := Score(models.UrgencyUrgent, serviceDate, 100, now)
	expensiveExpedited := Score(models.UrgencyExpedited, serviceDate, 50000, now)

	assert.Greater(t, cheapUrgent, expensiveExpedited)
}

func TestDefaultScoreOnBadInput(t *testing.T) {
	assert.Equal(t, DefaultScore, Score("bogus", now.Add(24*time.Hour), 100, now))
	assert.Equal(t, DefaultScore, Score(models.UrgencyUrgent, time.Time{}, 100, now))
}

func TestScoreIsRecomputable(t *testing.T) {
	req := &models.AuthorizationRequest{
		UrgencyLevel:  models.UrgencyExpedited,
		ServiceDate:   now.Add(5 * 24 * time.Hour),
		EstimatedCost: 1200,
	}

	first := ScoreRequest(req, now)
	second := ScoreRequest(req, now)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Score(req.UrgencyLevel, req.ServiceDate, req.EstimatedCost, now))
}
