// Package notification is the boundary to the notification delivery
// collaborator. This subsystem only detects what to notify about;
// delivery happens elsewhere.
package notification

import (
	"github.com/caretrack/priorauth/internal/models"
	"go.uber.org/zap"
)

// Notifier receives detection events for downstream delivery
type Notifier interface {
	// FlagApproachingDeadline marks a request whose service date is
	// close enough that a stalled workflow risks missing it
	FlagApproachingDeadline(req *models.AuthorizationRequest, daysRemaining int)
}

// LogNotifier records flags in the structured log. It stands in until
// a real delivery collaborator is attached.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// FlagApproachingDeadline logs the deadline flag
func (n *LogNotifier) FlagApproachingDeadline(req *models.AuthorizationRequest, daysRemaining int) {
	n.logger.Warn("Request approaching service-date deadline",
		zap.Int64("request_id", req.ID),
		zap.String("request_number", req.RequestNumber),
		zap.String("workflow_state", req.WorkflowState),
		zap.Int("days_remaining", daysRemaining))
}
