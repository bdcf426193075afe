// Package rules defines the boundary to the payer rules collaborator.
// The automation engine only ever reads requirements through it.
package rules

import (
	"context"

	"github.com/caretrack/priorauth/internal/models"
)

// Source looks up the payer requirements snapshot for a payer and
// service type. Implementations return (nil, nil) when no requirements
// are on file; callers must treat that as "not eligible", never as an
// implicit approval.
type Source interface {
	Lookup(ctx context.Context, payerID, serviceType string) (*models.PayerRequirements, error)
}
