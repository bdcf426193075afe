package models

import "time"

// PayerRequirements is the locally cached snapshot of a payer's rules
// for one service type. It is owned by the external rules collaborator;
// this subsystem only reads it. The presence of a snapshot row is what
// enables auto-approval for its (payer, service type) pair.
type PayerRequirements struct {
	ID                 int64       `json:"id"`
	PayerID            string      `json:"payer_id"`
	ServiceType        string      `json:"service_type"`
	ApprovedProcedures []string    `json:"approved_procedures,omitempty"`
	ApprovedDiagnoses  []string    `json:"approved_diagnoses,omitempty"` // ICD-10 prefixes
	MaxCost            *float64    `json:"max_cost,omitempty"`
	Conditions         []Condition `json:"conditions,omitempty"`
	RequiredDocuments  []string    `json:"required_documents,omitempty"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// Condition is one clause of the closed rule expression model.
// Free-form executable rule expressions are deliberately not supported.
type Condition struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// Condition operator constants
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpLt       = "lt"
	OpLte      = "lte"
	OpGt       = "gt"
	OpGte      = "gte"
	OpIn       = "in"
	OpContains = "contains"
	OpPrefix   = "prefix"
)

// Patient is the payer-of-record view served by the patient directory
type Patient struct {
	ID        string    `json:"id"`
	PayerID   string    `json:"payer_id"`
	PayerName string    `json:"payer_name"`
	UpdatedAt time.Time `json:"updated_at"`
}
