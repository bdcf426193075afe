package models

import "time"

// AuthorizationRequest represents a prior-authorization case tracked
// through its workflow lifecycle
type AuthorizationRequest struct {
	ID             int64      `json:"id"`
	RequestNumber  string     `json:"request_number"`
	PatientID      string     `json:"patient_id"`
	ProviderID     string     `json:"provider_id"`
	PracticeID     string     `json:"practice_id"`
	PayerID        string     `json:"payer_id,omitempty"`
	PayerName      string     `json:"payer_name,omitempty"`
	ServiceType    string     `json:"service_type"` // imaging, surgery, dme, physical_therapy, laboratory, other
	ProcedureCodes []string   `json:"procedure_codes"`
	DiagnosisCodes []string   `json:"diagnosis_codes"`
	ServiceDate    time.Time  `json:"service_date"`
	UrgencyLevel   string     `json:"urgency_level"` // routine, expedited, urgent
	EstimatedCost  float64    `json:"estimated_cost"`
	PriorityScore  int        `json:"priority_score"`
	WorkflowState  string     `json:"workflow_state"`
	Status         string     `json:"status"` // draft, pending, submitted, approved, denied
	ClinicalNotes  string     `json:"clinical_notes,omitempty"`
	Documents      []Document `json:"supporting_documents,omitempty"`
	CreatedBy      string     `json:"created_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Document references a supporting document attached to a request.
// Content lives with the intake/OCR collaborator; only metadata is kept here.
type Document struct {
	Name       string    `json:"name"`
	Reference  string    `json:"reference"`
	UploadedAt time.Time `json:"uploaded_at,omitempty"`
}

// WorkflowHistoryEntry is one immutable step in a request's audit trail
type WorkflowHistoryEntry struct {
	ID              int64     `json:"id"`
	AuthorizationID int64     `json:"authorization_id"`
	State           string    `json:"state"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	Actor           string    `json:"actor"`
	Timestamp       time.Time `json:"timestamp"`
}

// Decision records the approve/deny outcome of a workflow cycle
type Decision struct {
	ID                  int64     `json:"id"`
	AuthorizationID     int64     `json:"authorization_id"`
	Decision            string    `json:"decision"` // approved, denied
	Reason              string    `json:"reason"`
	AuthorizationNumber string    `json:"authorization_number"`
	Reviewer            string    `json:"reviewer"`
	DecidedAt           time.Time `json:"decided_at"`
}

// Urgency level constants
const (
	UrgencyRoutine   = "routine"
	UrgencyExpedited = "expedited"
	UrgencyUrgent    = "urgent"
)

// Status constants (coarse lifecycle label derived from workflow state)
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusDenied    = "denied"
)

// Decision constants
const (
	DecisionApproved = "approved"
	DecisionDenied   = "denied"
)

// Service type constants
const (
	ServiceTypeImaging         = "imaging"
	ServiceTypeSurgery         = "surgery"
	ServiceTypeDME             = "dme"
	ServiceTypePhysicalTherapy = "physical_therapy"
	ServiceTypeLaboratory      = "laboratory"
	ServiceTypeOther           = "other"
)

// AutomatedSystemActor identifies decisions made by the rules engine
// rather than a human reviewer
const AutomatedSystemActor = "automated-system"
