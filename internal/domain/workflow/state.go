package workflow

import "github.com/caretrack/priorauth/internal/models"

// State represents a stage in the authorization workflow lifecycle
type State string

const (
	StateIntake         State = "intake"
	StateValidation     State = "validation"
	StateSubmitted      State = "submitted"
	StatePending        State = "pending"
	StatePayerReview    State = "payer_review"
	StateClinicalReview State = "clinical_review"
	StateDecision       State = "decision"
	StateAppeal         State = "appeal"
	StateCompleted      State = "completed"
)

var validStates = map[State]bool{
	StateIntake:         true,
	StateValidation:     true,
	StateSubmitted:      true,
	StatePending:        true,
	StatePayerReview:    true,
	StateClinicalReview: true,
	StateDecision:       true,
	StateAppeal:         true,
	StateCompleted:      true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
}

// defaultStatus maps each non-terminal state to the coarse status label
// a request carries while in it. Completed is absent on purpose: its
// status (approved/denied) comes from the decision, not from this map.
var defaultStatus = map[State]string{
	StateIntake:         models.StatusDraft,
	StateValidation:     models.StatusDraft,
	StateSubmitted:      models.StatusSubmitted,
	StatePending:        models.StatusPending,
	StatePayerReview:    models.StatusPending,
	StateClinicalReview: models.StatusPending,
	StateDecision:       models.StatusPending,
	StateAppeal:         models.StatusPending,
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// IsTerminal returns true if the state permits no further transitions
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// DefaultStatus returns the status label a request assumes on entering
// the state. For terminal states ok is false and the caller must supply
// the status itself.
func (s State) DefaultStatus() (string, bool) {
	status, ok := defaultStatus[s]
	return status, ok
}
