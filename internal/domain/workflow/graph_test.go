package workflow

import (
	"testing"

	"github.com/caretrack/priorauth/internal/models"
)

func TestGraphTransitions(t *testing.T) {
	graph := NewGraph()

	tests := []struct {
		name string
		from State
		to   State
		want bool
	}{
		{name: "intake to validation", from: StateIntake, to: StateValidation, want: true},
		{name: "intake to submitted", from: StateIntake, to: StateSubmitted, want: true},
		{name: "intake to completed is not adjacent", from: StateIntake, to: StateCompleted, want: false},
		{name: "validation to payer review", from: StateValidation, to: StatePayerReview, want: true},
		{name: "submitted to pending re-queue", from: StateSubmitted, to: StatePending, want: true},
		{name: "pending resumes to payer review", from: StatePending, to: StatePayerReview, want: true},
		{name: "payer review to decision", from: StatePayerReview, to: StateDecision, want: true},
		{name: "clinical review back to payer review", from: StateClinicalReview, to: StatePayerReview, want: true},
		{name: "decision to completed", from: StateDecision, to: StateCompleted, want: true},
		{name: "decision to appeal", from: StateDecision, to: StateAppeal, want: true},
		{name: "appeal back to decision", from: StateAppeal, to: StateDecision, want: true},
		{name: "completed has no outgoing edges", from: StateCompleted, to: StateDecision, want: false},
		{name: "completed cannot re-enter appeal", from: StateCompleted, to: StateAppeal, want: false},
		{name: "no backwards edge from decision to intake", from: StateDecision, to: StateIntake, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.CanTransition(tt.from, tt.to)
			if got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTerminalStates(t *testing.T) {
	if !StateCompleted.IsTerminal() {
		t.Error("completed should be terminal")
	}

	graph := NewGraph()
	if targets := graph.Targets(StateCompleted); len(targets) != 0 {
		t.Errorf("completed should have no targets, got %v", targets)
	}

	for state := range validStates {
		if state == StateCompleted {
			continue
		}
		if state.IsTerminal() {
			t.Errorf("state %s should not be terminal", state)
		}
		if len(graph.Targets(state)) == 0 {
			t.Errorf("non-terminal state %s has no outgoing edges", state)
		}
	}
}

func TestDefaultStatusCoversNonTerminalStates(t *testing.T) {
	for state := range validStates {
		status, ok := state.DefaultStatus()
		if state.IsTerminal() {
			if ok {
				t.Errorf("terminal state %s should have no default status", state)
			}
			continue
		}
		if !ok {
			t.Errorf("non-terminal state %s has no default status", state)
		}
		switch status {
		case models.StatusDraft, models.StatusPending, models.StatusSubmitted:
		default:
			t.Errorf("state %s maps to unexpected status %q", state, status)
		}
	}
}

func TestInitialState(t *testing.T) {
	graph := NewGraph()
	if got := graph.InitialState(); got != StateIntake {
		t.Errorf("InitialState() = %s, want %s", got, StateIntake)
	}
}
