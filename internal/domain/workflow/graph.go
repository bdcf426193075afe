package workflow

import "fmt"

// Graph is the closed transition table for the authorization workflow.
// It is built once at startup and never mutated afterwards.
type Graph struct {
	edges map[State][]State
}

// NewGraph constructs the transition graph and panics if the table
// references an unknown state or gives a terminal state an outgoing
// edge. Construction-time checking keeps unhandled states from hiding
// behind string comparisons at runtime.
func NewGraph() *Graph {
	g := &Graph{
		edges: map[State][]State{
			StateIntake:         {StateValidation, StateSubmitted},
			StateValidation:     {StatePayerReview, StateClinicalReview, StateSubmitted},
			StateSubmitted:      {StatePayerReview, StatePending},
			StatePending:        {StateSubmitted, StatePayerReview},
			StatePayerReview:    {StateClinicalReview, StateDecision, StatePending},
			StateClinicalReview: {StateDecision, StatePayerReview},
			StateDecision:       {StateCompleted, StateAppeal},
			StateAppeal:         {StateDecision, StateCompleted},
			StateCompleted:      {},
		},
	}

	if err := g.validate(); err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) validate() error {
	for state := range validStates {
		if _, ok := g.edges[state]; !ok {
			return fmt.Errorf("workflow graph: state %s has no transition entry", state)
		}
	}
	for from, targets := range g.edges {
		if !from.IsValid() {
			return fmt.Errorf("workflow graph: unknown source state %s", from)
		}
		if from.IsTerminal() && len(targets) > 0 {
			return fmt.Errorf("workflow graph: terminal state %s has outgoing edges", from)
		}
		for _, to := range targets {
			if !to.IsValid() {
				return fmt.Errorf("workflow graph: unknown target state %s (from %s)", to, from)
			}
		}
		if !from.IsTerminal() {
			if _, ok := from.DefaultStatus(); !ok {
				return fmt.Errorf("workflow graph: non-terminal state %s has no default status", from)
			}
		}
	}
	return nil
}

// CanTransition reports whether the edge from -> to exists
func (g *Graph) CanTransition(from, to State) bool {
	for _, target := range g.edges[from] {
		if target == to {
			return true
		}
	}
	return false
}

// Targets returns the allowed successor states of from
func (g *Graph) Targets(from State) []State {
	targets := g.edges[from]
	out := make([]State, len(targets))
	copy(out, targets)
	return out
}

// InitialState is where every request lifecycle begins
func (g *Graph) InitialState() State {
	return StateIntake
}
