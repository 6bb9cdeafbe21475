package orchestrator

// State represents the lifecycle of a job as seen by the orchestrator.
type State string

const (
	StateIdle       State = "idle"
	StateProcessing State = "processing"
	StateReady      State = "ready"
	StateAnalyzing  State = "analyzing"
	StateAnalyzed   State = "analyzed"
	StateFailed     State = "failed"
)

// forwardOrder is the strict progression a healthy job follows. Failed is the
// only escape hatch, and only from states with work in flight.
var forwardOrder = map[State]State{
	StateIdle:       StateProcessing,
	StateProcessing: StateReady,
	StateReady:      StateAnalyzing,
	StateAnalyzing:  StateAnalyzed,
}

// failableStates are the states from which a job may transition to failed.
// Idle and ready are caller-only waiting states with nothing in flight.
var failableStates = map[State]struct{}{
	StateProcessing: {},
	StateAnalyzing:  {},
}

// Terminal reports whether the state ends a job's lifecycle.
func (s State) Terminal() bool {
	return s == StateAnalyzed || s == StateFailed
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		_, ok := failableStates[from]
		return ok
	}
	return forwardOrder[from] == to
}
