package payment

// State is the lifecycle label of a transaction.
type State string

const (
	StatePending   State = "PENDING"
	StateInitiated State = "INITIATED"
	StateVerified  State = "VERIFIED"
	StateConfirmed State = "CONFIRMED"
	StateCancelled State = "CANCELLED"
	StateError     State = "ERROR"
)

// StatusNotFound is returned by status queries whose id does not match.
const StatusNotFound = "NOT_FOUND"

// transitions lists the states reachable from each state. Terminal states have none.
var transitions = map[State][]State{
	StatePending:   {StateInitiated, StateError},
	StateInitiated: {StateVerified, StateCancelled, StateError},
	StateVerified:  {StateConfirmed, StateCancelled, StateError},
}

// Terminal reports whether s has no outgoing transitions.
func (s State) Terminal() bool { return len(transitions[s]) == 0 }

func (s State) CanTransitionTo(next State) bool {
	for _, n := range transitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

func (s State) String() string { return string(s) }
