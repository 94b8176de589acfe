package pipeline

// State is a stage of request handling.
type State int

const (
	StateReceived State = iota
	StateModerated
	StateRetrieved
	StateWebSearched
	StateSynthesized
	StateMemoryUpdated
	StateCompleted
	StateBlocked
	StateFailed
)

var stateNames = [...]string{
	StateReceived:      "received",
	StateModerated:     "moderated",
	StateRetrieved:     "retrieved",
	StateWebSearched:   "web_searched",
	StateSynthesized:   "synthesized",
	StateMemoryUpdated: "memory_updated",
	StateCompleted:     "completed",
	StateBlocked:       "blocked",
	StateFailed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateBlocked || s == StateFailed
}

// next lists the legal transitions out of each state. Failed is reachable
// from every non-terminal state and is not listed.
var next = map[State][]State{
	StateReceived:      {StateModerated, StateBlocked},
	StateModerated:     {StateRetrieved},
	StateRetrieved:     {StateWebSearched, StateSynthesized},
	StateWebSearched:   {StateSynthesized},
	StateSynthesized:   {StateMemoryUpdated},
	StateMemoryUpdated: {StateCompleted},
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range next[from] {
		if s == to {
			return true
		}
	}
	return false
}
