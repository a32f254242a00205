package entity

// State is the lifecycle position of an entity. Transitions only move
// forward, except Initializing falling back to Awake on a failed initialize.
type State int

const (
	Constructed State = iota
	Awake
	Initializing
	Initialized
	Destroyed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "Constructed"
	case Awake:
		return "Awake"
	case Initializing:
		return "Initializing"
	case Initialized:
		return "Initialized"
	case Destroyed:
		return "Destroyed"
	default:
		return "Unknown"
	}
}
