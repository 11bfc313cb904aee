package participant

import "errors"

// State is the participant's position in the draw
type State string

const (
	StateNotPicked State = "not_picked"
	StatePicked    State = "picked"
)

func (s State) String() string {
	return string(s)
}

var (
	ErrAlreadyPicked    = errors.New("participant has already picked")
	ErrInvalidTarget    = errors.New("pick target must be another participant")
	ErrInconsistentPick = errors.New("picked target must be set if and only if the participant has picked")
)
