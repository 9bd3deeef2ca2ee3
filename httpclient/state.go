package httpclient

import (
	"slices"

	"github.com/gaborage/rurl/logger"
)

// State is the lifecycle stage of one call.
type State int

const (
	StateIdle State = iota
	StateBuildingRequest
	StateInFlight
	StateRetrying
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateBuildingRequest: "building_request",
	StateInFlight:        "in_flight",
	StateRetrying:        "retrying",
	StateSucceeded:       "succeeded",
	StateFailed:          "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// allowedTransitions lists the legal successors of each state.
var allowedTransitions = map[State][]State{
	StateIdle:            {StateBuildingRequest},
	StateBuildingRequest: {StateInFlight, StateFailed},
	StateInFlight:        {StateRetrying, StateSucceeded, StateFailed},
	StateRetrying:        {StateInFlight, StateFailed},
}

// execution tracks the state of a single call.
type execution struct {
	state State
	log   logger.Logger
	hook  func(State)
}

func newExecution(log logger.Logger, hook func(State)) *execution {
	e := &execution{state: StateIdle, log: log, hook: hook}
	if hook != nil {
		hook(StateIdle)
	}
	return e
}

func (e *execution) transition(to State) {
	if !slices.Contains(allowedTransitions[e.state], to) {
		e.log.Error().Str("from", e.state.String()).Str("to", to.String()).Msg("Illegal request state transition")
	} else {
		e.log.Debug().Str("from", e.state.String()).Str("to", to.String()).Msg("Request state changed")
	}
	e.state = to
	if e.hook != nil {
		e.hook(to)
	}
}
