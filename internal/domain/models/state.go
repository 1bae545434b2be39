package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned when a contract state change skips or reverses a step
var ErrInvalidTransition = errors.New("invalid state transition")

// ContractState is the progress of one contract within a run
type ContractState string

const (
	StateAbsent    ContractState = "absent"
	StateDeclaring ContractState = "declaring"
	StateDeclared  ContractState = "declared"
	StateDeploying ContractState = "deploying"
	StateDeployed  ContractState = "deployed"
	StateUpgrading ContractState = "upgrading"
	StateUpgraded  ContractState = "upgraded"
	StateFailed    ContractState = "failed"
)

var stateTransitions = map[ContractState][]ContractState{
	StateAbsent:    {StateDeclaring},
	StateDeclaring: {StateDeclared},
	StateDeclared:  {StateDeploying, StateUpgrading},
	StateDeploying: {StateDeployed},
	StateUpgrading: {StateUpgraded},
}

func (s ContractState) String() string {
	return string(s)
}

// IsTerminal reports whether no further step follows s
func (s ContractState) IsTerminal() bool {
	return s == StateDeployed || s == StateUpgraded || s == StateFailed
}

// CanTransition reports whether s may move to next. Every state except
// failed itself may fail.
func (s ContractState) CanTransition(next ContractState) bool {
	if next == StateFailed {
		return s != StateFailed
	}
	for _, allowed := range stateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is allowed
func (s ContractState) Transition(next ContractState) (ContractState, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}
