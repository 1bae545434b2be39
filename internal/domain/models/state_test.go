package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContractStateTransitions(t *testing.T) {
	tests := []struct {
		name  string
		path  []ContractState
		valid bool
	}{
		{"fresh deploy", []ContractState{StateAbsent, StateDeclaring, StateDeclared, StateDeploying, StateDeployed}, true},
		{"upgrade", []ContractState{StateAbsent, StateDeclaring, StateDeclared, StateUpgrading, StateUpgraded}, true},
		{"fail while deploying", []ContractState{StateAbsent, StateDeclaring, StateDeclared, StateDeploying, StateFailed}, true},
		{"fail before declaring", []ContractState{StateAbsent, StateFailed}, true},
		{"deploy without declare", []ContractState{StateAbsent, StateDeploying}, false},
		{"redeploy", []ContractState{StateAbsent, StateDeclaring, StateDeclared, StateDeploying, StateDeployed, StateDeploying}, false},
		{"upgrade while deploying", []ContractState{StateAbsent, StateDeclaring, StateDeclared, StateDeploying, StateUpgrading}, false},
		{"fail twice", []ContractState{StateAbsent, StateFailed, StateFailed}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.path[0]
			var err error
			for _, next := range tt.path[1:] {
				if state, err = state.Transition(next); err != nil {
					break
				}
			}
			if tt.valid {
				require.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], state)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestContractStateIsTerminal(t *testing.T) {
	assert.True(t, StateDeployed.IsTerminal())
	assert.True(t, StateUpgraded.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())
	assert.False(t, StateDeclared.IsTerminal())
	assert.False(t, StateAbsent.IsTerminal())
}

func TestContractStateTransitionKeepsStateOnError(t *testing.T) {
	s, err := StateDeclared.Transition(StateDeployed)
	assert.Error(t, err)
	assert.Equal(t, StateDeclared, s)
	assert.Contains(t, err.Error(), "declared -> deployed")
}
