package workflow

import (
	"context"
	"fmt"
)

// GuardFunc is a function that evaluates whether a transition should be allowed
type GuardFunc func(ctx context.Context) bool

// StateMachineBuilder collects the transition table for a workflow
type StateMachineBuilder interface {
	// Configure returns a state configuration for the given state
	Configure(state State) StateConfiguration

	// Build creates a new state machine instance with the given initial state
	Build(initialState State) StateMachine
}

// StateConfiguration configures transitions leaving one state
type StateConfiguration interface {
	// Permit allows a trigger to transition to the target state
	Permit(trigger Trigger, toState State) StateConfiguration

	// PermitIf allows a trigger to transition to the target state if the guard passes
	PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration

	// PermitReentry allows a trigger that keeps the machine in the same state
	PermitReentry(trigger Trigger) StateConfiguration
}

type transition struct {
	to    State
	guard GuardFunc
}

// transitionTable maps from-state -> trigger -> ordered candidate transitions
type transitionTable map[State]map[Trigger][]transition

type stateMachineBuilder struct {
	table transitionTable
}

type stateConfig struct {
	from  State
	table transitionTable
}

// NewBuilder creates a new state machine builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{table: make(transitionTable)}
}

// Configure panics on an unknown state: tables are built at init time from constants.
func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	mustBeValid(state, "state")
	if _, ok := b.table[state]; !ok {
		b.table[state] = make(map[Trigger][]transition)
	}
	return &stateConfig{from: state, table: b.table}
}

// Build snapshots the table so later Configure calls do not leak into built machines.
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	mustBeValid(initialState, "initial state")

	snapshot := make(transitionTable, len(b.table))
	for from, byTrigger := range b.table {
		copied := make(map[Trigger][]transition, len(byTrigger))
		for trigger, candidates := range byTrigger {
			copied[trigger] = append([]transition(nil), candidates...)
		}
		snapshot[from] = copied
	}

	return &stateMachine{current: initialState, table: snapshot}
}

func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	return c.PermitIf(trigger, toState, nil)
}

func (c *stateConfig) PermitIf(trigger Trigger, toState State, guard GuardFunc) StateConfiguration {
	mustBeValid(toState, "target state")
	c.table[c.from][trigger] = append(c.table[c.from][trigger], transition{to: toState, guard: guard})
	return c
}

func (c *stateConfig) PermitReentry(trigger Trigger) StateConfiguration {
	return c.Permit(trigger, c.from)
}

func mustBeValid(s State, what string) {
	if !s.IsValid() {
		panic(fmt.Sprintf("invalid %s: %s", what, s))
	}
}
