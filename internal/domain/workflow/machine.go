package workflow

import "context"

// StateMachine tracks the current state of one conversation and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger has at least one transition from the current state.
	// Guards are not evaluated.
	CanFire(trigger Trigger) bool

	// Fire executes the trigger, moving to the first target whose guard passes
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns all triggers configured for the current state
	PermittedTriggers() []Trigger
}

type stateMachine struct {
	current State
	table   transitionTable
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	return len(m.table[m.current][trigger]) > 0
}

func (m *stateMachine) Fire(ctx context.Context, trigger Trigger) error {
	candidates := m.table[m.current][trigger]
	if len(candidates) == 0 {
		return &TransitionError{From: m.current, Trigger: trigger, Err: ErrInvalidTransition}
	}

	for _, t := range candidates {
		if t.guard != nil && !t.guard(ctx) {
			continue
		}
		m.current = t.to
		return nil
	}

	return &TransitionError{From: m.current, Trigger: trigger, Err: ErrGuardFailed}
}

func (m *stateMachine) PermittedTriggers() []Trigger {
	triggers := make([]Trigger, 0, len(m.table[m.current]))
	for trigger := range m.table[m.current] {
		triggers = append(triggers, trigger)
	}
	return triggers
}
