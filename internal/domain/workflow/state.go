package workflow

// State represents a phase of a requester's order conversation
type State string

const (
	StateIdle                   State = "IDLE"
	StateProviderSelected       State = "PROVIDER_SELECTED"
	StateCollectingDocuments    State = "COLLECTING_DOCUMENTS"
	StateChoosingPrintMode      State = "CHOOSING_PRINT_MODE"
	StateCollectingRequirements State = "COLLECTING_REQUIREMENTS"
	StateChoosingPayment        State = "CHOOSING_PAYMENT"
	StateCardPayment            State = "CARD_PAYMENT"
	StateCashAmount             State = "CASH_AMOUNT"
	StateDispatched             State = "DISPATCHED"
	StateCompleted              State = "COMPLETED"
	StateRejected               State = "REJECTED"
	StateRatingPending          State = "RATING_PENDING"
	StateDone                   State = "DONE"
)

var validStates = map[State]bool{
	StateIdle:                   true,
	StateProviderSelected:       true,
	StateCollectingDocuments:    true,
	StateChoosingPrintMode:      true,
	StateCollectingRequirements: true,
	StateChoosingPayment:        true,
	StateCardPayment:            true,
	StateCashAmount:             true,
	StateDispatched:             true,
	StateCompleted:              true,
	StateRejected:               true,
	StateRatingPending:          true,
	StateDone:                   true,
}

var terminalStates = map[State]bool{
	StateRejected: true,
	StateDone:     true,
}

// preDispatchStates are the phases in which the order is still editable
var preDispatchStates = map[State]bool{
	StateIdle:                   true,
	StateProviderSelected:       true,
	StateCollectingDocuments:    true,
	StateChoosingPrintMode:      true,
	StateCollectingRequirements: true,
	StateChoosingPayment:        true,
	StateCardPayment:            true,
	StateCashAmount:             true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsPreDispatch returns true while the order has not been handed to the provider
func (s State) IsPreDispatch() bool {
	return preDispatchStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
