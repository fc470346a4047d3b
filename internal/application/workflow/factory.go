package workflow

import (
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
)

// Guards are the session checks the order machine consults
type Guards struct {
	// AllModesSet must hold before an order can be dispatched
	AllModesSet domainwf.GuardFunc
	// HasRating must hold before the comment closes the review
	HasRating domainwf.GuardFunc
}

// BuildOrderStateMachine creates a state machine configured for the order conversation
func BuildOrderStateMachine(initialState domainwf.State, guards Guards) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateIdle).
		Permit(domainwf.TriggerSelectProvider, domainwf.StateProviderSelected)

	builder.Configure(domainwf.StateProviderSelected).
		Permit(domainwf.TriggerAcceptDocument, domainwf.StateCollectingDocuments).
		PermitReentry(domainwf.TriggerSelectProvider)

	// COLLECTING_DOCUMENTS is left immediately: either a mode prompt is
	// shown or every document is priced
	builder.Configure(domainwf.StateCollectingDocuments).
		Permit(domainwf.TriggerPromptMode, domainwf.StateChoosingPrintMode).
		Permit(domainwf.TriggerModesComplete, domainwf.StateCollectingRequirements).
		Permit(domainwf.TriggerSelectProvider, domainwf.StateProviderSelected)

	builder.Configure(domainwf.StateChoosingPrintMode).
		Permit(domainwf.TriggerAcceptDocument, domainwf.StateCollectingDocuments).
		Permit(domainwf.TriggerAssignMode, domainwf.StateCollectingDocuments).
		Permit(domainwf.TriggerSelectProvider, domainwf.StateProviderSelected)

	builder.Configure(domainwf.StateCollectingRequirements).
		Permit(domainwf.TriggerAcceptDocument, domainwf.StateCollectingDocuments).
		Permit(domainwf.TriggerAssignMode, domainwf.StateCollectingDocuments).
		Permit(domainwf.TriggerSubmitRequirements, domainwf.StateChoosingPayment).
		Permit(domainwf.TriggerSelectProvider, domainwf.StateProviderSelected)

	builder.Configure(domainwf.StateChoosingPayment).
		Permit(domainwf.TriggerChooseCard, domainwf.StateCardPayment).
		Permit(domainwf.TriggerChooseCash, domainwf.StateCashAmount).
		PermitReentry(domainwf.TriggerAssignMode).
		Permit(domainwf.TriggerSelectProvider, domainwf.StateProviderSelected)

	builder.Configure(domainwf.StateCardPayment).
		PermitIf(domainwf.TriggerDispatch, domainwf.StateDispatched, guards.AllModesSet)

	builder.Configure(domainwf.StateCashAmount).
		PermitIf(domainwf.TriggerDispatch, domainwf.StateDispatched, guards.AllModesSet).
		Permit(domainwf.TriggerChooseCard, domainwf.StateCardPayment).
		PermitReentry(domainwf.TriggerAssignMode).
		Permit(domainwf.TriggerSelectProvider, domainwf.StateProviderSelected)

	builder.Configure(domainwf.StateDispatched).
		Permit(domainwf.TriggerAccept, domainwf.StateCompleted).
		Permit(domainwf.TriggerReject, domainwf.StateRejected)

	builder.Configure(domainwf.StateCompleted).
		Permit(domainwf.TriggerRequestRating, domainwf.StateRatingPending)

	builder.Configure(domainwf.StateRatingPending).
		PermitReentry(domainwf.TriggerRate).
		PermitIf(domainwf.TriggerSubmitComment, domainwf.StateDone, guards.HasRating)

	// Provider selection is not permitted once an order is dispatched

	// REJECTED and DONE are terminal states - no outgoing transitions

	return builder.Build(initialState)
}
