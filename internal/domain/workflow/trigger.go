package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerSelectProvider     Trigger = "SELECT_PROVIDER"
	TriggerAcceptDocument     Trigger = "ACCEPT_DOCUMENT"
	TriggerPromptMode         Trigger = "PROMPT_MODE"
	TriggerModesComplete      Trigger = "MODES_COMPLETE"
	TriggerAssignMode         Trigger = "ASSIGN_MODE"
	TriggerSubmitRequirements Trigger = "SUBMIT_REQUIREMENTS"
	TriggerChooseCard         Trigger = "CHOOSE_CARD"
	TriggerChooseCash         Trigger = "CHOOSE_CASH"
	TriggerDispatch           Trigger = "DISPATCH"
	TriggerAccept             Trigger = "ACCEPT"
	TriggerReject             Trigger = "REJECT"
	TriggerRequestRating      Trigger = "REQUEST_RATING"
	TriggerRate               Trigger = "RATE"
	TriggerSubmitComment      Trigger = "SUBMIT_COMMENT"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
