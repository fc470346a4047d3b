package entity

import (
	"strings"
	"time"

	"github.com/garyjia/dorm-print/internal/domain/pricing"
)

// DialogStep names the free-text answer a user is asked for outside an order
type DialogStep string

const (
	StepRegisterName        DialogStep = "register_name"
	StepRegisterRoom        DialogStep = "register_room"
	StepRegisterRates       DialogStep = "register_rates"
	StepRegisterDescription DialogStep = "register_description"
	StepRegisterCard        DialogStep = "register_card"
	// StepRegisterCapability is answered with a button, not text
	StepRegisterCapability DialogStep = "register_capability"

	StepEditRoom        DialogStep = "edit_room"
	StepEditRates       DialogStep = "edit_rates"
	StepEditDescription DialogStep = "edit_description"
	StepEditCard        DialogStep = "edit_card"

	StepSupportQuestion DialogStep = "support_question"
	StepSupportReply    DialogStep = "support_reply"
)

// IsRegistration reports whether the step belongs to provider onboarding
func (s DialogStep) IsRegistration() bool {
	return strings.HasPrefix(string(s), "register_")
}

// ProviderDraft collects a registration across several messages
type ProviderDraft struct {
	DisplayName string
	Room        string
	Rates       pricing.RateCard
	Description string
	CardRef     string
}

// Dialog is one user's pending prompt. ReplyTo is set for StepSupportReply
// and names the user the answer goes to.
type Dialog struct {
	UserID    string
	Step      DialogStep
	Draft     ProviderDraft
	ReplyTo   string
	UpdatedAt time.Time
}

// NewDialog starts a dialog at step
func NewDialog(userID string, step DialogStep, now time.Time) *Dialog {
	return &Dialog{UserID: userID, Step: step, UpdatedAt: now}
}

// Advance moves the dialog to the next step
func (d *Dialog) Advance(step DialogStep, now time.Time) {
	d.Step = step
	d.UpdatedAt = now
}
