package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
	"github.com/garyjia/dorm-print/pkg/utils"
)

const ratesPrompt = "Send your price per page: one amount for both modes, or black & white and color separated by a space, for example 0.25 0.50."

// dialogPrompts ask for the answer each text step expects
var dialogPrompts = map[entity.DialogStep]string{
	entity.StepRegisterName:        "What name should requesters see?",
	entity.StepRegisterRoom:        "Which room do you print in? For example 114/3.",
	entity.StepRegisterRates:       ratesPrompt,
	entity.StepRegisterDescription: "Describe your service in a few words, or write \"none\".",
	entity.StepRegisterCard:        "Send the card number requesters should transfer to, or \"none\" to take cash only.",
	entity.StepRegisterCapability:  "Which printer do you have? Choose it with the buttons above.",
	entity.StepEditRoom:            "Send your new room number.",
	entity.StepEditRates:           ratesPrompt,
	entity.StepEditDescription:     "Send the new description of your service, or \"none\" to remove it.",
	entity.StepEditCard:            "Send the new card number, or \"none\" to take cash only.",
	entity.StepSupportQuestion:     "Write your question. Describe what you need help with and support will answer here.",
	entity.StepSupportReply:        "Write your answer to the user.",
}

var editSteps = map[string]entity.DialogStep{
	FieldRoom:        entity.StepEditRoom,
	FieldRates:       entity.StepEditRates,
	FieldDescription: entity.StepEditDescription,
	FieldCard:        entity.StepEditCard,
}

// openDialog prompts for the first answer and records the dialog once the
// prompt was delivered
func (e *engineImpl) openDialog(ctx context.Context, d *entity.Dialog, msg port.OutboundMessage) error {
	if err := e.send(ctx, d.UserID, msg); err != nil {
		return err
	}
	e.dialogs.Put(ctx, d)
	return nil
}

// answerDialog routes free text to the user's pending dialog
func (e *engineImpl) answerDialog(ctx context.Context, d *entity.Dialog, text string) error {
	switch d.Step {
	case entity.StepRegisterName, entity.StepRegisterRoom, entity.StepRegisterRates,
		entity.StepRegisterDescription, entity.StepRegisterCard:
		return e.continueRegistration(ctx, d, text)
	case entity.StepEditRoom, entity.StepEditRates, entity.StepEditDescription, entity.StepEditCard:
		return e.applyEdit(ctx, d, text)
	case entity.StepSupportQuestion:
		return e.forwardQuestion(ctx, d, text)
	case entity.StepSupportReply:
		return e.forwardAnswer(ctx, d, text)
	default:
		return userError(dialogPrompts[d.Step], nil)
	}
}

func (e *engineImpl) startRegistration(ctx context.Context, userID string) error {
	if e.profiles == nil {
		return userError("Registration is not available right now.", nil)
	}
	p, err := e.directory.GetProvider(ctx, userID)
	if err != nil {
		return collaboratorError("Could not check your registration. Please try again.", err)
	}
	if p != nil {
		return userError("You are already registered. Use /profile to see and edit your profile.", nil)
	}

	d := entity.NewDialog(userID, entity.StepRegisterName, e.now())
	return e.openDialog(ctx, d, port.Text("Let's set up your printing service.\n"+dialogPrompts[d.Step]))
}

// continueRegistration stores one answer in the draft and asks the next question
func (e *engineImpl) continueRegistration(ctx context.Context, d *entity.Dialog, text string) error {
	var next entity.DialogStep
	switch d.Step {
	case entity.StepRegisterName:
		name := utils.SanitizeLine(text)
		if name == "" {
			return userError("The name cannot be empty. "+dialogPrompts[d.Step], nil)
		}
		d.Draft.DisplayName = name
		next = entity.StepRegisterRoom
	case entity.StepRegisterRoom:
		room := utils.SanitizeLine(text)
		if room == "" {
			return userError("The room cannot be empty. "+dialogPrompts[d.Step], nil)
		}
		d.Draft.Room = room
		next = entity.StepRegisterRates
	case entity.StepRegisterRates:
		rates, err := pricing.ParseRates(text)
		if err != nil {
			return userError("Enter the price as a number, for example 0.25 or 0.25 0.50.", err)
		}
		d.Draft.Rates = rates
		next = entity.StepRegisterDescription
	case entity.StepRegisterDescription:
		d.Draft.Description = optionalAnswer(utils.SanitizeText(text))
		next = entity.StepRegisterCard
	case entity.StepRegisterCard:
		d.Draft.CardRef = optionalAnswer(utils.SanitizeLine(text))
		next = entity.StepRegisterCapability
	}

	msg := port.Text(dialogPrompts[next])
	if next == entity.StepRegisterCapability {
		msg = port.OutboundMessage{Text: "Which printer do you have?", Buttons: printerButtons()}
	}
	if err := e.send(ctx, d.UserID, msg); err != nil {
		return err
	}
	d.Advance(next, e.now())
	e.dialogs.Put(ctx, d)
	return nil
}

// setCapability completes a registration waiting for the printer type, or
// changes a registered provider's printer type
func (e *engineImpl) setCapability(ctx context.Context, userID string, c port.Control) error {
	capability := entity.Capability(c.Arg(ArgCapability))
	if !capability.IsValid() {
		return userError("Unknown printer type.", fmt.Errorf("capability %q", capability))
	}
	if e.profiles == nil {
		return userError("Profile editing is not available right now.", nil)
	}

	if d, ok := e.dialogs.Get(ctx, userID); ok && d.Step == entity.StepRegisterCapability {
		return e.completeRegistration(ctx, d, capability)
	}

	if _, err := e.registered(ctx, userID); err != nil {
		return err
	}
	return e.updateProfile(ctx, userID, port.ProviderPatch{Capability: &capability}, "Printer type updated: "+capability.Label())
}

func (e *engineImpl) completeRegistration(ctx context.Context, d *entity.Dialog, capability entity.Capability) error {
	p, err := e.profiles.RegisterProvider(ctx, port.ProviderInput{
		ID:          d.UserID,
		DisplayName: d.Draft.DisplayName,
		Room:        d.Draft.Room,
		Rates:       d.Draft.Rates,
		Active:      true,
		CardRef:     d.Draft.CardRef,
		Description: d.Draft.Description,
		Capability:  capability,
	})
	if errors.Is(err, entity.ErrInvalidProvider) {
		e.dialogs.Clear(ctx, d.UserID)
		return userError("Your registration could not be saved. Start again with /register.", err)
	}
	if err != nil {
		return collaboratorError("Could not save your registration. Choose your printer type again.", err)
	}

	e.dialogs.Clear(ctx, d.UserID)
	e.logger.Info("Provider registered in chat",
		"provider_id", p.ID,
		"capability", p.Capability,
	)
	e.publish(ctx, event.TypeProviderRegistered, p.ID, map[string]interface{}{
		event.KeyProviderID: p.ID,
	}, p.ID)

	e.notify(ctx, p.ID, port.OutboundMessage{
		Text:    "Registration complete! You are online and visible to requesters.\n\n" + profileText(p, nil) + "\n\n/profile edits your profile, /status takes you offline.",
		Buttons: toggleButton(true),
	})
	return nil
}

// startEdit asks a registered provider for the new value of one profile field
func (e *engineImpl) startEdit(ctx context.Context, userID string, c port.Control) error {
	if e.profiles == nil {
		return userError("Profile editing is not available right now.", nil)
	}
	if _, err := e.registered(ctx, userID); err != nil {
		return err
	}

	field := c.Arg(ArgField)
	if field == FieldCapability {
		return e.send(ctx, userID, port.OutboundMessage{Text: "Which printer do you have?", Buttons: printerButtons()})
	}
	step, ok := editSteps[field]
	if !ok {
		return userError("This button is no longer supported.", fmt.Errorf("unknown profile field %q", field))
	}

	d := entity.NewDialog(userID, step, e.now())
	return e.openDialog(ctx, d, port.Text(dialogPrompts[step]))
}

func (e *engineImpl) applyEdit(ctx context.Context, d *entity.Dialog, text string) error {
	var patch port.ProviderPatch
	var done string
	switch d.Step {
	case entity.StepEditRoom:
		room := utils.SanitizeLine(text)
		if room == "" {
			return userError("The room cannot be empty. "+dialogPrompts[d.Step], nil)
		}
		patch.Room = &room
		done = "Room updated: " + room
	case entity.StepEditRates:
		rates, err := pricing.ParseRates(text)
		if err != nil {
			return userError("Enter the price as a number, for example 0.25 or 0.25 0.50.", err)
		}
		patch.Monochrome = &rates.Monochrome
		patch.Color = &rates.Color
		done = "Prices updated: " + ratesText(rates)
	case entity.StepEditDescription:
		description := optionalAnswer(utils.SanitizeText(text))
		patch.Description = &description
		done = "Description updated."
		if description == "" {
			done = "Description removed."
		}
	case entity.StepEditCard:
		card := optionalAnswer(utils.SanitizeLine(text))
		patch.CardRef = &card
		done = "Card number updated."
		if card == "" {
			done = "Card number removed."
		}
	}

	if err := e.updateProfile(ctx, d.UserID, patch, done); err != nil {
		return err
	}
	e.dialogs.Clear(ctx, d.UserID)
	return nil
}

func (e *engineImpl) updateProfile(ctx context.Context, providerID string, patch port.ProviderPatch, done string) error {
	if _, err := e.profiles.UpdateProvider(ctx, providerID, patch); err != nil {
		if errors.Is(err, entity.ErrInvalidProvider) {
			return userError("That value cannot be saved. Please try again.", err)
		}
		return collaboratorError("Could not update your profile. Please try again.", err)
	}
	e.logger.Info("Provider profile edited in chat", "provider_id", providerID)
	e.notify(ctx, providerID, port.Text(done))
	return nil
}

// optionalAnswer maps a "none" reply to an empty value
func optionalAnswer(s string) string {
	if entity.IsNoneAnswer(s) {
		return ""
	}
	return s
}
