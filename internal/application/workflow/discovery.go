package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
)

const notProviderText = "You are not registered as a provider."

func (e *engineImpl) startDiscovery(ctx context.Context, to string) error {
	return e.send(ctx, to, port.OutboundMessage{
		Text:    "Does the printer type matter?",
		Buttons: discoveryButtons(),
	})
}

func (e *engineImpl) handleDiscover(ctx context.Context, to string, c port.Control) error {
	switch c.Arg(ArgFilter) {
	case FilterAny:
		return e.listProviders(ctx, to, "")
	case FilterPick:
		return e.send(ctx, to, port.OutboundMessage{
			Text:    "Which printer do you need?",
			Buttons: capabilityButtons(),
		})
	default:
		return e.startDiscovery(ctx, to)
	}
}

func (e *engineImpl) handleCapability(ctx context.Context, to string, c port.Control) error {
	capability := entity.Capability(c.Arg(ArgCapability))
	if !capability.IsValid() {
		return userError("Unknown printer type. Start again with /print.", fmt.Errorf("capability %q", capability))
	}
	return e.listProviders(ctx, to, capability)
}

// listProviders shows active providers whose capability contains the filter
func (e *engineImpl) listProviders(ctx context.Context, to string, capability entity.Capability) error {
	providers, err := e.directory.ListActiveProviders(ctx, capability)
	if err != nil {
		return collaboratorError("Could not load the list of providers. Please try again.", err)
	}
	if len(providers) == 0 {
		return e.send(ctx, to, port.Text("No providers are available right now. Please try again later."))
	}

	var b strings.Builder
	b.WriteString("Available providers:")
	rows := make([][]port.Button, 0, len(providers))
	for i, p := range providers {
		fmt.Fprintf(&b, "\n\n%d. %s", i+1, providerCard(p))
		rows = append(rows, providerButtons(p))
	}
	return e.send(ctx, to, port.OutboundMessage{Text: b.String(), Buttons: rows})
}

func (e *engineImpl) handleViewProfile(ctx context.Context, to string, c port.Control) error {
	p, err := e.directory.GetProvider(ctx, c.Arg(ArgProvider))
	if err != nil {
		return collaboratorError("Could not load the profile. Please try again.", err)
	}
	if p == nil {
		return userError("This provider is no longer registered.", nil)
	}
	rating, err := e.reviews.GetAverageRating(ctx, p.ID)
	if err != nil {
		return collaboratorError("Could not load the profile. Please try again.", err)
	}

	msg := port.OutboundMessage{Text: profileText(p, rating)}
	if p.Active {
		msg.Buttons = [][]port.Button{{primary("Select "+p.DisplayName, control(ActionSelectProvider, ArgProvider, p.ID))}}
	} else {
		msg.Text += "\n\nNot taking orders right now."
	}
	return e.send(ctx, to, msg)
}

// registered loads the sender's own provider profile
func (e *engineImpl) registered(ctx context.Context, id string) (*entity.Provider, error) {
	p, err := e.directory.GetProvider(ctx, id)
	if err != nil {
		return nil, collaboratorError("Could not load your profile. Please try again.", err)
	}
	if p == nil {
		return nil, userError(notProviderText, nil)
	}
	return p, nil
}

func (e *engineImpl) showStatus(ctx context.Context, providerID string) error {
	p, err := e.registered(ctx, providerID)
	if err != nil {
		return err
	}
	state := "offline"
	if p.Active {
		state = "online and visible to requesters"
	}
	return e.send(ctx, providerID, port.OutboundMessage{
		Text:    fmt.Sprintf("You are currently %s.", state),
		Buttons: toggleButton(p.Active),
	})
}

func (e *engineImpl) toggleActive(ctx context.Context, providerID string, c port.Control) error {
	active := c.Arg(ArgActive) == "true"
	if _, err := e.registered(ctx, providerID); err != nil {
		return err
	}
	if err := e.directory.SetProviderActive(ctx, providerID, active); err != nil {
		return collaboratorError("Could not change your status. Please try again.", err)
	}

	text := "You are now offline. Orders already sent to you are not affected."
	if active {
		text = "You are now online and visible to requesters."
	}
	return e.send(ctx, providerID, port.OutboundMessage{Text: text, Buttons: toggleButton(active)})
}

func (e *engineImpl) showOwnProfile(ctx context.Context, providerID string) error {
	p, err := e.registered(ctx, providerID)
	if err != nil {
		return err
	}
	stats, err := e.directory.GetStats(ctx, providerID)
	if err != nil {
		return collaboratorError("Could not load your statistics. Please try again.", err)
	}
	rating, err := e.reviews.GetAverageRating(ctx, providerID)
	if err != nil {
		return collaboratorError("Could not load your rating. Please try again.", err)
	}
	msg := port.OutboundMessage{Text: profileText(p, rating) + "\n\n" + statsText(stats)}
	if e.profiles != nil {
		msg.Buttons = profileButtons()
	}
	return e.send(ctx, providerID, msg)
}
