package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/garyjia/dorm-print/internal/application/dispatch"
	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
)

const noProviderText = "Choose a provider with /print before sending documents."

// selectProvider starts a fresh session for the chosen provider, discarding
// any editable session
func (e *engineImpl) selectProvider(ctx context.Context, requesterID string, c port.Control) error {
	providerID := c.Arg(ArgProvider)
	if providerID == requesterID {
		return userError("You cannot order prints from yourself.", nil)
	}

	p, err := e.directory.GetProvider(ctx, providerID)
	if err != nil {
		return collaboratorError("Could not load the provider. Please try again.", err)
	}
	if p == nil || !p.Active {
		return userError("This provider is not taking orders right now. Choose another one with /print.", nil)
	}

	discarded := false
	_, err = e.sessions.Update(ctx, requesterID, func(cur *entity.Session) (*entity.Session, error) {
		current := &entity.Session{Phase: domainwf.StateIdle}
		if cur != nil {
			current = cur
		}
		if err := e.fire(ctx, current, domainwf.TriggerSelectProvider); err != nil {
			return nil, err
		}

		text := fmt.Sprintf("You chose %s, room %s.\nRates: %s\n\nSend the PDF documents you want printed.",
			p.DisplayName, p.Room, ratesText(p.Rates))
		if cur != nil && len(cur.Documents) > 0 {
			discarded = true
			text = "Your previous documents were discarded.\n" + text
		}
		if err := e.send(ctx, requesterID, port.Text(text)); err != nil {
			return nil, err
		}
		return entity.NewSession(requesterID, p.ID, e.newID(), e.now()), nil
	})
	if err != nil {
		return err
	}

	e.selections.Select(requesterID, p.ID)
	if discarded {
		e.publish(ctx, event.TypeSessionCleared, requesterID, map[string]interface{}{
			event.KeyReason:     "provider_changed",
			event.KeyProviderID: p.ID,
		}, requesterID)
	}
	return nil
}

// handleDocument validates and counts an upload, then adds it to the session
func (e *engineImpl) handleDocument(ctx context.Context, evt *event.Event) error {
	requesterID := evt.SenderID
	name := evt.GetPayloadString(event.KeyFileName)
	file := entity.FileHandle{
		OwnerID:   requesterID,
		MessageID: evt.GetPayloadString(event.KeyMessageID),
		FileKey:   evt.GetPayloadString(event.KeyFileKey),
	}

	// Fail fast before the page count when the session cannot take documents
	if s, ok := e.sessions.Get(ctx, requesterID); ok {
		if !BuildOrderStateMachine(s.Phase, Guards{}).CanFire(domainwf.TriggerAcceptDocument) {
			return userError("Documents cannot be added at this step. "+phaseHint(s.Phase), nil)
		}
	} else if _, selected := e.selections.Selected(requesterID); !selected {
		return preconditionError(noProviderText, ErrNoProvider)
	}

	if err := entity.ValidateDocumentName(name); err != nil {
		return userError(fmt.Sprintf("%s is not a PDF. Only PDF documents are accepted.", name), err)
	}

	pages, err := e.pages.CountPages(ctx, file)
	if errors.Is(err, entity.ErrNotPDF) {
		return userError(fmt.Sprintf("%s is not a readable PDF. Export it to PDF and send it again.", name), err)
	}
	if err != nil {
		return collaboratorError(fmt.Sprintf("Could not read %s. Please send it again.", name), err)
	}
	doc, err := entity.NewDocumentEntry(file, name, pages)
	if err != nil {
		return userError(fmt.Sprintf("%s has no pages and cannot be printed.", name), err)
	}

	_, err = e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		s, err := e.resume(ctx, requesterID, s)
		if err != nil {
			return nil, err
		}
		if err := e.fire(ctx, s, domainwf.TriggerAcceptDocument); err != nil {
			return nil, err
		}

		index := s.AddDocument(doc)
		msg := acceptedMessage(s, index)

		if err := e.fire(ctx, s, domainwf.TriggerPromptMode); err != nil {
			return nil, err
		}
		if err := e.send(ctx, requesterID, msg); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return err
	}

	e.logger.Info("Document accepted",
		"requester_id", requesterID,
		"file_key", file.FileKey,
		"pages", pages,
	)
	return nil
}

// resume returns the live session, or starts one for a provider picked
// earlier whose previous order has finished
func (e *engineImpl) resume(ctx context.Context, requesterID string, s *entity.Session) (*entity.Session, error) {
	if s != nil {
		if s.ProviderID == "" {
			return nil, preconditionError(noProviderText, ErrNoProvider)
		}
		return s, nil
	}

	providerID, ok := e.selections.Selected(requesterID)
	if !ok {
		return nil, preconditionError(noProviderText, ErrNoProvider)
	}
	p, err := e.directory.GetProvider(ctx, providerID)
	if err != nil {
		return nil, collaboratorError("Could not reach the provider directory. Please send the document again.", err)
	}
	if p == nil || !p.Active {
		return nil, preconditionError("Your provider is not taking orders right now. Choose another one with /print.",
			fmt.Errorf("%w: provider %s unavailable", ErrNoProvider, providerID))
	}
	return entity.NewSession(requesterID, p.ID, e.newID(), e.now()), nil
}

// acceptedMessage applies the batching policy: the bulk choice once at the
// threshold, an acknowledgement while it is unanswered, otherwise a per-document prompt
func acceptedMessage(s *entity.Session, index int) port.OutboundMessage {
	doc := s.Documents[index]
	switch {
	case s.ShouldOfferBulk():
		s.BulkOffered, s.BulkPending = true, true
		return port.OutboundMessage{
			Text: fmt.Sprintf("Added %s (%d pages).\nYou have %d documents. Choose one print mode for all of them?",
				doc.DisplayName, doc.PageCount, len(s.Documents)),
			Buttons: bulkButtons(s),
		}
	case s.BulkPending:
		return port.Text(fmt.Sprintf("Added %s (%d pages). Choose a print mode for all documents with the buttons above.",
			doc.DisplayName, doc.PageCount))
	default:
		return port.OutboundMessage{
			Text:    fmt.Sprintf("Added %s (%d pages). Black & white or color?", doc.DisplayName, doc.PageCount),
			Buttons: [][]port.Button{modeButtons(s, index, "")},
		}
	}
}

// handleMode prices one document at the provider's current rate
func (e *engineImpl) handleMode(ctx context.Context, requesterID string, c port.Control) error {
	mode, err := pricing.ParseMode(c.Arg(ArgMode))
	if err != nil {
		return userError("Unknown print mode.", err)
	}
	index, err := strconv.Atoi(c.Arg(ArgDocument))
	if err != nil {
		return userError("That document is not part of your order.", err)
	}

	_, err = e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := checkControl(s, c); err != nil {
			return nil, err
		}
		if err := e.fire(ctx, s, domainwf.TriggerAssignMode); err != nil {
			return nil, err
		}
		p, err := e.provider(ctx, s.ProviderID)
		if err != nil {
			return nil, err
		}

		changed, err := s.AssignMode(index, mode, p.Rates)
		if err != nil {
			return nil, userError("That document is not part of your order.", err)
		}
		if !changed {
			return nil, userError(fmt.Sprintf("%s is already set to %s.",
				s.Documents[index].DisplayName, dispatch.ModeLabel(mode)), nil)
		}

		msg, err := e.afterPricing(ctx, s, "Set "+documentLine(s.Documents[index])+".")
		if err != nil {
			return nil, err
		}
		if err := e.send(ctx, requesterID, msg); err != nil {
			return nil, err
		}
		return s, nil
	})
	return err
}

// handleBulk answers the all-documents choice
func (e *engineImpl) handleBulk(ctx context.Context, requesterID string, c port.Control) error {
	choice := c.Arg(ArgMode)

	_, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := checkControl(s, c); err != nil {
			return nil, err
		}
		if !s.BulkPending {
			return nil, userError("This choice was already made. "+phaseHint(s.Phase), ErrOutdatedControl)
		}

		if choice == BulkIndividually {
			s.BulkPending = false
			if err := e.send(ctx, requesterID, individualPrompt(s)); err != nil {
				return nil, err
			}
			return s, nil
		}

		mode, err := pricing.ParseMode(choice)
		if err != nil {
			return nil, userError("Unknown print mode.", err)
		}
		if err := e.fire(ctx, s, domainwf.TriggerAssignMode); err != nil {
			return nil, err
		}
		p, err := e.provider(ctx, s.ProviderID)
		if err != nil {
			return nil, err
		}
		if err := s.AssignAll(mode, p.Rates); err != nil {
			return nil, err
		}

		msg, err := e.afterPricing(ctx, s, fmt.Sprintf("All %d documents set to %s.", len(s.Documents), dispatch.ModeLabel(mode)))
		if err != nil {
			return nil, err
		}
		if err := e.send(ctx, requesterID, msg); err != nil {
			return nil, err
		}
		return s, nil
	})
	return err
}

func individualPrompt(s *entity.Session) port.OutboundMessage {
	var b strings.Builder
	b.WriteString("Choose a print mode for each document:")
	rows := make([][]port.Button, 0, len(s.Documents))
	for _, i := range s.UnsetDocuments() {
		d := s.Documents[i]
		fmt.Fprintf(&b, "\n%d. %s (%d pages)", i+1, d.DisplayName, d.PageCount)
		rows = append(rows, modeButtons(s, i, fmt.Sprintf("%d. ", i+1)))
	}
	return port.OutboundMessage{Text: b.String(), Buttons: rows}
}

// afterPricing moves on once a mode assignment is applied: to requirements
// when every document is priced, back to the mode prompt otherwise. During
// payment the phase is kept and only the new total is shown.
func (e *engineImpl) afterPricing(ctx context.Context, s *entity.Session, lead string) (port.OutboundMessage, error) {
	if s.Phase != domainwf.StateCollectingDocuments {
		return port.Text(fmt.Sprintf("%s\n%s\n%s", lead, totalsText(s.Totals), phaseHint(s.Phase))), nil
	}

	if s.AllModesSet() {
		if err := e.fire(ctx, s, domainwf.TriggerModesComplete); err != nil {
			return port.OutboundMessage{}, err
		}
		return port.Text(lead + "\n" + requirementsPrompt(s)), nil
	}

	if err := e.fire(ctx, s, domainwf.TriggerPromptMode); err != nil {
		return port.OutboundMessage{}, err
	}
	waiting := make([]string, 0, len(s.Documents))
	for _, i := range s.UnsetDocuments() {
		waiting = append(waiting, s.Documents[i].DisplayName)
	}
	text := fmt.Sprintf("%s\n%s\nStill waiting for a print mode: %s", lead, totalsText(s.Totals), strings.Join(waiting, ", "))
	return port.Text(text), nil
}
