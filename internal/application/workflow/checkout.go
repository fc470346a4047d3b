package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
	"github.com/garyjia/dorm-print/internal/domain/pricing"
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
	"github.com/garyjia/dorm-print/pkg/utils"
)

func (e *engineImpl) submitRequirements(ctx context.Context, requesterID, text string) error {
	_, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if s == nil {
			return nil, userError(phaseHint(domainwf.StateIdle), nil)
		}
		if err := e.fire(ctx, s, domainwf.TriggerSubmitRequirements); err != nil {
			return nil, err
		}
		s.SetRequirements(utils.SanitizeText(text))

		msg := port.OutboundMessage{
			Text:    fmt.Sprintf("Requirements noted.\nTotal: %d pages, %s\n\nHow will you pay?", s.Totals.Pages, pricing.Format(s.Totals.Price)),
			Buttons: paymentButtons(s),
		}
		if err := e.send(ctx, requesterID, msg); err != nil {
			return nil, err
		}
		return s, nil
	})
	return err
}

func (e *engineImpl) handlePayment(ctx context.Context, requesterID string, c port.Control) error {
	switch entity.PaymentMethod(c.Arg(ArgMethod)) {
	case entity.PaymentCard:
		return e.payByCard(ctx, requesterID, c)
	case entity.PaymentCash:
		return e.payByCash(ctx, requesterID, c)
	default:
		return userError("Unknown payment method.", fmt.Errorf("payment method %q", c.Arg(ArgMethod)))
	}
}

// payByCard shows the provider's card reference and dispatches immediately
func (e *engineImpl) payByCard(ctx context.Context, requesterID string, c port.Control) error {
	saved, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := checkControl(s, c); err != nil {
			return nil, err
		}
		if err := e.fire(ctx, s, domainwf.TriggerChooseCard); err != nil {
			return nil, err
		}
		p, err := e.provider(ctx, s.ProviderID)
		if err != nil {
			return nil, err
		}
		s.Payment = entity.Payment{Method: entity.PaymentCard, CardRef: p.CardRef}

		if err := e.dispatchOrder(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Your order was sent to the provider.\nTransfer %s to card %s.", pricing.Format(saved.Totals.Price), saved.Payment.CardRef)
	if saved.Payment.CardRef == "" {
		text = fmt.Sprintf("Your order was sent to the provider.\nThe provider has not provided card details, settle %s with them directly.", pricing.Format(saved.Totals.Price))
	}
	e.notify(ctx, requesterID, port.Text(text))
	e.announceDispatch(ctx, saved)
	return nil
}

func (e *engineImpl) payByCash(ctx context.Context, requesterID string, c port.Control) error {
	_, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := checkControl(s, c); err != nil {
			return nil, err
		}
		if err := e.fire(ctx, s, domainwf.TriggerChooseCash); err != nil {
			return nil, err
		}
		s.Payment = entity.Payment{Method: entity.PaymentCash}

		text := fmt.Sprintf("The total is %s. How much cash will you hand over?", pricing.Format(s.Totals.Price))
		if err := e.send(ctx, requesterID, port.Text(text)); err != nil {
			return nil, err
		}
		return s, nil
	})
	return err
}

// submitCash validates the tendered amount, computes change and dispatches
func (e *engineImpl) submitCash(ctx context.Context, requesterID, text string) error {
	saved, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if s == nil {
			return nil, userError(phaseHint(domainwf.StateIdle), nil)
		}
		if s.Phase != domainwf.StateCashAmount {
			return nil, userError(phaseHint(s.Phase), nil)
		}

		tendered, err := pricing.ParseAmount(text)
		if err != nil {
			return nil, userError("Enter the amount as a number, for example 150 or 150.50.", err)
		}
		change, err := pricing.Change(tendered, s.Totals.Price)
		if err != nil {
			return nil, userError(fmt.Sprintf("That is less than the total of %s. Enter at least the total.", pricing.Format(s.Totals.Price)), err)
		}
		s.Payment = entity.Payment{Method: entity.PaymentCash, Tendered: &tendered, Change: &change}

		if err := e.dispatchOrder(ctx, s); err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return err
	}

	e.notify(ctx, requesterID, port.Text(fmt.Sprintf("Your order was sent to the provider.\nYou pay %s, your change is %s.",
		pricing.Format(*saved.Payment.Tendered), pricing.Format(*saved.Payment.Change))))
	e.announceDispatch(ctx, saved)
	return nil
}

// dispatchOrder freezes the session into an order and hands it to the provider
func (e *engineImpl) dispatchOrder(ctx context.Context, s *entity.Session) error {
	if err := e.fire(ctx, s, domainwf.TriggerDispatch); err != nil {
		if errors.Is(err, domainwf.ErrGuardFailed) {
			return preconditionError("Your order could not be sent because a document has no print mode. The order was cancelled, start again with /print.", err)
		}
		return err
	}

	s.OrderID = e.newID()
	order := s.Snapshot(s.OrderID, e.now())
	if err := e.orders.Send(ctx, order); err != nil {
		return collaboratorError("Could not deliver your order to the provider. Please try the same step again.", err)
	}
	return nil
}

func (e *engineImpl) announceDispatch(ctx context.Context, s *entity.Session) {
	e.logger.Info("Order dispatched",
		"order_id", s.OrderID,
		"requester_id", s.RequesterID,
		"provider_id", s.ProviderID,
		"pages", s.Totals.Pages,
		"price", pricing.Format(s.Totals.Price),
	)
	e.publish(ctx, event.TypeOrderDispatched, s.RequesterID, orderPayload(s), s.OrderID)
}

func orderPayload(s *entity.Session) map[string]interface{} {
	return map[string]interface{}{
		event.KeyOrderID:    s.OrderID,
		event.KeyProviderID: s.ProviderID,
		event.KeyPages:      s.Totals.Pages,
		event.KeyAmount:     pricing.Format(s.Totals.Price),
	}
}
