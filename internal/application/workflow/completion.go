package workflow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/garyjia/dorm-print/internal/application/dispatch"
	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/internal/domain/event"
	domainwf "github.com/garyjia/dorm-print/internal/domain/workflow"
	"github.com/garyjia/dorm-print/pkg/utils"
)

// handleProviderResponse routes an accept/reject press to the requester
// named in the correlation token
func (e *engineImpl) handleProviderResponse(ctx context.Context, providerID string, c port.Control) error {
	resp, err := dispatch.DecodeResponse(providerID, c)
	if err != nil {
		return routingError(err)
	}

	switch resp.Outcome {
	case entity.OutcomeCompleted:
		return e.completeOrder(ctx, resp)
	case entity.OutcomeRejected:
		return e.rejectOrder(ctx, resp)
	default:
		return routingError(fmt.Errorf("unexpected outcome %q", resp.Outcome))
	}
}

// matchOrder verifies the reply belongs to the requester's live order
func matchOrder(s *entity.Session, resp dispatch.Response) error {
	if s == nil {
		return routingError(fmt.Errorf("%w: no session for requester %s", ErrOrderMismatch, resp.Token.RequesterID))
	}
	if s.OrderID != resp.Token.OrderID || s.ProviderID != resp.ProviderID {
		return routingError(fmt.Errorf("%w: order %s from %s", ErrOrderMismatch, resp.Token.OrderID, resp.ProviderID))
	}
	return nil
}

// completeOrder records provider statistics once and asks for a rating
func (e *engineImpl) completeOrder(ctx context.Context, resp dispatch.Response) error {
	requesterID := resp.Token.RequesterID

	var room string
	saved, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := matchOrder(s, resp); err != nil {
			return nil, err
		}
		// A repeated press finds the session past DISPATCHED
		if err := e.fire(ctx, s, domainwf.TriggerAccept, domainwf.TriggerRequestRating); err != nil {
			return nil, routingError(err)
		}

		p, err := e.directory.GetProvider(ctx, resp.ProviderID)
		if err != nil {
			return nil, collaboratorError("Could not load your profile. Press the button again.", err)
		}
		if err := e.directory.RecordStats(ctx, resp.ProviderID, s.Totals.Pages, s.Totals.Price); err != nil {
			return nil, collaboratorError("Could not record the order in your statistics. Press the button again.", err)
		}
		if p != nil {
			room = p.Room
		}
		return s, nil
	})
	if err != nil {
		return err
	}

	location := "Ask the provider where to pick it up."
	if room != "" {
		location = fmt.Sprintf("Pick it up in room %s.", room)
	}
	e.notify(ctx, requesterID, port.OutboundMessage{
		Text:    fmt.Sprintf("Your order is ready! %s\n\nHow would you rate the provider?", location),
		Buttons: ratingButtons(saved),
	})
	e.notify(ctx, resp.ProviderID, port.Text("Thanks! The requester has been notified."))

	e.logger.Info("Order completed",
		"order_id", saved.OrderID,
		"requester_id", requesterID,
		"provider_id", resp.ProviderID,
	)
	e.publish(ctx, event.TypeOrderCompleted, requesterID, orderPayload(saved), saved.OrderID)
	return nil
}

// rejectOrder clears the session without touching statistics
func (e *engineImpl) rejectOrder(ctx context.Context, resp dispatch.Response) error {
	requesterID := resp.Token.RequesterID

	var rejected *entity.Session
	_, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := matchOrder(s, resp); err != nil {
			return nil, err
		}
		if err := e.fire(ctx, s, domainwf.TriggerReject); err != nil {
			return nil, routingError(err)
		}
		rejected = s
		return nil, nil
	})
	if err != nil {
		return err
	}
	e.selections.Forget(requesterID)

	e.notify(ctx, requesterID, port.Text("The provider declined your order. Choose another provider with /print."))
	e.notify(ctx, resp.ProviderID, port.Text("Order declined. The requester has been notified."))

	e.logger.Info("Order rejected",
		"order_id", rejected.OrderID,
		"requester_id", requesterID,
		"provider_id", resp.ProviderID,
	)
	e.publish(ctx, event.TypeOrderRejected, requesterID, orderPayload(rejected), rejected.OrderID)
	return nil
}

// handleRate stores the star count; the comment completes the review
func (e *engineImpl) handleRate(ctx context.Context, requesterID string, c port.Control) error {
	stars, err := strconv.Atoi(c.Arg(ArgStars))
	if err == nil {
		err = entity.ValidateRating(stars)
	}
	if err != nil {
		return userError(fmt.Sprintf("Choose between %d and %d stars.", entity.MinRating, entity.MaxRating), err)
	}

	_, err = e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if err := checkControl(s, c); err != nil {
			return nil, err
		}
		if err := e.fire(ctx, s, domainwf.TriggerRate); err != nil {
			return nil, err
		}
		s.Rating = stars

		if err := e.send(ctx, requesterID, port.Text(fmt.Sprintf("%d★, thank you! Now write a short comment about the order.", stars))); err != nil {
			return nil, err
		}
		return s, nil
	})
	return err
}

// submitComment persists the review and closes the session
func (e *engineImpl) submitComment(ctx context.Context, requesterID, text string) error {
	comment := utils.SanitizeText(text)

	var providerID string
	var rating int
	_, err := e.sessions.Update(ctx, requesterID, func(s *entity.Session) (*entity.Session, error) {
		if s == nil {
			return nil, userError(phaseHint(domainwf.StateIdle), nil)
		}
		if entity.ValidateRating(s.Rating) != nil {
			return nil, userError("Rate the order with the stars above first, then write your comment.", nil)
		}
		if comment == "" {
			return nil, userError("Write a few words about the order.", nil)
		}
		if err := e.fire(ctx, s, domainwf.TriggerSubmitComment); err != nil {
			return nil, err
		}

		if _, err := e.reviews.SubmitReview(ctx, s.ProviderID, s.RequesterID, s.Rating, comment); err != nil {
			return nil, collaboratorError("Could not save your review. Please send the comment again.", err)
		}
		providerID, rating = s.ProviderID, s.Rating
		return nil, nil
	})
	if err != nil {
		return err
	}

	e.notify(ctx, requesterID, port.Text("Thank you for your review! Use /print whenever you need something printed again."))
	e.publish(ctx, event.TypeReviewSubmitted, requesterID, map[string]interface{}{
		event.KeyProviderID: providerID,
		event.KeyRating:     rating,
	}, requesterID)
	return nil
}
