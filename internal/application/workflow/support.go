package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/dorm-print/internal/application/port"
	"github.com/garyjia/dorm-print/internal/domain/entity"
	"github.com/garyjia/dorm-print/pkg/utils"
)

func (e *engineImpl) startSupport(ctx context.Context, userID string) error {
	if e.supportChat == "" {
		return userError("Support is not available right now.", nil)
	}
	d := entity.NewDialog(userID, entity.StepSupportQuestion, e.now())
	return e.openDialog(ctx, d, port.Text(dialogPrompts[d.Step]))
}

// forwardQuestion posts the question to the support chat with a reply button
func (e *engineImpl) forwardQuestion(ctx context.Context, d *entity.Dialog, text string) error {
	question := utils.SanitizeText(text)
	if question == "" {
		return userError(dialogPrompts[d.Step], nil)
	}

	err := e.messenger.Send(ctx, e.supportChat, port.OutboundMessage{
		Text:    fmt.Sprintf("New question from %s:\n\n%s", e.mention(d.UserID), question),
		Buttons: supportReplyButton(d.UserID),
	})
	if err != nil {
		return collaboratorError("Could not reach support. Please send your question again.", err)
	}

	e.dialogs.Clear(ctx, d.UserID)
	e.logger.Info("Support question forwarded", "user_id", d.UserID)
	e.notify(ctx, d.UserID, port.Text("Your question was sent. Support will answer you here."))
	return nil
}

// startSupportReply asks the support member who pressed Reply for the answer
func (e *engineImpl) startSupportReply(ctx context.Context, agentID string, c port.Control) error {
	userID := c.Arg(ArgUser)
	if userID == "" {
		return userError("This button is no longer supported.", fmt.Errorf("support reply without user"))
	}
	d := entity.NewDialog(agentID, entity.StepSupportReply, e.now())
	d.ReplyTo = userID
	return e.openDialog(ctx, d, port.Text(dialogPrompts[d.Step]))
}

func (e *engineImpl) forwardAnswer(ctx context.Context, d *entity.Dialog, text string) error {
	answer := utils.SanitizeText(text)
	if answer == "" {
		return userError(dialogPrompts[d.Step], nil)
	}

	if err := e.messenger.Send(ctx, d.ReplyTo, port.Text("Answer from support:\n\n"+answer)); err != nil {
		return collaboratorError("Could not deliver your answer. Please send it again.", err)
	}

	e.dialogs.Clear(ctx, d.UserID)
	e.logger.Info("Support answer delivered",
		"agent_id", d.UserID,
		"user_id", d.ReplyTo,
	)
	e.notify(ctx, d.UserID, port.Text("Your answer was sent to the user."))
	return nil
}
