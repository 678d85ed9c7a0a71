package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/messages"
	"github.com/mkrylov/channelpass-bot/internal/verify"
)

func (bh *Handlers) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID
	userID := update.Message.From.ID
	text := strings.TrimSpace(update.Message.Text)

	if !verify.IsTransactionHash(text) {
		bh.sendText(ctx, b, chatID, messages.TextHint())
		return
	}

	outcome, err := bh.verifier.Submit(ctx, userID, text)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrNoPendingPayment):
			bh.sendText(ctx, b, chatID, messages.ErrorNoPendingPayment())
		case errors.Is(err, verify.ErrDuplicateTransaction):
			bh.sendText(ctx, b, chatID, messages.ErrorDuplicateTransaction())
		case errors.Is(err, verify.ErrVerificationFailed):
			bh.sendText(ctx, b, chatID, messages.ErrorVerificationFailed())
		default:
			log.Error().Err(err).Int64("user_id", userID).Msg("submit transaction")
			bh.sendText(ctx, b, chatID, messages.ErrorTryAgainLater())
		}
		return
	}

	switch outcome {
	case verify.OutcomeScheduled:
		// Sent through the notifier so the verification timer can edit
		// this message in place with the result.
		bh.notifier.Send(ctx, chatID, messages.PaymentChecking())
	case verify.OutcomeAwaitingReview:
		bh.sendText(ctx, b, chatID, messages.PaymentAwaitingReview())
	case verify.OutcomeActivated:
		// The verifier already confirmed to the user.
	}
}
