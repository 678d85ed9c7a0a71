package handlers

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/internal/messages"
	"github.com/mkrylov/channelpass-bot/internal/payment"
	"github.com/mkrylov/channelpass-bot/types"
)

func (bh *Handlers) HandleClickButton(ctx context.Context, b *bot.Bot, update *models.Update, data string) {
	if update.CallbackQuery == nil {
		return
	}
	userID := update.CallbackQuery.From.ID
	chatID := int64(0)
	messageID := 0
	if update.CallbackQuery.Message.Message != nil {
		chatID = update.CallbackQuery.Message.Message.Chat.ID
		messageID = update.CallbackQuery.Message.Message.ID
	}
	if chatID == 0 {
		chatID = userID
	}

	switch {
	case data == "plans":
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		bh.editToPlanMenu(ctx, b, chatID, messageID)
	case strings.HasPrefix(data, "plan_"):
		planID := strings.TrimPrefix(data, "plan_")
		plan, ok := bh.catalog.Plan(planID)
		if !ok {
			_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, messages.ErrorDefault())
			return
		}
		if len(bh.catalog.Currencies(planID)) == 0 {
			_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
			bh.sendText(ctx, b, chatID, messages.ErrorCurrencyUnavailable())
			return
		}
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
		bh.editToCurrencyMenu(ctx, b, chatID, messageID, planID, plan.Title)
	case strings.HasPrefix(data, "cur_"):
		bh.handleCurrencyChoice(ctx, b, update, userID, chatID, data)
	default:
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")
	}
}

func (bh *Handlers) handleCurrencyChoice(ctx context.Context, b *bot.Bot, update *models.Update, userID, chatID int64, data string) {
	parts := strings.SplitN(strings.TrimPrefix(data, "cur_"), "_", 2)
	if len(parts) != 2 {
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, messages.ErrorDefault())
		return
	}
	planID := parts[0]
	cur := types.Currency(parts[1])

	plan, ok := bh.catalog.Plan(planID)
	if !ok || !currencySupported(bh.catalog.Currencies(planID), cur) {
		_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, messages.ErrorCurrencyUnavailable())
		return
	}
	_ = bh.answerCallback(ctx, b, update.CallbackQuery.ID, "")

	pending, err := bh.payments.OpenPayment(ctx, userID, planID, cur)
	if err != nil {
		if errors.Is(err, catalog.ErrCurrencyUnavailable) {
			bh.sendText(ctx, b, chatID, messages.ErrorCurrencyUnavailable())
			return
		}
		log.Error().Err(err).Int64("user_id", userID).Str("plan", planID).Msg("open payment")
		bh.sendText(ctx, b, chatID, messages.ErrorTryAgainLater())
		return
	}

	wallet, err := bh.payments.WalletFor(cur)
	if err != nil {
		bh.sendText(ctx, b, chatID, messages.ErrorCurrencyUnavailable())
		return
	}
	bh.sendText(ctx, b, chatID, messages.PaymentInstructions(plan.Title, pending.Amount, cur, wallet))

	uri, err := bh.payments.PaymentURI(pending)
	if err != nil {
		log.Error().Err(err).Str("payment_id", pending.PaymentID).Msg("build payment uri")
		return
	}
	if err := bh.state.SetPaymentURI(pending.PaymentID, uri); err != nil {
		log.Warn().Err(err).Str("payment_id", pending.PaymentID).Msg("cache payment uri")
	}

	png, err := payment.QRPNG(uri)
	if err != nil {
		log.Error().Err(err).Str("payment_id", pending.PaymentID).Msg("render qr")
		return
	}
	_, err = b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID: chatID,
		Photo: &models.InputFileUpload{
			Filename: "payment.png",
			Data:     bytes.NewReader(png),
		},
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send qr photo")
	}
}
