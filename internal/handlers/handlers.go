package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/internal/contextkeys"
	"github.com/mkrylov/channelpass-bot/internal/messages"
	"github.com/mkrylov/channelpass-bot/internal/payment"
	"github.com/mkrylov/channelpass-bot/internal/verify"
	"github.com/mkrylov/channelpass-bot/types"
)

type UserGetter interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
}

type PaymentURIStore interface {
	SetPaymentURI(paymentID, uri string) error
}

type Handlers struct {
	store    UserGetter
	payments *payment.Manager
	catalog  *catalog.Catalog
	verifier *verify.Service
	state    PaymentURIStore
	notifier types.Notifier
}

func NewHandlers(store UserGetter, payments *payment.Manager, cat *catalog.Catalog, verifier *verify.Service, state PaymentURIStore, notifier types.Notifier) *Handlers {
	return &Handlers{
		store:    store,
		payments: payments,
		catalog:  cat,
		verifier: verifier,
		state:    state,
		notifier: notifier,
	}
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	chatID := bh.getChatIDFromUpdate(update)
	messageType, _ := contextkeys.GetMessageType(ctx)

	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update)
	case contextkeys.MessageTypeText:
		bh.HandleText(ctx, b, update)
	case contextkeys.MessageTypeClickButton:
		data, _ := contextkeys.GetCallbackData(ctx)
		if data == "" && update.CallbackQuery != nil {
			data = update.CallbackQuery.Data
		}
		bh.HandleClickButton(ctx, b, update, strings.TrimSpace(data))
	default:
		if chatID != 0 {
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.TextHint(),
				ParseMode: messages.ParseModeHTML,
			})
		}
	}
}

func (bh *Handlers) getChatIDFromUpdate(update *models.Update) int64 {
	if update == nil {
		return 0
	}
	if update.Message != nil {
		return update.Message.Chat.ID
	}
	if update.CallbackQuery != nil {
		if update.CallbackQuery.Message.Message != nil {
			return update.CallbackQuery.Message.Message.Chat.ID
		}
		if update.CallbackQuery.Message.InaccessibleMessage != nil {
			return update.CallbackQuery.Message.InaccessibleMessage.Chat.ID
		}
	}
	return 0
}

func (bh *Handlers) answerCallback(ctx context.Context, b *bot.Bot, callbackID, text string) error {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	return err
}

func (bh *Handlers) sendText(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chatID).Msg("send message")
	}
}
