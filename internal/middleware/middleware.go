package middleware

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/contextkeys"
	"github.com/mkrylov/channelpass-bot/types"
)

type ProfileStore interface {
	UpsertProfile(ctx context.Context, u types.User) error
}

type Middlewares struct {
	store ProfileStore
}

func NewMessageAnalyzer(store ProfileStore) *Middlewares {
	return &Middlewares{
		store: store,
	}
}

// UpsertProfileMiddleware keeps the users row fresh on every update so
// notifications and admin messages always have a chat to land in.
func (m *Middlewares) UpsertProfileMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var (
			from   *models.User
			chatID int64
		)

		switch {
		case update.Message != nil && update.Message.From != nil:
			from = update.Message.From
			chatID = update.Message.Chat.ID
		case update.CallbackQuery != nil:
			from = &update.CallbackQuery.From
			chatID = getChatIDFromMaybeInaccessibleMessage(update.CallbackQuery.Message)
		default:
			next(ctx, b, update)
			return
		}

		if from == nil || from.ID == 0 || chatID == 0 {
			next(ctx, b, update)
			return
		}

		err := m.store.UpsertProfile(ctx, types.User{
			UserID:    from.ID,
			ChatID:    chatID,
			Username:  from.Username,
			FirstName: from.FirstName,
			LastName:  from.LastName,
		})
		if err != nil {
			log.Error().Err(err).Int64("user_id", from.ID).Msg("upsert profile")
		}

		next(ctx, b, update)
	}
}

func getChatIDFromMaybeInaccessibleMessage(m models.MaybeInaccessibleMessage) int64 {

	if m.Message != nil {
		return m.Message.Chat.ID
	}
	if m.InaccessibleMessage != nil {
		return m.InaccessibleMessage.Chat.ID
	}
	return 0
}

func (ma *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		var newCtx context.Context

		if update.CallbackQuery != nil && update.CallbackQuery.Data != "" {
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeClickButton)
			newCtx = contextkeys.WithCallbackData(newCtx, update.CallbackQuery.Data)
			next(newCtx, b, update)
			return
		}

		if update.Message != nil && update.Message.Text != "" && strings.HasPrefix(update.Message.Text, "/") {
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
		} else if update.Message != nil && update.Message.Text != "" {
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText)
		} else {
			newCtx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
		}

		next(newCtx, b, update)
	}
}
