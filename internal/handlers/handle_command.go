package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/ledger"
	"github.com/mkrylov/channelpass-bot/internal/messages"
)

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	command := strings.TrimSpace(update.Message.Text)
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return
	}
	cmd := fields[0]
	if strings.Contains(cmd, "@") {
		cmd = strings.SplitN(cmd, "@", 2)[0]
	}
	chatID := update.Message.Chat.ID

	switch cmd {
	case "/start":
		bh.sendPlanMenu(ctx, b, chatID)
	case "/status":
		userID := int64(0)
		if update.Message.From != nil {
			userID = update.Message.From.ID
		}
		u, err := bh.store.GetUser(ctx, userID)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("get user for status")
			bh.sendText(ctx, b, chatID, messages.ErrorDefault())
			return
		}
		bh.sendText(ctx, b, chatID, messages.Status(ledger.StatusOf(u, time.Now())))
	case "/help":
		bh.sendText(ctx, b, chatID, messages.Help())
	default:
		bh.sendText(ctx, b, chatID, messages.ErrorUnknownCommand())
	}
}
