package notify

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/messages"
)

// LastMessageStore remembers the bot's last message per chat so menus can be
// edited in place.
type LastMessageStore interface {
	SetLastMessageID(chatID int64, messageID int) error
	GetLastMessageID(chatID int64) (int, bool)
}

// Telegram implements types.Notifier over the Bot API. Delivery is
// fire-and-forget: failures are logged, never returned.
type Telegram struct {
	bot   *bot.Bot
	state LastMessageStore
}

func NewTelegram(b *bot.Bot, state LastMessageStore) *Telegram {
	return &Telegram{bot: b, state: state}
}

func (n *Telegram) Send(ctx context.Context, chatID int64, text string) {
	msg, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chatID).Msg("send message failed")
		return
	}
	if n.state != nil && msg != nil {
		_ = n.state.SetLastMessageID(chatID, msg.ID)
	}
}

func (n *Telegram) EditLast(ctx context.Context, chatID int64, text string) {
	if n.state != nil {
		if id, ok := n.state.GetLastMessageID(chatID); ok {
			_, err := n.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
				ChatID:    chatID,
				MessageID: id,
				Text:      text,
				ParseMode: messages.ParseModeHTML,
			})
			if err == nil {
				return
			}
			log.Debug().Err(err).Int64("chat_id", chatID).Msg("edit failed, sending new message")
		}
	}
	n.Send(ctx, chatID, text)
}
