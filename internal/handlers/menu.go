package handlers

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mkrylov/channelpass-bot/internal/messages"
	"github.com/mkrylov/channelpass-bot/internal/utils"
	"github.com/mkrylov/channelpass-bot/types"
)

func (bh *Handlers) buildPlanKeyboard() models.InlineKeyboardMarkup {
	plans := bh.catalog.Plans()
	buttons := make([]utils.Button, 0, len(plans))
	for _, p := range plans {
		buttons = append(buttons, utils.Button{
			Text:         p.Title,
			CallbackData: "plan_" + p.ID,
		})
	}
	return utils.BuildInlineKeyboard(buttons, 1)
}

func (bh *Handlers) buildCurrencyKeyboard(planID string) models.InlineKeyboardMarkup {
	currencies := bh.catalog.Currencies(planID)
	buttons := make([]utils.Button, 0, len(currencies)+1)
	for _, cur := range currencies {
		label := string(cur)
		if price, err := bh.catalog.PriceOf(planID, cur); err == nil {
			label = fmt.Sprintf("%s · %s", cur, trimPrice(price))
		}
		buttons = append(buttons, utils.Button{
			Text:         label,
			CallbackData: fmt.Sprintf("cur_%s_%s", planID, cur),
		})
	}
	kb := utils.BuildInlineKeyboard(buttons, 2)
	kb.InlineKeyboard = append(kb.InlineKeyboard, []models.InlineKeyboardButton{
		{Text: " ⬅️ Назад ", CallbackData: "plans"},
	})
	return kb
}

func trimPrice(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func (bh *Handlers) sendPlanMenu(ctx context.Context, b *bot.Bot, chatID int64) {
	kb := bh.buildPlanKeyboard()
	_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        messages.StartWelcome(),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &kb,
	})
}

func (bh *Handlers) editToPlanMenu(ctx context.Context, b *bot.Bot, chatID int64, messageID int) {
	kb := bh.buildPlanKeyboard()
	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        messages.ChoosePlan(),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &kb,
	})
	if err != nil {
		bh.sendPlanMenu(ctx, b, chatID)
	}
}

func (bh *Handlers) editToCurrencyMenu(ctx context.Context, b *bot.Bot, chatID int64, messageID int, planID, planTitle string) {
	kb := bh.buildCurrencyKeyboard(planID)
	_, err := b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        messages.ChooseCurrency(planTitle),
		ParseMode:   messages.ParseModeHTML,
		ReplyMarkup: &kb,
	})
	if err != nil {
		_, _ = b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:      chatID,
			Text:        messages.ChooseCurrency(planTitle),
			ParseMode:   messages.ParseModeHTML,
			ReplyMarkup: &kb,
		})
	}
}

func currencySupported(list []types.Currency, cur types.Currency) bool {
	for _, c := range list {
		if c == cur {
			return true
		}
	}
	return false
}
