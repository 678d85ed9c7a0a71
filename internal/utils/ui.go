package utils

import (
	"github.com/go-telegram/bot/models"
)

type Button struct {
	Text         string
	CallbackData string
}

func BuildInlineKeyboard(buttons []Button, perRow int) models.InlineKeyboardMarkup {
	if perRow < 1 {
		perRow = 1
	}
	pad := func(s string) string { return " " + s + " " }
	rows := make([][]models.InlineKeyboardButton, 0)
	row := make([]models.InlineKeyboardButton, 0, perRow)
	for i, button := range buttons {
		if i > 0 && i%perRow == 0 {
			rows = append(rows, row)
			row = make([]models.InlineKeyboardButton, 0, perRow)
		}
		row = append(row, models.InlineKeyboardButton{
			Text:         pad(button.Text),
			CallbackData: button.CallbackData,
		})
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	return models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}
