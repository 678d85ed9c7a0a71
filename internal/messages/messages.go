package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/mkrylov/channelpass-bot/internal/ledger"
	"github.com/mkrylov/channelpass-bot/types"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func fmtDate(t time.Time) string {
	return t.UTC().Format("02.01.2006")
}

func fmtAmount(amount float64, currency types.Currency) string {
	s := fmt.Sprintf("%.2f", amount)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s + " " + string(currency)
}

func StartWelcome() string {
	return "👋 <b>Привет!</b>\nЭтот бот продаёт доступ в закрытый канал.\n\n" +
		"💳 Выберите тариф, оплатите криптовалютой и пришлите хеш транзакции.\n" +
		"📆 Подписка продлевается автоматически при повторной оплате."
}

func ChoosePlan() string {
	return "🔑 <b>Выберите тариф</b>"
}

func ChooseCurrency(planTitle string) string {
	return fmt.Sprintf("💱 <b>Тариф «%s»</b>\nВыберите валюту оплаты:", Escape(planTitle))
}

func PaymentInstructions(planTitle string, amount float64, currency types.Currency, wallet string) string {
	return fmt.Sprintf(
		"💳 <b>Оплата тарифа «%s»</b>\n\n"+
			"Сумма: <b>%s</b>\nКошелёк:\n<code>%s</code>\n\n"+
			"После перевода пришлите сюда <b>хеш транзакции</b> (64 символа).",
		Escape(planTitle), fmtAmount(amount, currency), Escape(wallet))
}

func PaymentChecking() string {
	return "⏳ <b>Проверяем платёж…</b>\nЭто займёт несколько секунд."
}

func PaymentAwaitingReview() string {
	return "👀 <b>Платёж на ручной проверке</b>\nМы напишем вам, как только оператор подтвердит перевод."
}

func PaymentAccepted(expiresAt time.Time, inviteLink string) string {
	msg := fmt.Sprintf("✅ <b>Оплата подтверждена!</b>\nПодписка активна до <b>%s</b>.", fmtDate(expiresAt))
	if inviteLink != "" {
		msg += fmt.Sprintf("\n\n🔗 Ссылка для входа в канал:\n%s", Escape(inviteLink))
	}
	return msg
}

func Help() string {
	return "ℹ️ <b>Как это работает</b>\n" +
		"1. Выберите тариф: /start\n" +
		"2. Оплатите на указанный кошелёк\n" +
		"3. Пришлите хеш транзакции сюда\n\n" +
		"Статус подписки: /status"
}

func ErrorNoPendingPayment() string {
	return "🤔 <b>Нет ожидающего платежа</b>\nСначала выберите тариф через /start."
}

func ErrorDuplicateTransaction() string {
	return "🚫 <b>Этот хеш уже использован</b>\nКаждая транзакция засчитывается только один раз."
}

func ErrorVerificationFailed() string {
	return "🚫 <b>Платёж не найден</b>\nПроверьте хеш и сумму перевода и пришлите хеш ещё раз."
}

func ErrorTryAgainLater() string {
	return "🚫 <b>Сервис временно недоступен</b>\nПопробуйте ещё раз через пару минут."
}

func ErrorContactSupport() string {
	return "⚠️ <b>Подписка активна, но добавить в канал не удалось</b>\nНапишите в поддержку, мы добавим вас вручную."
}

func ErrorCurrencyUnavailable() string {
	return "🚫 <b>Эта валюта сейчас недоступна</b>\nВыберите другую."
}

func ErrorUnknownCommand() string {
	return "❓ <b>Команда не найдена</b>"
}

func ErrorDefault() string {
	return "🚫 <b>Ошибка</b>\nПопробуйте ещё раз."
}

func TextHint() string {
	return "🤖 Пришлите хеш транзакции (64 символа) или откройте меню: /start"
}

func Status(st ledger.Status) string {
	if st.Plan == "" {
		return "📭 <b>Подписки нет</b>\nВыберите тариф через /start."
	}
	if st.Expired {
		return fmt.Sprintf("⌛️ <b>Подписка истекла</b> (%s)\nПродлите её через /start.", fmtDate(*st.ExpiresAt))
	}
	return fmt.Sprintf("✅ <b>Подписка активна</b>\nТариф: <b>%s</b>\nОсталось дней: <b>%d</b>\nДо: <b>%s</b>",
		Escape(st.Plan), st.DaysRemaining, fmtDate(*st.ExpiresAt))
}

func SubscriptionExpired() string {
	return "⌛️ <b>Подписка закончилась</b>\nДоступ к каналу закрыт. Продлить: /start"
}

func AdminManualReview(userID int64, username string, tx types.Transaction) string {
	who := fmt.Sprintf("id %d", userID)
	if username != "" {
		who = "@" + Escape(username)
	}
	return fmt.Sprintf(
		"👀 <b>Платёж на проверку</b>\nПользователь: %s\nТариф: %s\nСумма: %s\nХеш:\n<code>%s</code>",
		who, Escape(tx.Plan), fmtAmount(tx.Amount, tx.Currency), Escape(tx.Hash))
}

func AdminAdmitFailed(userID int64, username string) string {
	who := fmt.Sprintf("id %d", userID)
	if username != "" {
		who = "@" + Escape(username)
	}
	return fmt.Sprintf("⚠️ <b>Не удалось добавить в канал</b>\nПользователь: %s — добавьте вручную.", who)
}
