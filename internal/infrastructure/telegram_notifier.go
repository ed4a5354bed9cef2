package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"whatsapp_crm/internal/entities"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts sales alerts to a Telegram chat.
type TelegramNotifier struct {
	bot    telegramSender
	chatID int64
	log    *zap.Logger
}

func NewTelegramNotifier(token string, chatID int64, log *zap.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram token: %w", err)
	}
	log.Info("telegram alerts enabled", zap.String("bot", bot.Self.UserName))
	return &TelegramNotifier{bot: bot, chatID: chatID, log: log}, nil
}

func (t *TelegramNotifier) QuoteCreated(_ context.Context, q *entities.Quote) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatQuoteAlert(q))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram alert: %w", err)
	}
	return nil
}

// FormatQuoteAlert renders a quote as a short Markdown summary. Customer
// supplied text is escaped.
func FormatQuoteAlert(q *entities.Quote) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *Nueva cotización %s*\n", tgbotapi.EscapeText(tgbotapi.ModeMarkdown, q.QuoteNumber))
	for _, it := range q.Items {
		fmt.Fprintf(&b, "• %d × %s ($%s)\n", it.Quantity, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, it.ProductName), humanize.CommafWithDigits(it.Subtotal, 2))
	}
	fmt.Fprintf(&b, "Subtotal: $%s\n", humanize.CommafWithDigits(q.Subtotal, 2))
	fmt.Fprintf(&b, "IVA: $%s\n", humanize.CommafWithDigits(q.Tax, 2))
	fmt.Fprintf(&b, "*Total: $%s*", humanize.CommafWithDigits(q.Total, 2))
	return b.String()
}
