// Package telegram holds the two Telegram integrations: the per-tenant
// lead notifier and the platform approval bot.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func dubaiOrUTC() *time.Location {
	loc, err := time.LoadLocation("Asia/Dubai")
	if err != nil {
		return time.UTC
	}
	return loc
}

// Notifier pushes a lead alert to the tenant's own Telegram chat. Each
// tenant brings its own bot token, so the bot client is built per send.
type Notifier struct {
	loc    *time.Location
	logger *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{loc: dubaiOrUTC(), logger: logger}
}

// Notify sends the lead alert. Tenants without both a bot token and a
// chat id are skipped silently.
func (n *Notifier) Notify(ctx context.Context, company *domain.Company, lead domain.LeadNotification) error {
	if company.TelegramBotToken == "" || company.TelegramChatID == "" {
		n.logger.Debug("telegram not configured for company, skipping",
			zap.String("company_id", company.ID))
		return nil
	}

	chatID, err := strconv.ParseInt(company.TelegramChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("parse telegram chat id: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(company.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, formatLeadMessage(lead, time.Now().In(n.loc)))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Debug("telegram lead alert sent", zap.String("company_id", company.ID))
	return nil
}

func formatLeadMessage(lead domain.LeadNotification, ts time.Time) string {
	name := lead.Profile.Name
	if name == "" {
		name = "Anonymous"
	}
	email := lead.Profile.Email
	if email == "" {
		email = "N/A"
	}
	phone := lead.Profile.Phone
	if phone == "" {
		phone = "N/A"
	}

	return fmt.Sprintf(`🚨 *New Lead Captured* 🚨

👤 *Name*: %s
📧 *Email*: %s
📞 *Phone*: %s

📊 *Score*: %s
📅 *Time (Dubai)*: %s

📝 *Summary*:
%s`,
		name, email, phone,
		lead.Score, ts.Format("2006-01-02 15:04:05"),
		lead.Summary,
	)
}
