package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/port"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// SysBot is the platform approval bot. A super admin stores a bot token
// on their account, sends /start to register their chat, and then
// approves or rejects new tenant registrations from inline buttons.
//
// The bot has an explicit lifecycle: Start begins long polling, Stop
// drains it, and Restart picks up a changed token. Callers own the
// lifecycle; nothing here is a global.
type SysBot struct {
	users     port.UserStore
	companies port.CompanyStore
	logger    *zap.Logger

	mu     sync.Mutex
	bot    *tgbotapi.BotAPI
	token  string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSysBot(users port.UserStore, companies port.CompanyStore, logger *zap.Logger) *SysBot {
	return &SysBot{
		users:     users,
		companies: companies,
		logger:    logger,
	}
}

// Start looks up the configured token and begins polling. A deployment
// without a configured super admin token is a clean no-op; the bot can
// be started later via Restart once a token is saved.
func (b *SysBot) Start(ctx context.Context) error {
	token, err := b.users.FindSysBotToken(ctx)
	if err != nil {
		return fmt.Errorf("find sysbot token: %w", err)
	}
	if token == "" {
		b.logger.Info("approval bot disabled, no super admin token configured")
		return nil
	}
	return b.startWithToken(token)
}

// Restart re-reads the stored token and swaps the polling loop when it
// changed. Called after a super admin updates their bot settings.
func (b *SysBot) Restart(ctx context.Context) error {
	token, err := b.users.FindSysBotToken(ctx)
	if err != nil {
		return fmt.Errorf("find sysbot token: %w", err)
	}

	b.mu.Lock()
	same := b.bot != nil && b.token == token
	b.mu.Unlock()
	if same {
		return nil
	}

	b.Stop()
	if token == "" {
		return nil
	}
	return b.startWithToken(token)
}

func (b *SysBot) startWithToken(token string) error {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("create approval bot: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	b.mu.Lock()
	b.bot = bot
	b.token = token
	b.cancel = cancel
	b.done = done
	b.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	go b.poll(ctx, bot, token, updates, done)

	b.logger.Info("approval bot started", zap.String("bot_username", bot.Self.UserName))
	return nil
}

// Stop halts polling and waits for the loop to drain. Safe to call
// when the bot never started.
func (b *SysBot) Stop() {
	b.mu.Lock()
	bot, cancel, done := b.bot, b.cancel, b.done
	b.bot = nil
	b.token = ""
	b.cancel = nil
	b.done = nil
	b.mu.Unlock()

	if bot == nil {
		return
	}
	cancel()
	bot.StopReceivingUpdates()
	<-done
	b.logger.Info("approval bot stopped")
}

func (b *SysBot) poll(ctx context.Context, bot *tgbotapi.BotAPI, token string, updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, bot, token, update)
		}
	}
}

func (b *SysBot) handleUpdate(ctx context.Context, bot *tgbotapi.BotAPI, token string, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, bot, update.CallbackQuery)
	case update.Message != nil && update.Message.IsCommand() && update.Message.Command() == "start":
		b.handleStart(ctx, bot, token, update.Message)
	}
}

// handleStart binds the sender's chat to the super admin owning this
// bot token, so approval requests know where to go.
func (b *SysBot) handleStart(ctx context.Context, bot *tgbotapi.BotAPI, token string, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if err := b.users.SetAdminChatID(ctx, token, strconv.FormatInt(chatID, 10)); err != nil {
		b.logger.Error("failed to register admin chat id", zap.Error(err))
		return
	}

	reply := tgbotapi.NewMessage(chatID, "✅ Bot connected! You will now receive alerts for new assistants.")
	if _, err := bot.Send(reply); err != nil {
		b.logger.Error("failed to reply to /start", zap.Error(err))
	}
	b.logger.Info("admin chat registered", zap.Int64("chat_id", chatID))
}

// handleCallback resolves an approve_<id> or reject_<id> button press:
// flip the tenant status, then rewrite the original message so the
// decision is visible in the chat history.
func (b *SysBot) handleCallback(ctx context.Context, bot *tgbotapi.BotAPI, query *tgbotapi.CallbackQuery) {
	if query.Data == "" || query.Message == nil {
		return
	}

	action, companyID, found := strings.Cut(query.Data, "_")
	if !found {
		return
	}

	var status string
	switch action {
	case "approve":
		status = domain.CompanyStatusActive
	case "reject":
		status = domain.CompanyStatusRejected
	default:
		return
	}

	if err := b.companies.SetCompanyStatus(ctx, companyID, status); err != nil {
		b.logger.Error("failed to update company status from callback",
			zap.String("company_id", companyID), zap.Error(err))
		callback := tgbotapi.NewCallback(query.ID, "Error updating status")
		if _, err := bot.Request(callback); err != nil {
			b.logger.Error("failed to answer callback", zap.Error(err))
		}
		return
	}

	newText := fmt.Sprintf("%s\n\n✅ *Action Taken*: %s", query.Message.Text, status)
	edit := tgbotapi.NewEditMessageText(query.Message.Chat.ID, query.Message.MessageID, newText)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(edit); err != nil {
		b.logger.Error("failed to edit approval message", zap.Error(err))
	}

	callback := tgbotapi.NewCallback(query.ID, fmt.Sprintf("Company %s", status))
	if _, err := bot.Request(callback); err != nil {
		b.logger.Error("failed to answer callback", zap.Error(err))
	}

	b.logger.Info("company status decided via approval bot",
		zap.String("company_id", companyID), zap.String("status", status))
}

// NotifyNewCompany fans an approval request out to every registered
// super admin. Per-admin failures are logged, not propagated, so one
// dead chat cannot block the others.
func (b *SysBot) NotifyNewCompany(ctx context.Context, company *domain.Company) error {
	b.mu.Lock()
	bot := b.bot
	b.mu.Unlock()
	if bot == nil {
		b.logger.Debug("approval bot not running, skipping registration alert")
		return nil
	}

	admins, err := b.users.ListSuperAdminsWithChatID(ctx)
	if err != nil {
		return fmt.Errorf("list super admins: %w", err)
	}

	text := fmt.Sprintf(`🆕 *New Assistant Registration*

🏢 *System*: %s
🆔 *ID*: `+"`%s`"+`
📅 *Time*: %s

Please approve or reject this request.`,
		company.Name, company.ID, company.CreatedAt.Format("2006-01-02 15:04:05"))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Approve", "approve_"+company.ID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Reject", "reject_"+company.ID),
		),
	)

	for _, admin := range admins {
		chatID, err := strconv.ParseInt(admin.TelegramChatID, 10, 64)
		if err != nil {
			b.logger.Warn("invalid admin chat id", zap.String("user_id", admin.ID))
			continue
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = keyboard
		if _, err := bot.Send(msg); err != nil {
			b.logger.Error("failed to notify admin",
				zap.String("user_id", admin.ID), zap.Error(err))
		}
	}
	return nil
}
