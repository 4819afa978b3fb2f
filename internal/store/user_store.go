package store

import (
	"context"
	"errors"
	"strings"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	"gorm.io/gorm"
)

// CreateUser inserts a dashboard account.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if err != nil && strings.Contains(err.Error(), "duplicate") {
		return &domain.ErrConflict{Message: "email already registered"}
	}
	return err
}

// GetUserByEmail fetches one account for login.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "user", ID: email}
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSuperAdminsWithChatID returns the approval-bot recipients.
func (s *Store) ListSuperAdminsWithChatID(ctx context.Context) ([]domain.User, error) {
	var admins []domain.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND telegram_chat_id <> ''", domain.RoleSuperAdmin).
		Find(&admins).Error
	return admins, err
}

// FindSysBotToken returns the first super admin's configured bot token,
// or empty when the approval bot is unconfigured.
func (s *Store) FindSysBotToken(ctx context.Context) (string, error) {
	var user domain.User
	err := s.db.WithContext(ctx).
		Where("role = ? AND telegram_bot_token <> ''", domain.RoleSuperAdmin).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return user.TelegramBotToken, nil
}

// SetAdminChatID records the chat id of the admin who sent /start to
// the bot owning the given token.
func (s *Store) SetAdminChatID(ctx context.Context, botToken, chatID string) error {
	return s.db.WithContext(ctx).Model(&domain.User{}).
		Where("role = ? AND telegram_bot_token = ?", domain.RoleSuperAdmin, botToken).
		Update("telegram_chat_id", chatID).Error
}

// UpdateTelegramSettings stores a user's own bot credentials.
func (s *Store) UpdateTelegramSettings(ctx context.Context, userID, botToken, chatID string) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"telegram_bot_token": botToken,
			"telegram_chat_id":   chatID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "user", ID: userID}
	}
	return nil
}
