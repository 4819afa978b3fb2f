package store

import (
	"context"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	"github.com/google/uuid"
)

// CreateConversation persists one completed session. Rows are
// append-only; nothing updates a conversation after this.
func (s *Store) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(conv).Error
}

// CountConversations counts sessions across all of a user's tenants,
// for the dashboard stats endpoint.
func (s *Store) CountConversations(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Conversation{}).
		Joins("JOIN leads ON leads.id = conversations.lead_id").
		Joins("JOIN companies ON companies.id = leads.company_id").
		Where("companies.user_id = ?", userID).
		Count(&n).Error
	return n, err
}
