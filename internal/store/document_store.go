package store

import (
	"context"
	"errors"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	"gorm.io/gorm"
)

// CreateDocument inserts a knowledge-base entry.
func (s *Store) CreateDocument(ctx context.Context, doc *domain.Document) error {
	return s.db.WithContext(ctx).Create(doc).Error
}

// GetDocument fetches one document by id.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	var doc domain.Document
	err := s.db.WithContext(ctx).First(&doc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "document", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns a tenant's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, companyID string) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// DeleteDocument removes a document row.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&domain.Document{}, "id = ?", id).Error
}

// SetDocumentActive toggles whether a document participates in retrieval.
func (s *Store) SetDocumentActive(ctx context.Context, id string, active bool) (*domain.Document, error) {
	res := s.db.WithContext(ctx).Model(&domain.Document{}).
		Where("id = ?", id).
		Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &domain.ErrNotFound{Resource: "document", ID: id}
	}
	return s.GetDocument(ctx, id)
}

// CountDocuments counts documents across all of a user's tenants.
func (s *Store) CountDocuments(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Document{}).
		Joins("JOIN companies ON companies.id = documents.company_id").
		Where("companies.user_id = ?", userID).
		Count(&n).Error
	return n, err
}
