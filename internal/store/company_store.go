package store

import (
	"context"
	"errors"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateCompany inserts a new tenant. ID, namespace and API key are
// expected to be minted by the service layer.
func (s *Store) CreateCompany(ctx context.Context, company *domain.Company) error {
	return s.db.WithContext(ctx).Create(company).Error
}

// GetCompany fetches one tenant by id.
func (s *Store) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	var company domain.Company
	err := s.db.WithContext(ctx).First(&company, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// ListCompanies returns all tenants owned by a user, newest first.
func (s *Store) ListCompanies(ctx context.Context, userID string) ([]domain.Company, error) {
	var companies []domain.Company
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&companies).Error
	return companies, err
}

// UpdateCompany applies a partial update. Only the provided fields are
// touched, so clearing an integration setting requires an explicit
// empty string.
func (s *Store) UpdateCompany(ctx context.Context, id string, fields map[string]any) (*domain.Company, error) {
	res := s.db.WithContext(ctx).Model(&domain.Company{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return s.GetCompany(ctx, id)
}

// DeleteCompany removes a tenant and, via FK cascade, its documents,
// leads and conversations.
func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Delete(&domain.Company{}, "id = ?", id).Error
}

// SetCompanyStatus flips the approval status (used by the admin bot).
func (s *Store) SetCompanyStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&domain.Company{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return nil
}

// RegenerateAPIKey mints and stores a fresh key.
func (s *Store) RegenerateAPIKey(ctx context.Context, companyID string) (string, error) {
	key := uuid.New().String()
	res := s.db.WithContext(ctx).Model(&domain.Company{}).
		Where("id = ?", companyID).
		Update("api_key", key)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", &domain.ErrNotFound{Resource: "company", ID: companyID}
	}
	return key, nil
}

// CountCompanies returns the number of tenants owned by a user.
func (s *Store) CountCompanies(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&domain.Company{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}
