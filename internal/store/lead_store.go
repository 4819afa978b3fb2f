package store

import (
	"context"
	"errors"

	"github.com/primechat/prime-chatbot-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FindOrCreateLead resolves lead identity by (companyId, email),
// creating the row when no match exists. The unique index on
// (company_id, email) backs this up: a concurrent duplicate insert
// falls back to the existing row instead of erroring, so repeated
// terminations for the same visitor can never mint a second identity.
func (s *Store) FindOrCreateLead(ctx context.Context, companyID string, profile domain.VisitorProfile) (*domain.Lead, error) {
	name := profile.Name
	if name == "" {
		name = "Anonymous"
	}
	email := profile.Email
	if email == "" {
		email = "N/A"
	}

	var lead domain.Lead
	err := s.db.WithContext(ctx).
		Where("company_id = ? AND email = ?", companyID, email).
		First(&lead).Error
	if err == nil {
		return &lead, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	lead = domain.Lead{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Phone:     profile.Phone,
		Status:    domain.ScoreNew,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "company_id"}, {Name: "email"}},
			DoNothing: true,
		}).
		Create(&lead).Error
	if err != nil {
		return nil, err
	}

	// A concurrent insert may have won the conflict; re-read to return
	// the row that actually holds the identity.
	err = s.db.WithContext(ctx).
		Where("company_id = ? AND email = ?", companyID, email).
		First(&lead).Error
	if err != nil {
		return nil, err
	}

	s.logger.Debug("lead resolved",
		zap.String("company_id", companyID),
		zap.String("lead_id", lead.ID),
	)
	return &lead, nil
}

// UpdateLeadStatus sets the qualification label from the latest session.
func (s *Store) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	return s.db.WithContext(ctx).Model(&domain.Lead{}).
		Where("id = ?", leadID).
		Update("status", status).Error
}

// GetLead fetches one lead with its conversation history, newest first.
func (s *Store) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	var lead domain.Lead
	err := s.db.WithContext(ctx).
		Preload("Conversations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&lead, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

// ListLeads returns a tenant's leads with their conversations.
func (s *Store) ListLeads(ctx context.Context, companyID string) ([]domain.Lead, error) {
	var leads []domain.Lead
	err := s.db.WithContext(ctx).
		Preload("Conversations", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&leads).Error
	return leads, err
}
