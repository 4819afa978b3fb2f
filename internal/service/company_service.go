package service

import (
	"context"
	"fmt"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/infra/cache"
	"github.com/primechat/prime-chatbot-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CompanyService manages tenant workspaces: lifecycle, knowledge-base
// documents, leads and dashboard stats.
type CompanyService struct {
	companies     port.CompanyStore
	documents     port.DocumentStore
	leads         port.LeadStore
	conversations port.ConversationStore
	ai            port.AIService
	sheet         port.SheetExporter
	admin         port.AdminNotifier
	cache         *cache.InMemory[*domain.Company]
	logger        *zap.Logger
}

func NewCompanyService(
	companies port.CompanyStore,
	documents port.DocumentStore,
	leads port.LeadStore,
	conversations port.ConversationStore,
	ai port.AIService,
	sheet port.SheetExporter,
	admin port.AdminNotifier,
	companyCache *cache.InMemory[*domain.Company],
	logger *zap.Logger,
) *CompanyService {
	return &CompanyService{
		companies:     companies,
		documents:     documents,
		leads:         leads,
		conversations: conversations,
		ai:            ai,
		sheet:         sheet,
		admin:         admin,
		cache:         companyCache,
		logger:        logger,
	}
}

// CreateCompanyInput is the tenant registration payload.
type CreateCompanyInput struct {
	Name            string `json:"name"`
	SystemPrompt    string `json:"systemPrompt"`
	GreetingMessage string `json:"greetingMessage"`
}

// CreateCompany registers a new tenant in PENDING status with a fresh
// vector namespace and API key, then alerts the super admins for
// approval. A failed alert never fails the registration.
func (s *CompanyService) CreateCompany(ctx context.Context, userID string, in CreateCompanyInput) (*domain.Company, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.CreateCompany")
	defer span.End()

	if in.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}

	company := &domain.Company{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            in.Name,
		SystemPrompt:    in.SystemPrompt,
		GreetingMessage: in.GreetingMessage,
		VectorNamespace: uuid.New().String(),
		APIKey:          uuid.New().String(),
		Status:          domain.CompanyStatusPending,
	}
	if err := s.companies.CreateCompany(ctx, company); err != nil {
		return nil, err
	}

	if err := s.admin.NotifyNewCompany(ctx, company); err != nil {
		s.logger.Error("failed to notify admins of new company",
			zap.String("company_id", company.ID), zap.Error(err))
	}

	s.logger.Info("company registered",
		zap.String("company_id", company.ID), zap.String("user_id", userID))
	return company, nil
}

func (s *CompanyService) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	return s.companies.GetCompany(ctx, id)
}

func (s *CompanyService) ListCompanies(ctx context.Context, userID string) ([]domain.Company, error) {
	return s.companies.ListCompanies(ctx, userID)
}

// UpdateCompany applies a partial settings update and drops the cached
// copy so the chat path sees the change on its next turn.
func (s *CompanyService) UpdateCompany(ctx context.Context, id string, fields map[string]any) (*domain.Company, error) {
	if len(fields) == 0 {
		return nil, &domain.ErrValidation{Field: "body", Message: "no updatable fields provided"}
	}
	company, err := s.companies.UpdateCompany(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	s.cache.Delete("company:" + id)
	return company, nil
}

// DeleteCompany drops the tenant's vector collection first, then the
// row. A failed vector delete is logged and skipped: orphaned vectors
// are preferable to a tenant that cannot be removed.
func (s *CompanyService) DeleteCompany(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "CompanyService.DeleteCompany")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", id))

	company, err := s.companies.GetCompany(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ai.DeleteCollection(ctx, company.VectorNamespace); err != nil {
		s.logger.Error("failed to delete vector collection",
			zap.String("company_id", id), zap.Error(err))
	}

	if err := s.companies.DeleteCompany(ctx, id); err != nil {
		return err
	}
	s.cache.Delete("company:" + id)
	return nil
}

func (s *CompanyService) RegenerateAPIKey(ctx context.Context, id string) (string, error) {
	key, err := s.companies.RegenerateAPIKey(ctx, id)
	if err != nil {
		return "", err
	}
	s.cache.Delete("company:" + id)
	return key, nil
}

// UploadDocumentInput is one knowledge-base entry to ingest.
type UploadDocumentInput struct {
	CompanyID string `json:"companyId"`
	Type      string `json:"type"`
	Content   string `json:"content"`
	Metadata  string `json:"metadata"`
}

// UploadDocument ingests the text into the tenant's vector namespace,
// then records the document row. Ingest runs first so a vector-store
// failure leaves no orphan row behind.
func (s *CompanyService) UploadDocument(ctx context.Context, in UploadDocumentInput) (*domain.Document, error) {
	ctx, span := tracer.Start(ctx, "CompanyService.UploadDocument")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", in.CompanyID))

	if in.Content == "" {
		return nil, &domain.ErrValidation{Field: "content", Message: "content is required"}
	}

	company, err := s.companies.GetCompany(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:        uuid.New().String(),
		CompanyID: company.ID,
		Type:      in.Type,
		Content:   in.Content,
		Metadata:  in.Metadata,
		IsActive:  true,
	}

	err = s.ai.Ingest(ctx, &domain.IngestRequest{
		CompanyID: company.VectorNamespace,
		Text:      in.Content,
		Metadata:  map[string]any{"documentId": doc.ID, "type": in.Type},
	})
	if err != nil {
		return nil, fmt.Errorf("ingest document: %w", err)
	}

	if err := s.documents.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *CompanyService) ListDocuments(ctx context.Context, companyID string) ([]domain.Document, error) {
	return s.documents.ListDocuments(ctx, companyID)
}

// DeleteDocument removes the vector copy best-effort, then the row.
func (s *CompanyService) DeleteDocument(ctx context.Context, companyID, docID string) error {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if _, err := s.documents.GetDocument(ctx, docID); err != nil {
		return err
	}

	if err := s.ai.DeleteDocumentVectors(ctx, company.VectorNamespace, docID); err != nil {
		s.logger.Error("failed to delete document vectors",
			zap.String("document_id", docID), zap.Error(err))
	}
	return s.documents.DeleteDocument(ctx, docID)
}

// SetDocumentStatus syncs the vector store first, then the row, so
// retrieval visibility never claims more than the vector store honors.
func (s *CompanyService) SetDocumentStatus(ctx context.Context, companyID, docID string, active bool) (*domain.Document, error) {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if err := s.ai.UpdateDocumentStatus(ctx, company.VectorNamespace, docID, active); err != nil {
		return nil, fmt.Errorf("sync document status: %w", err)
	}
	return s.documents.SetDocumentActive(ctx, docID, active)
}

func (s *CompanyService) ListLeads(ctx context.Context, companyID string) ([]domain.Lead, error) {
	return s.leads.ListLeads(ctx, companyID)
}

// Stats aggregates the dashboard counters for one account.
func (s *CompanyService) Stats(ctx context.Context, userID string) (*domain.DashboardStats, error) {
	companies, err := s.companies.CountCompanies(ctx, userID)
	if err != nil {
		return nil, err
	}
	documents, err := s.documents.CountDocuments(ctx, userID)
	if err != nil {
		return nil, err
	}
	conversations, err := s.conversations.CountConversations(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &domain.DashboardStats{
		Companies:     companies,
		Documents:     documents,
		Conversations: conversations,
	}, nil
}

// ExportLead pushes one lead to the tenant's spreadsheet on demand,
// using the latest conversation's summary when one exists.
func (s *CompanyService) ExportLead(ctx context.Context, companyID, leadID string) error {
	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	lead, err := s.leads.GetLead(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.CompanyID != company.ID {
		return &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}

	summary := "N/A"
	if len(lead.Conversations) > 0 {
		summary = lead.Conversations[0].Summary
	}
	return s.sheet.Export(ctx, company, domain.LeadNotification{
		Profile: domain.VisitorProfile{Name: lead.Name, Email: lead.Email, Phone: lead.Phone},
		Summary: summary,
		Score:   lead.Status,
	})
}
