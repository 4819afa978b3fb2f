// Package port defines the interfaces the services depend on, keeping
// them decoupled from the concrete store and infra clients.
package port

import (
	"context"

	"github.com/primechat/prime-chatbot-go/internal/domain"
)

// CompanyStore persists tenant workspaces.
type CompanyStore interface {
	CreateCompany(ctx context.Context, company *domain.Company) error
	GetCompany(ctx context.Context, id string) (*domain.Company, error)
	ListCompanies(ctx context.Context, userID string) ([]domain.Company, error)
	UpdateCompany(ctx context.Context, id string, fields map[string]any) (*domain.Company, error)
	DeleteCompany(ctx context.Context, id string) error
	SetCompanyStatus(ctx context.Context, id, status string) error
	RegenerateAPIKey(ctx context.Context, companyID string) (string, error)
	CountCompanies(ctx context.Context, userID string) (int64, error)
}

// LeadStore persists captured leads. FindOrCreateLead is the only write
// path for lead identity: it must never duplicate a (companyId, email) pair.
type LeadStore interface {
	FindOrCreateLead(ctx context.Context, companyID string, profile domain.VisitorProfile) (*domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, leadID, status string) error
	GetLead(ctx context.Context, id string) (*domain.Lead, error)
	ListLeads(ctx context.Context, companyID string) ([]domain.Lead, error)
}

// ConversationStore persists completed sessions.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	CountConversations(ctx context.Context, userID string) (int64, error)
}

// DocumentStore persists knowledge-base entries.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocuments(ctx context.Context, companyID string) ([]domain.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	SetDocumentActive(ctx context.Context, id string, active bool) (*domain.Document, error)
	CountDocuments(ctx context.Context, userID string) (int64, error)
}

// UserStore persists dashboard accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListSuperAdminsWithChatID(ctx context.Context) ([]domain.User, error)
	FindSysBotToken(ctx context.Context) (string, error)
	SetAdminChatID(ctx context.Context, botToken, chatID string) error
	UpdateTelegramSettings(ctx context.Context, userID, botToken, chatID string) error
}

// AIService is the external retrieval/generation service, treated as a
// black-box HTTP API.
type AIService interface {
	Generate(ctx context.Context, req *domain.GenerateRequest) (*domain.GenerateResponse, error)
	Summarize(ctx context.Context, history []domain.Message) (*domain.SummarizeResponse, error)
	Ingest(ctx context.Context, req *domain.IngestRequest) error
	DeleteCollection(ctx context.Context, namespace string) error
	DeleteDocumentVectors(ctx context.Context, namespace, docID string) error
	UpdateDocumentStatus(ctx context.Context, namespace, docID string, isActive bool) error
}

// SheetExporter is the spreadsheet notification sink. Implementations
// must upsert by email and treat missing configuration as a no-op.
type SheetExporter interface {
	Export(ctx context.Context, company *domain.Company, n domain.LeadNotification) error
}

// LeadNotifier is the per-tenant messaging sink.
type LeadNotifier interface {
	Notify(ctx context.Context, company *domain.Company, n domain.LeadNotification) error
}

// AdminNotifier announces new tenant registrations awaiting approval.
type AdminNotifier interface {
	NotifyNewCompany(ctx context.Context, company *domain.Company) error
}
