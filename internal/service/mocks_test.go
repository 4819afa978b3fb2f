package service_test

import (
	"context"
	"sync"

	"github.com/primechat/prime-chatbot-go/internal/domain"
)

// --- Mocks ---

type mockCompanyStore struct {
	company *domain.Company
	err     error
	gets    int
}

func (m *mockCompanyStore) CreateCompany(_ context.Context, _ *domain.Company) error { return m.err }
func (m *mockCompanyStore) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	if m.company == nil {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return m.company, nil
}
func (m *mockCompanyStore) ListCompanies(_ context.Context, _ string) ([]domain.Company, error) {
	return nil, m.err
}
func (m *mockCompanyStore) UpdateCompany(_ context.Context, _ string, _ map[string]any) (*domain.Company, error) {
	return m.company, m.err
}
func (m *mockCompanyStore) DeleteCompany(_ context.Context, _ string) error        { return m.err }
func (m *mockCompanyStore) SetCompanyStatus(_ context.Context, _, _ string) error  { return m.err }
func (m *mockCompanyStore) RegenerateAPIKey(_ context.Context, _ string) (string, error) {
	return "new-key", m.err
}
func (m *mockCompanyStore) CountCompanies(_ context.Context, _ string) (int64, error) {
	return 0, m.err
}

type mockLeadStore struct {
	mu       sync.Mutex
	leads    map[string]*domain.Lead
	statuses map[string]string
	err      error
}

func newMockLeadStore() *mockLeadStore {
	return &mockLeadStore{
		leads:    make(map[string]*domain.Lead),
		statuses: make(map[string]string),
	}
}

func (m *mockLeadStore) FindOrCreateLead(_ context.Context, companyID string, profile domain.VisitorProfile) (*domain.Lead, error) {
	if m.err != nil {
		return nil, m.err
	}
	name := profile.Name
	if name == "" {
		name = "Anonymous"
	}
	email := profile.Email
	if email == "" {
		email = "N/A"
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	key := companyID + "|" + email
	if lead, ok := m.leads[key]; ok {
		return lead, nil
	}
	lead := &domain.Lead{
		ID:        "lead-" + email,
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Phone:     profile.Phone,
		Status:    domain.ScoreNew,
	}
	m.leads[key] = lead
	return lead, nil
}

func (m *mockLeadStore) UpdateLeadStatus(_ context.Context, leadID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[leadID] = status
	return nil
}

func (m *mockLeadStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.ID == id {
			return lead, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
}

func (m *mockLeadStore) ListLeads(_ context.Context, _ string) ([]domain.Lead, error) {
	return nil, nil
}

func (m *mockLeadStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leads)
}

type mockConversationStore struct {
	mu    sync.Mutex
	convs []*domain.Conversation
	err   error
}

func (m *mockConversationStore) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs = append(m.convs, conv)
	return m.err
}

func (m *mockConversationStore) CountConversations(_ context.Context, _ string) (int64, error) {
	return int64(len(m.convs)), nil
}

type mockAIService struct {
	generateResp  *domain.GenerateResponse
	generateErr   error
	summarizeResp *domain.SummarizeResponse
	summarizeErr  error
}

func (m *mockAIService) Generate(_ context.Context, _ *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	return m.generateResp, m.generateErr
}
func (m *mockAIService) Summarize(_ context.Context, _ []domain.Message) (*domain.SummarizeResponse, error) {
	return m.summarizeResp, m.summarizeErr
}
func (m *mockAIService) Ingest(_ context.Context, _ *domain.IngestRequest) error { return nil }
func (m *mockAIService) DeleteCollection(_ context.Context, _ string) error      { return nil }
func (m *mockAIService) DeleteDocumentVectors(_ context.Context, _, _ string) error {
	return nil
}
func (m *mockAIService) UpdateDocumentStatus(_ context.Context, _, _ string, _ bool) error {
	return nil
}

type mockSheetExporter struct {
	mu    sync.Mutex
	calls []domain.LeadNotification
	err   error
}

func (m *mockSheetExporter) Export(_ context.Context, _ *domain.Company, n domain.LeadNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, n)
	return m.err
}

func (m *mockSheetExporter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type mockLeadNotifier struct {
	mu    sync.Mutex
	calls []domain.LeadNotification
	err   error
}

func (m *mockLeadNotifier) Notify(_ context.Context, _ *domain.Company, n domain.LeadNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, n)
	return m.err
}

func (m *mockLeadNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
