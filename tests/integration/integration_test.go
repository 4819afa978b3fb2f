package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/handler"
	"github.com/primechat/prime-chatbot-go/internal/infra/ai"
	"github.com/primechat/prime-chatbot-go/internal/infra/cache"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/infra/resilience"
	"github.com/primechat/prime-chatbot-go/internal/service"

	"go.uber.org/zap"
)

// --- In-memory stores ---

type memCompanyStore struct {
	company *domain.Company
}

func (m *memCompanyStore) CreateCompany(_ context.Context, _ *domain.Company) error { return nil }
func (m *memCompanyStore) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	if m.company == nil || m.company.ID != id {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return m.company, nil
}
func (m *memCompanyStore) ListCompanies(_ context.Context, _ string) ([]domain.Company, error) {
	return nil, nil
}
func (m *memCompanyStore) UpdateCompany(_ context.Context, _ string, _ map[string]any) (*domain.Company, error) {
	return m.company, nil
}
func (m *memCompanyStore) DeleteCompany(_ context.Context, _ string) error       { return nil }
func (m *memCompanyStore) SetCompanyStatus(_ context.Context, _, _ string) error { return nil }
func (m *memCompanyStore) RegenerateAPIKey(_ context.Context, _ string) (string, error) {
	return "", nil
}
func (m *memCompanyStore) CountCompanies(_ context.Context, _ string) (int64, error) { return 0, nil }

type memLeadStore struct {
	mu    sync.Mutex
	leads map[string]*domain.Lead
}

func newMemLeadStore() *memLeadStore {
	return &memLeadStore{leads: make(map[string]*domain.Lead)}
}

func (m *memLeadStore) FindOrCreateLead(_ context.Context, companyID string, profile domain.VisitorProfile) (*domain.Lead, error) {
	name, email := profile.Name, profile.Email
	if name == "" {
		name = "Anonymous"
	}
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

func (m *memLeadStore) UpdateLeadStatus(_ context.Context, leadID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.ID == leadID {
			lead.Status = status
		}
	}
	return nil
}

func (m *memLeadStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.ID == id {
			return lead, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
}

func (m *memLeadStore) ListLeads(_ context.Context, _ string) ([]domain.Lead, error) {
	return nil, nil
}

type memConversationStore struct {
	mu    sync.Mutex
	convs []*domain.Conversation
}

func (m *memConversationStore) CreateConversation(_ context.Context, conv *domain.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs = append(m.convs, conv)
	return nil
}

func (m *memConversationStore) CountConversations(_ context.Context, _ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.convs)), nil
}

type recordingSink struct {
	mu    sync.Mutex
	calls []domain.LeadNotification
}

func (r *recordingSink) record(n domain.LeadNotification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, n)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recordingSink) last() domain.LeadNotification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

type sheetSink struct{ recordingSink }

func (s *sheetSink) Export(_ context.Context, _ *domain.Company, n domain.LeadNotification) error {
	s.record(n)
	return nil
}

type telegramSink struct{ recordingSink }

func (s *telegramSink) Notify(_ context.Context, _ *domain.Company, n domain.LeadNotification) error {
	s.record(n)
	return nil
}

// --- Tests ---

// TestIntegration_ChatAndTermination spins up a mock AI service and runs
// a chat turn plus the session termination protocol through the router.
func TestIntegration_ChatAndTermination(t *testing.T) {
	// --- Mock AI service ---
	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat/generate":
			var req domain.GenerateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.CompanyID != "ns-integration" {
				t.Errorf("expected vector namespace on generate call, got %q", req.CompanyID)
			}
			json.NewEncoder(w).Encode(domain.GenerateResponse{
				Answer: "We integrate with Google Sheets and Telegram.",
			})
		case "/chat/summarize":
			json.NewEncoder(w).Encode(domain.SummarizeResponse{
				Summary: "Visitor asked about integrations.",
				Score:   "HOT",
				Topics:  []string{"integrations"},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer aiServer.Close()

	// --- Build services ---
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test-ai")
	cfg := resilience.Config{MaxRetries: 1, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 5 * time.Second}

	aiClient := ai.NewClient(httpClient, aiServer.URL, cb, cfg)

	companies := &memCompanyStore{company: &domain.Company{
		ID:              "comp-integration-1",
		Name:            "Acme",
		VectorNamespace: "ns-integration",
		Status:          domain.CompanyStatusActive,
	}}
	leads := newMemLeadStore()
	convs := &memConversationStore{}
	sheet := &sheetSink{}
	telegram := &telegramSink{}

	chatSvc := service.NewChatService(companies, aiClient, cache.New[*domain.Company](time.Minute), metrics, logger)
	sessionSvc := service.NewSessionService(companies, leads, convs, aiClient, sheet, telegram, metrics, logger)
	leadSvc := service.NewLeadService(companies, leads, sheet, metrics, logger)

	router := handler.NewRouter(handler.Services{
		Chat:    chatSvc,
		Session: sessionSvc,
		Lead:    leadSvc,
		Auth:    service.NewAuthService(nil, "test-secret", time.Hour, logger),
		Metrics: metrics,
		Logger:  logger,
	})

	// --- Chat turn ---
	body, _ := json.Marshal(domain.ChatTurnRequest{
		Query: "What integrations do you support?",
		History: []domain.Message{
			{Role: domain.RoleAssistant, Content: "Connected to Acme. Ask me anything about your data!"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/chat/comp-integration-1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("chat turn: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var turn domain.ChatTurnResponse
	if err := json.NewDecoder(rec.Body).Decode(&turn); err != nil {
		t.Fatalf("failed to decode chat response: %v", err)
	}
	if turn.Answer != "We integrate with Google Sheets and Telegram." {
		t.Errorf("unexpected answer: %q", turn.Answer)
	}

	// --- Lead submit ---
	body, _ = json.Marshal(map[string]string{
		"companyId": "comp-integration-1",
		"name":      "Alice",
		"email":     "alice@x.com",
		"phone":     "555-1234",
	})
	req = httptest.NewRequest(http.MethodPost, "/company/lead", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("lead submit: expected 201, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	// --- End session ---
	body, _ = json.Marshal(domain.EndSessionRequest{
		CompanyID: "comp-integration-1",
		History: []domain.Message{
			{Role: domain.RoleUser, Content: "What integrations do you support?"},
			{Role: domain.RoleAssistant, Content: "We integrate with Google Sheets and Telegram."},
		},
		LeadData: domain.VisitorProfile{Name: "Alice", Email: "alice@x.com", Phone: "555-1234"},
	})
	req = httptest.NewRequest(http.MethodPost, "/company/end-session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("end session: expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var result domain.EndSessionResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode termination response: %v", err)
	}
	if result.Message != "Session ended successfully" {
		t.Errorf("unexpected message: %q", result.Message)
	}
	if result.Score != "HOT" {
		t.Errorf("expected score HOT, got %q", result.Score)
	}

	// Lead identity stayed single across submit + termination.
	lead, err := leads.GetLead(context.Background(), "lead-alice@x.com")
	if err != nil {
		t.Fatalf("expected lead to exist: %v", err)
	}
	if lead.Status != "HOT" {
		t.Errorf("expected lead status HOT, got %q", lead.Status)
	}
	if got, _ := convs.CountConversations(context.Background(), ""); got != 1 {
		t.Errorf("expected 1 conversation persisted, got %d", got)
	}
	if telegram.count() != 1 {
		t.Fatalf("expected 1 telegram notification, got %d", telegram.count())
	}
	if n := telegram.last(); n.Summary == "" || n.Score != "HOT" {
		t.Errorf("notification missing summary or score: %+v", n)
	}
	// Sheet sink sees the capture-time export plus the termination export.
	if sheet.count() < 1 {
		t.Error("expected at least one sheet export")
	}
}

// TestIntegration_SummarizerDownStillTerminates verifies the protocol
// degrades to the fallback summary when the AI service errors.
func TestIntegration_SummarizerDownStillTerminates(t *testing.T) {
	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer aiServer.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test-ai-down")
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	aiClient := ai.NewClient(&http.Client{Timeout: 5 * time.Second}, aiServer.URL, cb, cfg)

	companies := &memCompanyStore{company: &domain.Company{
		ID:              "comp-integration-2",
		Name:            "Acme",
		VectorNamespace: "ns-2",
		Status:          domain.CompanyStatusActive,
	}}
	sessionSvc := service.NewSessionService(
		companies, newMemLeadStore(), &memConversationStore{},
		aiClient, &sheetSink{}, &telegramSink{},
		metrics, logger,
	)

	router := handler.NewRouter(handler.Services{
		Session: sessionSvc,
		Auth:    service.NewAuthService(nil, "test-secret", time.Hour, logger),
		Metrics: metrics,
		Logger:  logger,
	})

	body, _ := json.Marshal(domain.EndSessionRequest{
		CompanyID: "comp-integration-2",
		History: []domain.Message{
			{Role: domain.RoleUser, Content: "Do you have an API?"},
		},
		LeadData: domain.VisitorProfile{Email: "bob@x.com"},
	})
	req := httptest.NewRequest(http.MethodPost, "/company/end-session", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 despite summarizer failure, got %d. Body: %s", rec.Code, rec.Body.String())
	}
	var result domain.EndSessionResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Score != "NEW" {
		t.Errorf("expected neutral score NEW, got %q", result.Score)
	}
	if result.Summary != `User asked: "Do you have an API?"...` {
		t.Errorf("unexpected fallback summary: %q", result.Summary)
	}
}
