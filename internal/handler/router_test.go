package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/handler"
	"github.com/primechat/prime-chatbot-go/internal/infra/cache"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/service"

	"go.uber.org/zap"
)

// --- Mocks ---

type stubCompanyStore struct {
	company *domain.Company
}

func (s *stubCompanyStore) CreateCompany(_ context.Context, _ *domain.Company) error { return nil }
func (s *stubCompanyStore) GetCompany(_ context.Context, id string) (*domain.Company, error) {
	if s.company == nil {
		return nil, &domain.ErrNotFound{Resource: "company", ID: id}
	}
	return s.company, nil
}
func (s *stubCompanyStore) ListCompanies(_ context.Context, _ string) ([]domain.Company, error) {
	return nil, nil
}
func (s *stubCompanyStore) UpdateCompany(_ context.Context, _ string, _ map[string]any) (*domain.Company, error) {
	return s.company, nil
}
func (s *stubCompanyStore) DeleteCompany(_ context.Context, _ string) error       { return nil }
func (s *stubCompanyStore) SetCompanyStatus(_ context.Context, _, _ string) error { return nil }
func (s *stubCompanyStore) RegenerateAPIKey(_ context.Context, _ string) (string, error) {
	return "", nil
}
func (s *stubCompanyStore) CountCompanies(_ context.Context, _ string) (int64, error) {
	return 0, nil
}

type stubAI struct {
	answer string
}

func (s *stubAI) Generate(_ context.Context, _ *domain.GenerateRequest) (*domain.GenerateResponse, error) {
	return &domain.GenerateResponse{Answer: s.answer}, nil
}
func (s *stubAI) Summarize(_ context.Context, _ []domain.Message) (*domain.SummarizeResponse, error) {
	return &domain.SummarizeResponse{}, nil
}
func (s *stubAI) Ingest(_ context.Context, _ *domain.IngestRequest) error          { return nil }
func (s *stubAI) DeleteCollection(_ context.Context, _ string) error               { return nil }
func (s *stubAI) DeleteDocumentVectors(_ context.Context, _, _ string) error       { return nil }
func (s *stubAI) UpdateDocumentStatus(_ context.Context, _, _ string, _ bool) error { return nil }

func newTestRouter(company *domain.Company) http.Handler {
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	chatSvc := service.NewChatService(
		&stubCompanyStore{company: company},
		&stubAI{answer: "hello"},
		cache.New[*domain.Company](time.Minute),
		metrics,
		logger,
	)
	return handler.NewRouter(handler.Services{
		Chat:    chatSvc,
		Auth:    service.NewAuthService(nil, "test-secret", time.Hour, logger),
		Metrics: metrics,
		Logger:  logger,
	})
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestChatTurn_Success(t *testing.T) {
	router := newTestRouter(&domain.Company{
		ID:     "c1",
		Status: domain.CompanyStatusActive,
	})

	body, _ := json.Marshal(domain.ChatTurnRequest{Query: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/chat/c1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d. Body: %s", rec.Code, rec.Body.String())
	}

	var resp domain.ChatTurnResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Answer != "hello" {
		t.Errorf("expected answer 'hello', got '%s'", resp.Answer)
	}
}

func TestChatTurn_InactiveCompanyGetsMachineReadableCode(t *testing.T) {
	router := newTestRouter(&domain.Company{
		ID:     "c1",
		Status: domain.CompanyStatusPending,
	})

	body, _ := json.Marshal(domain.ChatTurnRequest{Query: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/chat/c1", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if resp.Code != "company_inactive" {
		t.Errorf("expected code 'company_inactive', got '%s'", resp.Code)
	}
}

func TestChatTurn_UnknownCompany(t *testing.T) {
	router := newTestRouter(nil)

	body, _ := json.Marshal(domain.ChatTurnRequest{Query: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/chat/ghost", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestChatTurn_EmptyBodyRejected(t *testing.T) {
	router := newTestRouter(&domain.Company{ID: "c1", Status: domain.CompanyStatusActive})

	req := httptest.NewRequest(http.MethodPost, "/chat/c1", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestCompanyRoutesRequireAuth(t *testing.T) {
	router := newTestRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/company/list", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}
