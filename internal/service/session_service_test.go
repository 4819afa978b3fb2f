package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/service"

	"go.uber.org/zap"
)

func activeCompany() *domain.Company {
	return &domain.Company{
		ID:              "c1",
		Name:            "Acme",
		VectorNamespace: "ns-1",
		Status:          domain.CompanyStatusActive,
	}
}

func sampleHistory() []domain.Message {
	return []domain.Message{
		{Role: domain.RoleAssistant, Content: "Connected to Acme. Ask me anything about your data!"},
		{Role: domain.RoleUser, Content: "What integrations do you support?"},
		{Role: domain.RoleAssistant, Content: "We support Sheets and Telegram."},
	}
}

func newSessionService(companies *mockCompanyStore, leads *mockLeadStore, convs *mockConversationStore, ai *mockAIService, sheet *mockSheetExporter, notifier *mockLeadNotifier) *service.SessionService {
	return service.NewSessionService(
		companies, leads, convs, ai, sheet, notifier,
		observability.NewMetrics(), zap.NewNop(),
	)
}

func TestEndSession_Success(t *testing.T) {
	leads := newMockLeadStore()
	convs := &mockConversationStore{}
	sheet := &mockSheetExporter{}
	notifier := &mockLeadNotifier{}
	ai := &mockAIService{summarizeResp: &domain.SummarizeResponse{
		Summary: "Asked about integrations.",
		Score:   "HOT",
		Topics:  []string{"integrations", "pricing"},
	}}

	svc := newSessionService(&mockCompanyStore{company: activeCompany()}, leads, convs, ai, sheet, notifier)

	result, err := svc.EndSession(context.Background(), &domain.EndSessionRequest{
		CompanyID: "c1",
		History:   sampleHistory(),
		LeadData:  domain.VisitorProfile{Name: "Alice", Email: "alice@x.com", Phone: "555-1234"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Message != "Session ended successfully" {
		t.Errorf("unexpected message: %s", result.Message)
	}
	if result.Score != "HOT" {
		t.Errorf("expected score HOT, got %s", result.Score)
	}
	if result.Summary != "Asked about integrations.\n\nTopics: integrations, pricing" {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
	if len(convs.convs) != 1 {
		t.Fatalf("expected 1 conversation persisted, got %d", len(convs.convs))
	}
	if leads.statuses["lead-alice@x.com"] != "HOT" {
		t.Errorf("expected lead status HOT, got %s", leads.statuses["lead-alice@x.com"])
	}
	if sheet.count() != 1 || notifier.count() != 1 {
		t.Errorf("expected both sinks notified, got sheet=%d telegram=%d", sheet.count(), notifier.count())
	}
}

func TestEndSession_FallbackSummaryWhenSummarizerDown(t *testing.T) {
	leads := newMockLeadStore()
	ai := &mockAIService{summarizeErr: errors.New("timeout")}

	svc := newSessionService(&mockCompanyStore{company: activeCompany()}, leads, &mockConversationStore{}, ai, &mockSheetExporter{}, &mockLeadNotifier{})

	result, err := svc.EndSession(context.Background(), &domain.EndSessionRequest{
		CompanyID: "c1",
		History:   sampleHistory(),
		LeadData:  domain.VisitorProfile{Email: "alice@x.com"},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if result.Score != "NEW" {
		t.Errorf("expected neutral score NEW, got %s", result.Score)
	}
	// The neutral default is replaced by the last visitor message.
	want := `User asked: "What integrations do you support?"...`
	if result.Summary != want {
		t.Errorf("expected %q, got %q", want, result.Summary)
	}
}

func TestEndSession_FallbackSummaryWithEmptyHistory(t *testing.T) {
	svc := newSessionService(
		&mockCompanyStore{company: activeCompany()},
		newMockLeadStore(), &mockConversationStore{},
		&mockAIService{summarizeErr: errors.New("down")},
		&mockSheetExporter{}, &mockLeadNotifier{},
	)

	result, err := svc.EndSession(context.Background(), &domain.EndSessionRequest{CompanyID: "c1"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Summary != "Summarization service unavailable." {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
}

func TestEndSession_RepeatedTerminationNeverDuplicatesLead(t *testing.T) {
	leads := newMockLeadStore()
	ai := &mockAIService{summarizeResp: &domain.SummarizeResponse{Summary: "s", Score: "WARM"}}
	svc := newSessionService(&mockCompanyStore{company: activeCompany()}, leads, &mockConversationStore{}, ai, &mockSheetExporter{}, &mockLeadNotifier{})

	req := &domain.EndSessionRequest{
		CompanyID: "c1",
		History:   sampleHistory(),
		LeadData:  domain.VisitorProfile{Name: "Alice", Email: "alice@x.com"},
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.EndSession(context.Background(), req); err != nil {
			t.Fatalf("termination %d failed: %v", i, err)
		}
	}

	if leads.count() != 1 {
		t.Errorf("expected a single lead for repeated terminations, got %d", leads.count())
	}
}

func TestEndSession_SinkFailuresAreIsolated(t *testing.T) {
	sheet := &mockSheetExporter{err: errors.New("sheet api down")}
	notifier := &mockLeadNotifier{}
	ai := &mockAIService{summarizeResp: &domain.SummarizeResponse{Summary: "s", Score: "HOT"}}

	svc := newSessionService(&mockCompanyStore{company: activeCompany()}, newMockLeadStore(), &mockConversationStore{}, ai, sheet, notifier)

	result, err := svc.EndSession(context.Background(), &domain.EndSessionRequest{
		CompanyID: "c1",
		History:   sampleHistory(),
		LeadData:  domain.VisitorProfile{Email: "alice@x.com"},
	})
	if err != nil {
		t.Fatalf("sink failure must not fail termination: %v", err)
	}
	if notifier.count() != 1 {
		t.Error("telegram sink must still run when the sheet sink fails")
	}
	if result.Summary == "" || result.Score == "" {
		t.Error("response must still carry summary and score")
	}
}

func TestEndSession_UnknownCompany(t *testing.T) {
	svc := newSessionService(&mockCompanyStore{}, newMockLeadStore(), &mockConversationStore{}, &mockAIService{}, &mockSheetExporter{}, &mockLeadNotifier{})

	_, err := svc.EndSession(context.Background(), &domain.EndSessionRequest{CompanyID: "ghost"})
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestEndSession_AnonymousDefaults(t *testing.T) {
	leads := newMockLeadStore()
	ai := &mockAIService{summarizeResp: &domain.SummarizeResponse{Summary: "s", Score: "NEW"}}
	svc := newSessionService(&mockCompanyStore{company: activeCompany()}, leads, &mockConversationStore{}, ai, &mockSheetExporter{}, &mockLeadNotifier{})

	_, err := svc.EndSession(context.Background(), &domain.EndSessionRequest{
		CompanyID: "c1",
		History:   sampleHistory(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lead, err := leads.GetLead(context.Background(), "lead-N/A")
	if err != nil {
		t.Fatalf("expected lead to exist: %v", err)
	}
	if lead.Name != "Anonymous" || lead.Email != "N/A" {
		t.Errorf("expected Anonymous/N-A defaults, got %s/%s", lead.Name, lead.Email)
	}
}
