package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const fallbackSummary = "Summarization service unavailable."

// SessionService runs the session termination protocol: resolve the
// lead, summarize the transcript, persist the conversation and fan out
// to the notification sinks. Every step is best effort; the caller
// always gets a result back.
type SessionService struct {
	companies     port.CompanyStore
	leads         port.LeadStore
	conversations port.ConversationStore
	ai            port.AIService
	sheet         port.SheetExporter
	notifier      port.LeadNotifier
	metrics       *observability.Metrics
	logger        *zap.Logger
}

func NewSessionService(
	companies port.CompanyStore,
	leads port.LeadStore,
	conversations port.ConversationStore,
	ai port.AIService,
	sheet port.SheetExporter,
	notifier port.LeadNotifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		companies:     companies,
		leads:         leads,
		conversations: conversations,
		ai:            ai,
		sheet:         sheet,
		notifier:      notifier,
		metrics:       metrics,
		logger:        logger,
	}
}

// EndSession closes out one chat session. The steps run sequentially
// and degrade independently: a dead summarizer yields the fallback
// summary, a failing sink is logged and skipped. Only an unknown
// tenant or a lead write failure aborts the protocol.
func (s *SessionService) EndSession(ctx context.Context, req *domain.EndSessionRequest) (*domain.EndSessionResult, error) {
	ctx, span := tracer.Start(ctx, "SessionService.EndSession")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", req.CompanyID))

	company, err := s.companies.GetCompany(ctx, req.CompanyID)
	if err != nil {
		return nil, err
	}

	lead, err := s.leads.FindOrCreateLead(ctx, company.ID, req.LeadData)
	if err != nil {
		return nil, fmt.Errorf("resolve lead: %w", err)
	}
	s.metrics.IncrLeadCaptured()

	summary, score := s.summarize(ctx, req.History)

	conv := &domain.Conversation{
		LeadID:  lead.ID,
		History: req.History,
		Summary: summary,
		Score:   score,
	}
	if err := s.conversations.CreateConversation(ctx, conv); err != nil {
		s.logger.Error("failed to persist conversation",
			zap.String("lead_id", lead.ID), zap.Error(err))
	}
	if err := s.leads.UpdateLeadStatus(ctx, lead.ID, score); err != nil {
		s.logger.Error("failed to update lead status",
			zap.String("lead_id", lead.ID), zap.Error(err))
	}

	s.notifySinks(ctx, company, domain.LeadNotification{
		Profile: domain.VisitorProfile{Name: lead.Name, Email: lead.Email, Phone: lead.Phone},
		Summary: summary,
		Score:   score,
	})

	return &domain.EndSessionResult{
		Message: "Session ended successfully",
		Summary: summary,
		Score:   score,
	}, nil
}

// summarize calls the AI summarizer and degrades to the neutral
// fallback when it fails. When even the fallback would be empty of
// signal, the last visitor message stands in for a summary.
func (s *SessionService) summarize(ctx context.Context, history []domain.Message) (summary, score string) {
	summary = fallbackSummary
	score = domain.ScoreNew

	resp, err := s.ai.Summarize(ctx, history)
	if err != nil {
		s.logger.Warn("summarization unavailable, using fallback", zap.Error(err))
		s.metrics.IncrExternalError("ai-service")
		s.metrics.IncrSessionTerminated("fallback")
	} else {
		if resp.Summary != "" {
			summary = resp.Summary
		}
		if resp.Score != "" {
			score = resp.Score
		}
		if len(resp.Topics) > 0 {
			summary += "\n\nTopics: " + strings.Join(resp.Topics, ", ")
		}
		s.metrics.IncrSessionTerminated("summarized")
	}

	if summary == fallbackSummary {
		if last := lastUserMessage(history); last != "" {
			summary = fmt.Sprintf(`User asked: "%s"...`, truncate(last, 100))
		}
	}
	return summary, score
}

// notifySinks pushes the lead to the sheet and telegram sinks in
// parallel. Failures are isolated: each is counted and logged, and
// neither can suppress the other.
func (s *SessionService) notifySinks(ctx context.Context, company *domain.Company, n domain.LeadNotification) {
	var g errgroup.Group
	g.Go(func() error {
		if err := s.sheet.Export(ctx, company, n); err != nil {
			s.metrics.IncrSinkFailure("sheets")
			s.logger.Error("sheet export failed",
				zap.String("company_id", company.ID), zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		if err := s.notifier.Notify(ctx, company, n); err != nil {
			s.metrics.IncrSinkFailure("telegram")
			s.logger.Error("telegram notification failed",
				zap.String("company_id", company.ID), zap.Error(err))
		}
		return nil
	})
	_ = g.Wait()
}

func lastUserMessage(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ExportTimeout bounds the fire-and-forget sheet export on the lead
// capture path, which runs detached from the request context.
const ExportTimeout = 15 * time.Second
