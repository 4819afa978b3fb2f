// Package service implements the platform use cases on top of the
// store, the AI service client and the notification sinks.
package service

import (
	"context"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/infra/cache"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// ChatService forwards visitor chat turns to the AI service for an
// active tenant.
type ChatService struct {
	companies port.CompanyStore
	ai        port.AIService
	cache     *cache.InMemory[*domain.Company]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewChatService(
	companies port.CompanyStore,
	ai port.AIService,
	companyCache *cache.InMemory[*domain.Company],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		companies: companies,
		ai:        ai,
		cache:     companyCache,
		metrics:   metrics,
		logger:    logger,
	}
}

// HandleTurn processes one visitor message: resolve the tenant, gate on
// its approval status, then forward query + full history to the AI
// service. Exactly one assistant reply comes back per turn.
func (s *ChatService) HandleTurn(ctx context.Context, companyID string, req *domain.ChatTurnRequest) (*domain.ChatTurnResponse, error) {
	ctx, span := tracer.Start(ctx, "ChatService.HandleTurn")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("chat_turn", time.Since(start))
	}()

	company, err := s.getCompany(ctx, companyID)
	if err != nil {
		s.metrics.IncrChatTurn("error")
		return nil, err
	}

	// Tenants awaiting approval or rejected never reach the AI service.
	if !company.IsActive() {
		s.metrics.IncrChatTurn("rejected")
		return nil, &domain.ErrCompanyInactive{CompanyID: companyID, Status: company.Status}
	}

	resp, err := s.ai.Generate(ctx, &domain.GenerateRequest{
		CompanyID:    company.VectorNamespace,
		Query:        req.Query,
		History:      req.History,
		InputType:    req.InputType,
		InputAudio:   req.InputAudio,
		SystemPrompt: company.SystemPrompt,
	})
	if err != nil {
		s.metrics.IncrChatTurn("error")
		s.metrics.IncrExternalError("ai-service")
		s.logger.Error("chat turn failed",
			zap.String("company_id", companyID),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrChatTurn("success")
	return &domain.ChatTurnResponse{Answer: resp.Answer, Audio: resp.Audio}, nil
}

// getCompany reads the tenant from the TTL cache, falling back to the
// store. Writes go through the store only; mutation paths invalidate.
func (s *ChatService) getCompany(ctx context.Context, id string) (*domain.Company, error) {
	key := "company:" + id
	if company, ok := s.cache.Get(key); ok {
		s.metrics.IncrCacheHit("company")
		return company, nil
	}
	s.metrics.IncrCacheMiss("company")

	company, err := s.companies.GetCompany(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, company)
	return company, nil
}
