package service

import (
	"context"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LeadService handles the mid-conversation lead submit from the
// capture flow.
type LeadService struct {
	companies port.CompanyStore
	leads     port.LeadStore
	sheet     port.SheetExporter
	metrics   *observability.Metrics
	logger    *zap.Logger
}

func NewLeadService(
	companies port.CompanyStore,
	leads port.LeadStore,
	sheet port.SheetExporter,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *LeadService {
	return &LeadService{
		companies: companies,
		leads:     leads,
		sheet:     sheet,
		metrics:   metrics,
		logger:    logger,
	}
}

// CaptureLead records the visitor's contact details as soon as the
// capture flow collects them, well before the session ends. The sheet
// export runs detached from the request: the widget's capture flow
// must never block on, or observe, a slow spreadsheet.
func (s *LeadService) CaptureLead(ctx context.Context, companyID string, profile domain.VisitorProfile) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "LeadService.CaptureLead")
	defer span.End()
	span.SetAttributes(attribute.String("company.id", companyID))

	company, err := s.companies.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}

	lead, err := s.leads.FindOrCreateLead(ctx, company.ID, profile)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrLeadCaptured()

	go func() {
		exportCtx, cancel := context.WithTimeout(context.Background(), ExportTimeout)
		defer cancel()
		err := s.sheet.Export(exportCtx, company, domain.LeadNotification{
			Profile: domain.VisitorProfile{Name: lead.Name, Email: lead.Email, Phone: lead.Phone},
			Summary: "Pending",
			Score:   "Pending",
		})
		if err != nil {
			s.metrics.IncrSinkFailure("sheets")
			s.logger.Error("early sheet export failed",
				zap.String("company_id", company.ID), zap.Error(err))
		}
	}()

	return lead, nil
}
