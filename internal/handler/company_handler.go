package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard: companies, documents, leads, stats
// ============================================================

// authorizeCompany loads the company and verifies the caller owns it.
// Super admins can act on any tenant.
func authorizeCompany(ctx context.Context, svc *service.CompanyService, companyID string) (*domain.Company, error) {
	company, err := svc.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if RoleFromContext(ctx) != domain.RoleSuperAdmin && company.UserID != UserIDFromContext(ctx) {
		return nil, &domain.ErrForbidden{Action: "access company " + companyID}
	}
	return company, nil
}

func companyCreateHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /company/create")
		defer span.End()

		var req service.CreateCompanyInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		company, err := svc.CreateCompany(ctx, UserIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, company)
	}
}

func companyListHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /company/list")
		defer span.End()

		companies, err := svc.ListCompanies(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, companies)
	}
}

// updatableCompanyFields maps accepted JSON fields to their columns.
// Everything else in the payload is ignored, not an error.
var updatableCompanyFields = map[string]string{
	"name":             "name",
	"systemPrompt":     "system_prompt",
	"greetingMessage":  "greeting_message",
	"googleSheetId":    "google_sheet_id",
	"telegramBotToken": "telegram_bot_token",
	"telegramChatId":   "telegram_chat_id",
}

func companyUpdateHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /company/{id}")
		defer span.End()

		companyID := chi.URLParam(r, "id")
		span.SetAttributes(attribute.String("company.id", companyID))

		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		fields := make(map[string]any)
		for jsonName, column := range updatableCompanyFields {
			if v, ok := body[jsonName]; ok {
				fields[column] = v
			}
		}

		company, err := svc.UpdateCompany(ctx, companyID, fields)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, company)
	}
}

func companyDeleteHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /company/{id}")
		defer span.End()

		companyID := chi.URLParam(r, "id")
		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.DeleteCompany(ctx, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type regenerateKeyRequest struct {
	CompanyID string `json:"companyId"`
}

func regenerateKeyHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /company/regenerate-key")
		defer span.End()

		var req regenerateKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, err := authorizeCompany(ctx, svc, req.CompanyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		key, err := svc.RegenerateAPIKey(ctx, req.CompanyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"apiKey": key})
	}
}

func documentUploadHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /company/upload")
		defer span.End()

		var req service.UploadDocumentInput
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if _, err := authorizeCompany(ctx, svc, req.CompanyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		doc, err := svc.UploadDocument(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, doc)
	}
}

func documentListHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /company/{companyId}/documents")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		docs, err := svc.ListDocuments(ctx, companyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, docs)
	}
}

func documentDeleteHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /company/{companyId}/documents/{docId}")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		docID := chi.URLParam(r, "docId")
		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.DeleteDocument(ctx, companyID, docID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type documentStatusRequest struct {
	IsActive bool `json:"isActive"`
}

func documentStatusHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /company/{companyId}/documents/{docId}/status")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		docID := chi.URLParam(r, "docId")
		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var req documentStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		doc, err := svc.SetDocumentStatus(ctx, companyID, docID, req.IsActive)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, doc)
	}
}

func leadListHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /company/{companyId}/leads")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		leads, err := svc.ListLeads(ctx, companyID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, leads)
	}
}

func statsHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /company/stats")
		defer span.End()

		stats, err := svc.Stats(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func leadExportHandler(svc *service.CompanyService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /company/{companyId}/leads/{leadId}/export")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		leadID := chi.URLParam(r, "leadId")
		if _, err := authorizeCompany(ctx, svc, companyID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		if err := svc.ExportLead(ctx, companyID, leadID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "Lead exported"})
	}
}
