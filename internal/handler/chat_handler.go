package handler

import (
	"encoding/json"
	"net/http"

	"github.com/primechat/prime-chatbot-go/internal/domain"
	"github.com/primechat/prime-chatbot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Public widget endpoints
// ============================================================

func chatTurnHandler(chatSvc *service.ChatService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /chat/{companyId}")
		defer span.End()

		companyID := chi.URLParam(r, "companyId")
		span.SetAttributes(attribute.String("company.id", companyID))

		var req domain.ChatTurnRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Query == "" && req.InputAudio == "" {
			writeError(w, http.StatusBadRequest, "query or inputAudio is required")
			return
		}

		resp, err := chatSvc.HandleTurn(ctx, companyID, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// leadSubmitRequest is the mid-conversation lead capture payload.
type leadSubmitRequest struct {
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func leadSubmitHandler(leadSvc *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /company/lead")
		defer span.End()

		var req leadSubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CompanyID == "" {
			writeError(w, http.StatusBadRequest, "companyId is required")
			return
		}

		lead, err := leadSvc.CaptureLead(ctx, req.CompanyID, domain.VisitorProfile{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, lead)
	}
}

func endSessionHandler(sessionSvc *service.SessionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /company/end-session")
		defer span.End()

		var req domain.EndSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CompanyID == "" {
			writeError(w, http.StatusBadRequest, "companyId is required")
			return
		}

		result, err := sessionSvc.EndSession(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}
