package handler

import (
	"encoding/json"
	"net/http"

	"github.com/primechat/prime-chatbot-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Authentication
// ============================================================

func authRegisterHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /auth/register")
		defer span.End()

		var req service.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := authSvc.Register(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, user)
	}
}

func authLoginHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /auth/login")
		defer span.End()

		var req service.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		resp, err := authSvc.Login(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

type telegramSettingsRequest struct {
	BotToken string `json:"telegramBotToken"`
	ChatID   string `json:"telegramChatId"`
}

func updateTelegramSettingsHandler(authSvc *service.AuthService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /auth/telegram")
		defer span.End()

		userID := UserIDFromContext(ctx)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req telegramSettingsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if err := authSvc.UpdateTelegramSettings(ctx, userID, req.BotToken, req.ChatID); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "Telegram settings updated"})
	}
}
