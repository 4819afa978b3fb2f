package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/primechat/prime-chatbot-go/internal/infra/observability"
	"github.com/primechat/prime-chatbot-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// Pinger is the readiness dependency, satisfied by the store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the router needs.
type Services struct {
	Chat    *service.ChatService
	Session *service.SessionService
	Lead    *service.LeadService
	Company *service.CompanyService
	Auth    *service.AuthService
	Metrics *observability.Metrics
	DB      Pinger
	Logger  *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
// The public widget endpoints allow any origin; the dashboard surface
// sits behind JWT auth.
func NewRouter(s Services) http.Handler {
	logger := s.Logger

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(s.DB))
	r.Handle("/metrics", promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}))
	r.Get("/metrics/summary", metricsSummaryHandler(s.Metrics))

	// --- Public widget surface ---
	r.Post("/chat/{companyId}", chatTurnHandler(s.Chat, logger))
	r.Post("/company/lead", leadSubmitHandler(s.Lead, logger))
	r.Post("/company/end-session", endSessionHandler(s.Session, logger))

	// --- Auth ---
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authRegisterHandler(s.Auth, logger))
		r.Post("/login", authLoginHandler(s.Auth, logger))

		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(s.Auth, logger))
			r.Put("/telegram", updateTelegramSettingsHandler(s.Auth, logger))
		})
	})

	// --- Authenticated dashboard surface ---
	r.Route("/company", func(r chi.Router) {
		r.Use(JWTAuthMiddleware(s.Auth, logger))

		r.Post("/create", companyCreateHandler(s.Company, logger))
		r.Get("/list", companyListHandler(s.Company, logger))
		r.Get("/stats", statsHandler(s.Company, logger))
		r.Post("/regenerate-key", regenerateKeyHandler(s.Company, logger))
		r.Post("/upload", documentUploadHandler(s.Company, logger))

		r.Patch("/{id}", companyUpdateHandler(s.Company, logger))
		r.Delete("/{id}", companyDeleteHandler(s.Company, logger))

		r.Get("/{companyId}/documents", documentListHandler(s.Company, logger))
		r.Delete("/{companyId}/documents/{docId}", documentDeleteHandler(s.Company, logger))
		r.Patch("/{companyId}/documents/{docId}/status", documentStatusHandler(s.Company, logger))

		r.Get("/{companyId}/leads", leadListHandler(s.Company, logger))
		r.Post("/{companyId}/leads/{leadId}/export", leadExportHandler(s.Company, logger))
	})

	return r
}

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func readyzHandler(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"reason": "database unreachable",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func metricsSummaryHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetSummary())
	}
}
