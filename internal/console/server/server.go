package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xela07ax/rp-community-console/internal/console/handler"
	"github.com/xela07ax/rp-community-console/internal/infra"
	"github.com/xela07ax/rp-community-console/internal/infra/auth"
	"go.uber.org/zap"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger
	cfg    *infra.Config

	// Интерфейс для проверки токенов (RS256)
	// Реализуется через embedding BaseValidator в AuthService
	authValidator auth.TokenValidator

	// Обработчики бизнес-доменов
	authHandler     *handler.AuthHandler     // /auth/token
	formHandler     *handler.FormHandler     // /v1/forms
	responseHandler *handler.ResponseHandler // /v1/forms/{id}/responses, /v1/responses

	metricsReg *prometheus.Registry
}

// NewConsoleServer инициализирует сервер админки со всеми зависимостями
func NewConsoleServer(
	cfg *infra.Config,
	logger *zap.Logger,
	validator auth.TokenValidator,
	authH *handler.AuthHandler,
	formH *handler.FormHandler,
	responseH *handler.ResponseHandler,
	metricsReg *prometheus.Registry,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		cfg:             cfg,
		authValidator:   validator,
		authHandler:     authH,
		formHandler:     formH,
		responseHandler: responseH,
		metricsReg:      metricsReg,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	// --- 1. Глобальные инфраструктурные Middleware (для всех) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// --- 2. ПУБЛИЧНЫЕ РОУТЫ (Открыты для всех) ---
	r.Group(func(r chi.Router) {
		// Логин должен быть доступен без токена
		r.Post("/auth/token", s.authHandler.Login)

		// Healthcheck для мониторинга
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		// Метрики Prometheus
		r.Handle("/metrics", promhttp.HandlerFor(s.metricsReg, promhttp.HandlerOpts{}))
	})

	// --- 3. ЗАЩИЩЕННЫЙ ПЕРИМЕТР (Требуют RS256 токен) ---
	r.Group(func(r chi.Router) {
		// Подключаем универсальный Middleware только для этой группы
		r.Use(auth.NewMiddleware(s.authValidator, s.logger))

		// Формы (определения — read-only, удаление мягкое и только админам)
		r.Route("/v1/forms", func(r chi.Router) {
			r.Get("/", s.formHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.formHandler.Get)
				r.Delete("/", s.formHandler.Delete)

				// Подача откликов привязана к форме
				r.Route("/responses", func(r chi.Router) {
					r.Post("/draft", s.responseHandler.SaveDraft) // Сохранить черновик
					r.Post("/", s.responseHandler.Submit)         // Подать на рассмотрение
				})
			})
		})

		// Отклики и согласование (Review Workflow)
		r.Route("/v1/responses", func(r chi.Router) {
			r.Get("/", s.responseHandler.List) // Очередь рецензирования
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.responseHandler.Get)
				r.Post("/review", s.responseHandler.Review)               // Голос рецензента
				r.Post("/final-approval", s.responseHandler.FinalApprove) // Финальный вердикт
			})
		})
	})
}

// ServeHTTP позволяет использовать ConsoleServer как стандартный http.Handler
func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
