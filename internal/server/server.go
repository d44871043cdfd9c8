// Пакет server — HTTP-сервер Admin Console с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/propusk/admin-console/internal/api/handlers"
	"github.com/propusk/admin-console/internal/api/middleware"
	"github.com/propusk/admin-console/internal/config"
	"github.com/propusk/admin-console/internal/domain/rbac"
	"github.com/propusk/admin-console/internal/ui/static"
)

// Server — HTTP-сервер Admin Console.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, api *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints: health и metrics проверяются Kubernetes
	// напрямую, контракт и статика UI доступны до авторизации.
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)
	router.Get("/api/v1/openapi.yaml", api.GetOpenAPI)
	router.Handle("/admin/*", http.StripPrefix("/admin/", http.FileServer(static.FileSystem())))
	router.Get("/admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/", http.StatusMovedPermanently)
	})

	// API под JWT. Валидный токен без роли консоли не даёт доступа:
	// рабочее пространство требует роли security или admin, управление
	// пользователями и журнал — только admin.
	router.Route("/api/v1", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware())
		}

		r.Group(func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(middleware.RequireRole(rbac.RoleSecurity, rbac.RoleAdmin))
			}

			r.Get("/workspace", api.GetWorkspace)
			r.Get("/reference", api.GetReference)

			r.Route("/entries/{id}", func(r chi.Router) {
				r.Get("/", api.GetEntry)
				r.Put("/", api.UpdateEntry)
				r.Post("/approve", api.ApproveEntry)
				r.Post("/reject", api.RejectEntry)
				r.Post("/in-time", api.SetEntryInTime)
				r.Post("/out-time", api.SetEntryOutTime)
			})
		})

		r.Group(func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(middleware.RequireRole(rbac.RoleAdmin))
			}

			r.Get("/users", api.ListUsers)
			r.Post("/users", api.CreateUser)
			r.Put("/users/{id}", api.UpdateUser)
			r.Delete("/users/{id}", api.DeleteUser)
			r.Post("/users/import", api.ImportUsers)
			r.Get("/users/export", api.ExportUsers)
			r.Get("/audit-events", api.ListAuditEvents)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
