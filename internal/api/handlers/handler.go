// handler.go — основной обработчик API Admin Console.
// Объединяет доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/propusk/admin-console/internal/api/errors"
	"github.com/propusk/admin-console/internal/api/middleware"
	"github.com/propusk/admin-console/internal/repository"
	"github.com/propusk/admin-console/internal/service"
)

// APIHandler — основной обработчик API Admin Console.
type APIHandler struct {
	health  *HealthHandler
	entries *service.EntryService
	users   *service.UserService
	imports *service.ImportService
	refs    *service.RefCache
	audit   repository.AuditEventRepository
	openapi *OpenAPIHandler
	logger  *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	entries *service.EntryService,
	users *service.UserService,
	imports *service.ImportService,
	refs *service.RefCache,
	audit repository.AuditEventRepository,
	openapi *OpenAPIHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:  health,
		entries: entries,
		users:   users,
		imports: imports,
		refs:    refs,
		audit:   audit,
		openapi: openapi,
		logger:  logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// GetOpenAPI — OpenAPI контракт (делегируется в OpenAPIHandler).
func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.openapi.GetOpenAPI(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeServiceError транслирует ошибки сервисного слоя в HTTP-ответы.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, err.Error())
	case errors.Is(err, service.ErrForbidden):
		apierrors.Forbidden(w, err.Error())
	case errors.Is(err, service.ErrMutationInFlight), errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	case errors.Is(err, service.ErrVMSUnavailable):
		apierrors.VMSUnavailable(w, err.Error())
	default:
		h.logger.Error("Внутренняя ошибка обработки запроса",
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "внутренняя ошибка сервиса")
	}
}

// actorFromRequest извлекает действующего пользователя из контекста запроса.
func actorFromRequest(r *http.Request) service.Actor {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{ID: claims.UserID, Name: claims.Username}
}

// tokenFromRequest извлекает bearer-токен для сквозной передачи в ядро.
func tokenFromRequest(r *http.Request) string {
	return middleware.TokenFromContext(r.Context())
}

// entryIDFromRequest извлекает идентификатор записи из URL.
func entryIDFromRequest(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt возвращает целочисленный query-параметр или значение по умолчанию.
func queryInt(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
