// audit.go — обработчик журнала действий (только администратор).
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/propusk/admin-console/internal/api/errors"
	"github.com/propusk/admin-console/internal/domain/model"
	"github.com/propusk/admin-console/internal/viewmodel"
)

// auditEventsResponse — страница журнала действий.
type auditEventsResponse struct {
	Items      []model.AuditEvent `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"pageSize"`
	TotalItems int                `json:"totalItems"`
}

// ListAuditEvents — GET /api/v1/audit-events.
// Параметры: page, page_size. События отсортированы от новых к старым.
func (h *APIHandler) ListAuditEvents(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(r, "page_size", viewmodel.DefaultPageSize)
	if pageSize < 1 || pageSize > viewmodel.MaxPageSize {
		pageSize = viewmodel.DefaultPageSize
	}

	total, err := h.audit.Count(r.Context())
	if err != nil {
		h.logger.Error("Ошибка подсчёта событий журнала", slog.String("error", err.Error()))
		apierrors.InternalError(w, "журнал действий недоступен")
		return
	}

	events, err := h.audit.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		h.logger.Error("Ошибка чтения журнала действий", slog.String("error", err.Error()))
		apierrors.InternalError(w, "журнал действий недоступен")
		return
	}
	if events == nil {
		events = []model.AuditEvent{}
	}

	writeJSON(w, http.StatusOK, auditEventsResponse{
		Items:      events,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	})
}
