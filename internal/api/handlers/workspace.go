// workspace.go — обработчик рабочего пространства пропусков.
package handlers

import (
	"net/http"

	"github.com/propusk/admin-console/internal/service"
	"github.com/propusk/admin-console/internal/viewmodel"
)

// GetWorkspace — GET /api/v1/workspace.
// Параметры: q, hq — поисковые запросы таблиц «текущие» и «история»;
// page, hpage — номера страниц; page_size — размер страницы обеих таблиц.
// Неверные номера страниц не являются ошибкой: сервис ограничивает их
// допустимым диапазоном.
func (h *APIHandler) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := service.WorkspaceQuery{
		Query:        q.Get("q"),
		HistoryQuery: q.Get("hq"),
		Page:         queryInt(r, "page", 1),
		HistoryPage:  queryInt(r, "hpage", 1),
		PageSize:     queryInt(r, "page_size", viewmodel.DefaultPageSize),
	}

	view, err := h.entries.Workspace(r.Context(), tokenFromRequest(r), query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}
