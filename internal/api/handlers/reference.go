// reference.go — обработчик справочных данных.
package handlers

import (
	"net/http"
	"time"

	"github.com/propusk/admin-console/internal/domain/model"
)

// referenceResponse — снимок справочников для клиента.
type referenceResponse struct {
	Visitors    []model.Visitor    `json:"visitors"`
	Roles       []model.Role       `json:"roles"`
	Departments []model.Department `json:"departments"`
	RefreshedAt string             `json:"refreshedAt,omitempty"`
}

// GetReference — GET /api/v1/reference.
// Отдаёт текущий снимок справочного кэша. Холодный кэш — пустые
// списки, не ошибка.
func (h *APIHandler) GetReference(w http.ResponseWriter, r *http.Request) {
	resp := referenceResponse{
		Visitors:    h.refs.Visitors(),
		Roles:       h.refs.Roles(),
		Departments: h.refs.Departments(),
	}
	if at := h.refs.RefreshedAt(); !at.IsZero() {
		resp.RefreshedAt = at.UTC().Format(time.RFC3339)
	}
	if resp.Visitors == nil {
		resp.Visitors = []model.Visitor{}
	}
	if resp.Roles == nil {
		resp.Roles = []model.Role{}
	}
	if resp.Departments == nil {
		resp.Departments = []model.Department{}
	}

	writeJSON(w, http.StatusOK, resp)
}
