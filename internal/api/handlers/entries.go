// entries.go — обработчики мутаций записей пропусков.
// Все мутации работают по схеме confirm-then-refetch: обработчик
// возвращает подтверждённое ядром состояние записи.
package handlers

import (
	"encoding/json"
	"net/http"

	apierrors "github.com/propusk/admin-console/internal/api/errors"
	"github.com/propusk/admin-console/internal/service"
)

// GetEntry — GET /api/v1/entries/{id}.
func (h *APIHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор записи")
		return
	}

	entry, err := h.entries.Get(r.Context(), tokenFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// ApproveEntry — POST /api/v1/entries/{id}/approve.
// Доступно только принимающему пользователю записи.
func (h *APIHandler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор записи")
		return
	}

	entry, err := h.entries.Approve(r.Context(), tokenFromRequest(r), actorFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// RejectEntry — POST /api/v1/entries/{id}/reject.
// Доступно только принимающему пользователю записи.
func (h *APIHandler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор записи")
		return
	}

	entry, err := h.entries.Reject(r.Context(), tokenFromRequest(r), actorFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// SetEntryInTime — POST /api/v1/entries/{id}/in-time.
// Отметка времени входа: только если время ещё не задано.
func (h *APIHandler) SetEntryInTime(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор записи")
		return
	}

	entry, err := h.entries.SetInTime(r.Context(), tokenFromRequest(r), actorFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// SetEntryOutTime — POST /api/v1/entries/{id}/out-time.
// Отметка времени выхода: только если время ещё не задано.
func (h *APIHandler) SetEntryOutTime(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор записи")
		return
	}

	entry, err := h.entries.SetOutTime(r.Context(), tokenFromRequest(r), actorFromRequest(r), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// UpdateEntry — PUT /api/v1/entries/{id}.
// Правка охраны: транспортные поля и отметки времени. Флаги
// согласования в теле запроса игнорируются — они переносятся
// из исходной записи.
func (h *APIHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор записи")
		return
	}

	var input service.SecurityEditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	entry, err := h.entries.SecurityEdit(r.Context(), tokenFromRequest(r), actorFromRequest(r), id, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
