// users.go — обработчики управления пользователями (только администратор).
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/propusk/admin-console/internal/api/errors"
	"github.com/propusk/admin-console/internal/service"
	"github.com/propusk/admin-console/internal/viewmodel"
)

// maxImportSize — предел размера загружаемого XLSX файла (10 МБ).
const maxImportSize = 10 << 20

// ListUsers — GET /api/v1/users.
// Параметры: q — поисковый запрос, page, page_size — пагинация.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.users.List(r.Context(), tokenFromRequest(r),
		r.URL.Query().Get("q"),
		queryInt(r, "page", 1),
		queryInt(r, "page_size", viewmodel.DefaultPageSize),
	)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreateUser — POST /api/v1/users.
func (h *APIHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var input service.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	user, err := h.users.Create(r.Context(), tokenFromRequest(r), actorFromRequest(r), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// UpdateUser — PUT /api/v1/users/{id}.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор пользователя")
		return
	}

	var input service.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		apierrors.ValidationError(w, "некорректное тело запроса: "+err.Error())
		return
	}

	user, err := h.users.Update(r.Context(), tokenFromRequest(r), actorFromRequest(r), id, input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteUser — DELETE /api/v1/users/{id}.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := entryIDFromRequest(r)
	if !ok {
		apierrors.ValidationError(w, "некорректный идентификатор пользователя")
		return
	}

	if err := h.users.Delete(r.Context(), tokenFromRequest(r), actorFromRequest(r), id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ImportUsers — POST /api/v1/users/import.
// Принимает multipart-форму с полем "file" (XLSX). Файл валидируется
// локально и пересылается в ядро только целиком корректным.
func (h *APIHandler) ImportUsers(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		apierrors.ValidationError(w, "некорректная multipart-форма: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.ValidationError(w, "в форме отсутствует поле \"file\"")
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.imports.Import(r.Context(), tokenFromRequest(r), actorFromRequest(r), header.Filename, file)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ExportUsers — GET /api/v1/users/export.
// Возвращает XLSX со всеми пользователями.
func (h *APIHandler) ExportUsers(w http.ResponseWriter, r *http.Request) {
	data, err := h.imports.Export(r.Context(), tokenFromRequest(r))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	filename := fmt.Sprintf("users-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
