// Пакет viewmodel — вычисление видимой страницы таблицы:
// фильтрация по подстроке, подсчёт страниц, ограничение номера страницы.
// Таблицы «текущие» и «история» держат независимые состояния поиска и
// пагинации, поэтому Build вызывается для каждой отдельно.
package viewmodel

import "strings"

// DefaultPageSize — размер страницы таблиц консоли по умолчанию.
const DefaultPageSize = 10

// MaxPageSize — верхний предел размера страницы, запрошенного клиентом.
const MaxPageSize = 100

// Page — видимый срез коллекции с метаданными пагинации.
type Page[T any] struct {
	Items      []T    `json:"items"`
	Query      string `json:"query"`
	Page       int    `json:"page"`
	PageSize   int    `json:"pageSize"`
	TotalPages int    `json:"totalPages"`
	TotalItems int    `json:"totalItems"`
}

// Build фильтрует коллекцию по регистронезависимой подстроке query
// (searchText отдаёт конкатенацию отображаемых полей записи), считает
// количество страниц и возвращает срез запрошенной страницы.
//
// Номер страницы ограничивается после фильтрации: page > totalPages →
// последняя страница; page < 1 → первая. Инвариант результата:
// 1 <= Page <= max(1, TotalPages).
func Build[T any](items []T, query string, page, pageSize int, searchText func(T) string) Page[T] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}

	filtered := Filter(items, query, searchText)

	totalPages := (len(filtered) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	// Ограничение номера страницы: переоценивается при каждом изменении
	// фильтра или размера страницы.
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(filtered) {
		start = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}

	return Page[T]{
		Items:      filtered[start:end],
		Query:      query,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		TotalItems: len(filtered),
	}
}

// Filter возвращает записи, чей поисковый текст содержит query
// (без учёта регистра). Пустой query пропускает всё.
func Filter[T any](items []T, query string, searchText func(T) string) []T {
	if query == "" {
		return items
	}
	query = strings.ToLower(query)

	filtered := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(searchText(item)), query) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
