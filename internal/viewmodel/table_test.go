package viewmodel

import (
	"fmt"
	"testing"
)

type row struct {
	ID   int
	Name string
}

func rowText(r row) string { return r.Name }

func makeRows(n int) []row {
	rows := make([]row, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, row{ID: i, Name: fmt.Sprintf("visitor-%03d", i)})
	}
	return rows
}

// TestBuild_Pagination проверяет подсчёт страниц и срез страницы.
func TestBuild_Pagination(t *testing.T) {
	rows := makeRows(25)

	page := Build(rows, "", 2, 10, rowText)

	if page.TotalPages != 3 {
		t.Errorf("ожидалось 3 страницы, получено %d", page.TotalPages)
	}
	if page.TotalItems != 25 {
		t.Errorf("ожидалось 25 записей, получено %d", page.TotalItems)
	}
	if len(page.Items) != 10 || page.Items[0].ID != 11 || page.Items[9].ID != 20 {
		t.Errorf("срез страницы неверен: %+v", page.Items)
	}
}

// TestBuild_Filter проверяет регистронезависимый поиск по подстроке.
func TestBuild_Filter(t *testing.T) {
	rows := []row{
		{1, "Иванов Иван"},
		{2, "Petrov"},
		{3, "Иванова Мария"},
	}

	page := Build(rows, "ИВАНОВ", 1, 10, rowText)
	if page.TotalItems != 2 {
		t.Errorf("ожидалось 2 совпадения, получено %d", page.TotalItems)
	}
}

// TestBuild_Clamp: после сжатия отфильтрованного набора текущая страница
// ограничивается. Инвариант: 1 <= page <= max(1, totalPages).
func TestBuild_Clamp(t *testing.T) {
	rows := makeRows(25)

	tests := []struct {
		name     string
		query    string
		page     int
		wantPage int
	}{
		{"страница за пределами", "", 99, 3},
		{"нулевая страница", "", 0, 1},
		{"отрицательная страница", "", -5, 1},
		{"фильтр сжал набор", "visitor-001", 3, 1},
		{"пустой результат фильтра", "нет такого", 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := Build(rows, tt.query, tt.page, 10, rowText)
			if page.Page != tt.wantPage {
				t.Errorf("ожидалась страница %d, получена %d", tt.wantPage, page.Page)
			}
			if page.Page < 1 || page.Page > page.TotalPages {
				t.Errorf("нарушен инвариант: page=%d, totalPages=%d", page.Page, page.TotalPages)
			}
		})
	}
}

// TestBuild_EmptyCollection: пустая коллекция — одна пустая страница.
func TestBuild_EmptyCollection(t *testing.T) {
	page := Build(nil, "", 1, 10, rowText)
	if page.TotalPages != 1 || page.Page != 1 || len(page.Items) != 0 {
		t.Errorf("ожидалась одна пустая страница, получено %+v", page)
	}
}

// TestBuild_PageSizeGuard: некорректный размер страницы заменяется дефолтным.
func TestBuild_PageSizeGuard(t *testing.T) {
	page := Build(makeRows(15), "", 1, 0, rowText)
	if page.PageSize != DefaultPageSize {
		t.Errorf("ожидался размер %d, получен %d", DefaultPageSize, page.PageSize)
	}
	if len(page.Items) != DefaultPageSize {
		t.Errorf("ожидалось %d записей на странице, получено %d", DefaultPageSize, len(page.Items))
	}
}
