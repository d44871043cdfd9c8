// importer.go — массовый импорт и экспорт пользователей в формате XLSX.
//
// Импорт: файл разбирается и валидируется локально (заголовок, построчные
// проверки логина/имени/мобильного), и только валидный файл пересылается
// в ядро VMS. Экспорт: текущий нормализованный список пользователей
// рендерится в XLSX.
package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/propusk/admin-console/internal/domain/model"
	"github.com/propusk/admin-console/internal/vmsclient"
)

// importHeader — обязательные колонки файла импорта (по порядку).
var importHeader = []string{"username", "name", "email", "mobile", "roleId", "deptId"}

// ImportResult — итог импорта.
type ImportResult struct {
	// Rows — количество строк данных в файле.
	Rows int `json:"rows"`
	// CoreResponse — сырой ответ ядра на пересланный файл.
	CoreResponse any `json:"coreResponse"`
}

// ImportService — сервис массового импорта/экспорта пользователей.
type ImportService struct {
	vms    *vmsclient.Client
	users  *UserService
	logger *slog.Logger
}

// NewImportService создаёт сервис импорта/экспорта.
func NewImportService(vms *vmsclient.Client, users *UserService, logger *slog.Logger) *ImportService {
	return &ImportService{
		vms:    vms,
		users:  users,
		logger: logger.With(slog.String("component", "import_service")),
	}
}

// Import разбирает XLSX, валидирует строки и пересылает файл в ядро.
// Любая ошибка валидации останавливает импорт целиком: ядро получает
// только файлы, прошедшие все проверки.
func (s *ImportService) Import(ctx context.Context, token string, actor Actor, filename string, file io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("чтение файла импорта: %w", err)
	}

	rows, err := parseImportFile(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: файл не содержит строк данных", ErrValidation)
	}

	coreResp, err := s.vms.ImportUsers(ctx, token, filename, bytes.NewReader(data))
	if err != nil {
		return nil, wrapVMSError("импорт пользователей", err)
	}

	s.users.journal(ctx, actor, model.AuditActionUserImport, 0,
		fmt.Sprintf("импортирован файл %s, строк: %d", filename, len(rows)))

	return &ImportResult{Rows: len(rows), CoreResponse: coreResp}, nil
}

// parseImportFile разбирает XLSX и валидирует заголовок и строки.
// Возвращает входные записи пользователей или ErrValidation со списком
// проблем с номерами строк.
func parseImportFile(data []byte) ([]UserInput, error) {
	book, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: файл не является корректным XLSX: %v", ErrValidation, err)
	}
	defer book.Close()

	sheets := book.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: в книге нет листов", ErrValidation)
	}

	rows, err := book.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("чтение листа %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: лист пуст", ErrValidation)
	}

	if err := checkImportHeader(rows[0]); err != nil {
		return nil, err
	}

	var (
		inputs   []UserInput
		problems []string
	)
	for i, row := range rows[1:] {
		rowNum := i + 2 // нумерация строк листа с 1, плюс заголовок

		// Полностью пустые строки пропускаются
		if isBlankRow(row) {
			continue
		}

		input := UserInput{
			Username: cell(row, 0),
			Name:     cell(row, 1),
			Email:    cell(row, 2),
			Mobile:   cell(row, 3),
			RoleID:   cellInt(row, 4),
			DeptID:   cellInt(row, 5),
		}
		if err := input.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("строка %d: %v", rowNum, err))
			continue
		}
		inputs = append(inputs, input)
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return inputs, nil
}

// checkImportHeader проверяет первую строку листа.
func checkImportHeader(header []string) error {
	for i, want := range importHeader {
		got := cell(header, i)
		if !strings.EqualFold(got, want) {
			return fmt.Errorf("%w: колонка %d должна называться %q, найдено %q",
				ErrValidation, i+1, want, got)
		}
	}
	return nil
}

// cell возвращает значение ячейки с защитой от коротких строк.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// cellInt возвращает числовое значение ячейки, 0 при ошибке.
func cellInt(row []string, idx int) int64 {
	n, _ := strconv.ParseInt(cell(row, idx), 10, 64)
	return n
}

// isBlankRow проверяет, что все ячейки строки пустые.
func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Export рендерит текущий список пользователей в XLSX.
// Колонки совпадают с форматом импорта, плюс отображаемые имена.
func (s *ImportService) Export(ctx context.Context, token string) ([]byte, error) {
	users, err := s.users.All(ctx, token)
	if err != nil {
		return nil, err
	}

	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)

	header := []any{"username", "name", "email", "mobile", "roleId", "deptId", "roleName", "deptName"}
	if err := book.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("запись заголовка экспорта: %w", err)
	}

	for i, u := range users {
		row := []any{u.Username, u.Name, u.Email, u.Mobile, u.RoleID, u.DeptID, u.RoleName, u.DeptName}
		axis, err := excelize.JoinCellName("A", i+2)
		if err != nil {
			return nil, fmt.Errorf("вычисление адреса строки: %w", err)
		}
		if err := book.SetSheetRow(sheet, axis, &row); err != nil {
			return nil, fmt.Errorf("запись строки экспорта %d: %w", i+2, err)
		}
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		return nil, fmt.Errorf("сериализация книги экспорта: %w", err)
	}
	return buf.Bytes(), nil
}
