// users.go — сервис экрана User Master: список с поиском и пагинацией,
// CRUD пользователей с локальной валидацией до обращения к ядру.
// Отображаемые имена роли и подразделения подставляются из справочного
// кэша; при холодном кэше — плейсхолдеры по идентификатору.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/propusk/admin-console/internal/domain/model"
	"github.com/propusk/admin-console/internal/normalize"
	"github.com/propusk/admin-console/internal/repository"
	"github.com/propusk/admin-console/internal/viewmodel"
	"github.com/propusk/admin-console/internal/vmsclient"
)

// mobilePattern — мобильный номер: ровно 10 цифр.
var mobilePattern = regexp.MustCompile(`^\d{10}$`)

// UserInput — входные данные создания/обновления пользователя.
type UserInput struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	RoleID    int64  `json:"roleId"`
	DeptID    int64  `json:"deptId"`
	ManagerID int64  `json:"managerId"`
}

// Validate проверяет входные данные пользователя.
// Все найденные проблемы возвращаются одной ошибкой ErrValidation.
func (in *UserInput) Validate() error {
	var problems []string

	if strings.TrimSpace(in.Username) == "" {
		problems = append(problems, "не задан логин")
	}
	if strings.TrimSpace(in.Name) == "" {
		problems = append(problems, "не задано имя")
	}
	if !mobilePattern.MatchString(in.Mobile) {
		problems = append(problems, "мобильный номер должен состоять из 10 цифр")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		problems = append(problems, "некорректный email")
	}
	if in.RoleID <= 0 {
		problems = append(problems, "не выбрана роль")
	}
	if in.DeptID <= 0 {
		problems = append(problems, "не выбрано подразделение")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

// payload возвращает тело запроса к ядру в каноническом именовании.
func (in *UserInput) payload() map[string]any {
	return map[string]any{
		"username":  strings.TrimSpace(in.Username),
		"name":      strings.TrimSpace(in.Name),
		"email":     strings.TrimSpace(in.Email),
		"mobile":    in.Mobile,
		"roleId":    in.RoleID,
		"deptId":    in.DeptID,
		"managerId": in.ManagerID,
	}
}

// referenceProvider — источник отображаемых имён ролей и подразделений.
// Реализуется RefCache; в тестах подменяется стабом.
type referenceProvider interface {
	Roles() []model.Role
	Departments() []model.Department
	RoleName(id int64) string
	DepartmentName(id int64) string
}

// UserService — сервис экрана User Master.
type UserService struct {
	vms    *vmsclient.Client
	refs   referenceProvider
	audit  repository.AuditEventRepository
	logger *slog.Logger
}

// NewUserService создаёт сервис пользователей.
func NewUserService(
	vms *vmsclient.Client,
	refs referenceProvider,
	audit repository.AuditEventRepository,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		vms:    vms,
		refs:   refs,
		audit:  audit,
		logger: logger.With(slog.String("component", "user_service")),
	}
}

// List возвращает страницу пользователей с поиском и подстановкой
// отображаемых имён.
func (s *UserService) List(ctx context.Context, token, query string, page, pageSize int) (viewmodel.Page[model.User], error) {
	users, err := s.fetchUsers(ctx, token)
	if err != nil {
		return viewmodel.Page[model.User]{}, err
	}

	return viewmodel.Build(users, query, page, pageSize, func(u model.User) string {
		return u.SearchText()
	}), nil
}

// All возвращает всех пользователей (для экспорта).
func (s *UserService) All(ctx context.Context, token string) ([]model.User, error) {
	return s.fetchUsers(ctx, token)
}

// fetchUsers загружает, нормализует и обогащает список пользователей.
func (s *UserService) fetchUsers(ctx context.Context, token string) ([]model.User, error) {
	raw, err := s.vms.ListUsers(ctx, token)
	if err != nil {
		return nil, wrapVMSError("загрузка пользователей", err)
	}

	users := normalize.Users(raw)
	for i := range users {
		if users[i].RoleID != 0 {
			users[i].RoleName = s.refs.RoleName(users[i].RoleID)
		}
		if users[i].DeptID != 0 {
			users[i].DeptName = s.refs.DepartmentName(users[i].DeptID)
		}
	}
	return users, nil
}

// Create создаёт пользователя после локальной валидации.
func (s *UserService) Create(ctx context.Context, token string, actor Actor, input UserInput) (*model.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	raw, err := s.vms.CreateUser(ctx, token, input.payload())
	if err != nil {
		return nil, wrapVMSError("создание пользователя", err)
	}

	user := s.normalizeUser(raw)
	s.journal(ctx, actor, model.AuditActionUserCreate, user.ID,
		fmt.Sprintf("создан пользователь %s", input.Username))
	return user, nil
}

// Update обновляет пользователя после локальной валидации.
func (s *UserService) Update(ctx context.Context, token string, actor Actor, id int64, input UserInput) (*model.User, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	payload := input.payload()
	payload["id"] = id

	raw, err := s.vms.UpdateUser(ctx, token, id, payload)
	if err != nil {
		return nil, wrapVMSError("обновление пользователя", err)
	}

	user := s.normalizeUser(raw)
	if user.ID == 0 {
		user.ID = id
	}
	s.journal(ctx, actor, model.AuditActionUserUpdate, id,
		fmt.Sprintf("обновлён пользователь %s", input.Username))
	return user, nil
}

// Delete удаляет пользователя.
func (s *UserService) Delete(ctx context.Context, token string, actor Actor, id int64) error {
	if err := s.vms.DeleteUser(ctx, token, id); err != nil {
		return wrapVMSError("удаление пользователя", err)
	}

	s.journal(ctx, actor, model.AuditActionUserDelete, id,
		fmt.Sprintf("удалён пользователь %d", id))
	return nil
}

// normalizeUser приводит ответ ядра к канонической записи с
// отображаемыми именами. Толерантен к пустому ответу.
func (s *UserService) normalizeUser(raw any) *model.User {
	user := &model.User{}
	if rec, ok := normalize.AsRecord(raw); ok {
		u := normalize.User(rec)
		user = &u
	}
	if user.RoleID != 0 {
		user.RoleName = s.refs.RoleName(user.RoleID)
	}
	if user.DeptID != 0 {
		user.DeptName = s.refs.DepartmentName(user.DeptID)
	}
	return user
}

// journal записывает событие аудита best-effort.
func (s *UserService) journal(ctx context.Context, actor Actor, action string, entityID int64, detail string) {
	if s.audit == nil {
		return
	}
	event := &model.AuditEvent{
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Action:    action,
		Entity:    "user",
		EntityID:  entityID,
		Detail:    detail,
	}
	if err := s.audit.Create(ctx, event); err != nil {
		s.logger.Error("Не удалось записать событие аудита",
			slog.String("action", action),
			slog.Int64("entity_id", entityID),
			slog.String("error", err.Error()),
		)
	}
}
