package model

// User — каноническая запись пользователя (экран User Master).
// Полный CRUD выполняется через Admin Console.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Mobile   string `json:"mobile"`
	RoleID   int64  `json:"roleId"`
	DeptID   int64  `json:"deptId"`
	// ManagerID — опциональный руководитель (self-referential, образует дерево).
	// Циклы этим слоем не валидируются.
	ManagerID int64 `json:"managerId"`

	// Отображаемые имена, подставляются из справочников. Не отправляются в ядро.
	RoleName string `json:"roleName,omitempty"`
	DeptName string `json:"deptName,omitempty"`
}

// SearchText возвращает конкатенацию отображаемых полей для поиска по таблице.
func (u *User) SearchText() string {
	return u.Username + " " + u.Name + " " + u.Email + " " + u.Mobile + " " +
		u.RoleName + " " + u.DeptName
}
