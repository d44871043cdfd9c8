// reference.go — нормализация справочных коллекций: посетители, роли, подразделения.
package normalize

import "github.com/propusk/admin-console/internal/domain/model"

var (
	visitorIDKeys     = []string{"id", "Id", "ID", "visitorId", "VisitorId"}
	visitorNameKeys   = []string{"name", "Name", "visitorName", "VisitorName"}
	visitorEmailKeys  = []string{"email", "Email", "emailId", "EmailId"}
	visitorMobileKeys = []string{"mobile", "Mobile", "mobileNo", "MobileNo"}
	visitorPhotoKeys  = []string{"photoPath", "PhotoPath", "photo", "Photo", "imagePath", "ImagePath"}

	visitorListKeys = []string{"visitors", "Visitors"}

	roleIDKeys   = []string{"id", "Id", "ID", "roleId", "RoleId"}
	roleNameKeys = []string{"name", "Name", "roleName", "RoleName"}

	roleListKeys = []string{"roles", "Roles"}

	deptIDKeys   = []string{"id", "Id", "ID", "deptId", "DeptId", "departmentId", "DepartmentId"}
	deptNameKeys = []string{"name", "Name", "deptName", "DeptName", "departmentName", "DepartmentName"}

	deptListKeys = []string{"departments", "Departments"}
)

// Visitor нормализует одну сырую запись посетителя.
func Visitor(raw Record) model.Visitor {
	return model.Visitor{
		ID:        raw.ID(visitorIDKeys...),
		Name:      raw.Str(visitorNameKeys...),
		Email:     raw.Str(visitorEmailKeys...),
		Mobile:    raw.Str(visitorMobileKeys...),
		PhotoPath: raw.Str(visitorPhotoKeys...),
	}
}

// Visitors нормализует сырой список посетителей.
func Visitors(raw any) []model.Visitor {
	records := UnwrapList(raw, visitorListKeys...)
	result := make([]model.Visitor, 0, len(records))
	for _, rec := range records {
		result = append(result, Visitor(rec))
	}
	return result
}

// Roles нормализует сырой список ролей.
func Roles(raw any) []model.Role {
	records := UnwrapList(raw, roleListKeys...)
	result := make([]model.Role, 0, len(records))
	for _, rec := range records {
		result = append(result, model.Role{
			ID:   rec.ID(roleIDKeys...),
			Name: rec.Str(roleNameKeys...),
		})
	}
	return result
}

// Departments нормализует сырой список подразделений.
func Departments(raw any) []model.Department {
	records := UnwrapList(raw, deptListKeys...)
	result := make([]model.Department, 0, len(records))
	for _, rec := range records {
		result = append(result, model.Department{
			ID:   rec.ID(deptIDKeys...),
			Name: rec.Str(deptNameKeys...),
		})
	}
	return result
}
