package normalize

import "github.com/propusk/admin-console/internal/domain/model"

// Списки кандидатов ключей для полей пользователя.
var (
	userIDKeys       = []string{"id", "Id", "ID", "userId", "UserId", "u_Id"}
	userUsernameKeys = []string{"username", "Username", "userName", "UserName", "u_Username"}
	userNameKeys     = []string{"name", "Name", "fullName", "FullName", "u_Name"}
	userEmailKeys    = []string{"email", "Email", "emailId", "EmailId", "u_Email"}
	userMobileKeys   = []string{"mobile", "Mobile", "mobileNo", "MobileNo", "u_Mobile"}
	userRoleIDKeys   = []string{"roleId", "RoleId", "roleID", "role_id", "u_RoleId"}
	userDeptIDKeys   = []string{"deptId", "DeptId", "departmentId", "DepartmentId", "u_DeptId"}
	userManagerKeys  = []string{"managerId", "ManagerId", "reportingManagerId", "ReportingManagerId", "u_ManagerId"}

	userListKeys = []string{"users", "Users"}
)

// User нормализует одну сырую запись пользователя.
func User(raw Record) model.User {
	return model.User{
		ID:        raw.ID(userIDKeys...),
		Username:  raw.Str(userUsernameKeys...),
		Name:      raw.Str(userNameKeys...),
		Email:     raw.Str(userEmailKeys...),
		Mobile:    raw.Str(userMobileKeys...),
		RoleID:    raw.Num(userRoleIDKeys...),
		DeptID:    raw.Num(userDeptIDKeys...),
		ManagerID: raw.Num(userManagerKeys...),
	}
}

// Users нормализует сырой список пользователей (массив или конверт).
func Users(raw any) []model.User {
	records := UnwrapList(raw, userListKeys...)
	result := make([]model.User, 0, len(records))
	for _, rec := range records {
		result = append(result, User(rec))
	}
	return result
}
