// Пакет rbac — определение роли пользователя консоли.
// Роль приходит из групп IdP в JWT; правила: итоговая роль —
// максимальная из всех совпавших групп.
//
// Ограничение «согласовать/отклонить может только принимающий пользователь»
// ролью не является: оно проверяется сравнением идентификаторов
// в сервисном слое.
package rbac

// Роли консоли в порядке возрастания привилегий.
const (
	// RoleSecurity — сотрудник охраны: рабочее пространство пропусков,
	// отметки времени, редактирование транспортных полей.
	RoleSecurity = "security"
	// RoleAdmin — администратор: плюс User Master, импорт/экспорт, аудит.
	RoleAdmin = "admin"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleSecurity: 1,
	RoleAdmin:    2,
}

// HighestRole возвращает максимальную роль из набора.
// Пустой набор — пустая строка.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// MapGroupsToRole определяет роль пользователя по его группам IdP.
// Возвращает максимальную роль из всех совпадений; без совпадений — "".
func MapGroupsToRole(groups []string, adminGroups, securityGroups []string) string {
	adminSet := toSet(adminGroups)
	securitySet := toSet(securityGroups)

	var roles []string
	for _, g := range groups {
		if adminSet[g] {
			roles = append(roles, RoleAdmin)
		}
		if securitySet[g] {
			roles = append(roles, RoleSecurity)
		}
	}
	return HighestRole(roles)
}

// IsValidRole проверяет, является ли строка допустимой ролью консоли.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
