package normalize

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/propusk/admin-console/internal/domain/model"
)

// decode разбирает JSON в произвольную форму, как это делает vmsclient.
func decode(t *testing.T, data string) any {
	t.Helper()
	var raw any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		t.Fatalf("некорректный тестовый JSON: %v", err)
	}
	return raw
}

// TestUnwrapList проверяет извлечение списка из разных конвертов.
func TestUnwrapList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"голый массив", `[{"id":1},{"id":2}]`, 2},
		{"конверт $values", `{"$values":[{"id":1}]}`, 1},
		{"конверт data", `{"data":[{"id":1},{"id":2},{"id":3}]}`, 3},
		{"доменный ключ", `{"visitorEntries":[{"id":7}]}`, 1},
		{"объект без массива", `{"id":1,"name":"x"}`, 0},
		{"скаляр", `42`, 0},
		{"null", `null`, 0},
		{"массив со скалярами", `[1,"two",{"id":3}]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnwrapList(decode(t, tt.raw), "visitorEntries")
			if len(got) != tt.want {
				t.Errorf("ожидалось %d записей, получено %d", tt.want, len(got))
			}
		})
	}
}

// TestUnwrapList_Priority проверяет порядок приоритета ключей конвертов:
// $values выигрывает у data и у доменного ключа.
func TestUnwrapList_Priority(t *testing.T) {
	raw := decode(t, `{"data":[{"id":1}],"$values":[{"id":2},{"id":3}]}`)
	got := UnwrapList(raw, "entries")
	if len(got) != 2 {
		t.Fatalf("ожидался массив из $values (2 записи), получено %d", len(got))
	}
}

// TestRecord_ID проверяет специальное правило идентификаторов:
// первый ненулевой числовой кандидат, иначе первый числовой, иначе 0.
func TestRecord_ID(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want int64
	}{
		{"ненулевой после нулевого", Record{"id": float64(0), "Id": float64(5)}, 5},
		{"только нулевой", Record{"id": float64(0)}, 0},
		{"нет кандидатов", Record{}, 0},
		{"строковый идентификатор", Record{"id": "12"}, 12},
		{"непарсящаяся строка пропускается", Record{"id": "abc", "Id": float64(4)}, 4},
		{"нулевой принят при отсутствии ненулевых", Record{"id": float64(0), "Id": "xyz"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.ID("id", "Id"); got != tt.want {
				t.Errorf("ожидалось %d, получено %d", tt.want, got)
			}
		})
	}
}

// TestRecord_Flag проверяет приведение флагов из bool, чисел и строк.
func TestRecord_Flag(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want bool
	}{
		{"bool true", Record{"isCanteen": true}, true},
		{"число 1", Record{"isCanteen": float64(1)}, true},
		{"число 0", Record{"isCanteen": float64(0)}, false},
		{"строка true", Record{"isCanteen": "true"}, true},
		{"строка 0", Record{"isCanteen": "0"}, false},
		{"отсутствует", Record{}, false},
		{"null", Record{"isCanteen": nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Flag("isCanteen"); got != tt.want {
				t.Errorf("ожидалось %v, получено %v", tt.want, got)
			}
		})
	}
}

// TestUser_ScenarioE: сырая запись {Name: "Alice", RoleId: "7"} нормализуется
// в каноническую запись с Name="Alice", RoleID=7 и дефолтами в остальных полях.
func TestUser_ScenarioE(t *testing.T) {
	raw, _ := AsRecord(decode(t, `{"Name":"Alice","RoleId":"7"}`))
	got := User(raw)

	want := model.User{Name: "Alice", RoleID: 7}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ожидалось %+v, получено %+v", want, got)
	}
}

// TestUser_Defaults: отсутствующие поля дают документированные дефолты, без паники.
func TestUser_Defaults(t *testing.T) {
	got := User(Record{})
	want := model.User{}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ожидались нулевые значения, получено %+v", got)
	}
}

// TestEntry_PascalCase проверяет нормализацию записи в PascalCase-форме ядра.
func TestEntry_PascalCase(t *testing.T) {
	raw, _ := AsRecord(decode(t, `{
		"Id": 10,
		"VisitorId": 3,
		"GatePassNo": "GP-0042",
		"VehicleNo": "KA01AB1234",
		"InTime": "2024-05-01T09:30",
		"ToMeetUserId": "15",
		"IsCanteen": 1,
		"IsApproved": "true"
	}`))

	got := Entry(raw, nil)

	if got.ID != 10 || got.VisitorID != 3 || got.HostUserID != 15 {
		t.Errorf("идентификаторы разрешены неверно: %+v", got)
	}
	if got.GatepassNo != "GP-0042" || got.VehicleNo != "KA01AB1234" {
		t.Errorf("строковые поля разрешены неверно: %+v", got)
	}
	if !got.IsCanteen || !got.IsApproved || got.IsRejected {
		t.Errorf("флаги разрешены неверно: %+v", got)
	}
	if got.OutTime != "" {
		t.Errorf("ожидался пустой OutTime, получено %q", got.OutTime)
	}
}

// TestEntry_VisitorNameEnrichment проверяет подстановку имени посетителя:
// справочник → name-подобное поле сырой записи → заглушка.
func TestEntry_VisitorNameEnrichment(t *testing.T) {
	visitors := []model.Visitor{{ID: 3, Name: "Иванов И.И."}}

	t.Run("из справочника", func(t *testing.T) {
		got := Entry(Record{"visitorId": float64(3)}, visitors)
		if got.VisitorName != "Иванов И.И." {
			t.Errorf("ожидалось имя из справочника, получено %q", got.VisitorName)
		}
	})

	t.Run("из сырой записи", func(t *testing.T) {
		got := Entry(Record{"visitorId": float64(9), "VisitorName": "Петров"}, visitors)
		if got.VisitorName != "Петров" {
			t.Errorf("ожидалось имя из сырой записи, получено %q", got.VisitorName)
		}
	})

	t.Run("заглушка", func(t *testing.T) {
		got := Entry(Record{"visitorId": float64(9)}, visitors)
		if got.VisitorName != "Visitor #9" {
			t.Errorf("ожидалась заглушка, получено %q", got.VisitorName)
		}
	})
}

// TestEntry_Idempotent: нормализация уже канонической записи даёт ту же запись.
func TestEntry_Idempotent(t *testing.T) {
	entry := model.VisitorEntry{
		ID:          5,
		VisitorID:   3,
		VisitorName: "Сидоров",
		GatepassNo:  "GP-1",
		VehicleType: "car",
		VehicleNo:   "A123BC",
		Date:        "2024-05-01",
		InTime:      "2024-05-01T09:00",
		OutTime:     "2024-05-01T18:00",
		HostUserID:  15,
		Purpose:     "встреча",
		IsCanteen:   true,
		IsApproved:  true,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := AsRecord(decode(t, string(data)))

	got := Entry(raw, nil)
	if !reflect.DeepEqual(got, entry) {
		t.Errorf("нормализация не идемпотентна:\nбыло   %+v\nстало %+v", entry, got)
	}
}

// TestUsers_Envelope проверяет нормализацию списка пользователей из конверта.
func TestUsers_Envelope(t *testing.T) {
	raw := decode(t, `{"users":[{"Username":"alice","RoleId":7},{"username":"bob","deptId":"2"}]}`)
	got := Users(raw)

	if len(got) != 2 {
		t.Fatalf("ожидалось 2 пользователя, получено %d", len(got))
	}
	if got[0].Username != "alice" || got[0].RoleID != 7 {
		t.Errorf("первый пользователь нормализован неверно: %+v", got[0])
	}
	if got[1].Username != "bob" || got[1].DeptID != 2 {
		t.Errorf("второй пользователь нормализован неверно: %+v", got[1])
	}
}

// TestRoles_Departments проверяет нормализацию справочников.
func TestRoles_Departments(t *testing.T) {
	roles := Roles(decode(t, `{"$values":[{"RoleId":1,"RoleName":"Security"},{"id":2,"name":"Admin"}]}`))
	if len(roles) != 2 || roles[0].Name != "Security" || roles[1].ID != 2 {
		t.Errorf("роли нормализованы неверно: %+v", roles)
	}

	depts := Departments(decode(t, `[{"DepartmentId":4,"DepartmentName":"IT"}]`))
	if len(depts) != 1 || depts[0].ID != 4 || depts[0].Name != "IT" {
		t.Errorf("подразделения нормализованы неверно: %+v", depts)
	}
}
