package model

// Visitor — посетитель. Read-only для Admin Console,
// используется только для обогащения записей пропусков.
type Visitor struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Mobile    string `json:"mobile"`
	PhotoPath string `json:"photoPath"`
}

// Role — справочник ролей (идентификатор + отображаемое имя).
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Department — справочник подразделений.
type Department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
