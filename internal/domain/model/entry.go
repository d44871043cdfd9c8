// Пакет model — канонические доменные модели Admin Console.
// Канонические записи имеют фиксированные имена и типы полей,
// независимые от вариантов именования в ответах ядра VMS.
package model

// ApprovalState — состояние согласования записи пропуска.
type ApprovalState string

const (
	// ApprovalPending — решение по записи ещё не принято.
	ApprovalPending ApprovalState = "pending"
	// ApprovalApproved — запись согласована принимающим пользователем.
	ApprovalApproved ApprovalState = "approved"
	// ApprovalRejected — запись отклонена. Терминальное состояние.
	ApprovalRejected ApprovalState = "rejected"
)

// VisitorEntry — каноническая запись пропуска посетителя.
// Создаётся на стороне ядра VMS при регистрации посетителя,
// Admin Console её только читает и обновляет.
type VisitorEntry struct {
	ID          int64  `json:"id"`
	VisitorID   int64  `json:"visitorId"`
	VisitorName string `json:"visitorName"`
	GatepassNo  string `json:"gatepassNo"`
	VehicleType string `json:"vehicleType"`
	VehicleNo   string `json:"vehicleNo"`
	Date        string `json:"date"`
	// InTime и OutTime — опциональные строки-метки времени в формате ядра
	// (локальный формат, возможно с offset). Пустая строка — время не задано.
	InTime     string `json:"inTime"`
	OutTime    string `json:"outTime"`
	HostUserID int64  `json:"hostUserId"`
	Purpose    string `json:"purpose"`

	IsCanteen      bool `json:"isCanteen"`
	IsStay         bool `json:"isStay"`
	IsApproved     bool `json:"isApproved"`
	IsUserApproved bool `json:"isUserApproved"`
	IsRejected     bool `json:"isRejected"`
}

// ApprovalState возвращает состояние согласования записи.
// Отклонение доминирует над согласованием.
func (e *VisitorEntry) ApprovalState() ApprovalState {
	switch {
	case e.IsRejected:
		return ApprovalRejected
	case e.IsApproved:
		return ApprovalApproved
	default:
		return ApprovalPending
	}
}

// SearchText возвращает конкатенацию отображаемых полей для поиска по таблице.
func (e *VisitorEntry) SearchText() string {
	return e.VisitorName + " " + e.GatepassNo + " " + e.VehicleNo + " " +
		e.VehicleType + " " + e.Purpose
}
