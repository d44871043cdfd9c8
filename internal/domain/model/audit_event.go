package model

import "time"

// Действия, фиксируемые в журнале аудита.
const (
	AuditActionApprove      = "entry.approve"
	AuditActionReject       = "entry.reject"
	AuditActionSetInTime    = "entry.set_in_time"
	AuditActionSetOutTime   = "entry.set_out_time"
	AuditActionSecurityEdit = "entry.security_edit"
	AuditActionUserCreate   = "user.create"
	AuditActionUserUpdate   = "user.update"
	AuditActionUserDelete   = "user.delete"
	AuditActionUserImport   = "user.import"
)

// AuditEvent — запись журнала аудита действий консоли.
type AuditEvent struct {
	// ID — UUID события.
	ID string `json:"id"`
	// ActorID — числовой идентификатор действующего пользователя (0 — неизвестен).
	ActorID int64 `json:"actorId"`
	// ActorName — имя пользователя на момент действия.
	ActorName string `json:"actorName"`
	// Action — тип действия (entry.approve, user.create, ...).
	Action string `json:"action"`
	// Entity — тип затронутой сущности (entry, user).
	Entity string `json:"entity"`
	// EntityID — идентификатор затронутой сущности в ядре VMS.
	EntityID int64 `json:"entityId"`
	// Detail — человекочитаемые детали действия.
	Detail string `json:"detail"`
	// CreatedAt — время события.
	CreatedAt time.Time `json:"createdAt"`
}
