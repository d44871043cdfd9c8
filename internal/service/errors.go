// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrForbidden — действие запрещено для данного пользователя.
	ErrForbidden = errors.New("действие запрещено")
	// ErrConflict — конфликт состояния (например, время уже отмечено).
	ErrConflict = errors.New("конфликт состояния")
	// ErrMutationInFlight — по этой записи уже выполняется операция.
	ErrMutationInFlight = errors.New("по записи уже выполняется операция")
	// ErrVMSUnavailable — ядро VMS недоступно.
	ErrVMSUnavailable = errors.New("ядро VMS недоступно")
)
