// Пакет classify — разбиение записей пропусков на «текущие» и «историю».
//
// Момент «сейчас» передаётся явным параметром и сэмплируется вызывающим кодом
// один раз на запрос: вся пачка записей классифицируется относительно одного
// мгновения, и классификация детерминирована и тестируема без подмены часов.
package classify

import (
	"time"

	"github.com/propusk/admin-console/internal/domain/model"
)

// outTimeLayouts — форматы меток времени ядра VMS в порядке попыток разбора.
var outTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Partition разбивает записи на текущие и исторические относительно now.
// Правила в порядке приоритета:
//  1. флаг отклонения — история, безусловно (независимо от времени выхода);
//  2. время выхода задано, парсится и строго раньше now — история;
//  3. иначе — текущая (время выхода не задано, в будущем или не парсится).
//
// Разбиение полное и непересекающееся, порядок записей сохраняется.
func Partition(entries []model.VisitorEntry, now time.Time) (current, history []model.VisitorEntry) {
	current = make([]model.VisitorEntry, 0, len(entries))
	history = make([]model.VisitorEntry, 0, len(entries))

	for _, entry := range entries {
		if IsHistory(entry, now) {
			history = append(history, entry)
		} else {
			current = append(current, entry)
		}
	}
	return current, history
}

// IsHistory сообщает, относится ли запись к истории по состоянию на now.
func IsHistory(entry model.VisitorEntry, now time.Time) bool {
	if entry.IsRejected {
		return true
	}
	if entry.OutTime == "" {
		return false
	}
	out, ok := ParseTime(entry.OutTime)
	if !ok {
		return false
	}
	return out.Before(now)
}

// ParseTime разбирает метку времени ядра, перебирая известные форматы.
func ParseTime(value string) (time.Time, bool) {
	for _, layout := range outTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
