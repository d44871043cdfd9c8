// Пакет normalize — приведение разнородных ответов ядра VMS к каноническим записям.
// Ядро отдаёт поля в PascalCase, camelCase или lowercase и может заворачивать
// массивы в конверты ($values, data, доменный ключ). Списки кандидатов ключей
// хранятся как данные, а не как разбросанные условия, и тестируются отдельно.
//
// Пакет никогда не возвращает ошибку и не паникует: некорректная форма входа
// деградирует до пустого результата или значений по умолчанию (0, false, "").
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record — сырая запись неизвестной формы из ответа ядра.
type Record map[string]any

// envelopeKeys — известные ключи конвертов в порядке приоритета.
// Доменные ключи передаются вызывающим кодом и проверяются после них.
var envelopeKeys = []string{"$values", "data"}

// AsRecord приводит произвольное значение к Record.
// Возвращает false для не-объектов.
func AsRecord(raw any) (Record, bool) {
	switch v := raw.(type) {
	case Record:
		return v, true
	case map[string]any:
		return Record(v), true
	default:
		return nil, false
	}
}

// UnwrapList извлекает список записей из сырого значения.
// Массив проходит как есть. Для объекта ищется массив под ключами конвертов
// ($values, data, затем domainKeys) в фиксированном порядке приоритета.
// Любая другая форма — пустой результат.
func UnwrapList(raw any, domainKeys ...string) []Record {
	if arr, ok := raw.([]any); ok {
		return toRecords(arr)
	}

	obj, ok := AsRecord(raw)
	if !ok {
		return nil
	}

	keys := make([]string, 0, len(envelopeKeys)+len(domainKeys))
	keys = append(keys, envelopeKeys...)
	keys = append(keys, domainKeys...)

	for _, key := range keys {
		if arr, ok := obj[key].([]any); ok {
			return toRecords(arr)
		}
	}
	// Объект без известного массива — считаем не-списком.
	return nil
}

// toRecords отбрасывает элементы, не являющиеся объектами.
func toRecords(arr []any) []Record {
	result := make([]Record, 0, len(arr))
	for _, item := range arr {
		if rec, ok := AsRecord(item); ok {
			result = append(result, rec)
		}
	}
	return result
}

// lookup возвращает первое присутствующее, не-nil и не-пустое (для строк)
// значение среди кандидатов ключей.
func (r Record) lookup(keys []string) (any, bool) {
	for _, key := range keys {
		val, ok := r[key]
		if !ok || val == nil {
			continue
		}
		if s, isStr := val.(string); isStr && s == "" {
			continue
		}
		return val, true
	}
	return nil, false
}

// Str возвращает первое строковое значение среди кандидатов, иначе "".
// Числовые значения приводятся к строке (ядро иногда отдаёт номера как числа).
func (r Record) Str(keys ...string) string {
	val, ok := r.lookup(keys)
	if !ok {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// Num возвращает первое числовое значение среди кандидатов, иначе 0.
// Строки парсятся; ошибка парсинга — значение по умолчанию.
func (r Record) Num(keys ...string) int64 {
	for _, key := range keys {
		val, ok := r[key]
		if !ok || val == nil {
			continue
		}
		if n, ok := asNumber(val); ok {
			return n
		}
	}
	return 0
}

// ID возвращает идентификатор по правилу: первый ненулевой числовой кандидат,
// иначе первый числовой кандидат (в том числе 0), иначе 0.
func (r Record) ID(keys ...string) int64 {
	var first int64
	found := false
	for _, key := range keys {
		val, ok := r[key]
		if !ok || val == nil {
			continue
		}
		n, ok := asNumber(val)
		if !ok {
			continue
		}
		if n != 0 {
			return n
		}
		if !found {
			first = n
			found = true
		}
	}
	return first
}

// Flag возвращает первое булево значение среди кандидатов, иначе false.
// Принимаются bool, числа 0/1 и строки "true"/"false"/"1"/"0".
func (r Record) Flag(keys ...string) bool {
	for _, key := range keys {
		val, ok := r[key]
		if !ok || val == nil {
			continue
		}
		if b, ok := asBool(val); ok {
			return b
		}
	}
	return false
}

// asNumber приводит значение к int64.
func asNumber(val any) (int64, bool) {
	switch v := val.(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		if f, err := v.Float64(); err == nil {
			return int64(f), true
		}
		return 0, false
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// asBool приводит значение к bool.
func asBool(val any) (bool, bool) {
	switch v := val.(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n != 0, true
		}
		return false, false
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		default:
			return false, false
		}
	default:
		return false, false
	}
}
