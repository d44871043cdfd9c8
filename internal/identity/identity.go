// Пакет identity — извлечение числового идентификатора действующего
// пользователя из payload bearer-токена.
//
// Разные версии ядра VMS кладут идентификатор под разными именами claim'ов,
// поэтому кандидаты перебираются в фиксированном порядке. Подпись здесь
// НЕ проверяется — это работа auth middleware; пакет лишь толерантно
// декодирует второй сегмент токена.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"strconv"
	"strings"
)

// claimCandidates — имена claim'ов с идентификатором пользователя
// в порядке приоритета.
var claimCandidates = []string{
	"userid", "UserId", "userId",
	"nameid", "NameId",
	"uid", "sub", "id", "Id",
}

// ExtractUserID возвращает числовой идентификатор пользователя из токена.
// Любая некорректность (не-JWT, битый base64, не-JSON payload, отсутствие
// подходящего claim'а) даёт 0 — вызывающий код трактует 0 как «неизвестен».
func ExtractUserID(token string) int64 {
	payload, ok := DecodePayload(token)
	if !ok {
		return 0
	}

	for _, name := range claimCandidates {
		val, exists := payload[name]
		if !exists || val == nil {
			continue
		}
		if id, ok := asInt64(val); ok && id != 0 {
			return id
		}
	}
	return 0
}

// DecodePayload декодирует второй сегмент compact JWT в map claim'ов.
func DecodePayload(token string) (map[string]any, bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return nil, false
	}

	data, err := decodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, false
	}
	return payload, true
}

// decodeSegment декодирует base64url-сегмент, терпимо к наличию padding.
func decodeSegment(seg string) ([]byte, error) {
	if data, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return data, nil
	}
	return base64.URLEncoding.DecodeString(seg)
}

// asInt64 приводит значение claim'а к int64.
// Строковые идентификаторы парсятся; нечисловые строки (например, UUID
// в sub) пропускаются.
func asInt64(val any) (int64, bool) {
	switch v := val.(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
