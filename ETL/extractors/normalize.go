package extractors

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"
)

// asString приводит сырое значение драйвера к строке.
// Второй результат false означает NULL или нестроковое значение (например, дату).
func asString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// coerceBool приводит значение колонки к булевому типу.
// MySQL возвращает TINYINT как текст "0"/"1", пустые значения трактуются как NULL.
func coerceBool(value interface{}) interface{} {
	s, ok := asString(value)
	if !ok || s == "" {
		return nil
	}

	switch strings.ToLower(s) {
	case "1", "true", "t", "yes":
		return true
	default:
		return false
	}
}

// hashSensitive выполняет одностороннее хеширование чувствительного значения
// (например, адреса электронной почты) перед записью в staging
func hashSensitive(value interface{}) interface{} {
	s, ok := asString(value)
	if !ok || s == "" {
		return nil
	}

	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeValue применяет нормализацию к значению колонки согласно
// конфигурации таблицы. Временные значения (time.Time) и прочие типы
// драйвера проходят без преобразования.
func NormalizeValue(config TableConfig, column string, value interface{}) interface{} {
	if config.BoolColumns[column] {
		return coerceBool(value)
	}
	if config.HashColumns[column] {
		return hashSensitive(value)
	}

	switch v := value.(type) {
	case []byte:
		// Копируем: драйвер переиспользует буфер между строками
		return string(v)
	case time.Time:
		return v
	default:
		return v
	}
}
