package transform

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"strings"
)

// NullPlaceholder — каноническое представление отсутствующего значения при хешировании.
// Пустая строка и NULL сводятся к нему, чтобы не регистрировать ложные изменения.
const NullPlaceholder = "NULL"

// Canonical приводит значение атрибута к канонической строке для хеширования
func Canonical(value sql.NullString) string {
	if !value.Valid || value.String == "" {
		return NullPlaceholder
	}
	return value.String
}

// RowHash вычисляет хеш содержимого строки измерения.
// Части (бизнес-ключ и атрибуты) соединяются через дефис, как единая
// каноническая строка, и хешируются MD5.
func RowHash(parts []string) string {
	data := strings.Join(parts, "-")
	sum := md5.Sum([]byte(data))
	return hex.EncodeToString(sum[:])
}
