package extractors

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeValueBoolColumns(t *testing.T) {
	config := TableConfig{BoolColumns: map[string]bool{"active": true}}

	// TINYINT приходит от драйвера как текст
	assert.Equal(t, true, NormalizeValue(config, "active", []byte("1")))
	assert.Equal(t, false, NormalizeValue(config, "active", []byte("0")))
	assert.Equal(t, true, NormalizeValue(config, "active", "true"))
	assert.Equal(t, false, NormalizeValue(config, "active", "no"))

	// NULL и пустая строка остаются NULL
	assert.Nil(t, NormalizeValue(config, "active", nil))
	assert.Nil(t, NormalizeValue(config, "active", []byte("")))
}

func TestNormalizeValueHashColumns(t *testing.T) {
	config := TableConfig{HashColumns: map[string]bool{"hashed_login": true}}

	sum := md5.Sum([]byte("john@example.com"))
	expected := hex.EncodeToString(sum[:])

	assert.Equal(t, expected, NormalizeValue(config, "hashed_login", []byte("john@example.com")))

	// Одно и то же значение всегда хешируется одинаково
	assert.Equal(t,
		NormalizeValue(config, "hashed_login", "john@example.com"),
		NormalizeValue(config, "hashed_login", []byte("john@example.com")))

	// Исходное значение не должно просочиться в staging
	assert.NotEqual(t, "john@example.com", NormalizeValue(config, "hashed_login", "john@example.com"))

	// NULL остается NULL
	assert.Nil(t, NormalizeValue(config, "hashed_login", nil))
}

func TestNormalizeValuePassthrough(t *testing.T) {
	config := TableConfig{}

	// Байтовый буфер драйвера копируется в строку
	assert.Equal(t, "Bratislava", NormalizeValue(config, "city", []byte("Bratislava")))

	// Временные значения проходят без преобразования
	now := time.Date(2024, 6, 15, 12, 30, 0, 0, time.UTC)
	assert.Equal(t, now, NormalizeValue(config, "date_add", now))

	// NULL проходит как есть
	assert.Nil(t, NormalizeValue(config, "city", nil))
}
