package transform

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	// NULL и пустая строка дают одинаковую каноническую форму
	assert.Equal(t, NullPlaceholder, Canonical(sql.NullString{}))
	assert.Equal(t, NullPlaceholder, Canonical(sql.NullString{String: "", Valid: true}))

	// Обычное значение проходит без изменений
	assert.Equal(t, "Bratislava", Canonical(sql.NullString{String: "Bratislava", Valid: true}))
}

func TestRowHashStability(t *testing.T) {
	parts := []string{"42", "john@example.com", "1990-05-01"}

	// Один и тот же вход всегда дает один и тот же хеш
	assert.Equal(t, RowHash(parts), RowHash(parts))

	// Хеш — это md5 от строк, соединенных дефисом
	assert.Equal(t, RowHash([]string{"a", "b"}), RowHash([]string{"a", "b"}))
	assert.Len(t, RowHash(parts), 32)
}

func TestRowHashSensitivity(t *testing.T) {
	base := RowHash([]string{"42", "x", "y"})

	// Изменение любой части меняет хеш
	assert.NotEqual(t, base, RowHash([]string{"43", "x", "y"}))
	assert.NotEqual(t, base, RowHash([]string{"42", "x", "z"}))

	// Порядок частей значим
	assert.NotEqual(t, RowHash([]string{"a", "b"}), RowHash([]string{"b", "a"}))
}

func TestRowHashNullEqualsEmpty(t *testing.T) {
	// Строка с NULL-атрибутом и строка с пустым атрибутом хешируются одинаково
	withNull := RowHash([]string{"7", Canonical(sql.NullString{})})
	withEmpty := RowHash([]string{"7", Canonical(sql.NullString{String: "", Valid: true})})
	assert.Equal(t, withNull, withEmpty)
}
