package load

import (
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestNormalizeAttr(t *testing.T) {
	spec := DimensionSpec{
		NullLiterals: map[string][]string{
			"gender": {"[neuvádzam]"},
		},
	}

	// Пустые значения становятся NULL
	assert.False(t, normalizeAttr(spec, "city", sql.NullString{}).Valid)
	assert.False(t, normalizeAttr(spec, "city", nullString("")).Valid)

	// Литерал-заглушка действует только для своей колонки
	assert.False(t, normalizeAttr(spec, "gender", nullString("[neuvádzam]")).Valid)
	assert.True(t, normalizeAttr(spec, "city", nullString("[neuvádzam]")).Valid)

	// Обычное значение проходит без изменений
	assert.Equal(t, "male", normalizeAttr(spec, "gender", nullString("male")).String)
}

func TestHashRow(t *testing.T) {
	keys := []string{"42"}
	attrs := []sql.NullString{nullString("a"), nullString("b")}

	// Одинаковый вход дает одинаковый хеш
	assert.Equal(t, hashRow(keys, attrs), hashRow(keys, attrs))

	// Изменение атрибута меняет хеш
	changed := []sql.NullString{nullString("a"), nullString("c")}
	assert.NotEqual(t, hashRow(keys, attrs), hashRow(keys, changed))

	// NULL и пустая строка эквивалентны
	withNull := []sql.NullString{{}, nullString("b")}
	withEmpty := []sql.NullString{nullString(""), nullString("b")}
	assert.Equal(t, hashRow(keys, withNull), hashRow(keys, withEmpty))
}

func TestKeyPredicate(t *testing.T) {
	// Одиночный ключ использует простой IN
	assert.Equal(t, "customerid_bk IN (?,?,?)", keyPredicate([]string{"customerid_bk"}, 3))

	// Составной ключ использует конструктор строк
	assert.Equal(t,
		"(productid_bk, productattributeid_bk) IN ((?,?), (?,?))",
		keyPredicate([]string{"productid_bk", "productattributeid_bk"}, 2))
}

func TestDedupeLastWins(t *testing.T) {
	batch := []stagedDimRow{
		{keys: []string{"1"}, hash: "first"},
		{keys: []string{"2"}, hash: "other"},
		{keys: []string{"1"}, hash: "second"},
	}

	result := dedupeLastWins(batch)

	// Повтор бизнес-ключа схлопывается, побеждает последняя версия
	require.Len(t, result, 2)
	assert.Equal(t, "second", result[0].hash)
	assert.Equal(t, []string{"1"}, result[0].keys)
	assert.Equal(t, "other", result[1].hash)
}

func TestDedupeLastWinsCompositeKey(t *testing.T) {
	batch := []stagedDimRow{
		{keys: []string{"1", "0"}, hash: "a"},
		{keys: []string{"1", "2"}, hash: "b"},
		{keys: []string{"1", "0"}, hash: "c"},
	}

	result := dedupeLastWins(batch)

	// Различие в любой части составного ключа сохраняет обе строки
	require.Len(t, result, 2)
	assert.Equal(t, "c", result[0].hash)
	assert.Equal(t, "b", result[1].hash)
}

// stateSpec — минимальное измерение с одиночным бизнес-ключом для
// проверки слияния
func stateSpec() DimensionSpec {
	return DimensionSpec{
		Name:         "dim_order_state",
		Table:        "dim_order_state",
		SurrogateKey: "orderstate_key",
		BusinessKeys: []string{"orderstateid_bk"},
		Attributes:   []string{"current_state"},
	}
}

func stagedRow(key, attr string) stagedDimRow {
	row := stagedDimRow{keys: []string{key}, attrs: []sql.NullString{nullString(attr)}}
	row.hash = hashRow(row.keys, row.attrs)
	return row
}

func newMergerForTest(t *testing.T, at time.Time) (*DimensionMerger, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	merger := &DimensionMerger{
		dwhDB:     db,
		logger:    utils.NewETLLogger(false),
		batchSize: 100,
		now:       func() time.Time { return at },
	}
	return merger, mock
}

const (
	stateSelectSQL = "SELECT orderstate_key, orderstateid_bk, current_state FROM dim_order_state WHERE valid_to = '9999-12-31' AND orderstateid_bk IN (?,?,?)"
	stateInsertSQL = "INSERT INTO dim_order_state (orderstateid_bk, current_state, valid_from, valid_to) VALUES (?,?,?,?)"
	stateUpdateSQL = "UPDATE dim_order_state SET valid_to = ? WHERE orderstate_key = ?"
)

func TestMergeBatchVersioning(t *testing.T) {
	// Ранее утро в зоне восточнее UTC: граница дня берется по календарю,
	// а не по кратным 24 часам от эпохи
	at := time.Date(2026, 8, 30, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	merger, mock := newMergerForTest(t, at)

	batch := []stagedDimRow{
		stagedRow("10", "Shipped"),
		stagedRow("11", "Paid"),
		stagedRow("12", "Cancelled"),
	}

	mock.ExpectQuery(stateSelectSQL).
		WithArgs("10", "11", "12").
		WillReturnRows(sqlmock.NewRows([]string{"orderstate_key", "orderstateid_bk", "current_state"}).
			AddRow(int64(101), "11", "Pending").
			AddRow(int64(102), "12", "Cancelled"))

	// Новый ключ: открытая версия с нижней границей valid_from
	mock.ExpectExec(stateInsertSQL).
		WithArgs("10", "Shipped", "2000-01-01", "9999-12-31").
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Измененный ключ: старая версия закрывается вчерашним днем,
	// новая открывается сегодняшним
	mock.ExpectExec(stateUpdateSQL).
		WithArgs("2026-08-29", int64(101)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(stateInsertSQL).
		WithArgs("11", "Paid", "2026-08-30", "9999-12-31").
		WillReturnResult(sqlmock.NewResult(2, 1))

	var stats MergeStats
	require.NoError(t, merger.mergeBatch(stateSpec(), batch, &stats))

	assert.Equal(t, MergeStats{New: 1, Changed: 1, Unchanged: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMergeBatchRepeatIsNoop(t *testing.T) {
	merger, mock := newMergerForTest(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC))

	batch := []stagedDimRow{
		stagedRow("10", "Shipped"),
		stagedRow("11", "Paid"),
		stagedRow("12", "Cancelled"),
	}

	// Хранилище уже содержит те же версии: повторное слияние ничего не пишет
	mock.ExpectQuery(stateSelectSQL).
		WithArgs("10", "11", "12").
		WillReturnRows(sqlmock.NewRows([]string{"orderstate_key", "orderstateid_bk", "current_state"}).
			AddRow(int64(103), "10", "Shipped").
			AddRow(int64(104), "11", "Paid").
			AddRow(int64(102), "12", "Cancelled"))

	var stats MergeStats
	require.NoError(t, merger.mergeBatch(stateSpec(), batch, &stats))

	assert.Equal(t, MergeStats{Unchanged: 3}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDimensionSpecs(t *testing.T) {
	specs := DimensionSpecs()
	require.Len(t, specs, 5)

	byName := make(map[string]DimensionSpec, len(specs))
	for _, spec := range specs {
		byName[spec.Name] = spec
	}

	// Товар идентифицируется составным бизнес-ключом
	product, ok := byName["dim_product"]
	require.True(t, ok)
	assert.Equal(t, []string{"productid_bk", "productattributeid_bk"}, product.BusinessKeys)
	assert.True(t, product.HasValidFrom)

	// У статусов заказа нет собственной даты создания в источнике
	state, ok := byName["dim_order_state"]
	require.True(t, ok)
	assert.False(t, state.HasValidFrom)

	// Заглушка пола трактуется как NULL
	customer, ok := byName["dim_customer"]
	require.True(t, ok)
	assert.Contains(t, customer.NullLiterals["gender"], "[neuvádzam]")
}
