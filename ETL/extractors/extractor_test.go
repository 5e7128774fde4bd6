package extractors

import (
	"fmt"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

func TestInsertRowsPerStatement(t *testing.T) {
	// Произведение строк и колонок не превышает предел протокола MySQL
	for _, columns := range []int{1, 2, 5, 13, 19} {
		rows := insertRowsPerStatement(columns)
		assert.Greater(t, rows, 0, "колонок: %d", columns)
		assert.LessOrEqual(t, rows*columns, 65535, "колонок: %d", columns)
	}

	assert.Equal(t, 5000, insertRowsPerStatement(13))
}

// placeholderLimitMatcher сопоставляет запрос по префиксу и проверяет,
// что число плейсхолдеров укладывается в предел протокола MySQL
var placeholderLimitMatcher = sqlmock.QueryMatcherFunc(func(expectedSQL, actualSQL string) error {
	if !strings.HasPrefix(actualSQL, expectedSQL) {
		return fmt.Errorf("запрос %.80q не начинается с %q", actualSQL, expectedSQL)
	}
	if n := strings.Count(actualSQL, "?"); n > 65535 {
		return fmt.Errorf("в запросе %d плейсхолдеров", n)
	}
	return nil
})

func TestInsertBatchSplitsByPlaceholderLimit(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(placeholderLimitMatcher))
	require.NoError(t, err)
	defer db.Close()

	config := TablesConfig[0]
	require.Equal(t, "sg_address", config.Target)
	require.Len(t, config.Columns, 13)

	row := make([]interface{}, len(config.Columns))
	for i := range row {
		row[i] = "x"
	}
	batch := make([][]interface{}, 50000)
	for i := range batch {
		batch[i] = row
	}

	// Пакет размера по умолчанию распадается на 10 запросов по 5000 строк
	for i := 0; i < 10; i++ {
		mock.ExpectExec("INSERT INTO sg_address").WillReturnResult(sqlmock.NewResult(0, 5000))
	}

	extractor := NewStageExtractor(nil, db, utils.NewETLLogger(false), 50000)
	require.NoError(t, extractor.insertBatch(config, batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTablesConfigRegistry(t *testing.T) {
	targets := make(map[string]bool, len(TablesConfig))
	for _, config := range TablesConfig {
		// Список колонок согласован с запросом выборки
		assert.Equal(t, strings.Count(config.Select, ",")+1, len(config.Columns), config.Name)
		assert.False(t, targets[config.Target], "повтор целевой таблицы %s", config.Target)
		targets[config.Target] = true
	}

	// Возвратные накладные переносятся вместе с остальными таблицами заказов
	assert.True(t, targets["sg_order_slip"])
	assert.True(t, targets["sg_order_slip_detail"])
}
