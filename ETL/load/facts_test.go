package load

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNaturalKey(t *testing.T) {
	// Ключ однозначен: разные комбинации не склеиваются
	assert.Equal(t, naturalKey(1, 2, 3), naturalKey(1, 2, 3))
	assert.NotEqual(t, naturalKey(1, 23), naturalKey(12, 3))
	assert.NotEqual(t, naturalKey(1, 2, 3), naturalKey(3, 2, 1))
}

func TestResolveDateTime(t *testing.T) {
	dates := map[string]int64{"2024-06-15": 8932}
	times := map[int]int64{15: 16}

	at := time.Date(2024, 6, 15, 15, 47, 12, 0, time.UTC)
	dateKey, timeKey := resolveDateTime(dates, times, at)

	// Дата разрешается по календарному дню, время — по усеченному часу
	assert.Equal(t, int64(8932), dateKey)
	assert.Equal(t, int64(16), timeKey)
}

func TestResolveDateTimeOutsideCalendar(t *testing.T) {
	dates := map[string]int64{"2024-06-15": 8932}
	times := map[int]int64{15: 16}

	// Момент вне календарной сетки дает нулевые ключи
	at := time.Date(1999, 1, 1, 3, 0, 0, 0, time.UTC)
	dateKey, timeKey := resolveDateTime(dates, times, at)
	assert.Equal(t, int64(0), dateKey)
	assert.Equal(t, int64(0), timeKey)
}

func TestLoadStatsTotals(t *testing.T) {
	stats := LoadStats{
		Dimensions: map[string]MergeStats{
			"dim_customer": {New: 3, Changed: 2, Unchanged: 5},
			"dim_product":  {New: 1},
		},
		Bridge:     FactStats{Inserted: 4, Skipped: 1},
		CartLines:  FactStats{Inserted: 10, Skipped: 2},
		OrderLines: FactStats{Inserted: 7},
	}

	assert.Equal(t, 11+4+10+7, stats.Processed())
	assert.Equal(t, 3, stats.Skipped())
}
