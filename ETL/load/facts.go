package load

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// FactStats — результат загрузки одного типа фактов.
// Skipped считает строки, отброшенные из-за неразрешенных ключей измерений.
type FactStats struct {
	Inserted int
	Skipped  int
}

// FactLoader загружает строки фактов из staging в DWH: разрешает суррогатные
// ключи по текущим версиям измерений, отсеивает уже загруженные строки по
// натуральному ключу и дописывает только новые. Повторный запуск не создает
// дубликатов.
type FactLoader struct {
	stageDB   *sql.DB
	dwhDB     *sql.DB
	logger    *utils.ETLLogger
	resolver  *KeyResolver
	batchSize int
}

// NewFactLoader создает новый экземпляр FactLoader
func NewFactLoader(stageDB, dwhDB *sql.DB, logger *utils.ETLLogger, batchSize int) *FactLoader {
	return &FactLoader{
		stageDB:   stageDB,
		dwhDB:     dwhDB,
		logger:    logger,
		resolver:  NewKeyResolver(dwhDB),
		batchSize: batchSize,
	}
}

// naturalKey собирает строковый ключ из числовых частей натурального ключа
func naturalKey(parts ...int64) string {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = strconv.FormatInt(p, 10)
	}
	return strings.Join(strs, "\x00")
}

// existingFactKeys возвращает натуральные ключи пакета, уже присутствующие
// в таблице фактов
func existingFactKeys(db *sql.DB, table string, keyColumns []string, keys [][]int64) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(keys) == 0 {
		return result, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(keyColumns, ", "), table, keyPredicate(keyColumns, len(keys)))

	args := make([]interface{}, 0, len(keys)*len(keyColumns))
	for _, key := range keys {
		for _, part := range key {
			args = append(args, part)
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки существующих фактов %s: %w", table, err)
	}
	defer rows.Close()

	scanned := make([]int64, len(keyColumns))
	scanTargets := make([]interface{}, len(keyColumns))
	for i := range scanned {
		scanTargets[i] = &scanned[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("ошибка чтения ключа факта %s: %w", table, err)
		}
		result[naturalKey(scanned...)] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по фактам %s: %w", table, err)
	}

	return result, nil
}

// resolveDateTime возвращает ключи календаря и времени для момента события.
// Момент вне календарной сетки дает нулевые ключи вместо ошибки.
func resolveDateTime(dates map[string]int64, times map[int]int64, at time.Time) (int64, int64) {
	dateKey := dates[at.Format("2006-01-02")]
	timeKey := times[at.Hour()]
	return dateKey, timeKey
}
