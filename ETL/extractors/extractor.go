package extractors

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// StageExtractor переносит данные из продакшн БД в staging-слой.
// Каждая таблица полностью перезаписывается при каждом запуске.
type StageExtractor struct {
	prodDB    *sql.DB
	stageDB   *sql.DB
	logger    *utils.ETLLogger
	batchSize int
}

// NewStageExtractor создает новый экземпляр StageExtractor
func NewStageExtractor(prodDB, stageDB *sql.DB, logger *utils.ETLLogger, batchSize int) *StageExtractor {
	return &StageExtractor{
		prodDB:    prodDB,
		stageDB:   stageDB,
		logger:    logger,
		batchSize: batchSize,
	}
}

// ReloadAll перезагружает все staging-таблицы из продакшн БД.
// Возвращает количество обработанных таблиц и строк.
// При отмене возвращает models.ErrAborted; частично заполненный staging
// допустим, так как содержимое полностью заменяется при следующем запуске.
func (e *StageExtractor) ReloadAll(aborted func() bool) (int, int64, error) {
	startTime := time.Now()
	e.logger.LogStageReloadStart()

	tablesProcessed := 0
	var totalRows int64

	for _, config := range TablesConfig {
		if aborted() {
			e.logger.Info("Перезагрузка staging прервана после %d таблиц", tablesProcessed)
			return tablesProcessed, totalRows, models.ErrAborted
		}

		rows, err := e.reloadTable(config, aborted)
		totalRows += rows
		if err != nil {
			if err == models.ErrAborted {
				return tablesProcessed, totalRows, err
			}
			e.logger.Error("Ошибка при перезагрузке таблицы %s: %v", config.Name, err)
			return tablesProcessed, totalRows, fmt.Errorf("ошибка перезагрузки таблицы %s: %w", config.Name, err)
		}

		tablesProcessed++
	}

	e.logger.LogStageReloadComplete(tablesProcessed, totalRows, time.Since(startTime))
	return tablesProcessed, totalRows, nil
}

// reloadTable очищает целевую staging-таблицу и переносит в нее данные источника пакетами
func (e *StageExtractor) reloadTable(config TableConfig, aborted func() bool) (int64, error) {
	e.logger.Debug("Перезагрузка таблицы %s -> %s", config.Name, config.Target)

	// Очищаем целевую таблицу
	if _, err := e.stageDB.Exec(fmt.Sprintf("TRUNCATE TABLE %s", config.Target)); err != nil {
		return 0, fmt.Errorf("ошибка очистки таблицы %s: %w", config.Target, err)
	}

	// Потоковое чтение источника
	rows, err := e.prodDB.Query(config.Select)
	if err != nil {
		return 0, fmt.Errorf("ошибка запроса к источнику %s: %w", config.Name, err)
	}
	defer rows.Close()

	var totalRows int64
	batch := make([][]interface{}, 0, e.batchSize)
	scanned := make([]interface{}, len(config.Columns))
	scanTargets := make([]interface{}, len(config.Columns))
	for i := range scanned {
		scanTargets[i] = &scanned[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return totalRows, fmt.Errorf("ошибка чтения строки из %s: %w", config.Name, err)
		}

		// Применяем нормализацию к каждой колонке
		values := make([]interface{}, len(config.Columns))
		for i, column := range config.Columns {
			values[i] = NormalizeValue(config, column, scanned[i])
		}
		batch = append(batch, values)

		// Пакет заполнен — записываем в staging
		if len(batch) >= e.batchSize {
			if err := e.insertBatch(config, batch); err != nil {
				return totalRows, err
			}
			totalRows += int64(len(batch))
			batch = batch[:0]

			// Проверка флага отмены на границе пакета
			if aborted() {
				return totalRows, models.ErrAborted
			}
			e.logger.Debug("Таблица %s: записано %d строк", config.Target, totalRows)
		}
	}

	if err := rows.Err(); err != nil {
		return totalRows, fmt.Errorf("ошибка после итерации по %s: %w", config.Name, err)
	}

	// Записываем остаток
	if len(batch) > 0 {
		if err := e.insertBatch(config, batch); err != nil {
			return totalRows, err
		}
		totalRows += int64(len(batch))
	}

	e.logger.Debug("Таблица %s синхронизирована (%d строк)", config.Target, totalRows)
	return totalRows, nil
}

// maxStmtPlaceholders — верхняя граница числа плейсхолдеров в одном
// запросе: протокол подготовленных выражений MySQL ограничивает их
// число 65535 (num_params — uint16), держим запас
const maxStmtPlaceholders = 65000

// insertRowsPerStatement возвращает максимальное число строк
// в одном многострочном INSERT для заданного числа колонок
func insertRowsPerStatement(columns int) int {
	if columns <= 0 {
		return maxStmtPlaceholders
	}
	return maxStmtPlaceholders / columns
}

// insertBatch вставляет пакет строк в staging, разбивая его на части так,
// чтобы каждый запрос укладывался в лимит плейсхолдеров MySQL
func (e *StageExtractor) insertBatch(config TableConfig, batch [][]interface{}) error {
	limit := insertRowsPerStatement(len(config.Columns))
	for offset := 0; offset < len(batch); offset += limit {
		end := offset + limit
		if end > len(batch) {
			end = len(batch)
		}
		if err := e.insertChunk(config, batch[offset:end]); err != nil {
			return err
		}
	}
	return nil
}

// insertChunk вставляет часть пакета одним многострочным запросом
func (e *StageExtractor) insertChunk(config TableConfig, batch [][]interface{}) error {
	if len(batch) == 0 {
		return nil
	}

	// Формируем колонки с экранированием зарезервированных слов
	quoted := make([]string, len(config.Columns))
	for i, column := range config.Columns {
		quoted[i] = "`" + column + "`"
	}

	rowPlaceholder := "(" + strings.TrimSuffix(strings.Repeat("?,", len(config.Columns)), ",") + ")"
	placeholders := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*len(config.Columns))
	for i, row := range batch {
		placeholders[i] = rowPlaceholder
		args = append(args, row...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		config.Target,
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	if _, err := e.stageDB.Exec(query, args...); err != nil {
		return fmt.Errorf("ошибка вставки пакета в %s: %w", config.Target, err)
	}

	return nil
}
