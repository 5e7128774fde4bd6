package load

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/transform"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// InfinityDate — значение valid_to текущей (открытой) версии строки измерения
const InfinityDate = "9999-12-31"

// epochFloor — нижняя граница valid_from, когда источник не дает собственной даты создания
var epochFloor = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// DimensionSpec параметризует обобщенное SCD-слияние для одной сущности
type DimensionSpec struct {
	// Имя измерения (для логирования)
	Name string

	// Целевая таблица в DWH
	Table string

	// Имя колонки суррогатного ключа
	SurrogateKey string

	// Колонки бизнес-ключа (составной ключ поддерживается)
	BusinessKeys []string

	// Описательные колонки, участвующие в хеше содержимого
	Attributes []string

	// Запрос к staging: бизнес-ключи, затем атрибуты, затем valid_from (если есть)
	StageQuery string

	// Источник дает собственную дату создания записи
	HasValidFrom bool

	// Дополнительные строковые значения, трактуемые как NULL, по колонкам
	NullLiterals map[string][]string

	// Выражения выборки атрибутов на стороне измерения (например,
	// DATE_FORMAT для дат, чтобы обе стороны хешировались одинаково)
	DimAttributeExprs map[string]string
}

// MergeStats — результат слияния одного измерения
type MergeStats struct {
	New       int
	Changed   int
	Unchanged int
}

// Processed возвращает общее число обработанных staged-строк
func (s MergeStats) Processed() int {
	return s.New + s.Changed + s.Unchanged
}

// stagedDimRow — одна staged-строка с каноническим ключом и хешем содержимого
type stagedDimRow struct {
	keys      []string
	attrs     []sql.NullString
	validFrom sql.NullTime
	hash      string
}

// currentDimRow — текущая версия строки измерения в хранилище
type currentDimRow struct {
	surrogate int64
	hash      string
}

// DimensionMerger выполняет SCD Type-2 слияние staged-данных в измерения DWH.
// Каждая вставка и закрытие версии фиксируются отдельно, поэтому прерванное
// слияние оставляет измерение структурно корректным и безопасным для повтора.
type DimensionMerger struct {
	stageDB   *sql.DB
	dwhDB     *sql.DB
	logger    *utils.ETLLogger
	batchSize int

	// Источник текущего времени (подменяется в тестах)
	now func() time.Time
}

// NewDimensionMerger создает новый экземпляр DimensionMerger
func NewDimensionMerger(stageDB, dwhDB *sql.DB, logger *utils.ETLLogger, batchSize int) *DimensionMerger {
	return &DimensionMerger{
		stageDB:   stageDB,
		dwhDB:     dwhDB,
		logger:    logger,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// normalizeAttr приводит значение атрибута к канонической форме:
// пустые строки и настроенные литералы-заглушки становятся NULL
func normalizeAttr(spec DimensionSpec, column string, value sql.NullString) sql.NullString {
	if !value.Valid || value.String == "" {
		return sql.NullString{}
	}
	for _, literal := range spec.NullLiterals[column] {
		if value.String == literal {
			return sql.NullString{}
		}
	}
	return value
}

// hashRow вычисляет хеш содержимого по бизнес-ключу и атрибутам
func hashRow(keys []string, attrs []sql.NullString) string {
	parts := make([]string, 0, len(keys)+len(attrs))
	parts = append(parts, keys...)
	for _, attr := range attrs {
		parts = append(parts, transform.Canonical(attr))
	}
	return transform.RowHash(parts)
}

// keyPredicate строит условие выборки текущих версий по набору бизнес-ключей.
// Для составного ключа используется конструктор строк MySQL.
func keyPredicate(businessKeys []string, count int) string {
	single := "(" + strings.TrimSuffix(strings.Repeat("?,", len(businessKeys)), ",") + ")"
	if len(businessKeys) == 1 {
		return fmt.Sprintf("%s IN (%s)", businessKeys[0], strings.TrimSuffix(strings.Repeat("?,", count), ","))
	}

	tuples := make([]string, count)
	for i := range tuples {
		tuples[i] = single
	}
	return fmt.Sprintf("(%s) IN (%s)", strings.Join(businessKeys, ", "), strings.Join(tuples, ", "))
}

// dedupeLastWins убирает повторы бизнес-ключа внутри пакета, оставляя
// последнее увиденное значение
func dedupeLastWins(batch []stagedDimRow) []stagedDimRow {
	seen := make(map[string]int, len(batch))
	result := make([]stagedDimRow, 0, len(batch))
	for _, row := range batch {
		key := strings.Join(row.keys, "\x00")
		if idx, ok := seen[key]; ok {
			result[idx] = row
			continue
		}
		seen[key] = len(result)
		result = append(result, row)
	}
	return result
}

// Merge выполняет SCD-слияние одного измерения и возвращает статистику.
// При отмене возвращает models.ErrAborted вместе с накопленной статистикой.
func (m *DimensionMerger) Merge(spec DimensionSpec, aborted func() bool) (MergeStats, error) {
	var stats MergeStats

	m.logger.Info("Слияние измерения %s началось", spec.Name)
	startTime := time.Now()

	rows, err := m.stageDB.Query(spec.StageQuery)
	if err != nil {
		return stats, fmt.Errorf("ошибка запроса staging для %s: %w", spec.Name, err)
	}
	defer rows.Close()

	keyCount := len(spec.BusinessKeys)
	attrCount := len(spec.Attributes)
	colCount := keyCount + attrCount
	if spec.HasValidFrom {
		colCount++
	}

	scanned := make([]sql.NullString, keyCount+attrCount)
	var validFrom sql.NullTime
	scanTargets := make([]interface{}, 0, colCount)
	for i := range scanned {
		scanTargets = append(scanTargets, &scanned[i])
	}
	if spec.HasValidFrom {
		scanTargets = append(scanTargets, &validFrom)
	}

	batch := make([]stagedDimRow, 0, m.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		// Проверка флага отмены на границе пакета
		if aborted() {
			return models.ErrAborted
		}
		if err := m.mergeBatch(spec, batch, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return stats, fmt.Errorf("ошибка чтения staged-строки %s: %w", spec.Name, err)
		}

		row := stagedDimRow{
			keys:  make([]string, keyCount),
			attrs: make([]sql.NullString, attrCount),
		}
		for i := 0; i < keyCount; i++ {
			row.keys[i] = scanned[i].String
		}
		for i := 0; i < attrCount; i++ {
			row.attrs[i] = normalizeAttr(spec, spec.Attributes[i], scanned[keyCount+i])
		}
		if spec.HasValidFrom {
			row.validFrom = validFrom
		}
		row.hash = hashRow(row.keys, row.attrs)

		batch = append(batch, row)
		if len(batch) >= m.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("ошибка после итерации по staging %s: %w", spec.Name, err)
	}

	if err := flush(); err != nil {
		return stats, err
	}

	m.logger.Info("Слияние измерения %s завершено за %v: новых %d, измененных %d, без изменений %d",
		spec.Name, time.Since(startTime), stats.New, stats.Changed, stats.Unchanged)
	return stats, nil
}

// mergeBatch классифицирует пакет staged-строк и применяет изменения к измерению
func (m *DimensionMerger) mergeBatch(spec DimensionSpec, batch []stagedDimRow, stats *MergeStats) error {
	// Внутри пакета по одному бизнес-ключу побеждает последнее значение
	batch = dedupeLastWins(batch)

	current, err := m.fetchCurrent(spec, batch)
	if err != nil {
		return err
	}

	// Начало календарного дня в зоне источника времени
	now := m.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	yesterday := today.AddDate(0, 0, -1)

	for _, row := range batch {
		key := strings.Join(row.keys, "\x00")
		existing, ok := current[key]

		switch {
		case !ok:
			// Новая строка: valid_from из источника или нижняя граница
			validFrom := epochFloor
			if spec.HasValidFrom && row.validFrom.Valid {
				validFrom = row.validFrom.Time
			}
			if err := m.insertVersion(spec, row, validFrom); err != nil {
				return err
			}
			stats.New++

		case existing.hash != row.hash:
			// Измененная строка: закрываем текущую версию и открываем новую
			if err := m.closeVersion(spec, existing.surrogate, yesterday); err != nil {
				return err
			}
			if err := m.insertVersion(spec, row, today); err != nil {
				return err
			}
			stats.Changed++

		default:
			stats.Unchanged++
		}
	}

	return nil
}

// fetchCurrent загружает текущие версии строк измерения для бизнес-ключей пакета
func (m *DimensionMerger) fetchCurrent(spec DimensionSpec, batch []stagedDimRow) (map[string]currentDimRow, error) {
	if len(batch) == 0 {
		return map[string]currentDimRow{}, nil
	}

	keyCount := len(spec.BusinessKeys)
	columns := make([]string, 0, 1+keyCount+len(spec.Attributes))
	columns = append(columns, spec.SurrogateKey)
	columns = append(columns, spec.BusinessKeys...)
	for _, attr := range spec.Attributes {
		if expr, ok := spec.DimAttributeExprs[attr]; ok {
			columns = append(columns, expr)
		} else {
			columns = append(columns, attr)
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE valid_to = '%s' AND %s",
		strings.Join(columns, ", "),
		spec.Table,
		InfinityDate,
		keyPredicate(spec.BusinessKeys, len(batch)),
	)

	args := make([]interface{}, 0, len(batch)*keyCount)
	for _, row := range batch {
		for _, key := range row.keys {
			args = append(args, key)
		}
	}

	rows, err := m.dwhDB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки текущих версий %s: %w", spec.Name, err)
	}
	defer rows.Close()

	result := make(map[string]currentDimRow)
	var surrogate int64
	scanned := make([]sql.NullString, keyCount+len(spec.Attributes))
	scanTargets := make([]interface{}, 0, 1+len(scanned))
	scanTargets = append(scanTargets, &surrogate)
	for i := range scanned {
		scanTargets = append(scanTargets, &scanned[i])
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("ошибка чтения текущей версии %s: %w", spec.Name, err)
		}

		keys := make([]string, keyCount)
		for i := 0; i < keyCount; i++ {
			keys[i] = scanned[i].String
		}
		attrs := make([]sql.NullString, len(spec.Attributes))
		for i := range attrs {
			attrs[i] = normalizeAttr(spec, spec.Attributes[i], scanned[keyCount+i])
		}

		result[strings.Join(keys, "\x00")] = currentDimRow{
			surrogate: surrogate,
			hash:      hashRow(keys, attrs),
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по текущим версиям %s: %w", spec.Name, err)
	}

	return result, nil
}

// insertVersion вставляет новую открытую версию строки измерения
func (m *DimensionMerger) insertVersion(spec DimensionSpec, row stagedDimRow, validFrom time.Time) error {
	columns := make([]string, 0, len(spec.BusinessKeys)+len(spec.Attributes)+2)
	columns = append(columns, spec.BusinessKeys...)
	columns = append(columns, spec.Attributes...)
	columns = append(columns, "valid_from", "valid_to")

	args := make([]interface{}, 0, len(columns))
	for _, key := range row.keys {
		args = append(args, key)
	}
	for _, attr := range row.attrs {
		if attr.Valid {
			args = append(args, attr.String)
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, validFrom.Format("2006-01-02"), InfinityDate)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		spec.Table,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?,", len(columns)), ","),
	)

	if _, err := m.dwhDB.Exec(query, args...); err != nil {
		return fmt.Errorf("ошибка вставки версии в %s: %w", spec.Table, err)
	}

	return nil
}

// closeVersion закрывает текущую версию строки измерения днем перед изменением
func (m *DimensionMerger) closeVersion(spec DimensionSpec, surrogate int64, validTo time.Time) error {
	query := fmt.Sprintf("UPDATE %s SET valid_to = ? WHERE %s = ?", spec.Table, spec.SurrogateKey)

	if _, err := m.dwhDB.Exec(query, validTo.Format("2006-01-02"), surrogate); err != nil {
		return fmt.Errorf("ошибка закрытия версии в %s: %w", spec.Table, err)
	}

	return nil
}
