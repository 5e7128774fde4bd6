package load

import (
	"database/sql"
	"fmt"
	"strings"
)

// KeyResolver загружает справочники суррогатных ключей измерений из DWH.
// Загрузка выполняется один раз на загрузку фактов, поэтому разрешение
// ключей внутри пакетов не требует дополнительных запросов.
type KeyResolver struct {
	dwhDB *sql.DB
}

// NewKeyResolver создает новый экземпляр KeyResolver
func NewKeyResolver(dwhDB *sql.DB) *KeyResolver {
	return &KeyResolver{dwhDB: dwhDB}
}

// dimKey собирает составной ключ поиска из частей бизнес-ключа
func dimKey(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// CurrentKeys возвращает суррогатные ключи текущих версий измерения,
// индексированные по бизнес-ключу
func (r *KeyResolver) CurrentKeys(table, surrogateKey string, businessKeys []string) (map[string]int64, error) {
	query := fmt.Sprintf("SELECT %s, %s FROM %s WHERE valid_to = '%s'",
		surrogateKey, strings.Join(businessKeys, ", "), table, InfinityDate)

	rows, err := r.dwhDB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки ключей %s: %w", table, err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	var surrogate int64
	scanned := make([]sql.NullString, len(businessKeys))
	scanTargets := make([]interface{}, 0, 1+len(scanned))
	scanTargets = append(scanTargets, &surrogate)
	for i := range scanned {
		scanTargets = append(scanTargets, &scanned[i])
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("ошибка чтения ключа %s: %w", table, err)
		}
		parts := make([]string, len(scanned))
		for i := range scanned {
			parts[i] = scanned[i].String
		}
		result[dimKey(parts...)] = surrogate
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по ключам %s: %w", table, err)
	}

	return result, nil
}

// DateKeys возвращает ключи календарного измерения, индексированные
// по дате в формате YYYY-MM-DD
func (r *KeyResolver) DateKeys() (map[string]int64, error) {
	rows, err := r.dwhDB.Query("SELECT date_key, DATE_FORMAT(date, '%Y-%m-%d') FROM dim_date")
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки ключей dim_date: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int64)
	for rows.Next() {
		var key int64
		var day string
		if err := rows.Scan(&key, &day); err != nil {
			return nil, fmt.Errorf("ошибка чтения ключа dim_date: %w", err)
		}
		result[day] = key
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по ключам dim_date: %w", err)
	}

	return result, nil
}

// TimeKeys возвращает ключи измерения времени, индексированные по часу
func (r *KeyResolver) TimeKeys() (map[int]int64, error) {
	rows, err := r.dwhDB.Query("SELECT time_key, hour FROM dim_time")
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки ключей dim_time: %w", err)
	}
	defer rows.Close()

	result := make(map[int]int64)
	for rows.Next() {
		var key int64
		var hour int
		if err := rows.Scan(&key, &hour); err != nil {
			return nil, fmt.Errorf("ошибка чтения ключа dim_time: %w", err)
		}
		result[hour] = key
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по ключам dim_time: %w", err)
	}

	return result, nil
}
