package load

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
)

// stagedOrderHistory — одно staged-событие смены статуса заказа
type stagedOrderHistory struct {
	orderHistoryID int64
	orderID        int64
	orderStateID   int64
	orderStateSK   int64
	changedAt      sql.NullTime
}

// LoadOrderHistory загружает события смены статусов заказов в fact_order_history.
// Натуральный ключ факта — (orderhistoryid_bk, orderid_bk, orderstateid_bk).
func (l *FactLoader) LoadOrderHistory(aborted func() bool) (FactStats, error) {
	var stats FactStats

	l.logger.Info("Загрузка fact_order_history началась")
	startTime := time.Now()

	states, err := l.resolver.CurrentKeys("dim_order_state", "orderstate_key", []string{"orderstateid_bk"})
	if err != nil {
		return stats, err
	}
	dates, err := l.resolver.DateKeys()
	if err != nil {
		return stats, err
	}
	times, err := l.resolver.TimeKeys()
	if err != nil {
		return stats, err
	}

	rows, err := l.stageDB.Query(`
		SELECT
			oh.id_order_history,
			oh.id_order,
			oh.id_order_state,
			oh.date_add
		FROM sg_order_history oh
		ORDER BY oh.id_order_history`)
	if err != nil {
		return stats, fmt.Errorf("ошибка запроса staging для fact_order_history: %w", err)
	}
	defer rows.Close()

	batch := make([]stagedOrderHistory, 0, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if aborted() {
			return models.ErrAborted
		}
		if err := l.insertOrderHistory(batch, dates, times, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		row := stagedOrderHistory{}
		if err := rows.Scan(&row.orderHistoryID, &row.orderID, &row.orderStateID, &row.changedAt); err != nil {
			return stats, fmt.Errorf("ошибка чтения staged-события истории заказа: %w", err)
		}

		stateSK, ok := states[strconv.FormatInt(row.orderStateID, 10)]
		if !ok {
			stats.Skipped++
			continue
		}
		row.orderStateSK = stateSK

		batch = append(batch, row)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("ошибка после итерации по staged-событиям истории заказов: %w", err)
	}

	if err := flush(); err != nil {
		return stats, err
	}

	l.logger.Info("Загрузка fact_order_history завершена за %v: вставлено %d, пропущено %d",
		time.Since(startTime), stats.Inserted, stats.Skipped)
	return stats, nil
}

// insertOrderHistory вставляет события пакета, отсутствующие в таблице фактов
func (l *FactLoader) insertOrderHistory(batch []stagedOrderHistory, dates map[string]int64, times map[int]int64, stats *FactStats) error {
	keys := make([][]int64, len(batch))
	for i, row := range batch {
		keys[i] = []int64{row.orderHistoryID, row.orderID, row.orderStateID}
	}

	existing, err := existingFactKeys(l.dwhDB, "fact_order_history",
		[]string{"orderhistoryid_bk", "orderid_bk", "orderstateid_bk"}, keys)
	if err != nil {
		return err
	}

	for _, row := range batch {
		key := naturalKey(row.orderHistoryID, row.orderID, row.orderStateID)
		if existing[key] {
			continue
		}
		existing[key] = true

		var dateKey, timeKey int64
		if row.changedAt.Valid {
			dateKey, timeKey = resolveDateTime(dates, times, row.changedAt.Time)
		}

		_, err := l.dwhDB.Exec(`
			INSERT INTO fact_order_history (orderhistoryid_bk, orderstate_sk, orderid_bk, orderstateid_bk, date_sk, time_sk)
			VALUES (?, ?, ?, ?, ?, ?)`,
			row.orderHistoryID, row.orderStateSK, row.orderID, row.orderStateID, dateKey, timeKey)
		if err != nil {
			return fmt.Errorf("ошибка вставки в fact_order_history: %w", err)
		}
		stats.Inserted++
	}

	return nil
}
