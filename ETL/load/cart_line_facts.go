package load

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
)

// stagedCartLine — одна staged-строка корзины
type stagedCartLine struct {
	cartID     int64
	productSK  int64
	customerSK int64
	addedAt    sql.NullTime
	quantity   int64
}

// LoadCartLines загружает строки корзин в fact_cart_line.
// Натуральный ключ факта — (cartid_bk, product_sk, customer_sk).
func (l *FactLoader) LoadCartLines(aborted func() bool) (FactStats, error) {
	var stats FactStats

	l.logger.Info("Загрузка fact_cart_line началась")
	startTime := time.Now()

	products, err := l.resolver.CurrentKeys("dim_product", "product_key", []string{"productid_bk", "productattributeid_bk"})
	if err != nil {
		return stats, err
	}
	customers, err := l.resolver.CurrentKeys("dim_customer", "customer_key", []string{"customerid_bk"})
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
			cp.id_cart,
			cp.id_product,
			COALESCE(cp.id_product_attribute, 0),
			c.id_customer,
			c.date_add,
			cp.quantity
		FROM sg_cart_product cp
		JOIN sg_cart c ON c.id_cart = cp.id_cart
		ORDER BY c.date_add`)
	if err != nil {
		return stats, fmt.Errorf("ошибка запроса staging для fact_cart_line: %w", err)
	}
	defer rows.Close()

	batch := make([]stagedCartLine, 0, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if aborted() {
			return models.ErrAborted
		}
		if err := l.insertCartLines(batch, dates, times, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var cartID, productID, productAttributeID, customerID, quantity int64
		var addedAt sql.NullTime
		if err := rows.Scan(&cartID, &productID, &productAttributeID, &customerID, &addedAt, &quantity); err != nil {
			return stats, fmt.Errorf("ошибка чтения staged-строки корзины: %w", err)
		}

		productSK, okProduct := products[dimKey(strconv.FormatInt(productID, 10), strconv.FormatInt(productAttributeID, 10))]
		customerSK, okCustomer := customers[strconv.FormatInt(customerID, 10)]
		if !okProduct || !okCustomer {
			stats.Skipped++
			continue
		}

		batch = append(batch, stagedCartLine{
			cartID:     cartID,
			productSK:  productSK,
			customerSK: customerSK,
			addedAt:    addedAt,
			quantity:   quantity,
		})
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("ошибка после итерации по staged-строкам корзин: %w", err)
	}

	if err := flush(); err != nil {
		return stats, err
	}

	l.logger.Info("Загрузка fact_cart_line завершена за %v: вставлено %d, пропущено %d",
		time.Since(startTime), stats.Inserted, stats.Skipped)
	return stats, nil
}

// insertCartLines вставляет строки пакета, отсутствующие в таблице фактов
func (l *FactLoader) insertCartLines(batch []stagedCartLine, dates map[string]int64, times map[int]int64, stats *FactStats) error {
	keys := make([][]int64, len(batch))
	for i, row := range batch {
		keys[i] = []int64{row.cartID, row.productSK, row.customerSK}
	}

	existing, err := existingFactKeys(l.dwhDB, "fact_cart_line",
		[]string{"cartid_bk", "product_sk", "customer_sk"}, keys)
	if err != nil {
		return err
	}

	for _, row := range batch {
		key := naturalKey(row.cartID, row.productSK, row.customerSK)
		if existing[key] {
			continue
		}
		existing[key] = true

		var dateKey, timeKey int64
		if row.addedAt.Valid {
			dateKey, timeKey = resolveDateTime(dates, times, row.addedAt.Time)
		}

		_, err := l.dwhDB.Exec(`
			INSERT INTO fact_cart_line (cartid_bk, product_sk, customer_sk, date_sk, time_sk, quantity)
			VALUES (?, ?, ?, ?, ?, ?)`,
			row.cartID, row.productSK, row.customerSK, dateKey, timeKey, row.quantity)
		if err != nil {
			return fmt.Errorf("ошибка вставки в fact_cart_line: %w", err)
		}
		stats.Inserted++
	}

	return nil
}
