package load

import (
	"fmt"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
)

// LoadOrderFacts строит агрегат заголовков заказов fact_order из строк
// fact_order_line. Заказ попадает в агрегат один раз: заказы, уже
// присутствующие в fact_order, исключаются анти-джойном.
func (l *FactLoader) LoadOrderFacts(aborted func() bool) (FactStats, error) {
	var stats FactStats

	if aborted() {
		return stats, models.ErrAborted
	}

	l.logger.Info("Загрузка fact_order началась")
	startTime := time.Now()

	result, err := l.dwhDB.Exec(`
		INSERT INTO fact_order (orderid_bk, customer_sk, address_sk, date_sk, time_sk,
			paid, paid_tax_incl, taxrate, conversion_rate, paymenttype, carrier)
		SELECT
			fol.orderid_bk,
			fol.customer_sk,
			fol.address_sk,
			fol.date_sk,
			fol.time_sk,
			MAX(fol.paid) AS paid,
			MAX(fol.paid_tax_incl) AS paid_tax_incl,
			MAX(fol.taxrate) AS taxrate,
			MAX(fol.conversion_rate) AS conversion_rate,
			MAX(fol.paymenttype) AS paymenttype,
			MAX(fol.carrier) AS carrier
		FROM fact_order_line fol
		WHERE NOT EXISTS (
			SELECT 1 FROM fact_order fo WHERE fo.orderid_bk = fol.orderid_bk
		)
		GROUP BY fol.orderid_bk, fol.customer_sk, fol.address_sk, fol.date_sk, fol.time_sk`)
	if err != nil {
		return stats, fmt.Errorf("ошибка построения fact_order: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err == nil {
		stats.Inserted = int(inserted)
	}

	l.logger.Info("Загрузка fact_order завершена за %v: вставлено %d",
		time.Since(startTime), stats.Inserted)
	return stats, nil
}
