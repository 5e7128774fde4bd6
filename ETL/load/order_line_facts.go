package load

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
)

// stagedOrderLine — одна staged-строка заказа с мерами и ссылками
type stagedOrderLine struct {
	orderID       int64
	orderDetailID int64
	cartID        int64
	productSK     int64
	customerSK    int64
	addressSK     sql.NullInt64
	placedAt      sql.NullTime

	quantity       int64
	price          sql.NullString
	priceTaxIncl   sql.NullString
	amount         sql.NullString
	amountTaxIncl  sql.NullString
	paid           sql.NullString
	paidTaxIncl    sql.NullString
	taxRate        sql.NullString
	conversionRate sql.NullString
	carrier        sql.NullString
	paymentType    sql.NullString
}

// LoadOrderLines загружает строки заказов в fact_order_line.
// Натуральный ключ факта — (orderid_bk, orderdetailid_bk, product_sk).
// Адрес доставки — необязательная ссылка: неразрешенный адрес дает NULL,
// а не пропуск строки.
func (l *FactLoader) LoadOrderLines(aborted func() bool) (FactStats, error) {
	var stats FactStats

	l.logger.Info("Загрузка fact_order_line началась")
	startTime := time.Now()

	products, err := l.resolver.CurrentKeys("dim_product", "product_key", []string{"productid_bk", "productattributeid_bk"})
	if err != nil {
		return stats, err
	}
	customers, err := l.resolver.CurrentKeys("dim_customer", "customer_key", []string{"customerid_bk"})
	if err != nil {
		return stats, err
	}
	addresses, err := l.resolver.CurrentKeys("dim_address", "address_key", []string{"addressid_bk"})
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
			od.id_order,
			od.id_order_detail,
			o.id_cart,
			od.product_id,
			COALESCE(od.product_attribute_id, 0),
			o.id_customer,
			COALESCE(o.id_address_delivery, 0),
			o.date_add,
			od.product_quantity,
			od.unit_price_tax_excl,
			od.unit_price_tax_incl,
			od.total_price_tax_excl,
			od.total_price_tax_incl,
			o.total_paid_tax_excl,
			o.total_paid_tax_incl,
			od.tax_rate,
			o.conversion_rate,
			o.carrier,
			o.payment
		FROM sg_order_detail od
		JOIN sg_orders o ON o.id_order = od.id_order
		ORDER BY o.date_add`)
	if err != nil {
		return stats, fmt.Errorf("ошибка запроса staging для fact_order_line: %w", err)
	}
	defer rows.Close()

	batch := make([]stagedOrderLine, 0, l.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if aborted() {
			return models.ErrAborted
		}
		if err := l.insertOrderLines(batch, dates, times, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var orderID, orderDetailID, cartID, productID, productAttributeID, customerID, addressID int64
		row := stagedOrderLine{}
		if err := rows.Scan(
			&orderID, &orderDetailID, &cartID, &productID, &productAttributeID,
			&customerID, &addressID, &row.placedAt, &row.quantity,
			&row.price, &row.priceTaxIncl, &row.amount, &row.amountTaxIncl,
			&row.paid, &row.paidTaxIncl, &row.taxRate, &row.conversionRate,
			&row.carrier, &row.paymentType,
		); err != nil {
			return stats, fmt.Errorf("ошибка чтения staged-строки заказа: %w", err)
		}

		productSK, okProduct := products[dimKey(strconv.FormatInt(productID, 10), strconv.FormatInt(productAttributeID, 10))]
		customerSK, okCustomer := customers[strconv.FormatInt(customerID, 10)]
		if !okProduct || !okCustomer {
			stats.Skipped++
			continue
		}

		row.orderID = orderID
		row.orderDetailID = orderDetailID
		row.cartID = cartID
		row.productSK = productSK
		row.customerSK = customerSK
		if addressSK, ok := addresses[strconv.FormatInt(addressID, 10)]; ok {
			row.addressSK = sql.NullInt64{Int64: addressSK, Valid: true}
		}
		// Пустой перевозчик хранится как NULL
		if row.carrier.Valid && row.carrier.String == "" {
			row.carrier = sql.NullString{}
		}

		batch = append(batch, row)
		if len(batch) >= l.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("ошибка после итерации по staged-строкам заказов: %w", err)
	}

	if err := flush(); err != nil {
		return stats, err
	}

	l.logger.Info("Загрузка fact_order_line завершена за %v: вставлено %d, пропущено %d",
		time.Since(startTime), stats.Inserted, stats.Skipped)
	return stats, nil
}

// insertOrderLines вставляет строки пакета, отсутствующие в таблице фактов
func (l *FactLoader) insertOrderLines(batch []stagedOrderLine, dates map[string]int64, times map[int]int64, stats *FactStats) error {
	keys := make([][]int64, len(batch))
	for i, row := range batch {
		keys[i] = []int64{row.orderID, row.orderDetailID, row.productSK}
	}

	existing, err := existingFactKeys(l.dwhDB, "fact_order_line",
		[]string{"orderid_bk", "orderdetailid_bk", "product_sk"}, keys)
	if err != nil {
		return err
	}

	for _, row := range batch {
		key := naturalKey(row.orderID, row.orderDetailID, row.productSK)
		if existing[key] {
			continue
		}
		existing[key] = true

		var dateKey, timeKey int64
		if row.placedAt.Valid {
			dateKey, timeKey = resolveDateTime(dates, times, row.placedAt.Time)
		}

		_, err := l.dwhDB.Exec(`
			INSERT INTO fact_order_line (
				orderid_bk, orderdetailid_bk, cartid_bk, product_sk, customer_sk, address_sk,
				date_sk, time_sk, quantity, price, price_tax_incl, amount, amount_tax_incl,
				paid, paid_tax_incl, taxrate, conversion_rate, carrier, paymenttype)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			row.orderID, row.orderDetailID, row.cartID, row.productSK, row.customerSK, row.addressSK,
			dateKey, timeKey, row.quantity, row.price, row.priceTaxIncl, row.amount, row.amountTaxIncl,
			row.paid, row.paidTaxIncl, row.taxRate, row.conversionRate, row.carrier, row.paymentType)
		if err != nil {
			return fmt.Errorf("ошибка вставки в fact_order_line: %w", err)
		}
		stats.Inserted++
	}

	return nil
}
