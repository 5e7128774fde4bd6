package load

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// BridgeLoader загружает связи товар↔атрибут в мостовую таблицу.
// Связь либо существует, либо нет: версионирования и обновлений здесь нет,
// пара суррогатных ключей вставляется один раз.
type BridgeLoader struct {
	stageDB   *sql.DB
	dwhDB     *sql.DB
	logger    *utils.ETLLogger
	resolver  *KeyResolver
	batchSize int
}

// NewBridgeLoader создает новый экземпляр BridgeLoader
func NewBridgeLoader(stageDB, dwhDB *sql.DB, logger *utils.ETLLogger, batchSize int) *BridgeLoader {
	return &BridgeLoader{
		stageDB:   stageDB,
		dwhDB:     dwhDB,
		logger:    logger,
		resolver:  NewKeyResolver(dwhDB),
		batchSize: batchSize,
	}
}

// stagedBridgeRow — одна staged-связь с разрешенными суррогатными ключами
type stagedBridgeRow struct {
	productAttributeID int64
	attributeID        int64
	productSK          int64
	attributeSK        int64
}

// productKeysByAttributeID строит поиск суррогатного ключа товара по
// идентификатору комбинации атрибутов (правая часть составного бизнес-ключа)
func (b *BridgeLoader) productKeysByAttributeID() (map[int64]int64, error) {
	keys, err := b.resolver.CurrentKeys("dim_product", "product_key", []string{"productattributeid_bk"})
	if err != nil {
		return nil, err
	}

	result := make(map[int64]int64, len(keys))
	for bk, sk := range keys {
		id, err := strconv.ParseInt(bk, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("некорректный productattributeid_bk %q в dim_product: %w", bk, err)
		}
		result[id] = sk
	}
	return result, nil
}

// Load переносит связи товар↔атрибут в bridge_product_attribute.
// Пары с неразрешенными ключами измерений считаются пропущенными.
func (b *BridgeLoader) Load(aborted func() bool) (FactStats, error) {
	var stats FactStats

	b.logger.Info("Загрузка bridge_product_attribute началась")
	startTime := time.Now()

	products, err := b.productKeysByAttributeID()
	if err != nil {
		return stats, err
	}
	attributes, err := b.resolver.CurrentKeys("dim_attribute", "attribute_key", []string{"attributeid_bk"})
	if err != nil {
		return stats, err
	}

	rows, err := b.stageDB.Query(`
		SELECT pac.id_product_attribute, pac.id_attribute
		FROM sg_product_attribute_combination pac
		ORDER BY pac.id_product_attribute`)
	if err != nil {
		return stats, fmt.Errorf("ошибка запроса staging для bridge_product_attribute: %w", err)
	}
	defer rows.Close()

	batch := make([]stagedBridgeRow, 0, b.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if aborted() {
			return models.ErrAborted
		}
		if err := b.insertBatch(batch, &stats); err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		var productAttributeID, attributeID int64
		if err := rows.Scan(&productAttributeID, &attributeID); err != nil {
			return stats, fmt.Errorf("ошибка чтения staged-связи: %w", err)
		}

		productSK, okProduct := products[productAttributeID]
		attributeSK, okAttribute := attributes[strconv.FormatInt(attributeID, 10)]
		if !okProduct || !okAttribute {
			stats.Skipped++
			continue
		}

		batch = append(batch, stagedBridgeRow{
			productAttributeID: productAttributeID,
			attributeID:        attributeID,
			productSK:          productSK,
			attributeSK:        attributeSK,
		})
		if len(batch) >= b.batchSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}

	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("ошибка после итерации по staged-связям: %w", err)
	}

	if err := flush(); err != nil {
		return stats, err
	}

	b.logger.Info("Загрузка bridge_product_attribute завершена за %v: вставлено %d, пропущено %d",
		time.Since(startTime), stats.Inserted, stats.Skipped)
	return stats, nil
}

// insertBatch вставляет связи пакета, отсутствующие в мостовой таблице
func (b *BridgeLoader) insertBatch(batch []stagedBridgeRow, stats *FactStats) error {
	keys := make([][]int64, len(batch))
	for i, row := range batch {
		keys[i] = []int64{row.productSK, row.attributeSK}
	}

	existing, err := existingFactKeys(b.dwhDB, "bridge_product_attribute",
		[]string{"product_sk", "attribute_sk"}, keys)
	if err != nil {
		return err
	}

	for _, row := range batch {
		key := naturalKey(row.productSK, row.attributeSK)
		if existing[key] {
			continue
		}
		existing[key] = true

		_, err := b.dwhDB.Exec(`
			INSERT INTO bridge_product_attribute (product_sk, attribute_sk, productattributeid_bk, attributeid_bk)
			VALUES (?, ?, ?, ?)`,
			row.productSK, row.attributeSK, row.productAttributeID, row.attributeID)
		if err != nil {
			return fmt.Errorf("ошибка вставки в bridge_product_attribute: %w", err)
		}
		stats.Inserted++
	}

	return nil
}
