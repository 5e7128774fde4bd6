package load

import (
	"database/sql"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/config"
	"github.com/LilVoxy/coursework_dwh/ETL/transform"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// LoadStats — сводный результат инкрементальной загрузки хранилища
type LoadStats struct {
	// Статистика слияния по каждому измерению
	Dimensions map[string]MergeStats

	// Статистика мостовой таблицы и фактов
	Bridge       FactStats
	CartLines    FactStats
	OrderLines   FactStats
	OrderHistory FactStats
	Orders       FactStats
}

// Processed возвращает общее число обработанных строк
func (s LoadStats) Processed() int {
	total := 0
	for _, dim := range s.Dimensions {
		total += dim.Processed()
	}
	total += s.Bridge.Inserted + s.CartLines.Inserted + s.OrderLines.Inserted +
		s.OrderHistory.Inserted + s.Orders.Inserted
	return total
}

// Skipped возвращает общее число строк, пропущенных из-за неразрешенных ключей
func (s LoadStats) Skipped() int {
	return s.Bridge.Skipped + s.CartLines.Skipped + s.OrderLines.Skipped +
		s.OrderHistory.Skipped + s.Orders.Skipped
}

// LoadManager выполняет инкрементальную загрузку хранилища в фиксированном
// порядке: календарь, измерения, мостовая таблица, факты. Факты разрешают
// суррогатные ключи по измерениям, поэтому порядок менять нельзя.
type LoadManager struct {
	stageDB *sql.DB
	dwhDB   *sql.DB
	logger  *utils.ETLLogger

	calendar *transform.CalendarGenerator
	merger   *DimensionMerger
	bridge   *BridgeLoader
	facts    *FactLoader
}

// NewLoadManager создает новый экземпляр LoadManager
func NewLoadManager(stageDB, dwhDB *sql.DB, logger *utils.ETLLogger, cfg config.ETLConfig) *LoadManager {
	return &LoadManager{
		stageDB:  stageDB,
		dwhDB:    dwhDB,
		logger:   logger,
		calendar: transform.NewCalendarGenerator(dwhDB, logger, cfg.CalendarStart, cfg.CalendarEnd),
		merger:   NewDimensionMerger(stageDB, dwhDB, logger, cfg.MergeBatchSize),
		bridge:   NewBridgeLoader(stageDB, dwhDB, logger, cfg.MergeBatchSize),
		facts:    NewFactLoader(stageDB, dwhDB, logger, cfg.MergeBatchSize),
	}
}

// RunIncremental выполняет полный цикл инкрементальной загрузки хранилища.
// При отмене возвращает models.ErrAborted вместе с накопленной статистикой:
// уже примененные строки остаются в хранилище, повторный запуск безопасен.
func (m *LoadManager) RunIncremental(aborted func() bool) (LoadStats, error) {
	stats := LoadStats{Dimensions: make(map[string]MergeStats)}

	m.logger.LogWarehouseLoadStart()
	startTime := time.Now()

	// Шаг 1: календарные измерения (идемпотентно, заполняются один раз)
	if err := m.calendar.EnsureDateDimension(); err != nil {
		return stats, err
	}
	if err := m.calendar.EnsureTimeDimension(); err != nil {
		return stats, err
	}

	// Шаг 2: SCD-слияние измерений
	for _, spec := range DimensionSpecs() {
		dimStats, err := m.merger.Merge(spec, aborted)
		stats.Dimensions[spec.Name] = dimStats
		if err != nil {
			return stats, err
		}
	}

	// Шаг 3: мостовая таблица товар↔атрибут
	bridgeStats, err := m.bridge.Load(aborted)
	stats.Bridge = bridgeStats
	if err != nil {
		return stats, err
	}

	// Шаг 4: факты
	cartStats, err := m.facts.LoadCartLines(aborted)
	stats.CartLines = cartStats
	if err != nil {
		return stats, err
	}

	orderLineStats, err := m.facts.LoadOrderLines(aborted)
	stats.OrderLines = orderLineStats
	if err != nil {
		return stats, err
	}

	historyStats, err := m.facts.LoadOrderHistory(aborted)
	stats.OrderHistory = historyStats
	if err != nil {
		return stats, err
	}

	// Шаг 5: агрегат заголовков заказов поверх загруженных строк
	orderStats, err := m.facts.LoadOrderFacts(aborted)
	stats.Orders = orderStats
	if err != nil {
		return stats, err
	}

	m.logger.LogWarehouseLoadComplete(stats.Processed(), stats.Skipped(), time.Since(startTime))
	return stats, nil
}
