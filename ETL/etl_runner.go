package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LilVoxy/coursework_dwh/ETL/config"
	"github.com/LilVoxy/coursework_dwh/ETL/extractors"
	"github.com/LilVoxy/coursework_dwh/ETL/load"
	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/orchestrator"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
	_ "github.com/go-sql-driver/mysql"
)

// ETLRunner — одиночный запуск конвейера без очереди и воркеров.
// Используется для ручных и отладочных запусков с командной строки;
// постоянный сервис с очередью задач живет в корневом main.
type ETLRunner struct {
	config        config.ETLConfig
	dbConnections *config.DBConnections
	logger        *utils.ETLLogger
	extractor     *extractors.StageExtractor
	loadManager   *load.LoadManager
	etlLogRepo    models.EtlLogRepository
}

// NewETLRunner создает новый экземпляр ETLRunner
func NewETLRunner() (*ETLRunner, error) {
	// Получаем конфигурацию
	etlConfig := config.GetConfig()

	// Инициализируем логгер
	logger := utils.NewETLLogger(etlConfig.EnableDetailedLogging)
	logger.Info("Инициализация ETL Runner")

	// Подключаемся к базам данных
	connections, err := config.ConnectDatabases(etlConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базам данных: %w", err)
	}

	// Инициализируем репозиторий журнала запусков
	etlLogRepo := models.NewMySQLEtlLogRepository(connections.DWHDB)

	// Создаем таблицу журнала, если она еще не существует
	if err := etlLogRepo.CreateEtlLogTable(); err != nil {
		return nil, fmt.Errorf("ошибка при создании таблицы журнала запусков: %w", err)
	}

	// Создаем экстрактор staging-слоя
	extractor := extractors.NewStageExtractor(connections.ProdDB, connections.StageDB, logger, etlConfig.ExtractBatchSize)

	// Создаем загрузчик хранилища
	loadManager := load.NewLoadManager(connections.StageDB, connections.DWHDB, logger, etlConfig)

	return &ETLRunner{
		config:        etlConfig,
		dbConnections: connections,
		logger:        logger,
		extractor:     extractor,
		loadManager:   loadManager,
		etlLogRepo:    etlLogRepo,
	}, nil
}

// Close закрывает соединения с базами данных
func (r *ETLRunner) Close() {
	r.logger.Info("Завершение работы ETL Runner")
	config.CloseDatabases(r.dbConnections)
}

// ExecutePipeline выполняет полный конвейер: перезагрузку staging и
// инкрементальную загрузку хранилища. Очередь, блокировка и флаги отмены
// живут в памяти процесса, Ctrl+C прерывает выполнение на границе пакета.
func (r *ETLRunner) ExecutePipeline(ctx context.Context) error {
	orch := orchestrator.NewOrchestrator(
		orchestrator.NewMemoryTaskQueue(4),
		orchestrator.NewMemoryRunLock(),
		orchestrator.NewMemoryCancelSignal(),
		r.etlLogRepo,
		r.extractor,
		r.loadManager,
		r.logger,
	)

	run, err := orch.SubmitPipeline(ctx)
	if err != nil {
		return err
	}
	r.logger.Info("Одиночный запуск конвейера %s", run.PipelineID)

	return orch.RunUntilIdle(ctx)
}

// ExecuteStageReload выполняет только перезагрузку staging-слоя
func (r *ETLRunner) ExecuteStageReload(ctx context.Context) error {
	tables, rows, err := r.extractor.ReloadAll(func() bool { return ctx.Err() != nil })
	if err != nil {
		return err
	}
	r.logger.Info("Перезагружено таблиц: %d, строк: %d", tables, rows)
	return nil
}

// ExecuteWarehouseLoad выполняет только инкрементальную загрузку хранилища
func (r *ETLRunner) ExecuteWarehouseLoad(ctx context.Context) error {
	stats, err := r.loadManager.RunIncremental(func() bool { return ctx.Err() != nil })
	if err != nil {
		return err
	}
	r.logger.Info("Обработано строк: %d, пропущено: %d", stats.Processed(), stats.Skipped())
	return nil
}

// signalContext возвращает контекст, отменяемый по сигналу завершения
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-signalCh
		log.Println("Получен сигнал завершения. Останавливаем ETL Runner...")
		cancel()
	}()

	return ctx, cancel
}

func main() {
	// Параметры командной строки
	modePtr := flag.String("mode", "pipeline", "Режим работы: pipeline, stage или dwh")

	flag.Parse()

	log.Println("Запуск ETL Runner в режиме:", *modePtr)

	runner, err := NewETLRunner()
	if err != nil {
		log.Fatalf("Ошибка при создании ETL Runner: %v", err)
	}
	defer runner.Close()

	ctx, cancel := signalContext()
	defer cancel()

	switch *modePtr {
	case "pipeline":
		err = runner.ExecutePipeline(ctx)
	case "stage":
		err = runner.ExecuteStageReload(ctx)
	case "dwh":
		err = runner.ExecuteWarehouseLoad(ctx)
	default:
		log.Println("Неизвестный режим работы:", *modePtr)
		log.Println("Доступные режимы: pipeline, stage, dwh")
		os.Exit(1)
	}

	if err != nil {
		log.Fatalf("Ошибка при выполнении ETL: %v", err)
	}

	log.Println("ETL Runner завершил работу")
}
