// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LilVoxy/coursework_dwh/ETL/config"
	"github.com/LilVoxy/coursework_dwh/ETL/extractors"
	"github.com/LilVoxy/coursework_dwh/ETL/load"
	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/orchestrator"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
	"github.com/LilVoxy/coursework_dwh/routes"
	"github.com/go-co-op/gocron"
	_ "github.com/go-sql-driver/mysql"
	"github.com/gorilla/mux"
)

func main() {
	log.Println("Запуск сервиса загрузки хранилища...")

	// Получаем конфигурацию
	etlConfig := config.GetConfig()

	// Инициализируем логгер
	logger := utils.NewETLLogger(etlConfig.EnableDetailedLogging)

	// Подключаемся к базам данных
	connections, err := config.ConnectDatabases(etlConfig)
	if err != nil {
		log.Fatalf("Не удалось подключиться к базам данных: %v", err)
	}
	defer config.CloseDatabases(connections)

	// Подключаемся к Redis (очередь задач, блокировка, флаги отмены)
	redisClient, err := config.ConnectRedis(etlConfig.RedisConfig)
	if err != nil {
		log.Fatalf("Не удалось подключиться к Redis: %v", err)
	}
	defer redisClient.Close()

	// Инициализируем репозиторий журнала запусков
	etlLogRepo := models.NewMySQLEtlLogRepository(connections.DWHDB)
	if err := etlLogRepo.CreateEtlLogTable(); err != nil {
		log.Fatalf("Не удалось создать таблицу журнала запусков: %v", err)
	}

	// Собираем компоненты конвейера
	extractor := extractors.NewStageExtractor(connections.ProdDB, connections.StageDB, logger, etlConfig.ExtractBatchSize)
	loadManager := load.NewLoadManager(connections.StageDB, connections.DWHDB, logger, etlConfig)

	orch := orchestrator.NewOrchestrator(
		orchestrator.NewRedisTaskQueue(redisClient),
		orchestrator.NewRedisRunLock(redisClient, etlConfig.LockTTL),
		orchestrator.NewRedisCancelSignal(redisClient),
		etlLogRepo,
		extractor,
		loadManager,
		logger,
	)

	// Контекст жизни сервиса
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем воркер конвейера
	go orch.Run(ctx)

	// Плановый запуск конвейера по расписанию
	scheduler := gocron.NewScheduler(time.UTC)
	_, err = scheduler.Every(etlConfig.RunInterval).Do(func() {
		logger.Info("Плановый запуск конвейера")
		if _, err := orch.SubmitPipeline(ctx); err != nil {
			if errors.Is(err, orchestrator.ErrAlreadyRunning) {
				logger.Info("Плановый запуск пропущен: конвейер уже выполняется")
				return
			}
			logger.Error("Ошибка планового запуска конвейера: %v", err)
		}
	})
	if err != nil {
		log.Fatalf("Не удалось настроить планировщик: %v", err)
	}
	scheduler.StartAsync()

	// Создаем маршрутизатор и настраиваем API
	router := mux.NewRouter()
	routes.SetupRoutes(router, orch, etlLogRepo)

	// Настраиваем сервер
	server := &http.Server{
		Addr:         etlConfig.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запускаем сервер в отдельной горутине
	go func() {
		log.Printf("Сервер запущен на http://localhost%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Ошибка запуска сервера: %v", err)
		}
	}()

	// Канал для сигналов завершения
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Ожидаем сигнал завершения
	<-stop
	log.Println("Получен сигнал завершения, закрываем соединения...")

	// Останавливаем планировщик и воркер
	scheduler.Stop()
	cancel()

	// Даем серверу время завершить активные запросы
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Ошибка остановки сервера: %v", err)
	}

	log.Println("Сервис остановлен")
}
