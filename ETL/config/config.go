package config

import (
	"os"
	"strconv"
	"time"
)

// ETLConfig содержит конфигурацию для конвейера загрузки хранилища данных
type ETLConfig struct {
	// Конфигурация для подключения к продакшн БД (исходной, OLTP)
	ProdConfig DatabaseConfig `json:"prod_config"`

	// Конфигурация для подключения к промежуточной БД (staging)
	StageConfig DatabaseConfig `json:"stage_config"`

	// Конфигурация для подключения к хранилищу данных (DWH)
	DWHConfig DatabaseConfig `json:"dwh_config"`

	// Конфигурация Redis (очередь задач, блокировка, флаги отмены)
	RedisConfig RedisConfig `json:"redis_config"`

	// Интервал планового запуска конвейера
	RunInterval time.Duration `json:"run_interval"`

	// Размер пакета при извлечении данных в staging
	ExtractBatchSize int `json:"extract_batch_size"`

	// Размер пакета при слиянии измерений и загрузке фактов
	MergeBatchSize int `json:"merge_batch_size"`

	// Диапазон дат календарного измерения
	CalendarStart time.Time `json:"calendar_start"`
	CalendarEnd   time.Time `json:"calendar_end"`

	// Время удержания блокировки конвейера
	LockTTL time.Duration `json:"lock_ttl"`

	// Адрес HTTP API
	ServerAddr string `json:"server_addr"`

	// Включение/отключение детального логирования
	EnableDetailedLogging bool `json:"enable_detailed_logging"`
}

// DatabaseConfig содержит настройки подключения к базе данных
type DatabaseConfig struct {
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

// RedisConfig содержит настройки подключения к Redis
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// Значения конфигурации по умолчанию
var (
	DefaultProdConfig = DatabaseConfig{
		Driver: "mysql",
		Host:   "localhost",
		Port:   3306,
		User:   "root",
		DBName: "dma_db",
	}

	DefaultStageConfig = DatabaseConfig{
		Driver: "mysql",
		Host:   "localhost",
		Port:   3306,
		User:   "root",
		DBName: "dma_stage",
	}

	DefaultDWHConfig = DatabaseConfig{
		Driver: "mysql",
		Host:   "localhost",
		Port:   3306,
		User:   "root",
		DBName: "dma_dwh",
	}

	DefaultRedisConfig = RedisConfig{
		Host: "localhost",
		Port: 6379,
		DB:   0,
	}

	DefaultETLConfig = ETLConfig{
		ProdConfig:            DefaultProdConfig,
		StageConfig:           DefaultStageConfig,
		DWHConfig:             DefaultDWHConfig,
		RedisConfig:           DefaultRedisConfig,
		RunInterval:           24 * time.Hour,
		ExtractBatchSize:      50000,
		MergeBatchSize:        10000,
		CalendarStart:         time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		CalendarEnd:           time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC),
		LockTTL:               2 * time.Hour,
		ServerAddr:            ":8085",
		EnableDetailedLogging: true,
	}
)

// GetConfig возвращает конфигурацию ETL с учетом переменных окружения
func GetConfig() ETLConfig {
	config := DefaultETLConfig

	// Переопределение учетных данных подключений из окружения
	applyEnvOverrides(&config.ProdConfig, "DWH_PROD")
	applyEnvOverrides(&config.StageConfig, "DWH_STAGE")
	applyEnvOverrides(&config.DWHConfig, "DWH_TARGET")

	if host := os.Getenv("DWH_REDIS_HOST"); host != "" {
		config.RedisConfig.Host = host
	}
	if port := os.Getenv("DWH_REDIS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.RedisConfig.Port = p
		}
	}
	if password := os.Getenv("DWH_REDIS_PASSWORD"); password != "" {
		config.RedisConfig.Password = password
	}

	if addr := os.Getenv("DWH_SERVER_ADDR"); addr != "" {
		config.ServerAddr = addr
	}

	return config
}

// applyEnvOverrides переопределяет настройки подключения к БД из переменных
// окружения с заданным префиксом (например DWH_PROD_HOST, DWH_PROD_USER)
func applyEnvOverrides(dbConfig *DatabaseConfig, prefix string) {
	if host := os.Getenv(prefix + "_HOST"); host != "" {
		dbConfig.Host = host
	}
	if port := os.Getenv(prefix + "_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			dbConfig.Port = p
		}
	}
	if user := os.Getenv(prefix + "_USER"); user != "" {
		dbConfig.User = user
	}
	if password := os.Getenv(prefix + "_PASSWORD"); password != "" {
		dbConfig.Password = password
	}
	if name := os.Getenv(prefix + "_NAME"); name != "" {
		dbConfig.DBName = name
	}
}
