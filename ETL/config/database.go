package config

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
)

// DBConnections содержит подключения к базам данных конвейера
type DBConnections struct {
	ProdDB  *sql.DB
	StageDB *sql.DB
	DWHDB   *sql.DB
}

// buildDSN формирует строку подключения MySQL
func buildDSN(dbConfig DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.DBName,
	)
}

// openDatabase открывает подключение к базе данных и проверяет его
func openDatabase(dbConfig DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(dbConfig.Driver, buildDSN(dbConfig))
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия подключения к %s: %w", dbConfig.DBName, err)
	}

	// Настройка параметров пула подключений
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Проверка подключения
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось установить соединение с %s: %w", dbConfig.DBName, err)
	}

	return db, nil
}

// ConnectDatabases устанавливает подключения к продакшн, staging и DWH базам данных
func ConnectDatabases(config ETLConfig) (*DBConnections, error) {
	var connections DBConnections
	var err error

	// Подключение к продакшн базе данных (исходная)
	connections.ProdDB, err = openDatabase(config.ProdConfig)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к продакшн базе данных: %w", err)
	}

	// Подключение к staging базе данных (промежуточная)
	connections.StageDB, err = openDatabase(config.StageConfig)
	if err != nil {
		connections.ProdDB.Close()
		return nil, fmt.Errorf("ошибка подключения к staging базе данных: %w", err)
	}

	// Подключение к DWH базе данных (целевая)
	connections.DWHDB, err = openDatabase(config.DWHConfig)
	if err != nil {
		connections.ProdDB.Close()
		connections.StageDB.Close()
		return nil, fmt.Errorf("ошибка подключения к DWH базе данных: %w", err)
	}

	log.Println("Успешное подключение к базам данных ProdDB, StageDB и DWHDB")
	return &connections, nil
}

// CloseDatabases закрывает подключения к базам данных
func CloseDatabases(connections *DBConnections) {
	if connections.ProdDB != nil {
		if err := connections.ProdDB.Close(); err != nil {
			log.Printf("Ошибка при закрытии соединения с продакшн базой данных: %v", err)
		}
	}

	if connections.StageDB != nil {
		if err := connections.StageDB.Close(); err != nil {
			log.Printf("Ошибка при закрытии соединения со staging базой данных: %v", err)
		}
	}

	if connections.DWHDB != nil {
		if err := connections.DWHDB.Close(); err != nil {
			log.Printf("Ошибка при закрытии соединения с DWH базой данных: %v", err)
		}
	}

	log.Println("Соединения с базами данных закрыты")
}

// ConnectRedis устанавливает подключение к Redis
func ConnectRedis(config RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})

	// Проверка подключения
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("не удалось установить соединение с Redis: %w", err)
	}

	log.Println("Успешное подключение к Redis")
	return client, nil
}
