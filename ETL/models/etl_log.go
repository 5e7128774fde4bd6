package models

import (
	"time"
)

// Статусы выполнения задач конвейера
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusRevoked = "REVOKED"
)

// Имена задач конвейера
const (
	JobStageReload    = "stage_reload"
	JobDWHIncremental = "dwh_incremental"
)

// EtlRunLog представляет запись журнала о выполнении задачи конвейера
type EtlRunLog struct {
	ID              int64     `json:"id"`
	JobName         string    `json:"job_name"`
	TaskID          string    `json:"task_id"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at,omitempty"`
	Status          string    `json:"status"`
	Message         string    `json:"message,omitempty"`
	TablesProcessed int       `json:"tables_processed"`
}

// IsTerminal сообщает, находится ли запись в конечном состоянии
func (l *EtlRunLog) IsTerminal() bool {
	return l.Status == StatusSuccess || l.Status == StatusFailed || l.Status == StatusRevoked
}

// EtlLogRepository представляет репозиторий для работы с журналом запусков ETL
type EtlLogRepository interface {
	// CreateLogEntry создает новую запись о запуске задачи в статусе RUNNING
	CreateLogEntry(jobName, taskID string, startedAt time.Time) (int64, error)

	// MarkSuccess переводит запись в статус SUCCESS
	MarkSuccess(id int64, endedAt time.Time, message string, tablesProcessed int) error

	// MarkFailure переводит запись в статус FAILED с текстом ошибки
	MarkFailure(id int64, endedAt time.Time, message string) error

	// MarkRevoked переводит запись в статус REVOKED (кооперативная отмена)
	MarkRevoked(id int64, endedAt time.Time, message string, tablesProcessed int) error

	// GetByTaskID получает записи журнала по идентификатору задачи
	GetByTaskID(taskID string) ([]EtlRunLog, error)

	// GetRecentRuns получает записи журнала за последние N дней
	GetRecentRuns(days int) ([]EtlRunLog, error)

	// GetLastSuccessfulRun получает последний успешный запуск задачи
	GetLastSuccessfulRun(jobName string) (*EtlRunLog, error)
}
