package models

import (
	"database/sql"
	"fmt"
	"time"
)

// MySQLEtlLogRepository реализация EtlLogRepository для MySQL
type MySQLEtlLogRepository struct {
	db *sql.DB
}

// NewMySQLEtlLogRepository создает новый экземпляр MySQLEtlLogRepository
func NewMySQLEtlLogRepository(db *sql.DB) *MySQLEtlLogRepository {
	return &MySQLEtlLogRepository{
		db: db,
	}
}

// CreateEtlLogTable создает таблицу журнала запусков, если она не существует
func (r *MySQLEtlLogRepository) CreateEtlLogTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS etl_log (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		job_name VARCHAR(255) NOT NULL,
		task_id VARCHAR(36),
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP NULL,
		status ENUM('RUNNING', 'SUCCESS', 'FAILED', 'REVOKED') NOT NULL DEFAULT 'RUNNING',
		message TEXT,
		tables_processed INT DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := r.db.Exec(query)
	if err != nil {
		return fmt.Errorf("ошибка при создании таблицы etl_log: %w", err)
	}

	return nil
}

// CreateLogEntry создает новую запись о запуске задачи в статусе RUNNING
func (r *MySQLEtlLogRepository) CreateLogEntry(jobName, taskID string, startedAt time.Time) (int64, error) {
	query := `
	INSERT INTO etl_log (job_name, task_id, started_at, status)
	VALUES (?, ?, ?, 'RUNNING')
	`

	result, err := r.db.Exec(query, jobName, taskID, startedAt)
	if err != nil {
		return 0, fmt.Errorf("ошибка при создании записи о запуске задачи: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ошибка при получении ID созданной записи: %w", err)
	}

	return id, nil
}

// finishLogEntry переводит запись в конечный статус
func (r *MySQLEtlLogRepository) finishLogEntry(id int64, status string, endedAt time.Time, message string, tablesProcessed int) error {
	query := `
	UPDATE etl_log
	SET status = ?,
		ended_at = ?,
		message = ?,
		tables_processed = ?
	WHERE id = ?
	`

	_, err := r.db.Exec(query, status, endedAt, message, tablesProcessed, id)
	if err != nil {
		return fmt.Errorf("ошибка при обновлении записи журнала %d: %w", id, err)
	}

	return nil
}

// MarkSuccess переводит запись в статус SUCCESS
func (r *MySQLEtlLogRepository) MarkSuccess(id int64, endedAt time.Time, message string, tablesProcessed int) error {
	return r.finishLogEntry(id, StatusSuccess, endedAt, message, tablesProcessed)
}

// MarkFailure переводит запись в статус FAILED с текстом ошибки
func (r *MySQLEtlLogRepository) MarkFailure(id int64, endedAt time.Time, message string) error {
	return r.finishLogEntry(id, StatusFailed, endedAt, message, 0)
}

// MarkRevoked переводит запись в статус REVOKED
func (r *MySQLEtlLogRepository) MarkRevoked(id int64, endedAt time.Time, message string, tablesProcessed int) error {
	return r.finishLogEntry(id, StatusRevoked, endedAt, message, tablesProcessed)
}

// scanLogRows читает строки журнала из результата запроса
func scanLogRows(rows *sql.Rows) ([]EtlRunLog, error) {
	var entries []EtlRunLog
	for rows.Next() {
		var entry EtlRunLog
		var taskID sql.NullString
		var endedAt sql.NullTime
		var message sql.NullString
		var tablesProcessed sql.NullInt64

		if err := rows.Scan(&entry.ID, &entry.JobName, &taskID, &entry.StartedAt, &endedAt, &entry.Status, &message, &tablesProcessed); err != nil {
			return nil, fmt.Errorf("ошибка при чтении записи журнала: %w", err)
		}

		entry.TaskID = taskID.String
		if endedAt.Valid {
			entry.EndedAt = endedAt.Time
		}
		entry.Message = message.String
		entry.TablesProcessed = int(tablesProcessed.Int64)

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка после итерации по записям журнала: %w", err)
	}

	return entries, nil
}

// GetByTaskID получает записи журнала по идентификатору задачи
func (r *MySQLEtlLogRepository) GetByTaskID(taskID string) ([]EtlRunLog, error) {
	query := `
	SELECT id, job_name, task_id, started_at, ended_at, status, message, tables_processed
	FROM etl_log
	WHERE task_id = ?
	ORDER BY id
	`

	rows, err := r.db.Query(query, taskID)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе журнала по task_id %s: %w", taskID, err)
	}
	defer rows.Close()

	return scanLogRows(rows)
}

// GetRecentRuns получает записи журнала за последние N дней
func (r *MySQLEtlLogRepository) GetRecentRuns(days int) ([]EtlRunLog, error) {
	query := `
	SELECT id, job_name, task_id, started_at, ended_at, status, message, tables_processed
	FROM etl_log
	WHERE started_at >= DATE_SUB(NOW(), INTERVAL ? DAY)
	ORDER BY started_at DESC
	`

	rows, err := r.db.Query(query, days)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе журнала за %d дней: %w", days, err)
	}
	defer rows.Close()

	return scanLogRows(rows)
}

// GetLastSuccessfulRun получает последний успешный запуск задачи
func (r *MySQLEtlLogRepository) GetLastSuccessfulRun(jobName string) (*EtlRunLog, error) {
	query := `
	SELECT id, job_name, task_id, started_at, ended_at, status, message, tables_processed
	FROM etl_log
	WHERE job_name = ? AND status = 'SUCCESS'
	ORDER BY ended_at DESC
	LIMIT 1
	`

	rows, err := r.db.Query(query, jobName)
	if err != nil {
		return nil, fmt.Errorf("ошибка при запросе последнего успешного запуска %s: %w", jobName, err)
	}
	defer rows.Close()

	entries, err := scanLogRows(rows)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, nil
	}

	return &entries[0], nil
}
