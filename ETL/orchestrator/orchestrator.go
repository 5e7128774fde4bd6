package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LilVoxy/coursework_dwh/ETL/load"
	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// ErrAlreadyRunning возвращается при попытке запустить конвейер,
// когда предыдущий запуск еще не завершился
var ErrAlreadyRunning = errors.New("конвейер уже выполняется")

// StageReloader перезагружает staging-слой из продакшн БД
type StageReloader interface {
	ReloadAll(aborted func() bool) (int, int64, error)
}

// WarehouseLoader выполняет инкрементальную загрузку хранилища
type WarehouseLoader interface {
	RunIncremental(aborted func() bool) (load.LoadStats, error)
}

// PipelineRun — идентификаторы поставленного в очередь запуска конвейера
type PipelineRun struct {
	PipelineID  string `json:"pipeline_id"`
	StageTaskID string `json:"stage_task_id"`
	LoadTaskID  string `json:"load_task_id"`
}

// Orchestrator управляет жизненным циклом запусков конвейера: ставит цепочку
// задач в очередь, выполняет их в воркере, ведет журнал запусков и следит
// за единственностью активного запуска.
type Orchestrator struct {
	queue     TaskQueue
	lock      RunLock
	cancel    CancelSignal
	logs      models.EtlLogRepository
	stage     StageReloader
	warehouse WarehouseLoader
	logger    *utils.ETLLogger
}

// NewOrchestrator создает новый экземпляр Orchestrator
func NewOrchestrator(
	queue TaskQueue,
	lock RunLock,
	cancel CancelSignal,
	logs models.EtlLogRepository,
	stage StageReloader,
	warehouse WarehouseLoader,
	logger *utils.ETLLogger,
) *Orchestrator {
	return &Orchestrator{
		queue:     queue,
		lock:      lock,
		cancel:    cancel,
		logs:      logs,
		stage:     stage,
		warehouse: warehouse,
		logger:    logger,
	}
}

// SubmitPipeline ставит в очередь цепочку задач полного запуска конвейера:
// перезагрузка staging, затем инкрементальная загрузка хранилища.
// Если конвейер уже выполняется, возвращает ErrAlreadyRunning.
func (o *Orchestrator) SubmitPipeline(ctx context.Context) (PipelineRun, error) {
	pipelineID := uuid.New().String()

	acquired, err := o.lock.Acquire(ctx, pipelineID)
	if err != nil {
		return PipelineRun{}, err
	}
	if !acquired {
		return PipelineRun{}, ErrAlreadyRunning
	}

	loadTask := NewTask(models.JobDWHIncremental, pipelineID)
	stageTask := NewTask(models.JobStageReload, pipelineID)
	stageTask.Next = &loadTask

	if err := o.queue.Enqueue(ctx, stageTask); err != nil {
		if releaseErr := o.lock.Release(ctx, pipelineID); releaseErr != nil {
			o.logger.Error("Не удалось снять блокировку после ошибки постановки: %v", releaseErr)
		}
		return PipelineRun{}, err
	}

	o.logger.Info("Запуск конвейера %s поставлен в очередь (задачи %s -> %s)",
		pipelineID, stageTask.ID, loadTask.ID)

	return PipelineRun{
		PipelineID:  pipelineID,
		StageTaskID: stageTask.ID,
		LoadTaskID:  loadTask.ID,
	}, nil
}

// Cancel запрашивает отмену задачи. Отмена кооперативная: выполняющийся
// воркер заметит флаг на ближайшей границе пакета.
func (o *Orchestrator) Cancel(ctx context.Context, taskID string) error {
	return o.cancel.RequestCancel(ctx, taskID)
}

// Status возвращает записи журнала по идентификатору задачи.
// Пустой срез означает, что задача еще не начала выполняться.
func (o *Orchestrator) Status(taskID string) ([]models.EtlRunLog, error) {
	return o.logs.GetByTaskID(taskID)
}

// Run — цикл воркера: забирает задачи из очереди и выполняет их
// до отмены контекста
func (o *Orchestrator) Run(ctx context.Context) {
	o.logger.Info("Воркер конвейера запущен")

	for {
		if ctx.Err() != nil {
			o.logger.Info("Воркер конвейера остановлен")
			return
		}

		task, ok, err := o.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				o.logger.Info("Воркер конвейера остановлен")
				return
			}
			o.logger.Error("Ошибка чтения из очереди задач: %v", err)
			time.Sleep(dequeueTimeout)
			continue
		}
		if !ok {
			continue
		}

		o.executeTask(ctx, task)
	}
}

// RunUntilIdle выполняет задачи, пока очередь не опустеет.
// Используется в одиночном режиме запуска без постоянного воркера.
func (o *Orchestrator) RunUntilIdle(ctx context.Context) error {
	for {
		task, ok, err := o.queue.Dequeue(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		o.executeTask(ctx, task)
	}
}

// executeTask выполняет одну задачу: ведет журнал, передает заданию флаг
// отмены, по результату ставит следующую задачу цепочки или снимает
// блокировку запуска
func (o *Orchestrator) executeTask(ctx context.Context, task Task) {
	logID, err := o.logs.CreateLogEntry(task.Job, task.ID, time.Now())
	if err != nil {
		o.logger.Error("Не удалось создать запись журнала для задачи %s: %v", task.ID, err)
		o.releaseLock(ctx, task.PipelineID)
		return
	}

	aborted := func() bool {
		if ctx.Err() != nil {
			return true
		}
		cancelled, err := o.cancel.IsCancelled(ctx, task.ID)
		if err != nil {
			o.logger.Error("Ошибка проверки флага отмены задачи %s: %v", task.ID, err)
			return false
		}
		return cancelled
	}

	// Продлеваем блокировку запуска на время выполнения задачи
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	go o.keepLockAlive(refreshCtx, task.PipelineID)

	message, processed, runErr := o.runJob(task.Job, aborted)
	stopRefresh()
	endedAt := time.Now()

	switch {
	case errors.Is(runErr, models.ErrAborted):
		o.logger.Info("Задача %s (%s) отменена", task.ID, task.Job)
		if err := o.logs.MarkRevoked(logID, endedAt, "задача отменена по запросу", processed); err != nil {
			o.logger.Error("Не удалось отметить отмену задачи %s: %v", task.ID, err)
		}
		o.clearCancelFlag(task.ID)
		o.releaseLock(ctx, task.PipelineID)

	case runErr != nil:
		o.logger.Error("Задача %s (%s) завершилась ошибкой: %v", task.ID, task.Job, runErr)
		if err := o.logs.MarkFailure(logID, endedAt, runErr.Error()); err != nil {
			o.logger.Error("Не удалось отметить ошибку задачи %s: %v", task.ID, err)
		}
		o.clearCancelFlag(task.ID)
		o.releaseLock(ctx, task.PipelineID)

	default:
		if err := o.logs.MarkSuccess(logID, endedAt, message, processed); err != nil {
			o.logger.Error("Не удалось отметить успех задачи %s: %v", task.ID, err)
		}
		o.clearCancelFlag(task.ID)

		if task.Next != nil {
			if err := o.queue.Enqueue(ctx, *task.Next); err != nil {
				o.logger.Error("Не удалось поставить следующую задачу %s: %v", task.Next.ID, err)
				o.releaseLock(ctx, task.PipelineID)
			}
			return
		}
		o.releaseLock(ctx, task.PipelineID)
	}
}

// runJob выполняет задание по имени и возвращает итоговое сообщение
// и счетчик обработанного
func (o *Orchestrator) runJob(job string, aborted func() bool) (string, int, error) {
	switch job {
	case models.JobStageReload:
		tables, rows, err := o.stage.ReloadAll(aborted)
		if err != nil {
			return "", tables, err
		}
		return fmt.Sprintf("перезагружено таблиц: %d, строк: %d", tables, rows), tables, nil

	case models.JobDWHIncremental:
		stats, err := o.warehouse.RunIncremental(aborted)
		if err != nil {
			return "", stats.Processed(), err
		}
		return fmt.Sprintf("обработано строк: %d, пропущено: %d", stats.Processed(), stats.Skipped()), stats.Processed(), nil

	default:
		return "", 0, fmt.Errorf("неизвестное задание: %s", job)
	}
}

// keepLockAlive периодически продлевает блокировку запуска до отмены контекста
func (o *Orchestrator) keepLockAlive(ctx context.Context, pipelineID string) {
	ticker := time.NewTicker(lockRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			held, err := o.lock.Refresh(ctx, pipelineID)
			if err != nil {
				o.logger.Error("Ошибка продления блокировки запуска %s: %v", pipelineID, err)
				continue
			}
			if !held {
				o.logger.Error("Блокировка запуска %s утрачена во время выполнения", pipelineID)
				return
			}
		}
	}
}

// releaseLock снимает блокировку запуска конвейера
func (o *Orchestrator) releaseLock(ctx context.Context, pipelineID string) {
	if err := o.lock.Release(ctx, pipelineID); err != nil {
		o.logger.Error("Не удалось снять блокировку запуска %s: %v", pipelineID, err)
	}
}

// clearCancelFlag снимает флаг отмены завершившейся задачи
func (o *Orchestrator) clearCancelFlag(taskID string) {
	if err := o.cancel.Clear(context.Background(), taskID); err != nil {
		o.logger.Error("Не удалось снять флаг отмены задачи %s: %v", taskID, err)
	}
}
