package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/coursework_dwh/ETL/load"
	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// memoryLogRepo — журнал запусков в памяти для тестов
type memoryLogRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []*models.EtlRunLog
}

func newMemoryLogRepo() *memoryLogRepo {
	return &memoryLogRepo{}
}

func (r *memoryLogRepo) CreateLogEntry(jobName, taskID string, startedAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.entries = append(r.entries, &models.EtlRunLog{
		ID:        r.nextID,
		JobName:   jobName,
		TaskID:    taskID,
		StartedAt: startedAt,
		Status:    models.StatusRunning,
	})
	return r.nextID, nil
}

func (r *memoryLogRepo) finish(id int64, status string, endedAt time.Time, message string, processed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries {
		if entry.ID == id {
			entry.Status = status
			entry.EndedAt = endedAt
			entry.Message = message
			entry.TablesProcessed = processed
			return nil
		}
	}
	return errors.New("запись журнала не найдена")
}

func (r *memoryLogRepo) MarkSuccess(id int64, endedAt time.Time, message string, processed int) error {
	return r.finish(id, models.StatusSuccess, endedAt, message, processed)
}

func (r *memoryLogRepo) MarkFailure(id int64, endedAt time.Time, message string) error {
	return r.finish(id, models.StatusFailed, endedAt, message, 0)
}

func (r *memoryLogRepo) MarkRevoked(id int64, endedAt time.Time, message string, processed int) error {
	return r.finish(id, models.StatusRevoked, endedAt, message, processed)
}

func (r *memoryLogRepo) GetByTaskID(taskID string) ([]models.EtlRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.EtlRunLog
	for _, entry := range r.entries {
		if entry.TaskID == taskID {
			result = append(result, *entry)
		}
	}
	return result, nil
}

func (r *memoryLogRepo) GetRecentRuns(days int) ([]models.EtlRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]models.EtlRunLog, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, *entry)
	}
	return result, nil
}

func (r *memoryLogRepo) GetLastSuccessfulRun(jobName string) (*models.EtlRunLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].JobName == jobName && r.entries[i].Status == models.StatusSuccess {
			copied := *r.entries[i]
			return &copied, nil
		}
	}
	return nil, nil
}

// fakeStage — тестовая перезагрузка staging с управляемым исходом
type fakeStage struct {
	fail  bool
	order *[]string
}

func (f *fakeStage) ReloadAll(aborted func() bool) (int, int64, error) {
	if aborted() {
		return 0, 0, models.ErrAborted
	}
	if f.order != nil {
		*f.order = append(*f.order, models.JobStageReload)
	}
	if f.fail {
		return 0, 0, errors.New("источник недоступен")
	}
	return 21, 1000, nil
}

// fakeWarehouse — тестовая загрузка хранилища с управляемым исходом
type fakeWarehouse struct {
	fail  bool
	order *[]string
}

func (f *fakeWarehouse) RunIncremental(aborted func() bool) (load.LoadStats, error) {
	if aborted() {
		return load.LoadStats{}, models.ErrAborted
	}
	if f.order != nil {
		*f.order = append(*f.order, models.JobDWHIncremental)
	}
	if f.fail {
		return load.LoadStats{}, errors.New("хранилище недоступно")
	}
	return load.LoadStats{}, nil
}

func newTestOrchestrator(stage StageReloader, warehouse WarehouseLoader, repo models.EtlLogRepository) *Orchestrator {
	return NewOrchestrator(
		NewMemoryTaskQueue(4),
		NewMemoryRunLock(),
		NewMemoryCancelSignal(),
		repo,
		stage,
		warehouse,
		utils.NewETLLogger(false),
	)
}

func TestRunLockOwnership(t *testing.T) {
	ctx := context.Background()
	lock := NewMemoryRunLock()

	acquired, err := lock.Acquire(ctx, "first")
	require.NoError(t, err)
	require.True(t, acquired)

	// Продление доступно только текущему владельцу
	held, err := lock.Refresh(ctx, "first")
	require.NoError(t, err)
	assert.True(t, held)

	held, err = lock.Refresh(ctx, "second")
	require.NoError(t, err)
	assert.False(t, held)

	// Снятие чужим владельцем не освобождает блокировку
	require.NoError(t, lock.Release(ctx, "second"))
	acquired, err = lock.Acquire(ctx, "second")
	require.NoError(t, err)
	assert.False(t, acquired)

	require.NoError(t, lock.Release(ctx, "first"))
	acquired, err = lock.Acquire(ctx, "second")
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestSubmitPipelineSingleFlight(t *testing.T) {
	repo := newMemoryLogRepo()
	orch := newTestOrchestrator(&fakeStage{}, &fakeWarehouse{}, repo)
	ctx := context.Background()

	_, err := orch.SubmitPipeline(ctx)
	require.NoError(t, err)

	// Пока первый запуск не завершился, второй отклоняется
	_, err = orch.SubmitPipeline(ctx)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	// После завершения цепочки блокировка снимается
	require.NoError(t, orch.RunUntilIdle(ctx))
	_, err = orch.SubmitPipeline(ctx)
	assert.NoError(t, err)
}

func TestPipelineChainOrder(t *testing.T) {
	var order []string
	repo := newMemoryLogRepo()
	orch := newTestOrchestrator(&fakeStage{order: &order}, &fakeWarehouse{order: &order}, repo)
	ctx := context.Background()

	run, err := orch.SubmitPipeline(ctx)
	require.NoError(t, err)
	require.NoError(t, orch.RunUntilIdle(ctx))

	// Перезагрузка staging строго предшествует загрузке хранилища
	assert.Equal(t, []string{models.JobStageReload, models.JobDWHIncremental}, order)

	// Обе задачи завершились успешно
	stageRuns, err := repo.GetByTaskID(run.StageTaskID)
	require.NoError(t, err)
	require.Len(t, stageRuns, 1)
	assert.Equal(t, models.StatusSuccess, stageRuns[0].Status)
	assert.Equal(t, 21, stageRuns[0].TablesProcessed)

	loadRuns, err := repo.GetByTaskID(run.LoadTaskID)
	require.NoError(t, err)
	require.Len(t, loadRuns, 1)
	assert.Equal(t, models.StatusSuccess, loadRuns[0].Status)
}

func TestPipelineStageFailureStopsChain(t *testing.T) {
	var order []string
	repo := newMemoryLogRepo()
	orch := newTestOrchestrator(&fakeStage{fail: true, order: &order}, &fakeWarehouse{order: &order}, repo)
	ctx := context.Background()

	run, err := orch.SubmitPipeline(ctx)
	require.NoError(t, err)
	require.NoError(t, orch.RunUntilIdle(ctx))

	// Загрузка хранилища не запускалась
	assert.Equal(t, []string{models.JobStageReload}, order)

	stageRuns, err := repo.GetByTaskID(run.StageTaskID)
	require.NoError(t, err)
	require.Len(t, stageRuns, 1)
	assert.Equal(t, models.StatusFailed, stageRuns[0].Status)
	assert.Contains(t, stageRuns[0].Message, "источник недоступен")

	// Следующая задача цепочки не получила записи журнала
	loadRuns, err := repo.GetByTaskID(run.LoadTaskID)
	require.NoError(t, err)
	assert.Empty(t, loadRuns)

	// Блокировка снята, новый запуск возможен
	_, err = orch.SubmitPipeline(ctx)
	assert.NoError(t, err)
}

func TestPipelineCancellation(t *testing.T) {
	var order []string
	repo := newMemoryLogRepo()
	orch := newTestOrchestrator(&fakeStage{order: &order}, &fakeWarehouse{order: &order}, repo)
	ctx := context.Background()

	run, err := orch.SubmitPipeline(ctx)
	require.NoError(t, err)

	// Запрашиваем отмену загрузки хранилища до ее старта
	require.NoError(t, orch.Cancel(ctx, run.LoadTaskID))
	require.NoError(t, orch.RunUntilIdle(ctx))

	// Перезагрузка staging выполнилась, загрузка прервалась на первой проверке
	assert.Equal(t, []string{models.JobStageReload}, order)

	loadRuns, err := repo.GetByTaskID(run.LoadTaskID)
	require.NoError(t, err)
	require.Len(t, loadRuns, 1)
	assert.Equal(t, models.StatusRevoked, loadRuns[0].Status)
	assert.False(t, loadRuns[0].EndedAt.IsZero())

	// Отмененный запуск освобождает блокировку
	_, err = orch.SubmitPipeline(ctx)
	assert.NoError(t, err)
}

func TestStatusPendingBeforeExecution(t *testing.T) {
	repo := newMemoryLogRepo()
	orch := newTestOrchestrator(&fakeStage{}, &fakeWarehouse{}, repo)

	run, err := orch.SubmitPipeline(context.Background())
	require.NoError(t, err)

	// До старта воркера у задачи нет записей журнала
	runs, err := orch.Status(run.LoadTaskID)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTaskEncodeDecode(t *testing.T) {
	next := NewTask(models.JobDWHIncremental, "pipeline-1")
	task := NewTask(models.JobStageReload, "pipeline-1")
	task.Next = &next

	data, err := task.Encode()
	require.NoError(t, err)

	decoded, err := DecodeTask(data)
	require.NoError(t, err)

	assert.Equal(t, task.ID, decoded.ID)
	assert.Equal(t, models.JobStageReload, decoded.Job)
	require.NotNil(t, decoded.Next)
	assert.Equal(t, next.ID, decoded.Next.ID)
	assert.Equal(t, "pipeline-1", decoded.Next.PipelineID)
}
