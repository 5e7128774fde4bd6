// routes/etl_handlers_test.go
package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LilVoxy/coursework_dwh/ETL/load"
	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/orchestrator"
	"github.com/LilVoxy/coursework_dwh/ETL/utils"
)

// stubLogRepo — минимальный журнал запусков для тестов обработчиков
type stubLogRepo struct {
	runs []models.EtlRunLog
}

func (r *stubLogRepo) CreateLogEntry(jobName, taskID string, startedAt time.Time) (int64, error) {
	return 1, nil
}
func (r *stubLogRepo) MarkSuccess(id int64, endedAt time.Time, message string, processed int) error {
	return nil
}
func (r *stubLogRepo) MarkFailure(id int64, endedAt time.Time, message string) error { return nil }
func (r *stubLogRepo) MarkRevoked(id int64, endedAt time.Time, message string, processed int) error {
	return nil
}
func (r *stubLogRepo) GetByTaskID(taskID string) ([]models.EtlRunLog, error) {
	var result []models.EtlRunLog
	for _, run := range r.runs {
		if run.TaskID == taskID {
			result = append(result, run)
		}
	}
	return result, nil
}
func (r *stubLogRepo) GetRecentRuns(days int) ([]models.EtlRunLog, error) { return r.runs, nil }
func (r *stubLogRepo) GetLastSuccessfulRun(jobName string) (*models.EtlRunLog, error) {
	return nil, nil
}

// stubStage и stubWarehouse — задания, которые ничего не делают
type stubStage struct{}

func (stubStage) ReloadAll(aborted func() bool) (int, int64, error) { return 0, 0, nil }

type stubWarehouse struct{}

func (stubWarehouse) RunIncremental(aborted func() bool) (load.LoadStats, error) {
	return load.LoadStats{}, nil
}

func newTestRouter(repo models.EtlLogRepository) *mux.Router {
	orch := orchestrator.NewOrchestrator(
		orchestrator.NewMemoryTaskQueue(4),
		orchestrator.NewMemoryRunLock(),
		orchestrator.NewMemoryCancelSignal(),
		repo,
		stubStage{},
		stubWarehouse{},
		utils.NewETLLogger(false),
	)

	router := mux.NewRouter()
	SetupRoutes(router, orch, repo)
	return router
}

func TestRunPipelineHandler(t *testing.T) {
	router := newTestRouter(&stubLogRepo{})

	// Первый запуск принимается
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/etl/run", nil))
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var run orchestrator.PipelineRun
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&run))
	assert.NotEmpty(t, run.PipelineID)
	assert.NotEmpty(t, run.StageTaskID)
	assert.NotEmpty(t, run.LoadTaskID)

	// Повторный запуск до завершения первого отклоняется
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/etl/run", nil))
	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestTaskStatusHandler(t *testing.T) {
	repo := &stubLogRepo{runs: []models.EtlRunLog{
		{ID: 1, TaskID: "task-1", JobName: models.JobStageReload, Status: models.StatusSuccess},
	}}
	router := newTestRouter(repo)

	// Известная задача отдает свой статус
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/etl/status/task-1", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var response TaskStatusResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, models.StatusSuccess, response.Status)
	assert.Len(t, response.Runs, 1)

	// Задача без записей журнала считается ожидающей
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/etl/status/unknown", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "PENDING", response.Status)
}

func TestCancelTaskHandler(t *testing.T) {
	router := newTestRouter(&stubLogRepo{})

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("POST", "/api/etl/cancel/task-1", nil))
	require.Equal(t, http.StatusAccepted, recorder.Code)

	var response TaskStatusResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Equal(t, "CANCELLATION_REQUESTED", response.Status)
}

func TestRecentRunsHandler(t *testing.T) {
	repo := &stubLogRepo{runs: []models.EtlRunLog{
		{ID: 1, TaskID: "task-1", JobName: models.JobStageReload, Status: models.StatusSuccess},
		{ID: 2, TaskID: "task-2", JobName: models.JobDWHIncremental, Status: models.StatusFailed},
	}}
	router := newTestRouter(repo)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/etl/runs?days=3", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	var response RunsResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	assert.Len(t, response.Runs, 2)

	// Неверный формат параметра days отклоняется
	recorder = httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest("GET", "/api/etl/runs?days=abc", nil))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
