// routes/etl_handlers.go
package routes

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/orchestrator"
	"github.com/gorilla/mux"
)

// TaskStatusResponse — ответ API о состоянии задачи
type TaskStatusResponse struct {
	TaskID string             `json:"task_id"`
	Status string             `json:"status"`
	Runs   []models.EtlRunLog `json:"runs,omitempty"`
}

// RunsResponse — ответ API со списком запусков
type RunsResponse struct {
	Runs []models.EtlRunLog `json:"runs"`
}

// writeJSON кодирует и отправляет ответ в формате JSON
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Ошибка при кодировании JSON: %v", err)
	}
}

// RunPipelineHandler обрабатывает запросы на запуск конвейера.
// Пока предыдущий запуск не завершился, новый отклоняется с кодом 409.
func RunPipelineHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		run, err := orch.SubmitPipeline(r.Context())
		if errors.Is(err, orchestrator.ErrAlreadyRunning) {
			http.Error(w, "Конвейер уже выполняется", http.StatusConflict)
			return
		}
		if err != nil {
			log.Printf("Ошибка при постановке конвейера в очередь: %v", err)
			http.Error(w, "Ошибка при запуске конвейера", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusAccepted, run)
	}
}

// TaskStatusHandler обрабатывает запросы на получение состояния задачи.
// Задача без записей журнала считается ожидающей выполнения.
func TaskStatusHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := mux.Vars(r)["taskId"]
		if taskID == "" {
			http.Error(w, "Отсутствует обязательный параметр taskId", http.StatusBadRequest)
			return
		}

		runs, err := orch.Status(taskID)
		if err != nil {
			log.Printf("Ошибка при запросе состояния задачи %s: %v", taskID, err)
			http.Error(w, "Ошибка при получении состояния задачи", http.StatusInternalServerError)
			return
		}

		response := TaskStatusResponse{TaskID: taskID, Status: "PENDING", Runs: runs}
		if len(runs) > 0 {
			// Последняя запись журнала отражает актуальное состояние
			response.Status = runs[len(runs)-1].Status
		}

		writeJSON(w, http.StatusOK, response)
	}
}

// CancelTaskHandler обрабатывает запросы на отмену задачи.
// Отмена кооперативная, поэтому ответ означает "запрошено", а не "отменено".
func CancelTaskHandler(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		taskID := mux.Vars(r)["taskId"]
		if taskID == "" {
			http.Error(w, "Отсутствует обязательный параметр taskId", http.StatusBadRequest)
			return
		}

		if err := orch.Cancel(r.Context(), taskID); err != nil {
			log.Printf("Ошибка при запросе отмены задачи %s: %v", taskID, err)
			http.Error(w, "Ошибка при отмене задачи", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusAccepted, TaskStatusResponse{TaskID: taskID, Status: "CANCELLATION_REQUESTED"})
	}
}

// RecentRunsHandler обрабатывает запросы на получение журнала запусков
func RecentRunsHandler(logs models.EtlLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 7
		if daysStr := r.URL.Query().Get("days"); daysStr != "" {
			parsed, err := strconv.Atoi(daysStr)
			if err != nil || parsed <= 0 {
				http.Error(w, "Неверный формат параметра days", http.StatusBadRequest)
				return
			}
			days = parsed
		}

		runs, err := logs.GetRecentRuns(days)
		if err != nil {
			log.Printf("Ошибка при запросе журнала запусков: %v", err)
			http.Error(w, "Ошибка при получении журнала запусков", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
	}
}
