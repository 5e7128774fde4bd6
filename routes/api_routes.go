// routes/api_routes.go
package routes

import (
	"net/http"

	"github.com/LilVoxy/coursework_dwh/ETL/models"
	"github.com/LilVoxy/coursework_dwh/ETL/orchestrator"
	"github.com/gorilla/mux"
)

// SetupRoutes настраивает все маршруты API управления конвейером
func SetupRoutes(router *mux.Router, orch *orchestrator.Orchestrator, logs models.EtlLogRepository) {
	// Применяем CORS middleware
	router.Use(corsMiddleware)

	// API управления запусками конвейера
	router.HandleFunc("/api/etl/run", RunPipelineHandler(orch)).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/etl/status/{taskId}", TaskStatusHandler(orch)).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/etl/cancel/{taskId}", CancelTaskHandler(orch)).Methods("POST", "OPTIONS")

	// API журнала запусков
	router.HandleFunc("/api/etl/runs", RecentRunsHandler(logs)).Methods("GET", "OPTIONS")
}

// corsMiddleware разрешает кросс-доменные запросы к API
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
