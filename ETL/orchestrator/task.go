package orchestrator

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Task — конверт одной задачи конвейера в очереди.
// Задачи связываются в цепочку через Next: следующая ставится в очередь
// только после успешного завершения текущей.
type Task struct {
	// Уникальный идентификатор задачи
	ID string `json:"id"`

	// Имя задания (models.JobStageReload, models.JobDWHIncremental)
	Job string `json:"job"`

	// Идентификатор запуска конвейера, общий для всей цепочки
	PipelineID string `json:"pipeline_id"`

	// Следующая задача цепочки
	Next *Task `json:"next,omitempty"`
}

// NewTask создает задачу с новым идентификатором
func NewTask(job, pipelineID string) Task {
	return Task{
		ID:         uuid.New().String(),
		Job:        job,
		PipelineID: pipelineID,
	}
}

// Encode сериализует задачу для передачи через очередь
func (t Task) Encode() ([]byte, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("ошибка сериализации задачи %s: %w", t.ID, err)
	}
	return data, nil
}

// DecodeTask восстанавливает задачу из сообщения очереди
func DecodeTask(data []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return Task{}, fmt.Errorf("ошибка десериализации задачи: %w", err)
	}
	return task, nil
}
