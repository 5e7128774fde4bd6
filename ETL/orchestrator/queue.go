package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// taskQueueKey — ключ списка задач конвейера в Redis
const taskQueueKey = "dwh:etl:tasks"

// dequeueTimeout — время блокирующего ожидания задачи одним циклом воркера
const dequeueTimeout = 1 * time.Second

// TaskQueue — разделяемая очередь задач конвейера.
// Веб-слой только ставит задачи, воркеры только забирают.
type TaskQueue interface {
	// Enqueue помещает задачу в очередь
	Enqueue(ctx context.Context, task Task) error

	// Dequeue забирает следующую задачу. Возвращает false, если за время
	// ожидания задача не появилась.
	Dequeue(ctx context.Context) (Task, bool, error)
}

// RedisTaskQueue — очередь задач поверх списка Redis (LPUSH/BRPOP)
type RedisTaskQueue struct {
	client *redis.Client
}

// NewRedisTaskQueue создает очередь задач поверх Redis
func NewRedisTaskQueue(client *redis.Client) *RedisTaskQueue {
	return &RedisTaskQueue{client: client}
}

// Enqueue помещает задачу в голову списка
func (q *RedisTaskQueue) Enqueue(ctx context.Context, task Task) error {
	data, err := task.Encode()
	if err != nil {
		return err
	}

	if err := q.client.LPush(ctx, taskQueueKey, data).Err(); err != nil {
		return fmt.Errorf("ошибка постановки задачи %s в очередь: %w", task.ID, err)
	}
	return nil
}

// Dequeue блокирующе забирает задачу из хвоста списка
func (q *RedisTaskQueue) Dequeue(ctx context.Context) (Task, bool, error) {
	result, err := q.client.BRPop(ctx, dequeueTimeout, taskQueueKey).Result()
	if err == redis.Nil {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, fmt.Errorf("ошибка чтения из очереди задач: %w", err)
	}

	// BRPOP возвращает пару [ключ, значение]
	task, err := DecodeTask([]byte(result[1]))
	if err != nil {
		return Task{}, false, err
	}
	return task, true, nil
}

// MemoryTaskQueue — очередь задач в памяти для тестов и одиночного режима
type MemoryTaskQueue struct {
	tasks chan Task
}

// NewMemoryTaskQueue создает очередь задач в памяти
func NewMemoryTaskQueue(capacity int) *MemoryTaskQueue {
	return &MemoryTaskQueue{tasks: make(chan Task, capacity)}
}

// Enqueue помещает задачу в очередь
func (q *MemoryTaskQueue) Enqueue(ctx context.Context, task Task) error {
	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dequeue забирает следующую задачу
func (q *MemoryTaskQueue) Dequeue(ctx context.Context) (Task, bool, error) {
	select {
	case task := <-q.tasks:
		return task, true, nil
	case <-time.After(dequeueTimeout):
		return Task{}, false, nil
	case <-ctx.Done():
		return Task{}, false, ctx.Err()
	}
}
