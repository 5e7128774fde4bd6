package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// cancelKeyTTL — время жизни флага отмены.
// Флаг переживает задачу ненадолго, чтобы не копить мусор в Redis.
const cancelKeyTTL = 24 * time.Hour

// CancelSignal передает воркерам запрос на отмену задачи.
// Отмена рекомендательная: воркер проверяет флаг на границах пакетов.
type CancelSignal interface {
	// RequestCancel выставляет флаг отмены для задачи
	RequestCancel(ctx context.Context, taskID string) error

	// IsCancelled проверяет, запрошена ли отмена задачи
	IsCancelled(ctx context.Context, taskID string) (bool, error)

	// Clear снимает флаг отмены после завершения задачи
	Clear(ctx context.Context, taskID string) error
}

// RedisCancelSignal — флаги отмены поверх ключей Redis
type RedisCancelSignal struct {
	client *redis.Client
}

// NewRedisCancelSignal создает сигнал отмены поверх Redis
func NewRedisCancelSignal(client *redis.Client) *RedisCancelSignal {
	return &RedisCancelSignal{client: client}
}

// cancelKey возвращает ключ флага отмены для задачи
func cancelKey(taskID string) string {
	return "dwh:etl:cancel:" + taskID
}

// RequestCancel выставляет флаг отмены
func (s *RedisCancelSignal) RequestCancel(ctx context.Context, taskID string) error {
	if err := s.client.Set(ctx, cancelKey(taskID), "1", cancelKeyTTL).Err(); err != nil {
		return fmt.Errorf("ошибка установки флага отмены задачи %s: %w", taskID, err)
	}
	return nil
}

// IsCancelled проверяет флаг отмены
func (s *RedisCancelSignal) IsCancelled(ctx context.Context, taskID string) (bool, error) {
	exists, err := s.client.Exists(ctx, cancelKey(taskID)).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка проверки флага отмены задачи %s: %w", taskID, err)
	}
	return exists > 0, nil
}

// Clear снимает флаг отмены
func (s *RedisCancelSignal) Clear(ctx context.Context, taskID string) error {
	if err := s.client.Del(ctx, cancelKey(taskID)).Err(); err != nil {
		return fmt.Errorf("ошибка снятия флага отмены задачи %s: %w", taskID, err)
	}
	return nil
}

// MemoryCancelSignal — флаги отмены в памяти для тестов и одиночного режима
type MemoryCancelSignal struct {
	mu    sync.Mutex
	flags map[string]bool
}

// NewMemoryCancelSignal создает сигнал отмены в памяти
func NewMemoryCancelSignal() *MemoryCancelSignal {
	return &MemoryCancelSignal{flags: make(map[string]bool)}
}

// RequestCancel выставляет флаг отмены
func (s *MemoryCancelSignal) RequestCancel(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[taskID] = true
	return nil
}

// IsCancelled проверяет флаг отмены
func (s *MemoryCancelSignal) IsCancelled(ctx context.Context, taskID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags[taskID], nil
}

// Clear снимает флаг отмены
func (s *MemoryCancelSignal) Clear(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, taskID)
	return nil
}
