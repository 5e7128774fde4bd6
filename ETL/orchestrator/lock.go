package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// runLockKey — ключ блокировки единственного активного запуска конвейера
const runLockKey = "dwh:etl:run_lock"

// lockRefreshInterval — период продления блокировки во время выполнения задачи
const lockRefreshInterval = time.Minute

// RunLock гарантирует не более одного активного запуска конвейера.
// Staging-слой перезагружается с усечением таблиц, поэтому параллельные
// запуски недопустимы.
type RunLock interface {
	// Acquire пытается захватить блокировку от имени владельца.
	// Возвращает false, если блокировка уже удерживается.
	Acquire(ctx context.Context, owner string) (bool, error)

	// Refresh продлевает время жизни блокировки, пока ее удерживает
	// владелец. Возвращает false, если блокировка утрачена.
	Refresh(ctx context.Context, owner string) (bool, error)

	// Release снимает блокировку, если она принадлежит владельцу
	Release(ctx context.Context, owner string) error
}

// RedisRunLock — блокировка запуска поверх Redis (SET NX с временем жизни).
// Время жизни защищает от вечной блокировки при падении воркера.
type RedisRunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRunLock создает блокировку запуска поверх Redis
func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	return &RedisRunLock{client: client, ttl: ttl}
}

// Acquire пытается захватить блокировку
func (l *RedisRunLock) Acquire(ctx context.Context, owner string) (bool, error) {
	acquired, err := l.client.SetNX(ctx, runLockKey, owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("ошибка захвата блокировки запуска: %w", err)
	}
	return acquired, nil
}

// releaseScript атомарно удаляет блокировку, только если ее значение
// совпадает с владельцем: проверка и удаление обязаны быть одним шагом,
// иначе устаревший владелец может снять блокировку нового запуска
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// refreshScript атомарно продлевает время жизни блокировки, пока ее
// удерживает указанный владелец
var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Refresh продлевает время жизни блокировки, пока ее удерживает владелец
func (l *RedisRunLock) Refresh(ctx context.Context, owner string) (bool, error) {
	extended, err := refreshScript.Run(ctx, l.client, []string{runLockKey}, owner, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("ошибка продления блокировки запуска: %w", err)
	}
	return extended == 1, nil
}

// Release снимает блокировку, только если ее удерживает указанный владелец
func (l *RedisRunLock) Release(ctx context.Context, owner string) error {
	if err := releaseScript.Run(ctx, l.client, []string{runLockKey}, owner).Err(); err != nil {
		return fmt.Errorf("ошибка снятия блокировки запуска: %w", err)
	}
	return nil
}

// MemoryRunLock — блокировка запуска в памяти для тестов и одиночного режима
type MemoryRunLock struct {
	mu    sync.Mutex
	owner string
}

// NewMemoryRunLock создает блокировку запуска в памяти
func NewMemoryRunLock() *MemoryRunLock {
	return &MemoryRunLock{}
}

// Acquire пытается захватить блокировку
func (l *MemoryRunLock) Acquire(ctx context.Context, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner != "" {
		return false, nil
	}
	l.owner = owner
	return true, nil
}

// Refresh продлевает блокировку, пока ее удерживает владелец
func (l *MemoryRunLock) Refresh(ctx context.Context, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner == owner, nil
}

// Release снимает блокировку, только если ее удерживает указанный владелец
func (l *MemoryRunLock) Release(ctx context.Context, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.owner == owner {
		l.owner = ""
	}
	return nil
}
