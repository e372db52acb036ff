package services

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// LocalRunLock serializes run dispatch per task within one process.
// Sufficient while a single API process dispatches runs.
type LocalRunLock struct {
	mu   sync.Mutex
	held map[uuid.UUID]bool
}

func NewLocalRunLock() *LocalRunLock {
	return &LocalRunLock{held: make(map[uuid.UUID]bool)}
}

func (l *LocalRunLock) Acquire(ctx context.Context, taskID uuid.UUID) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[taskID] {
		return nil, ErrRunConflict
	}
	l.held[taskID] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, taskID)
	}, nil
}

// RedisRunLock serializes run dispatch per task across processes using
// SETNX. The TTL covers crashed holders; the partial unique index on
// running runs remains the hard guarantee.
type RedisRunLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRunLock(client *redis.Client, ttl time.Duration) *RedisRunLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisRunLock{client: client, ttl: ttl}
}

func (l *RedisRunLock) Acquire(ctx context.Context, taskID uuid.UUID) (func(), error) {
	key := "bazario:import:dispatch-lock:" + taskID.String()
	ok, err := l.client.SetNX(ctx, key, "1", l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRunConflict
	}
	return func() {
		l.client.Del(context.Background(), key)
	}, nil
}
