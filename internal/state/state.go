package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront/mirror/internal/domain"

	"github.com/redis/go-redis/v9"
)

// RunRecorder remembers the outcome of the last synchronization run
type RunRecorder interface {
	LastRun(ctx context.Context) (*domain.SyncRun, error)
	SaveRun(ctx context.Context, run domain.SyncRun) error
}

type redisRunRecorder struct {
	redisClient *redis.Client
	key         string
}

// NewRedisRunRecorder keeps the last run across restarts
func NewRedisRunRecorder(redisClient *redis.Client) RunRecorder {
	return &redisRunRecorder{
		redisClient: redisClient,
		key:         "storefront:sync:last_run",
	}
}

func (s *redisRunRecorder) LastRun(ctx context.Context) (*domain.SyncRun, error) {
	val, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // No run recorded yet
		}
		return nil, fmt.Errorf("failed to get last sync run: %w", err)
	}

	var run domain.SyncRun
	if err := json.Unmarshal(val, &run); err != nil {
		return nil, fmt.Errorf("failed to decode last sync run: %w", err)
	}
	return &run, nil
}

func (s *redisRunRecorder) SaveRun(ctx context.Context, run domain.SyncRun) error {
	val, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("failed to encode sync run: %w", err)
	}

	if err := s.redisClient.Set(ctx, s.key, val, 0).Err(); err != nil { // No expiration
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

type memoryRunRecorder struct {
	mu   sync.RWMutex
	last *domain.SyncRun
}

func NewMemoryRunRecorder() RunRecorder {
	return &memoryRunRecorder{}
}

func (s *memoryRunRecorder) LastRun(context.Context) (*domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil, nil
	}
	run := *s.last
	return &run, nil
}

func (s *memoryRunRecorder) SaveRun(_ context.Context, run domain.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = &run
	return nil
}
