package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/deepgram/schwab-mcp/internal/auth"
	"github.com/deepgram/schwab-mcp/pkg/logger"
	"github.com/google/uuid"
)

const (
	defaultLockTTL  = 30 * time.Second
	defaultLockPoll = 100 * time.Millisecond
)

// Locker is a RefreshLocker backed by SET NX PX. The lock expires on its own
// if the holder dies mid-refresh.
type Locker struct {
	service *Service
	ttl     time.Duration
	poll    time.Duration
}

var _ auth.RefreshLocker = (*Locker)(nil)

func NewLocker(service *Service) *Locker {
	return &Locker{
		service: service,
		ttl:     defaultLockTTL,
		poll:    defaultLockPoll,
	}
}

// Lock blocks until key is acquired or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.service.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			logger.Debug(logger.REDIS, "Acquired lock %s", key)
			return func() { l.release(key, owner) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *Locker) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	released, err := l.service.CompareAndDelete(ctx, key, owner)
	if err != nil {
		logger.Warn(logger.REDIS, "Failed to release lock %s: %v", key, err)
		return
	}
	if !released {
		logger.Warn(logger.REDIS, "Lock %s expired before release", key)
	}
}
