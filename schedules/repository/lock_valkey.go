package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-tweetcast/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

// LockValkeyRepository uses SET NX EX. Keys expire by themselves.
type LockValkeyRepository struct {
	client *valkey.Client
	owner  string
	ttl    time.Duration
}

func NewLockValkeyRepository(client *valkey.Client, owner string, ttl time.Duration) *LockValkeyRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LockValkeyRepository{client: client, owner: owner, ttl: ttl}
}

func (r *LockValkeyRepository) key(scheduleID, minute string) string {
	return r.client.Key("lock", "schedule", scheduleID, minute)
}

func (r *LockValkeyRepository) TryAcquire(ctx context.Context, scheduleID, minute string) bool {
	ok, err := r.client.SetNX(ctx, r.key(scheduleID, minute), r.owner, r.ttl)
	if err != nil {
		logrus.WithError(err).Warnf("[LOCK] Valkey unavailable for %s@%s, skipping", scheduleID, minute)
		return false
	}
	if !ok {
		logrus.Debugf("[LOCK] %s@%s already held", scheduleID, minute)
	}
	return ok
}

// CleanupStale is a no-op; the TTL bounds storage.
func (r *LockValkeyRepository) CleanupStale(ctx context.Context, maxAgeMinutes int) (int64, error) {
	return 0, nil
}
