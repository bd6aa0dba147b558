package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type scheduleLockModel struct {
	ID              uint      `gorm:"primaryKey;autoIncrement"`
	ScheduleID      string    `gorm:"uniqueIndex:idx_schedule_locks_minute,priority:1;not null"`
	ExecutionMinute string    `gorm:"uniqueIndex:idx_schedule_locks_minute,priority:2;not null"`
	Owner           string
	CreatedAt       time.Time `gorm:"index:idx_schedule_locks_created;not null"`
}

func (scheduleLockModel) TableName() string {
	return "schedule_locks"
}

// sameKeyEvictAfter is the age past which a row for the same schedule and
// HH:MM is a leftover of an earlier day and gets evicted before inserting.
// A key recurs every 24h, so any clock skew between instances below 12h
// cannot evict a fresh lock.
const sameKeyEvictAfter = 12 * time.Hour

// LockGormRepository implements the execution lock on a unique index.
// The insert is the check; nothing is read before it.
type LockGormRepository struct {
	db    *gorm.DB
	owner string
	now   func() time.Time
}

func NewLockGormRepository(db *gorm.DB, owner string) *LockGormRepository {
	return &LockGormRepository{db: db, owner: owner, now: time.Now}
}

func (r *LockGormRepository) InitSchema(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&scheduleLockModel{})
}

func (r *LockGormRepository) TryAcquire(ctx context.Context, scheduleID, minute string) bool {
	now := r.now().UTC()

	if err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND execution_minute = ? AND created_at < ?", scheduleID, minute, now.Add(-sameKeyEvictAfter)).
		Delete(&scheduleLockModel{}).Error; err != nil {
		logrus.WithError(err).Warnf("[LOCK] Failed to evict stale lock %s@%s, not acquiring", scheduleID, minute)
		return false
	}

	err := r.db.WithContext(ctx).Create(&scheduleLockModel{
		ScheduleID:      scheduleID,
		ExecutionMinute: minute,
		Owner:           r.owner,
		CreatedAt:       now,
	}).Error
	if err == nil {
		return true
	}
	if isDuplicateKey(err) {
		logrus.Debugf("[LOCK] %s@%s already held", scheduleID, minute)
		return false
	}
	logrus.WithError(err).Warnf("[LOCK] Lock store unavailable for %s@%s, skipping", scheduleID, minute)
	return false
}

// CleanupStale compares created_at with the local clock. maxAgeMinutes must
// exceed twice the clock skew between instances plus one minute, or a fast
// instance can drop a lock a slow instance has yet to evaluate.
func (r *LockGormRepository) CleanupStale(ctx context.Context, maxAgeMinutes int) (int64, error) {
	if maxAgeMinutes <= 0 {
		return 0, nil
	}
	cutoff := r.now().UTC().Add(-time.Duration(maxAgeMinutes) * time.Minute)
	result := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&scheduleLockModel{})
	return result.RowsAffected, result.Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
