package application

import (
	"context"
	"sync"
	"time"

	"github.com/AzielCF/az-tweetcast/pkg/msgworker"
	"github.com/AzielCF/az-tweetcast/pkg/timeutils"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/sirupsen/logrus"
)

type scheduleRunner interface {
	Run(ctx context.Context, sch *domain.Schedule, minute string) (domain.ExecutionResult, error)
}

// Loop ticks once per wall-clock minute and fires every matching schedule.
type Loop struct {
	schedules        domain.ScheduleRepository
	runner           scheduleRunner
	lock             domain.ExecutionLock
	pool             *msgworker.Pool
	settings         RuntimeSettings
	staleLockMinutes int
	now              func() time.Time

	// running serialises executions of one schedule when there is no pool.
	running sync.Map // schedule ID -> *sync.Mutex
}

type LoopOption func(*Loop)

// WithWorkerPool runs matched schedules on the pool, keyed by schedule ID.
func WithWorkerPool(pool *msgworker.Pool) LoopOption {
	return func(l *Loop) { l.pool = pool }
}

func WithLoopSettings(s RuntimeSettings) LoopOption {
	return func(l *Loop) { l.settings = s }
}

func WithStaleLockMinutes(minutes int) LoopOption {
	return func(l *Loop) { l.staleLockMinutes = minutes }
}

func NewLoop(schedules domain.ScheduleRepository, runner scheduleRunner, lock domain.ExecutionLock, opts ...LoopOption) *Loop {
	l := &Loop{
		schedules:        schedules,
		runner:           runner,
		lock:             lock,
		staleLockMinutes: 5,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run blocks until ctx is cancelled. The first tick lands on the next minute boundary.
func (l *Loop) Run(ctx context.Context) {
	wait := timeutils.UntilNextMinute(l.now())
	logrus.Infof("[SCHEDULER] Started, first tick in %s", wait.Round(time.Millisecond))

	align := time.NewTimer(wait)
	select {
	case <-ctx.Done():
		align.Stop()
		logrus.Info("[SCHEDULER] Stopped before first tick")
		return
	case <-align.C:
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	l.drive(ctx, l.now(), ticker.C)
	logrus.Info("[SCHEDULER] Stopped")
}

// drive ticks at first and at every value received from ticks until ctx is
// done, then waits for the ticks still in flight. Each tick runs on its own
// goroutine so a slow execution never holds back the minute clock.
func (l *Loop) drive(ctx context.Context, first time.Time, ticks <-chan time.Time) {
	var wg sync.WaitGroup
	defer wg.Wait()

	fire := func(now time.Time) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Tick(ctx, now)
		}()
	}

	fire(first)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticks:
			fire(now)
		}
	}
}

// Tick evaluates all active schedules at now and returns how many matched.
func (l *Loop) Tick(ctx context.Context, now time.Time) int {
	logrus.Debugf("[SCHEDULER] Tick %s", now.UTC().Format(time.RFC3339))

	if l.settings != nil && l.settings.SchedulerPaused(ctx) {
		logrus.Debug("[SCHEDULER] Paused, skipping tick")
		return 0
	}

	if l.lock != nil && l.staleLockMinutes > 0 {
		if n, err := l.lock.CleanupStale(ctx, l.staleLockMinutes); err != nil {
			logrus.WithError(err).Debug("[SCHEDULER] Stale lock cleanup failed")
		} else if n > 0 {
			logrus.Debugf("[SCHEDULER] Removed %d stale locks", n)
		}
	}

	active, err := l.schedules.ListActive(ctx)
	if err != nil {
		logrus.WithError(err).Error("[SCHEDULER] Failed to list active schedules")
		return 0
	}

	triggered := 0
	for _, sch := range active {
		if l.evaluate(ctx, sch, now) {
			triggered++
		}
	}
	return triggered
}

func (l *Loop) evaluate(ctx context.Context, sch *domain.Schedule, now time.Time) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[SCHEDULER] Panic evaluating schedule %s: %v", sch.ID, r)
		}
	}()

	loc, err := timeutils.LoadLocation(sch.Timezone)
	if err != nil {
		logrus.WithError(err).Warnf("[SCHEDULER] Schedule %s has an invalid timezone, skipping", sch.ID)
		return false
	}
	if !timeutils.Matches(sch.FireTimes, sch.IsWeekly(), sch.WeekDays, loc, now) {
		return false
	}

	minute := timeutils.MinuteKey(now, loc)
	logrus.Infof("[SCHEDULER] Executing schedule %s at %s (%s)", sch.ID, minute, loc)

	if l.pool != nil {
		s := sch
		return l.pool.TryDispatch(msgworker.Job{
			Key:   s.ID,
			Label: minute,
			Handler: func(jobCtx context.Context) error {
				l.execute(jobCtx, s, minute)
				return nil
			},
		})
	}

	mu, _ := l.running.LoadOrStore(sch.ID, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
	defer mu.(*sync.Mutex).Unlock()
	l.execute(ctx, sch, minute)
	return true
}

func (l *Loop) execute(ctx context.Context, sch *domain.Schedule, minute string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("[SCHEDULER] Panic executing schedule %s: %v", sch.ID, r)
		}
	}()

	res, err := l.runner.Run(ctx, sch, minute)
	if err != nil {
		logrus.WithError(err).Errorf("[SCHEDULER] Schedule %s failed", sch.ID)
		return
	}
	if res.Success {
		logrus.Infof("[SCHEDULER] Schedule %s: %s", sch.ID, res.Message)
	} else {
		logrus.Debugf("[SCHEDULER] Schedule %s: %s", sch.ID, res.Message)
	}
}
