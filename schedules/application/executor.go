package application

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-tweetcast/pkg/timeutils"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	MsgAlreadyLocked  = "Schedule already executed for this minute"
	MsgNotActive      = "Schedule is not active"
	MsgNoFreshItems   = "No fresh tweets available"
	MsgNoMatchedItems = "No tweets match criteria"
)

// DefaultFetchTimeout bounds the whole upstream search, polling included.
const DefaultFetchTimeout = 6 * time.Minute

// RuntimeSettings are operator toggles read on every run.
type RuntimeSettings interface {
	SchedulerPaused(ctx context.Context) bool
	DefaultRewritePrompt(ctx context.Context) string
}

type ExecutorConfig struct {
	FetchTimeout  time.Duration
	DefaultChatID string
}

// Executor runs the Lock → Fetch → Filter → Select → Dispatch → Record pipeline.
type Executor struct {
	schedules  domain.ScheduleRepository
	history    domain.HistoryRepository
	runs       domain.RunRepository
	lock       domain.ExecutionLock
	fetcher    domain.CandidateFetcher
	dispatcher *Dispatcher
	cfg        ExecutorConfig
	now        func() time.Time
}

type ExecutorOption func(*Executor)

// WithRunStore records one ExecutionRun per attempt that passed the lock.
func WithRunStore(runs domain.RunRepository) ExecutorOption {
	return func(e *Executor) { e.runs = runs }
}

func NewExecutor(
	schedules domain.ScheduleRepository,
	history domain.HistoryRepository,
	lock domain.ExecutionLock,
	fetcher domain.CandidateFetcher,
	dispatcher *Dispatcher,
	cfg ExecutorConfig,
	opts ...ExecutorOption,
) *Executor {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	e := &Executor{
		schedules:  schedules,
		history:    history,
		lock:       lock,
		fetcher:    fetcher,
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes sch for the given HH:MM minute. Lock contention and empty pools
// come back as an unsuccessful result, not an error. ConfigError and
// FetchError are returned typed.
func (e *Executor) Run(ctx context.Context, sch *domain.Schedule, minute string) (domain.ExecutionResult, error) {
	return e.run(ctx, sch, minute, domain.TriggerScheduled)
}

func (e *Executor) run(ctx context.Context, sch *domain.Schedule, minute string, trigger domain.RunTrigger) (domain.ExecutionResult, error) {
	log := logrus.WithFields(logrus.Fields{"schedule_id": sch.ID, "minute": minute, "trigger": trigger})

	log.Debug("[EXECUTOR] Locking")
	if !e.lock.TryAcquire(ctx, sch.ID, minute) {
		log.Debug("[EXECUTOR] Lock not acquired, skipping")
		return domain.ExecutionResult{Success: false, Message: MsgAlreadyLocked}, nil
	}

	run := &domain.ExecutionRun{
		ID:         "exec_" + uuid.New().String(),
		ScheduleID: sch.ID,
		Minute:     minute,
		Trigger:    trigger,
		StartedAt:  e.now().UTC(),
	}
	res, err := e.execute(ctx, log.WithField("execution_id", run.ID), sch, run)
	e.recordRun(ctx, run, res, err)
	return res, err
}

// execute runs everything after the lock. The lock is never released early;
// it stands for the whole minute.
func (e *Executor) execute(ctx context.Context, log *logrus.Entry, sch *domain.Schedule, run *domain.ExecutionRun) (domain.ExecutionResult, error) {
	chatRef, keywords, err := e.checkConfig(sch)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	log.Debug("[EXECUTOR] Executing")
	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.FetchTimeout)
	pool, err := e.fetcher.Fetch(fetchCtx, keywords, sch.MaxItems, sch.Filters)
	cancel()
	if err != nil {
		return domain.ExecutionResult{}, &domain.FetchError{ScheduleID: sch.ID, Err: err}
	}
	run.TotalFetched = len(pool)
	if len(pool) == 0 {
		log.Info("[EXECUTOR] No fresh tweets available")
		return domain.ExecutionResult{Success: false, Message: MsgNoFreshItems, ExecutionID: run.ID}, nil
	}
	log.Debugf("[EXECUTOR] Fetched %d candidates", len(pool))
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		for _, c := range pool {
			log.Debugf("[EXECUTOR] candidate %s @%s likes=%d media=%d", c.ID, c.AuthorHandle, c.LikeCount, len(c.Media))
		}
	}

	candidates := pool
	if !sch.SkipKeywordFilter {
		candidates = FilterByKeywords(candidates, keywords)
	}

	candidates, err = FilterDuplicates(ctx, e.history, candidates, sch.ID, sch.PreventDuplicates, sch.DuplicateWindowHours)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("failed to filter duplicates: %w", err)
	}

	candidates = SortCandidates(candidates, sch.SortBy)
	selected := SelectMix(candidates, sch.PostsPerRun, sch.Mix)
	run.SelectedCount = len(selected)
	if len(selected) == 0 {
		log.Info("[EXECUTOR] No tweets match criteria")
		return domain.ExecutionResult{Success: false, Message: MsgNoMatchedItems, TotalAvailable: len(candidates), ExecutionID: run.ID}, nil
	}

	log.Infof("[EXECUTOR] Sending %d tweets", len(selected))
	sent := e.dispatcher.Dispatch(ctx, sch, chatRef, run.ID, selected)

	// delivered items must be accounted for even when ctx is being cancelled
	if err := e.schedules.MarkRun(context.WithoutCancel(ctx), sch.ID, e.now().UTC(), sent); err != nil {
		log.WithError(err).Error("[EXECUTOR] Failed to stamp last run")
	}

	return domain.ExecutionResult{
		Success:        true,
		Message:        fmt.Sprintf("Sent %d tweets", sent),
		SentCount:      sent,
		TotalAvailable: len(candidates),
		ExecutionID:    run.ID,
	}, nil
}

func (e *Executor) recordRun(ctx context.Context, run *domain.ExecutionRun, res domain.ExecutionResult, err error) {
	if e.runs == nil {
		return
	}
	run.FinishedAt = e.now().UTC()
	run.SentCount = res.SentCount
	run.TotalAvailable = res.TotalAvailable
	switch {
	case err != nil:
		run.Status = domain.RunFailed
		run.Message = err.Error()
	case res.Success && res.SentCount == 0:
		run.Status = domain.RunFailed
		run.Message = res.Message
	case res.Success:
		run.Status = domain.RunSuccess
		run.Message = res.Message
	default:
		run.Status = domain.RunSkipped
		run.Message = res.Message
	}
	if recErr := e.runs.Record(context.WithoutCancel(ctx), run); recErr != nil {
		logrus.WithError(recErr).Errorf("[EXECUTOR] Failed to record run %s of schedule %s", run.ID, run.ScheduleID)
	}
}

// ExecuteNow runs a schedule on demand for the current minute in its timezone.
// Expected failures are folded into the result; storage errors propagate.
func (e *Executor) ExecuteNow(ctx context.Context, scheduleID string) (domain.ExecutionResult, error) {
	sch, err := e.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	if !sch.Active {
		return domain.ExecutionResult{Success: false, Message: MsgNotActive}, nil
	}

	loc, err := timeutils.LoadLocation(sch.Timezone)
	if err != nil {
		return domain.ExecutionResult{Success: false, Message: err.Error()}, nil
	}

	res, err := e.run(ctx, sch, timeutils.MinuteKey(e.now(), loc), domain.TriggerManual)
	if err != nil {
		if domain.IsConfigError(err) || domain.IsFetchError(err) {
			logrus.WithError(err).Warnf("[EXECUTOR] Manual run of %s failed", scheduleID)
			return domain.ExecutionResult{Success: false, Message: err.Error()}, nil
		}
		return domain.ExecutionResult{}, err
	}
	return res, nil
}

func (e *Executor) checkConfig(sch *domain.Schedule) (string, []string, error) {
	if e.dispatcher == nil || e.dispatcher.sender == nil {
		return "", nil, &domain.ConfigError{ScheduleID: sch.ID, Reason: "Telegram not configured"}
	}
	chatRef := sch.ChatID
	if chatRef == "" {
		chatRef = e.cfg.DefaultChatID
	}
	if chatRef == "" {
		return "", nil, &domain.ConfigError{ScheduleID: sch.ID, Reason: "Telegram chat ID not configured"}
	}
	keywords := sch.CleanKeywords()
	if len(keywords) == 0 {
		return "", nil, &domain.ConfigError{ScheduleID: sch.ID, Reason: "no keywords configured"}
	}
	if len(sch.FireTimes) == 0 {
		return "", nil, &domain.ConfigError{ScheduleID: sch.ID, Reason: "no fire times configured"}
	}
	if e.fetcher == nil {
		return "", nil, &domain.ConfigError{ScheduleID: sch.ID, Reason: "tweet source not configured"}
	}
	return chatRef, keywords, nil
}
