package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AzielCF/az-tweetcast/core/database"
	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/AzielCF/az-tweetcast/schedules/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	schedules *repository.ScheduleGormRepository
	history   *repository.HistoryGormRepository
	lock      *repository.LockGormRepository
	runs      *repository.RunGormRepository
	sender    *fakeSender
	fetcher   *fakeFetcher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	h := &harness{
		schedules: repository.NewScheduleGormRepository(db),
		history:   repository.NewHistoryGormRepository(db),
		lock:      repository.NewLockGormRepository(db, "test"),
		runs:      repository.NewRunGormRepository(db),
		sender:    &fakeSender{},
		fetcher:   &fakeFetcher{items: textItems(5)},
	}
	require.NoError(t, h.schedules.InitSchema(ctx))
	require.NoError(t, h.history.InitSchema(ctx))
	require.NoError(t, h.lock.InitSchema(ctx))
	require.NoError(t, h.runs.InitSchema(ctx))
	return h
}

func (h *harness) executor(cfg ExecutorConfig) *Executor {
	d := NewDispatcher(h.sender, h.history, WithDispatchDelay(0))
	return NewExecutor(h.schedules, h.history, h.lock, h.fetcher, d, cfg, WithRunStore(h.runs))
}

func (h *harness) runsOf(t *testing.T, scheduleID string) []domain.ExecutionRun {
	t.Helper()
	runs, err := h.runs.ListBySchedule(context.Background(), scheduleID, 0)
	require.NoError(t, err)
	return runs
}

func (h *harness) save(t *testing.T, sch *domain.Schedule) *domain.Schedule {
	t.Helper()
	require.NoError(t, h.schedules.Create(context.Background(), sch))
	return sch
}

func TestExecutor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sch := testSchedule()
	sch.ID = ""
	sch.PreventDuplicates = true
	sch.DuplicateWindowHours = 24
	h.save(t, sch)

	// t5 went out an hour ago
	old := domain.NewSentItem(sch.ID, "exec_old", textItems(5)[4], time.Now().UTC().Add(-time.Hour))
	require.NoError(t, h.history.Record(ctx, &old))

	exec := h.executor(ExecutorConfig{DefaultChatID: "@gonews"})
	res, err := exec.Run(ctx, sch, "08:00")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "Sent 3 tweets", res.Message)
	assert.Equal(t, 3, res.SentCount)
	assert.Equal(t, 4, res.TotalAvailable)
	assert.Contains(t, res.ExecutionID, "exec_")

	calls := h.sender.sent()
	require.Len(t, calls, 3)
	assert.Equal(t, "@gonews", calls[0].ChatRef)

	rows, err := h.history.ListByExecution(ctx, res.ExecutionID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	sent := map[string]bool{}
	for _, r := range rows {
		sent[r.SourceID] = true
	}
	// most liked first, the recent duplicate skipped
	assert.Equal(t, map[string]bool{"t4": true, "t3": true, "t2": true}, sent)

	stored, err := h.schedules.GetByID(ctx, sch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stored.TotalSent)
	assert.NotNil(t, stored.LastRunAt)

	assert.Equal(t, 50, h.fetcher.maxItems)
	assert.Equal(t, []string{"golang"}, h.fetcher.keywords)

	// same minute again is refused without touching the fetcher
	res, err = exec.Run(ctx, sch, "08:00")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgAlreadyLocked, res.Message)
	assert.Equal(t, 1, h.fetcher.calls)
}

func TestExecutor_ScheduleChatOverridesDefault(t *testing.T) {
	h := newHarness(t)
	sch := testSchedule()
	sch.ChatID = "-100999"

	_, err := h.executor(ExecutorConfig{DefaultChatID: "@gonews"}).Run(context.Background(), sch, "08:00")
	require.NoError(t, err)
	assert.Equal(t, "-100999", h.sender.sent()[0].ChatRef)
}

func TestExecutor_ConfigErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*domain.Schedule)
		build  func(h *harness) *Executor
		reason string
	}{
		{
			name: "no sender",
			build: func(h *harness) *Executor {
				return NewExecutor(h.schedules, h.history, h.lock, h.fetcher, NewDispatcher(nil, h.history), ExecutorConfig{DefaultChatID: "@c"})
			},
			reason: "Telegram not configured",
		},
		{
			name:   "no chat",
			build:  func(h *harness) *Executor { return h.executor(ExecutorConfig{}) },
			reason: "Telegram chat ID not configured",
		},
		{
			name:   "no keywords",
			mutate: func(s *domain.Schedule) { s.Keywords = []string{" ", ""} },
			build:  func(h *harness) *Executor { return h.executor(ExecutorConfig{DefaultChatID: "@c"}) },
			reason: "no keywords configured",
		},
		{
			name:   "no fire times",
			mutate: func(s *domain.Schedule) { s.FireTimes = nil },
			build:  func(h *harness) *Executor { return h.executor(ExecutorConfig{DefaultChatID: "@c"}) },
			reason: "no fire times configured",
		},
		{
			name: "no fetcher",
			build: func(h *harness) *Executor {
				return NewExecutor(h.schedules, h.history, h.lock, nil, NewDispatcher(h.sender, h.history), ExecutorConfig{DefaultChatID: "@c"})
			},
			reason: "tweet source not configured",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			sch := testSchedule()
			if tc.mutate != nil {
				tc.mutate(sch)
			}
			_, err := tc.build(h).Run(context.Background(), sch, "08:00")

			var cfgErr *domain.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.reason, cfgErr.Reason)
			assert.Zero(t, h.fetcher.calls)
			assert.Empty(t, h.sender.sent())
		})
	}
}

func TestExecutor_FetchErrors(t *testing.T) {
	t.Run("upstream failure", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.err = errors.New("actor run failed")

		_, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).Run(context.Background(), testSchedule(), "08:00")
		assert.True(t, domain.IsFetchError(err))
		assert.Empty(t, h.sender.sent())
	})

	t.Run("timeout", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.block = true

		_, err := h.executor(ExecutorConfig{DefaultChatID: "@c", FetchTimeout: 20 * time.Millisecond}).
			Run(context.Background(), testSchedule(), "08:00")
		assert.True(t, domain.IsFetchError(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestExecutor_EmptyOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing fetched", func(t *testing.T) {
		h := newHarness(t)
		h.fetcher.items = nil
		res, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).Run(ctx, testSchedule(), "08:00")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, MsgNoFreshItems, res.Message)
		assert.NotEmpty(t, res.ExecutionID)

		runs := h.runsOf(t, "sch-1")
		require.Len(t, runs, 1)
		assert.Equal(t, res.ExecutionID, runs[0].ID)
		assert.Equal(t, domain.RunSkipped, runs[0].Status)
		assert.Equal(t, MsgNoFreshItems, runs[0].Message)
	})

	t.Run("everything filtered", func(t *testing.T) {
		h := newHarness(t)
		sch := testSchedule()
		sch.Keywords = []string{"rustlang"}
		res, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).Run(ctx, sch, "08:00")
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, MsgNoMatchedItems, res.Message)
		assert.Empty(t, h.sender.sent())

		runs := h.runsOf(t, sch.ID)
		require.Len(t, runs, 1)
		assert.Equal(t, 5, runs[0].TotalFetched)
		assert.Zero(t, runs[0].SelectedCount)
	})

	t.Run("keyword filter can be skipped", func(t *testing.T) {
		h := newHarness(t)
		sch := testSchedule()
		sch.Keywords = []string{"rustlang"}
		sch.SkipKeywordFilter = true
		res, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).Run(ctx, sch, "08:00")
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, 3, res.SentCount)
	})
}

func TestExecuteNow(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown schedule", func(t *testing.T) {
		h := newHarness(t)
		_, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).ExecuteNow(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
	})

	t.Run("inactive", func(t *testing.T) {
		h := newHarness(t)
		sch := testSchedule()
		sch.Active = false
		h.save(t, sch)

		res, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).ExecuteNow(ctx, sch.ID)
		require.NoError(t, err)
		assert.Equal(t, MsgNotActive, res.Message)
	})

	t.Run("locks the current minute in the schedule zone", func(t *testing.T) {
		h := newHarness(t)
		sch := testSchedule()
		sch.Timezone = "Asia/Jakarta"
		h.save(t, sch)

		exec := h.executor(ExecutorConfig{DefaultChatID: "@c"})
		exec.now = func() time.Time { return time.Date(2026, 10, 12, 1, 30, 10, 0, time.UTC) }

		res, err := exec.ExecuteNow(ctx, sch.ID)
		require.NoError(t, err)
		assert.True(t, res.Success)

		// 01:30 UTC is 08:30 in Jakarta; a second run there is refused
		assert.False(t, h.lock.TryAcquire(ctx, sch.ID, "08:30"))
		res, err = exec.ExecuteNow(ctx, sch.ID)
		require.NoError(t, err)
		assert.Equal(t, MsgAlreadyLocked, res.Message)
	})

	t.Run("config and fetch errors become messages", func(t *testing.T) {
		h := newHarness(t)
		sch := testSchedule()
		h.save(t, sch)

		noChat := h.executor(ExecutorConfig{})
		noChat.now = func() time.Time { return time.Date(2026, 10, 12, 8, 59, 0, 0, time.UTC) }
		res, err := noChat.ExecuteNow(ctx, sch.ID)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "Telegram chat ID not configured")

		h.fetcher.err = errors.New("apify down")
		exec := h.executor(ExecutorConfig{DefaultChatID: "@c"})
		exec.now = func() time.Time { return time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC) }
		res, err = exec.ExecuteNow(ctx, sch.ID)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Contains(t, res.Message, "apify down")
	})
}

// cancelSender cancels the run context while the channel accepts the message.
type cancelSender struct {
	fakeSender
	cancel context.CancelFunc
}

func (c *cancelSender) SendText(ctx context.Context, chatRef, text string) error {
	err := c.fakeSender.SendText(ctx, chatRef, text)
	c.cancel()
	return err
}

func TestExecutor_CancelledMidBatchKeepsDeliveredItems(t *testing.T) {
	h := newHarness(t)
	sch := testSchedule()
	sch.PreventDuplicates = true
	sch.DuplicateWindowHours = 24
	h.save(t, sch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sender := &cancelSender{cancel: cancel}
	d := NewDispatcher(sender, h.history, WithDispatchDelay(0))
	exec := NewExecutor(h.schedules, h.history, h.lock, h.fetcher, d, ExecutorConfig{DefaultChatID: "@c"}, WithRunStore(h.runs))

	res, err := exec.Run(ctx, sch, "08:00")
	require.NoError(t, err)
	assert.Equal(t, 1, res.SentCount)
	assert.Len(t, sender.sent(), 1)

	bg := context.Background()
	rows, err := h.history.ListByExecution(bg, res.ExecutionID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	ids, err := h.history.RecentIDs(bg, sch.ID, 24)
	require.NoError(t, err)
	assert.Equal(t, []string{rows[0].SourceID}, ids)

	stored, err := h.schedules.GetByID(bg, sch.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stored.TotalSent)
	assert.NotNil(t, stored.LastRunAt)

	runs := h.runsOf(t, sch.ID)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].SentCount)
	assert.Equal(t, 3, runs[0].SelectedCount)
}

func TestExecutor_KeywordFilterOnByDefault(t *testing.T) {
	h := newHarness(t)
	sch := testSchedule()
	sch.Keywords = []string{"rustlang"}
	h.fetcher.items = textItems(3)
	h.fetcher.items[1].Text = "RustLang 2.0 is out"

	res, err := h.executor(ExecutorConfig{DefaultChatID: "@c"}).Run(context.Background(), sch, "08:00")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.SentCount)
	assert.Equal(t, 1, res.TotalAvailable)

	calls := h.sender.sent()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Body, "RustLang 2.0")
}

func TestExecutor_RecordsRunPerAttempt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	sch := testSchedule()
	h.save(t, sch)
	exec := h.executor(ExecutorConfig{DefaultChatID: "@c"})

	res, err := exec.Run(ctx, sch, "08:00")
	require.NoError(t, err)
	require.True(t, res.Success)

	// lock contention writes nothing
	_, err = exec.Run(ctx, sch, "08:00")
	require.NoError(t, err)

	h.fetcher.err = errors.New("actor run failed")
	_, err = exec.Run(ctx, sch, "09:00")
	require.True(t, domain.IsFetchError(err))

	exec.now = func() time.Time { return time.Date(2026, 10, 12, 10, 15, 0, 0, time.UTC) }
	h.fetcher.err = nil
	manual, err := exec.ExecuteNow(ctx, sch.ID)
	require.NoError(t, err)
	require.True(t, manual.Success)

	runs := h.runsOf(t, sch.ID)
	require.Len(t, runs, 3)
	byID := map[string]domain.ExecutionRun{}
	for _, r := range runs {
		byID[r.ID] = r
	}

	ok := byID[res.ExecutionID]
	assert.Equal(t, domain.RunSuccess, ok.Status)
	assert.Equal(t, domain.TriggerScheduled, ok.Trigger)
	assert.Equal(t, "08:00", ok.Minute)
	assert.Equal(t, 3, ok.SentCount)
	assert.Equal(t, 5, ok.TotalFetched)
	assert.Equal(t, "Sent 3 tweets", ok.Message)

	m := byID[manual.ExecutionID]
	assert.Equal(t, domain.TriggerManual, m.Trigger)
	assert.Equal(t, "10:15", m.Minute)

	var failed []domain.ExecutionRun
	for _, r := range runs {
		if r.Status == domain.RunFailed {
			failed = append(failed, r)
		}
	}
	require.Len(t, failed, 1)
	assert.Equal(t, "09:00", failed[0].Minute)
	assert.Contains(t, failed[0].Message, "actor run failed")
}
