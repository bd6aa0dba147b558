package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
)

type sentCall struct {
	Kind    string // text | single | group
	ChatRef string
	Body    string
	Media   []domain.MediaAttachment
}

type fakeSender struct {
	mu      sync.Mutex
	calls   []sentCall
	failOn  map[int]bool // 0-based call index
	panicOn map[int]bool
	n       int
}

func (f *fakeSender) next(call sentCall) error {
	f.mu.Lock()
	idx := f.n
	f.n++
	fail := f.failOn[idx]
	boom := f.panicOn[idx]
	if !fail && !boom {
		f.calls = append(f.calls, call)
	}
	f.mu.Unlock()

	if boom {
		panic("channel exploded")
	}
	if fail {
		return errors.New("telegram: Bad Request")
	}
	return nil
}

func (f *fakeSender) SendText(ctx context.Context, chatRef, text string) error {
	return f.next(sentCall{Kind: "text", ChatRef: chatRef, Body: text})
}

func (f *fakeSender) SendSingleMedia(ctx context.Context, chatRef string, media domain.MediaAttachment, caption string) error {
	return f.next(sentCall{Kind: "single", ChatRef: chatRef, Body: caption, Media: []domain.MediaAttachment{media}})
}

func (f *fakeSender) SendMediaGroup(ctx context.Context, chatRef string, media []domain.MediaAttachment, firstCaption string) error {
	return f.next(sentCall{Kind: "group", ChatRef: chatRef, Body: firstCaption, Media: media})
}

func (f *fakeSender) sent() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentCall(nil), f.calls...)
}

type fakeFetcher struct {
	items    []domain.CandidateItem
	err      error
	block    bool
	calls    int
	keywords []string
	maxItems int
	filters  domain.FilterBundle
}

func (f *fakeFetcher) Fetch(ctx context.Context, keywords []string, maxItems int, filters domain.FilterBundle) ([]domain.CandidateItem, error) {
	f.calls++
	f.keywords = keywords
	f.maxItems = maxItems
	f.filters = filters
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.items, f.err
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]bool
	deny     bool
	cleanups int
}

func (l *fakeLock) TryAcquire(ctx context.Context, scheduleID, minute string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.deny {
		return false
	}
	if l.held == nil {
		l.held = map[string]bool{}
	}
	key := scheduleID + "@" + minute
	if l.held[key] {
		return false
	}
	l.held[key] = true
	return true
}

func (l *fakeLock) CleanupStale(ctx context.Context, maxAgeMinutes int) (int64, error) {
	l.mu.Lock()
	l.cleanups++
	l.mu.Unlock()
	return 0, nil
}

// fakeHistory embeds the interface so only the used methods need bodies.
type fakeHistory struct {
	domain.HistoryRepository
	mu          sync.Mutex
	rows        []domain.SentItem
	recent      []string
	recentErr   error
	recordErr   error
	recentCalls int
}

func (h *fakeHistory) Record(ctx context.Context, item *domain.SentItem) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recordErr != nil {
		return h.recordErr
	}
	h.rows = append(h.rows, *item)
	return nil
}

func (h *fakeHistory) RecentIDs(ctx context.Context, scheduleID string, windowHours int) ([]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recentCalls++
	return h.recent, h.recentErr
}

type fakeRewriter struct {
	err    error
	prompt string
}

func (r *fakeRewriter) Rewrite(ctx context.Context, text, prompt string) (string, error) {
	r.prompt = prompt
	if r.err != nil {
		return "", r.err
	}
	return "REWRITTEN: " + text, nil
}

type fakeSettings struct {
	paused bool
	prompt string
}

func (s fakeSettings) SchedulerPaused(ctx context.Context) bool        { return s.paused }
func (s fakeSettings) DefaultRewritePrompt(ctx context.Context) string { return s.prompt }

func textItems(n int) []domain.CandidateItem {
	base := time.Date(2026, 10, 12, 7, 0, 0, 0, time.UTC)
	out := make([]domain.CandidateItem, n)
	for i := range out {
		out[i] = domain.CandidateItem{
			ID:           fmt.Sprintf("t%d", i+1),
			URL:          fmt.Sprintf("https://x.com/gopher/status/%d", i+1),
			Text:         fmt.Sprintf("golang tip number %d", i+1),
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
			AuthorHandle: "gopher",
			AuthorName:   "Gopher",
			LikeCount:    int64(10 * (i + 1)),
		}
	}
	return out
}

func withMedia(item domain.CandidateItem, kinds ...domain.MediaKind) domain.CandidateItem {
	for i, k := range kinds {
		item.Media = append(item.Media, domain.MediaAttachment{Kind: k, URL: fmt.Sprintf("https://pbs.twimg.com/%s/%d", k, i)})
	}
	return item
}
