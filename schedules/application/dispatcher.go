package application

import (
	"context"
	"fmt"
	"time"

	"github.com/AzielCF/az-tweetcast/schedules/domain"
	"github.com/sirupsen/logrus"
)

// DefaultDispatchDelay paces consecutive sends to stay under channel rate limits.
const DefaultDispatchDelay = 2 * time.Second

// Dispatcher sends a batch item by item. One failing item never stops the batch.
type Dispatcher struct {
	sender   domain.ChannelSender
	history  domain.HistoryRepository
	renderer *Renderer
	rewriter domain.TextRewriter
	settings RuntimeSettings
	delay    time.Duration
	now      func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithRewriter(r domain.TextRewriter) DispatcherOption {
	return func(d *Dispatcher) { d.rewriter = r }
}

func WithDispatchDelay(delay time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.delay = delay }
}

func WithRuntimeSettings(s RuntimeSettings) DispatcherOption {
	return func(d *Dispatcher) { d.settings = s }
}

func NewDispatcher(sender domain.ChannelSender, history domain.HistoryRepository, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		sender:   sender,
		history:  history,
		renderer: NewRenderer(),
		delay:    DefaultDispatchDelay,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch returns how many items reached the channel.
func (d *Dispatcher) Dispatch(ctx context.Context, sch *domain.Schedule, chatRef, executionID string, items []domain.CandidateItem) int {
	sent := 0
	for i, item := range items {
		if ctx.Err() != nil {
			logrus.Warnf("[DISPATCH] Schedule %s cancelled after %d/%d items", sch.ID, sent, len(items))
			break
		}

		if err := d.sendOne(ctx, sch, chatRef, item); err != nil {
			logrus.WithError(err).Errorf("[DISPATCH] Failed to send tweet %s for schedule %s", item.ID, sch.ID)
			continue
		}

		// the channel already has it, so the row must land even if ctx is cancelled
		row := domain.NewSentItem(sch.ID, executionID, item, d.now().UTC())
		if err := d.history.Record(context.WithoutCancel(ctx), &row); err != nil {
			// delivered already, so it still counts
			logrus.WithError(err).Errorf("[DISPATCH] Sent tweet %s but failed to record it", item.ID)
		}
		sent++

		if i < len(items)-1 && !d.sleep(ctx) {
			break
		}
	}

	logrus.Infof("[DISPATCH] Successfully sent %d/%d tweets for schedule %s", sent, len(items), sch.ID)
	return sent
}

func (d *Dispatcher) sendOne(ctx context.Context, sch *domain.Schedule, chatRef string, item domain.CandidateItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sending: %v", r)
		}
	}()

	text := d.bodyFor(ctx, sch, item)
	message := d.renderer.Render(sch.Template, item, text)

	switch len(item.Media) {
	case 0:
		return d.sender.SendText(ctx, chatRef, message)
	case 1:
		return d.sender.SendSingleMedia(ctx, chatRef, item.Media[0], message)
	default:
		// groups carry no parse mode
		return d.sender.SendMediaGroup(ctx, chatRef, item.Media, PlainText(message))
	}
}

// bodyFor returns the rewritten text, or the original when rewriting is off or fails.
func (d *Dispatcher) bodyFor(ctx context.Context, sch *domain.Schedule, item domain.CandidateItem) string {
	if !sch.UseAIRewrite || d.rewriter == nil {
		return item.Text
	}
	prompt := sch.RewritePrompt
	if prompt == "" && d.settings != nil {
		prompt = d.settings.DefaultRewritePrompt(ctx)
	}
	rewritten, err := d.rewriter.Rewrite(ctx, item.Text, prompt)
	if err != nil {
		logrus.WithError(err).Warnf("[DISPATCH] Rewrite failed for tweet %s, using original text", item.ID)
		return item.Text
	}
	return rewritten
}

func (d *Dispatcher) sleep(ctx context.Context) bool {
	if d.delay <= 0 {
		return true
	}
	t := time.NewTimer(d.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
