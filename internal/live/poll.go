package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"opsdash/internal/domain"
	"opsdash/internal/presence"
)

// DefaultPollInterval is used when PollOptions.Interval is unset.
const DefaultPollInterval = 15 * time.Second

// PollOptions configures a PollTransport.
type PollOptions struct {
	Interval   time.Duration
	MaxRetries int // consecutive failed polls before the sink goes to error; 0 means never
}

// PollTransport polls the activity source for events newer than the last
// one seen. It is the fallback when no push channel is configured.
type PollTransport struct {
	src  domain.ActivitySource
	sink Sink
	opts PollOptions
	log  *slog.Logger
	now  func() time.Time

	mu        sync.Mutex
	watermark time.Time
	atMark    map[string]bool // ids already delivered at exactly watermark
	connected bool
	failures  int
}

func NewPollTransport(src domain.ActivitySource, sink Sink, opts PollOptions) *PollTransport {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	return &PollTransport{
		src:    src,
		sink:   sink,
		opts:   opts,
		log:    slog.Default().With("component", "live-poll"),
		now:    time.Now,
		atMark: map[string]bool{},
	}
}

// Run polls until ctx is done.
func (p *PollTransport) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.watermark.IsZero() {
		p.watermark = p.now()
	}
	p.mu.Unlock()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.check(ctx)
	for {
		select {
		case <-ticker.C:
			p.check(ctx)
		case <-ctx.Done():
			signal(context.WithoutCancel(ctx), p.sink, presence.SignalClosed, nil)
			return nil
		}
	}
}

// check runs one poll and returns the number of new events delivered.
func (p *PollTransport) check(ctx context.Context) int {
	p.mu.Lock()
	since := p.watermark
	p.mu.Unlock()

	events, err := p.src.ListActivity(ctx, since)
	if err != nil {
		p.failed(ctx, err)
		return 0
	}

	p.mu.Lock()
	if !p.connected {
		if p.failures > 0 {
			signal(ctx, p.sink, presence.SignalReconnect, nil)
		}
		signal(ctx, p.sink, presence.SignalOpen, nil)
		p.connected = true
	}
	p.failures = 0

	var fresh []domain.ActivityEvent
	for _, e := range events {
		switch {
		case e.OccurredAt.Before(p.watermark):
			continue
		case e.OccurredAt.Equal(p.watermark) && p.atMark[e.ID]:
			continue
		}
		fresh = append(fresh, e)
	}
	for _, e := range fresh {
		if e.OccurredAt.After(p.watermark) {
			p.watermark = e.OccurredAt
			p.atMark = map[string]bool{}
		}
	}
	for _, e := range fresh {
		if e.OccurredAt.Equal(p.watermark) {
			p.atMark[e.ID] = true
		}
	}
	p.mu.Unlock()

	for i := range fresh {
		deliver(ctx, p.sink, Frame{Type: FrameActivity, Activity: &fresh[i]})
	}
	return len(fresh)
}

func (p *PollTransport) failed(ctx context.Context, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	p.log.Warn("activity poll failed", "err", err, "failures", p.failures)

	if p.connected {
		signal(ctx, p.sink, presence.SignalClosed, nil)
		p.connected = false
	}
	if p.opts.MaxRetries > 0 && p.failures == p.opts.MaxRetries {
		signal(ctx, p.sink, presence.SignalError, fmt.Errorf("activity poll failed %d times: %w", p.failures, err))
	}
}
