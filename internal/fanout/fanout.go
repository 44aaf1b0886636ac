package fanout

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"cinegram/internal/domain"
	"cinegram/internal/metrics"
)

// Feed supplies the latest-items poll.
type Feed interface {
	NowPlaying(ctx context.Context) ([]domain.MovieSummary, error)
}

// Sender delivers one formatted feed item to one chat.
type Sender interface {
	SendFeedItem(ctx context.Context, chatID int64, item domain.MovieSummary) error
}

// SubscriberSet is the slice of the registry the loop needs.
type SubscriberSet interface {
	Snapshot() []int64
	RecordFailure(chatID int64) bool
	RecordSuccess(chatID int64)
}

// Loop polls the now-playing feed on a fixed interval and pushes items it
// has not announced before to every subscriber. One slow or failing chat
// never blocks the others; a failed poll skips the tick entirely.
type Loop struct {
	feed      Feed
	sender    Sender
	registry  SubscriberSet
	seen      *seenSet
	interval  time.Duration
	timeout   time.Duration
	sem       *semaphore.Weighted
	limiter   *rate.Limiter
	channelID int64
	logger    *slog.Logger
}

type Config struct {
	Feed     Feed
	Sender   Sender
	Registry SubscriberSet
	// Interval between polls; defaults to 6h.
	Interval time.Duration
	// Timeout bounds one whole tick's upstream calls; defaults to 30s.
	Timeout time.Duration
	// Concurrency caps simultaneous per-subscriber deliveries.
	Concurrency int
	// SendRate throttles outbound sends across all deliveries.
	SendRate float64
	// ChannelID, when non-zero, receives each new item once before the
	// subscriber fan-out.
	ChannelID int64
	// SeenCap bounds the dedupe set; zero picks the default.
	SeenCap int
	Logger  *slog.Logger
}

func NewLoop(cfg Config) *Loop {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	sendRate := cfg.SendRate
	if sendRate <= 0 {
		sendRate = 25
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		feed:      cfg.Feed,
		sender:    cfg.Sender,
		registry:  cfg.Registry,
		seen:      newSeenSet(cfg.SeenCap),
		interval:  interval,
		timeout:   timeout,
		sem:       semaphore.NewWeighted(int64(concurrency)),
		limiter:   rate.NewLimiter(rate.Limit(sendRate), int(sendRate)),
		channelID: cfg.ChannelID,
		logger:    logger,
	}
}

// Run cycles once immediately, then blocks on the interval ticker until ctx
// is cancelled. An in-flight tick finishes before Run returns; cancellation
// is only observed between deliveries and inside upstream calls.
func (l *Loop) Run(ctx context.Context) {
	if ctx.Err() == nil {
		l.Tick(ctx)
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one poll/deliver cycle. Exported so tests can drive the loop
// without a timer.
func (l *Loop) Tick(ctx context.Context) {
	tickCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	defer cancel()

	items, err := l.feed.NowPlaying(tickCtx)
	if err != nil {
		l.logger.Warn("feed poll failed, skipping tick", slog.String("error", err.Error()))
		return
	}

	subscribers := l.registry.Snapshot()
	for _, item := range items {
		if !l.seen.markNew(item.ID) {
			continue
		}
		metrics.FanoutItemsTotal.Inc()
		l.deliverItem(tickCtx, item, subscribers)
	}
}

// deliverItem pushes one item to the announce channel and every subscriber.
// Deliveries run concurrently under the semaphore and the shared limiter;
// each failure is counted against its subscriber only.
func (l *Loop) deliverItem(ctx context.Context, item domain.MovieSummary, subscribers []int64) {
	if l.channelID != 0 {
		l.deliverOne(ctx, l.channelID, item, false)
	}

	var wg sync.WaitGroup
	for _, chatID := range subscribers {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			l.logger.Warn("fan-out interrupted",
				slog.Int("movieID", item.ID),
				slog.String("error", err.Error()),
			)
			break
		}
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			defer l.sem.Release(1)
			l.deliverOne(ctx, chatID, item, true)
		}(chatID)
	}
	wg.Wait()
}

func (l *Loop) deliverOne(ctx context.Context, chatID int64, item domain.MovieSummary, tracked bool) {
	if err := l.limiter.Wait(ctx); err != nil {
		metrics.FanoutDeliveriesTotal.WithLabelValues("cancelled").Inc()
		return
	}
	if err := l.sender.SendFeedItem(ctx, chatID, item); err != nil {
		metrics.FanoutDeliveriesTotal.WithLabelValues("failed").Inc()
		l.logger.Warn("fan-out delivery failed",
			slog.Int64("chatID", chatID),
			slog.Int("movieID", item.ID),
			slog.String("error", err.Error()),
		)
		if tracked && l.registry.RecordFailure(chatID) {
			l.logger.Info("subscriber pruned after repeated delivery failures",
				slog.Int64("chatID", chatID),
			)
		}
		return
	}
	metrics.FanoutDeliveriesTotal.WithLabelValues("ok").Inc()
	if tracked {
		l.registry.RecordSuccess(chatID)
	}
}

// SeenCount exposes the dedupe set size for the diagnostics endpoint.
func (l *Loop) SeenCount() int {
	return l.seen.len()
}
