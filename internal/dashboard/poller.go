package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/seenimoa/marketlens/internal/config"
)

// ErrPollerRunning is returned by Start on a running poller.
var ErrPollerRunning = errors.New("dashboard: poller already running")

// Intervals are the per-resource polling periods.
type Intervals struct {
	News      time.Duration
	Sentiment time.Duration
	Reports   time.Duration
}

// IntervalsFromConfig reads the polling periods from snapshot config.
func IntervalsFromConfig(cfg config.SnapshotConfig) Intervals {
	return Intervals{
		News:      cfg.NewsRefresh(),
		Sentiment: cfg.SentimentRefresh(),
		Reports:   cfg.ReportsRefresh(),
	}
}

func (iv Intervals) of(r Resource) time.Duration {
	switch r {
	case ResourceNews:
		return iv.News
	case ResourceSentiment:
		return iv.Sentiment
	default:
		return iv.Reports
	}
}

// Poller refreshes a dashboard on fixed intervals. Each resource has its
// own ticker; the first load happens immediately on Start.
type Poller struct {
	d         *Dashboard
	intervals Intervals

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller creates a stopped poller.
func NewPoller(d *Dashboard, iv Intervals) *Poller {
	return &Poller{d: d, intervals: iv}
}

// Start launches one polling goroutine per resource. The poller runs until
// Stop is called or ctx is cancelled.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrPollerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	for _, r := range Resources {
		interval := p.intervals.of(r)
		if interval <= 0 {
			continue
		}
		p.wg.Add(1)
		go p.run(ctx, r, interval)
	}
	p.d.logger.Info("dashboard poller started",
		"news", p.intervals.News, "sentiment", p.intervals.Sentiment, "reports", p.intervals.Reports)
	return nil
}

func (p *Poller) run(ctx context.Context, r Resource, interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.d.Load(ctx, r, false)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.d.Load(ctx, r, false)
		}
	}
}

// Stop cancels the tickers and in-flight loads. Results arriving after Stop,
// including those of concurrent manual refreshes, are discarded.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.d.invalidate()
	p.mu.Unlock()

	p.wg.Wait()
	p.d.logger.Info("dashboard poller stopped")
}

// Running reports whether the poller is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}
