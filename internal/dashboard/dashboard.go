// Package dashboard holds the last-good snapshots rendered by the UI and
// the scheduler that keeps them fresh.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seenimoa/marketlens/internal/analysis/news"
	"github.com/seenimoa/marketlens/internal/analysis/sentiment"
	"github.com/seenimoa/marketlens/internal/logging"
	"github.com/seenimoa/marketlens/internal/snapshot"
	"github.com/seenimoa/marketlens/pkg/models"
)

// Resource names one of the dashboard's snapshot components.
type Resource string

const (
	ResourceNews      Resource = "news"
	ResourceSentiment Resource = "sentiment"
	ResourceReports   Resource = "reports"
)

// Resources lists every component in load order.
var Resources = []Resource{ResourceNews, ResourceSentiment, ResourceReports}

// Status describes the last load of one resource.
type Status struct {
	Loaded    bool      `json:"loaded"` // at least one successful load
	Failed    bool      `json:"failed"` // last load failed
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Snapshot is a copy of the dashboard state.
type Snapshot struct {
	News      []models.NewsRecord      `json:"news"`
	Sentiment models.SentimentSnapshot `json:"sentiment"`
	Reports   models.ReportsSnapshot   `json:"reports"`
	Status    map[Resource]Status      `json:"status"`
}

// Classifier labels a feed record with an industry, an impact score and a
// reason. ok is false when the label is a fallback.
type Classifier interface {
	ClassifyNews(ctx context.Context, rec models.NewsRecord) (models.NewsRecord, bool)
}

// classifyWorkers bounds concurrent classification calls.
const classifyWorkers = 4

// UpdateFunc is called after a load has been applied.
type UpdateFunc func(Resource)

// Dashboard owns the shared snapshot state.
type Dashboard struct {
	loader     *snapshot.Loader
	logger     *slog.Logger
	keepStale  bool
	classifier Classifier

	labelMu sync.Mutex
	labels  map[string]models.NewsRecord // feed record ID -> model verdict

	mu        sync.RWMutex
	news      []models.NewsRecord
	sentiment models.SentimentSnapshot
	reports   models.ReportsSnapshot
	status    map[Resource]Status
	gen       map[Resource]uint64

	subMu sync.RWMutex
	subs  []UpdateFunc
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dashboard) { d.logger = l }
}

// WithKeepStale controls whether a failed load keeps the previous value.
func WithKeepStale(keep bool) Option {
	return func(d *Dashboard) { d.keepStale = keep }
}

// WithClassifier labels unscored feed records before they are merged.
func WithClassifier(c Classifier) Option {
	return func(d *Dashboard) { d.classifier = c }
}

// New creates a dashboard with default sentiment and empty news/reports.
func New(loader *snapshot.Loader, opts ...Option) *Dashboard {
	d := &Dashboard{
		loader:    loader,
		keepStale: true,
		news:      []models.NewsRecord{},
		sentiment: sentiment.Default(),
		status:    make(map[Resource]Status, len(Resources)),
		gen:       make(map[Resource]uint64, len(Resources)),
		labels:    make(map[string]models.NewsRecord),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.OrDiscard(d.logger)
	return d
}

// OnUpdate registers fn to be called after every applied load.
func (d *Dashboard) OnUpdate(fn UpdateFunc) {
	d.subMu.Lock()
	d.subs = append(d.subs, fn)
	d.subMu.Unlock()
}

func (d *Dashboard) notify(r Resource) {
	d.subMu.RLock()
	subs := append([]UpdateFunc(nil), d.subs...)
	d.subMu.RUnlock()
	for _, fn := range subs {
		fn(r)
	}
}

// ── Generation tokens ──

// begin issues a new token for r. Only the newest token may apply.
func (d *Dashboard) begin(r Resource) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen[r]++
	return d.gen[r]
}

// invalidate retires every outstanding token.
func (d *Dashboard) invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, r := range Resources {
		d.gen[r]++
	}
}

// commit applies a load result if token is still current and ctx is live.
// Must not be called with mu held.
func commit[T any](ctx context.Context, d *Dashboard, r Resource, token uint64, res snapshot.Result[T], slot *T) bool {
	d.mu.Lock()
	if d.gen[r] != token || ctx.Err() != nil {
		d.mu.Unlock()
		d.logger.Debug("discarding stale load", "resource", r, "token", token)
		return false
	}

	st := d.status[r]
	st.FetchedAt = res.FetchedAt
	st.Failed = res.Failed
	st.Error = ""
	switch {
	case !res.Failed:
		*slot = res.Value
		st.Loaded = true
	case d.keepStale && st.Loaded:
		st.Error = errString(res.Err)
	default:
		*slot = res.Value
		st.Error = errString(res.Err)
	}
	d.status[r] = st
	d.mu.Unlock()

	d.notify(r)
	return true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ── Loads ──

// Refresh loads every resource concurrently. force busts upstream caches.
// Failures never abort the other loads; they are reflected in Status.
func (d *Dashboard) Refresh(ctx context.Context, force bool) Snapshot {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range Resources {
		g.Go(func() error {
			d.Load(gctx, r, force)
			return nil
		})
	}
	_ = g.Wait()
	return d.Snapshot()
}

// Load fetches one resource and applies it. It reports whether the result
// was applied; a newer load or a stopped poller discards it.
func (d *Dashboard) Load(ctx context.Context, r Resource, force bool) bool {
	token := d.begin(r)
	switch r {
	case ResourceNews:
		res := d.loader.News(ctx, force)
		if len(d.loader.Endpoints().Feeds) > 0 {
			res.Value = snapshot.MergeNews(res.Value, d.classifyFeed(ctx, d.loader.Feeds(ctx)))
		}
		return commit(ctx, d, r, token, res, &d.news)
	case ResourceSentiment:
		return commit(ctx, d, r, token, d.loader.Sentiment(ctx, force), &d.sentiment)
	case ResourceReports:
		return commit(ctx, d, r, token, d.loader.Reports(ctx, force), &d.reports)
	}
	return false
}

// classifyFeed labels unscored feed records. Model verdicts are remembered
// by record ID for as long as the record stays in the feed; fallbacks are
// retried on the next load.
func (d *Dashboard) classifyFeed(ctx context.Context, records []models.NewsRecord) []models.NewsRecord {
	if d.classifier == nil || len(records) == 0 {
		return records
	}
	out := make([]models.NewsRecord, len(records))
	copy(out, records)

	d.labelMu.Lock()
	known := make(map[string]models.NewsRecord, len(out))
	for _, rec := range out {
		if l, ok := d.labels[rec.ID]; ok {
			known[rec.ID] = l
		}
	}
	d.labelMu.Unlock()

	var mu sync.Mutex
	fresh := make(map[string]models.NewsRecord)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(classifyWorkers)
	for i := range out {
		if out[i].HasScore() {
			continue
		}
		if l, ok := known[out[i].ID]; ok {
			out[i] = l
			continue
		}
		g.Go(func() error {
			labeled, ok := d.classifier.ClassifyNews(gctx, out[i])
			out[i] = labeled
			if ok {
				mu.Lock()
				fresh[labeled.ID] = labeled
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	d.labelMu.Lock()
	for id, l := range fresh {
		known[id] = l
	}
	d.labels = known
	d.labelMu.Unlock()
	d.logger.Debug("feed classified", "records", len(out), "new", len(fresh))
	return out
}

// ── Readers ──

// Snapshot returns a copy of the current state.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Snapshot{
		News:      append([]models.NewsRecord(nil), d.news...),
		Sentiment: copySentiment(d.sentiment),
		Reports:   d.reports,
		Status:    d.statusCopy(),
	}
}

// News returns a copy of the current news records.
func (d *Dashboard) News() []models.NewsRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]models.NewsRecord(nil), d.news...)
}

// NewsView computes the filtered view over the current records.
func (d *Dashboard) NewsView(f models.FilterState) news.View {
	return news.ComputeView(d.News(), f)
}

// Sentiment returns the current sentiment snapshot.
func (d *Dashboard) Sentiment() models.SentimentSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return copySentiment(d.sentiment)
}

// Reports returns the current reports snapshot.
func (d *Dashboard) Reports() models.ReportsSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.reports
}

// Status returns the load status of r.
func (d *Dashboard) Status(r Resource) Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status[r]
}

// Sources returns the distinct news sources currently loaded.
func (d *Dashboard) Sources() []string {
	return snapshot.SortedSources(d.News())
}

func (d *Dashboard) statusCopy() map[Resource]Status {
	out := make(map[Resource]Status, len(d.status))
	for k, v := range d.status {
		out[k] = v
	}
	return out
}

func copySentiment(s models.SentimentSnapshot) models.SentimentSnapshot {
	s.Indices = append([]models.IndexQuote(nil), s.Indices...)
	return s
}
