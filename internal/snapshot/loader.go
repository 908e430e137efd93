// Package snapshot fetches the pre-computed JSON snapshots (news, sentiment,
// reports) published by the data backend, plus optional RSS feeds.
//
// Loaders never fail: any transport, status or shape problem yields the
// caller's fallback value with Result.Failed set.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/marketlens/internal/analysis/sentiment"
	"github.com/seenimoa/marketlens/internal/logging"
	"github.com/seenimoa/marketlens/pkg/models"
)

// --- Sentinel errors ---

// ErrHTTPStatus is matched by every *HTTPError.
var ErrHTTPStatus = errors.New("unexpected HTTP status")

// HTTPError wraps a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d %s", e.URL, e.StatusCode, e.Body)
}

// Unwrap lets errors.Is(err, ErrHTTPStatus) match.
func (e *HTTPError) Unwrap() error { return ErrHTTPStatus }

// CacheBustParam is the query parameter appended on forced reloads.
const CacheBustParam = "_t"

// maxBody caps snapshot bodies read into memory.
const maxBody = 8 << 20

// Endpoints are the snapshot URLs.
type Endpoints struct {
	News      string
	Sentiment string
	Reports   string
	Feeds     []string
}

// Result is the outcome of a single load. Value is always usable: on failure
// it holds the fallback.
type Result[T any] struct {
	Value     T
	Failed    bool
	Err       error
	FetchedAt time.Time
}

// Loader performs snapshot GETs.
type Loader struct {
	endpoints Endpoints
	client    *http.Client
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithClock overrides the clock used for cache busting and FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(l *Loader) { l.now = now }
}

// NewLoader creates a loader for the given endpoints.
func NewLoader(endpoints Endpoints, timeout time.Duration, opts ...Option) *Loader {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	l := &Loader{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.OrDiscard(l.logger)
	return l
}

// Endpoints returns the configured endpoints.
func (l *Loader) Endpoints() Endpoints { return l.endpoints }

// WithCacheBust appends _t=<unix millis> to rawURL, replacing any previous value.
func WithCacheBust(rawURL string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	u, err := url.Parse(rawURL)
	if err != nil {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		return rawURL + sep + CacheBustParam + "=" + stamp
	}
	q := u.Query()
	q.Set(CacheBustParam, stamp)
	u.RawQuery = q.Encode()
	return u.String()
}

// Fetch GETs target, decodes the body and returns the value. Transport
// failures, non-2xx statuses and decode errors all return fallback with
// Failed set. No retries are attempted.
func Fetch[T any](ctx context.Context, l *Loader, target string, decode func([]byte) (T, error), fallback T) Result[T] {
	res := Result[T]{Value: fallback, FetchedAt: l.now()}

	body, err := l.get(ctx, target)
	if err == nil {
		var v T
		if v, err = decode(body); err == nil {
			res.Value = v
			return res
		}
	}

	res.Failed = true
	res.Err = err
	l.logger.Warn("snapshot load failed", "url", target, "error", err)
	return res
}

func (l *Loader) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, */*")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &HTTPError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return body, nil
}

func (l *Loader) target(rawURL string, force bool) string {
	if force {
		return WithCacheBust(rawURL, l.now())
	}
	return rawURL
}

// --- Typed loaders ---

// News loads the news list. The fallback is an empty list.
func (l *Loader) News(ctx context.Context, force bool) Result[[]models.NewsRecord] {
	return Fetch(ctx, l, l.target(l.endpoints.News, force), DecodeNews, []models.NewsRecord{})
}

// Sentiment loads and normalizes the sentiment snapshot. The fallback is the
// default sentiment record.
func (l *Loader) Sentiment(ctx context.Context, force bool) Result[models.SentimentSnapshot] {
	decode := func(body []byte) (models.SentimentSnapshot, error) {
		raw, err := DecodeSentiment(body)
		if err != nil {
			return models.SentimentSnapshot{}, err
		}
		return sentiment.Normalize(raw), nil
	}
	return Fetch(ctx, l, l.target(l.endpoints.Sentiment, force), decode, sentiment.Default())
}

// Reports loads the daily reports. The fallback is an empty reports object.
func (l *Loader) Reports(ctx context.Context, force bool) Result[models.ReportsSnapshot] {
	return Fetch(ctx, l, l.target(l.endpoints.Reports, force), DecodeReports, models.ReportsSnapshot{})
}
