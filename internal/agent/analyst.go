// Package agent implements the market analyst: a single-attempt
// chat-completion client that always produces text, falling back to canned
// offline commentary when the backend is unavailable.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/seenimoa/marketlens/internal/agent/prompts"
	"github.com/seenimoa/marketlens/internal/config"
	"github.com/seenimoa/marketlens/internal/llm"
	"github.com/seenimoa/marketlens/internal/logging"
	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// ZeroBalance is reported when the balance list is empty.
const ZeroBalance = "CNY 0.00"

// ── Analyst ──

// Analyst turns context strings into market commentary.
//
// Without a provider every call returns the canned response. With one,
// each call makes exactly one remote attempt; any failure falls back.
type Analyst struct {
	provider llm.LLMProvider
	balance  llm.BalanceProvider
	logger   *slog.Logger
	opts     *llm.ChatOptions
	now      func() time.Time
}

// Option configures an Analyst.
type Option func(*Analyst)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyst) { a.logger = l }
}

// WithChatOptions overrides the provider's default sampling parameters.
func WithChatOptions(opts *llm.ChatOptions) Option {
	return func(a *Analyst) { a.opts = opts }
}

// WithBalanceProvider sets the balance source. Providers implementing
// llm.BalanceProvider are picked up automatically.
func WithBalanceProvider(b llm.BalanceProvider) Option {
	return func(a *Analyst) { a.balance = b }
}

// NewAnalyst creates an analyst. A nil provider means no credential is
// configured.
func NewAnalyst(provider llm.LLMProvider, opts ...Option) *Analyst {
	a := &Analyst{provider: provider, now: time.Now}
	if b, ok := provider.(llm.BalanceProvider); ok {
		a.balance = b
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDiscard(a.logger)
	return a
}

// NewAnalystFromConfig builds the provider from cfg. A missing key yields an
// offline analyst; other construction errors are logged and also yield an
// offline analyst.
func NewAnalystFromConfig(cfg config.LLMConfig, logger *slog.Logger) *Analyst {
	logger = logging.OrDiscard(logger)
	p, err := llm.NewProviderFromConfig(cfg)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		logger.Info("analysis running in offline mode", "reason", "no API key")
		return NewAnalyst(nil, WithLogger(logger))
	case err != nil:
		logger.Warn("analysis provider unavailable, running offline", "error", err)
		return NewAnalyst(nil, WithLogger(logger))
	}
	return NewAnalyst(p, WithLogger(logger))
}

// HasCredential reports whether remote calls will be attempted.
func (a *Analyst) HasCredential() bool { return a.provider != nil }

// Analyze returns commentary for contextText. Unknown types are treated as
// general. The result text is never empty.
func (a *Analyst) Analyze(ctx context.Context, contextText string, t models.AnalysisType) models.AnalysisResult {
	t = models.ParseAnalysisType(string(t))
	result := models.AnalysisResult{Type: t}

	if a.provider == nil {
		result.Text = prompts.Fallback(t, contextText)
		result.Fallback = true
		return result
	}

	messages := []llm.Message{
		llm.SystemMessage(prompts.SystemPrompt),
		llm.UserMessage(prompts.Build(t, contextText)),
	}
	resp, err := a.provider.Chat(ctx, messages, a.opts)
	if err != nil {
		a.logger.Warn("analysis call failed, using fallback", "type", t, "error", err)
		result.Text = prompts.Fallback(t, contextText)
		result.Fallback = true
		return result
	}
	if strings.TrimSpace(resp.Content) == "" {
		a.logger.Warn("analysis returned empty content, using fallback", "type", t)
		result.Text = prompts.Fallback(t, contextText)
		result.Fallback = true
		return result
	}

	a.logger.Debug("analysis complete", "type", t, "model", resp.Model, "tokens", resp.Usage.TotalTokens, "latency", resp.Latency)
	result.Text = resp.Content
	result.Model = resp.Model
	return result
}

// FetchAccountBalance returns "<currency> <total_balance>" for the first
// balance entry, ZeroBalance when the list is empty, and false when no
// credential is configured or the call fails.
func (a *Analyst) FetchAccountBalance(ctx context.Context) (string, bool) {
	if a.provider == nil || a.balance == nil {
		return "", false
	}
	bal, err := a.balance.Balance(ctx)
	if err != nil {
		a.logger.Warn("balance query failed", "error", err)
		return "", false
	}
	if len(bal.Infos) == 0 {
		return ZeroBalance, true
	}
	info := bal.Infos[0]
	return fmt.Sprintf("%s %s", info.Currency, info.TotalBalance), true
}

// Report writes the market review for a slot. Without a working backend the
// content is the offline placeholder.
func (a *Analyst) Report(ctx context.Context, slot models.ReportSlot) (models.MarketReport, bool) {
	rep := models.MarketReport{
		Title: prompts.ReportTitle(slot),
		Time:  utils.FormatClock(a.now()),
	}
	if a.provider == nil {
		rep.Content = prompts.ReportFallback(slot)
		return rep, false
	}

	resp, err := a.provider.Chat(ctx, []llm.Message{llm.UserMessage(prompts.Report(slot))}, a.opts)
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		a.logger.Warn("report generation failed", "slot", slot, "error", err)
		rep.Content = prompts.ReportFallback(slot)
		return rep, false
	}
	rep.Content = resp.Content
	return rep, true
}
