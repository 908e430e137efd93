package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/seenimoa/marketlens/internal/config"
)

// DeepSeekProvider implements LLMProvider for the DeepSeek chat API.
// Requests are issued exactly once: SDK retries are disabled.
type DeepSeekProvider struct {
	client      openai.Client
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	httpClient  *http.Client
}

// DeepSeekOption configures the DeepSeek provider.
type DeepSeekOption func(*DeepSeekProvider)

// WithDeepSeekBaseURL sets a custom base URL (e.g., a proxy or test server).
func WithDeepSeekBaseURL(url string) DeepSeekOption {
	return func(p *DeepSeekProvider) { p.baseURL = url }
}

// WithDeepSeekModel sets the default model.
func WithDeepSeekModel(model string) DeepSeekOption {
	return func(p *DeepSeekProvider) { p.model = model }
}

// WithDeepSeekTemperature sets the default sampling temperature. Zero is a
// valid setting.
func WithDeepSeekTemperature(temperature float64) DeepSeekOption {
	return func(p *DeepSeekProvider) { p.temperature = temperature }
}

// WithDeepSeekMaxTokens sets the default completion budget.
func WithDeepSeekMaxTokens(maxTokens int) DeepSeekOption {
	return func(p *DeepSeekProvider) { p.maxTokens = maxTokens }
}

// WithDeepSeekTimeout sets the per-request timeout.
func WithDeepSeekTimeout(d time.Duration) DeepSeekOption {
	return func(p *DeepSeekProvider) { p.timeout = d }
}

// WithDeepSeekHTTPClient sets a custom HTTP client.
func WithDeepSeekHTTPClient(client *http.Client) DeepSeekOption {
	return func(p *DeepSeekProvider) { p.httpClient = client }
}

// NewDeepSeekProvider creates a DeepSeek provider.
func NewDeepSeekProvider(apiKey string, opts ...DeepSeekOption) (*DeepSeekProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	def := DefaultProviderConfig()
	p := &DeepSeekProvider{
		baseURL:     def.BaseURL,
		model:       def.Model,
		temperature: def.Temperature,
		maxTokens:   def.MaxTokens,
		timeout:     def.Timeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(strings.TrimRight(p.baseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	if p.timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(p.timeout))
	}
	if p.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(p.httpClient))
	}
	p.client = openai.NewClient(reqOpts...)
	return p, nil
}

// NewProviderFromConfig builds the configured provider.
func NewProviderFromConfig(cfg config.LLMConfig) (*DeepSeekProvider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderDeepSeek:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	opts := []DeepSeekOption{WithDeepSeekTimeout(cfg.Timeout())}
	if cfg.BaseURL != "" {
		opts = append(opts, WithDeepSeekBaseURL(cfg.BaseURL))
	}
	if cfg.Model != "" {
		opts = append(opts, WithDeepSeekModel(cfg.Model))
	}
	if cfg.Temperature != nil {
		opts = append(opts, WithDeepSeekTemperature(*cfg.Temperature))
	}
	if cfg.MaxTokens > 0 {
		opts = append(opts, WithDeepSeekMaxTokens(cfg.MaxTokens))
	}
	return NewDeepSeekProvider(cfg.APIKey, opts...)
}

func (p *DeepSeekProvider) Name() string  { return ProviderDeepSeek }
func (p *DeepSeekProvider) Model() string { return p.model }

// Chat sends a chat completion request and returns the first choice.
func (p *DeepSeekProvider) Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error) {
	start := time.Now()
	model, temperature, maxTokens := p.resolve(opts)

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    toSDKMessages(messages),
		Temperature: openai.Float(temperature),
		MaxTokens:   openai.Int(int64(maxTokens)),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: blank content", ErrEmptyResponse)
	}

	if resp.Model != "" {
		model = resp.Model
	}
	return &Response{
		Content:  content,
		Model:    model,
		Provider: ProviderDeepSeek,
		Latency:  time.Since(start),
		Usage: Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

// Balance queries the account balance endpoint.
func (p *DeepSeekProvider) Balance(ctx context.Context) (*Balance, error) {
	var out Balance
	if err := p.client.Get(ctx, "user/balance", nil, &out); err != nil {
		return nil, classifyError(err)
	}
	return &out, nil
}

// Ping verifies the API key via the balance endpoint.
func (p *DeepSeekProvider) Ping(ctx context.Context) error {
	_, err := p.Balance(ctx)
	return err
}

func (p *DeepSeekProvider) resolve(opts *ChatOptions) (model string, temperature float64, maxTokens int) {
	model, temperature, maxTokens = p.model, p.temperature, p.maxTokens
	if opts == nil {
		return
	}
	if opts.Model != "" {
		model = opts.Model
	}
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	return
}

func toSDKMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// classifyError maps SDK errors onto the package sentinels.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: invalid API key (status %d)", ErrNoAPIKey, apiErr.StatusCode)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: status %d", ErrRateLimit, apiErr.StatusCode)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: insufficient balance", ErrProviderDown)
		default:
			return fmt.Errorf("%w: status %d", ErrProviderDown, apiErr.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", ErrProviderDown, err)
}
