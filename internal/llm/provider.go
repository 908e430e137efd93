// Package llm provides the chat-completion backend used for market
// commentary. The DeepSeek provider speaks the OpenAI-compatible API through
// the openai-go SDK.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider names for configuration.
const (
	ProviderDeepSeek = "deepseek"
)

// Common errors returned by LLM providers.
var (
	ErrNoAPIKey        = errors.New("llm: API key not configured")
	ErrRateLimit       = errors.New("llm: rate limit exceeded")
	ErrProviderDown    = errors.New("llm: provider unavailable")
	ErrEmptyResponse   = errors.New("llm: empty response")
	ErrUnknownProvider = errors.New("llm: unknown provider")
)

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Response represents a complete response from the LLM.
type Response struct {
	Content  string        `json:"content"`
	Usage    Usage         `json:"usage"`
	Model    string        `json:"model"`
	Provider string        `json:"provider"`
	Latency  time.Duration `json:"latency"`
}

// Usage tracks token consumption for a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatOptions configures a single chat request. Zero fields and a nil
// temperature fall back to the provider defaults.
type ChatOptions struct {
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
}

// Temperature returns a pointer for ChatOptions.Temperature.
func Temperature(v float64) *float64 { return &v }

// LLMProvider is the interface chat backends implement.
type LLMProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Chat sends a conversation and returns a complete response.
	Chat(ctx context.Context, messages []Message, opts *ChatOptions) (*Response, error)

	// Ping checks that the provider is reachable and the key is accepted.
	Ping(ctx context.Context) error
}

// BalanceProvider is implemented by providers exposing account balance.
type BalanceProvider interface {
	Balance(ctx context.Context) (*Balance, error)
}

// Balance is the account balance document.
type Balance struct {
	IsAvailable bool          `json:"is_available"`
	Infos       []BalanceInfo `json:"balance_infos"`
}

// BalanceInfo is one per-currency balance entry. Amounts are decimal strings.
type BalanceInfo struct {
	Currency        string `json:"currency"`
	TotalBalance    string `json:"total_balance"`
	GrantedBalance  string `json:"granted_balance,omitempty"`
	ToppedUpBalance string `json:"topped_up_balance,omitempty"`
}

// ProviderConfig holds common configuration for creating an LLM provider.
type ProviderConfig struct {
	APIKey      string        `json:"api_key,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultProviderConfig returns the DeepSeek defaults.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		BaseURL:     "https://api.deepseek.com",
		Model:       "deepseek-chat",
		Temperature: 1.3,
		MaxTokens:   500,
		Timeout:     60 * time.Second,
	}
}

// SystemMessage creates a system prompt message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// String returns a human-readable summary of the response.
func (r *Response) String() string {
	truncated := []rune(r.Content)
	suffix := ""
	if len(truncated) > 100 {
		truncated = truncated[:100]
		suffix = "..."
	}
	return fmt.Sprintf("[%s/%s] %q, %d tokens, %v",
		r.Provider, r.Model, string(truncated)+suffix, r.Usage.TotalTokens, r.Latency.Round(time.Millisecond))
}
