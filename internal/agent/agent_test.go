package agent

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/seenimoa/marketlens/internal/agent/prompts"
	"github.com/seenimoa/marketlens/internal/analysis/news"
	"github.com/seenimoa/marketlens/internal/config"
	"github.com/seenimoa/marketlens/internal/llm"
	"github.com/seenimoa/marketlens/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Mock LLM Provider
// ════════════════════════════════════════════════════════════════════

type mockProvider struct {
	mu       sync.Mutex
	calls    int
	messages [][]llm.Message
	chatFunc func(messages []llm.Message) (*llm.Response, error)
	balance  func() (*llm.Balance, error)
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Chat(_ context.Context, messages []llm.Message, _ *llm.ChatOptions) (*llm.Response, error) {
	m.mu.Lock()
	m.calls++
	m.messages = append(m.messages, messages)
	m.mu.Unlock()
	if m.chatFunc != nil {
		return m.chatFunc(messages)
	}
	return &llm.Response{Content: "mock analysis", Model: "mock-model"}, nil
}

func (m *mockProvider) Ping(context.Context) error { return nil }

func (m *mockProvider) Balance(context.Context) (*llm.Balance, error) {
	if m.balance != nil {
		return m.balance()
	}
	return &llm.Balance{}, nil
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// chatOnly hides the Balance method.
type chatOnly struct{ llm.LLMProvider }

// ════════════════════════════════════════════════════════════════════
// Analyze
// ════════════════════════════════════════════════════════════════════

func TestAnalyzeOfflineIsDeterministic(t *testing.T) {
	a := NewAnalyst(nil)
	if a.HasCredential() {
		t.Fatal("nil provider should report no credential")
	}

	first := a.Analyze(context.Background(), "上涨: 3000家", models.AnalysisSentiment)
	second := a.Analyze(context.Background(), "上涨: 3000家", models.AnalysisSentiment)
	if !first.Fallback || first.Text == "" {
		t.Fatalf("expected non-empty fallback, got %+v", first)
	}
	if first.Text != second.Text {
		t.Error("offline sentiment text should be identical across calls")
	}
	if !strings.HasPrefix(first.Text, prompts.OfflineMarker) {
		t.Errorf("offline text should carry the marker, got %q", first.Text)
	}
}

func TestAnalyzeOfflineEmbedsContext(t *testing.T) {
	a := NewAnalyst(nil)
	res := a.Analyze(context.Background(), "贵州茅台", models.AnalysisStock)
	if !strings.Contains(res.Text, "贵州茅台") {
		t.Errorf("stock fallback should mention the context, got %q", res.Text)
	}
}

func TestAnalyzeSuccess(t *testing.T) {
	mock := &mockProvider{chatFunc: func(messages []llm.Message) (*llm.Response, error) {
		return &llm.Response{Content: "情绪回暖，可适度加仓。", Model: "deepseek-chat"}, nil
	}}
	a := NewAnalyst(mock)

	res := a.Analyze(context.Background(), "半导体", models.AnalysisSector)
	if res.Fallback {
		t.Fatal("successful call should not be marked as fallback")
	}
	if res.Text != "情绪回暖，可适度加仓。" || res.Model != "deepseek-chat" {
		t.Errorf("result = %+v", res)
	}
	if mock.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.callCount())
	}

	msgs := mock.messages[0]
	if len(msgs) != 2 || msgs[0].Role != llm.RoleSystem || msgs[1].Role != llm.RoleUser {
		t.Fatalf("unexpected message layout: %+v", msgs)
	}
	if msgs[0].Content != prompts.SystemPrompt {
		t.Error("first message should be the system prompt")
	}
	if !strings.Contains(msgs[1].Content, "半导体") {
		t.Errorf("user prompt should embed context, got %q", msgs[1].Content)
	}
}

func TestAnalyzeFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		resp *llm.Response
		err  error
	}{
		{"provider down", nil, llm.ErrProviderDown},
		{"rate limited", nil, llm.ErrRateLimit},
		{"blank content", &llm.Response{Content: "  "}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockProvider{chatFunc: func([]llm.Message) (*llm.Response, error) {
				return tt.resp, tt.err
			}}
			a := NewAnalyst(mock)
			res := a.Analyze(context.Background(), "ctx", models.AnalysisSentiment)
			if !res.Fallback {
				t.Error("expected fallback")
			}
			if res.Text != prompts.Fallback(models.AnalysisSentiment, "ctx") {
				t.Errorf("text = %q", res.Text)
			}
			if mock.callCount() != 1 {
				t.Errorf("calls = %d, want exactly 1", mock.callCount())
			}
		})
	}
}

func TestAnalyzeUnknownTypeIsGeneral(t *testing.T) {
	res := NewAnalyst(nil).Analyze(context.Background(), "x", models.AnalysisType("crypto"))
	if res.Type != models.AnalysisGeneral {
		t.Errorf("Type = %q, want general", res.Type)
	}
	if res.Text != prompts.Fallback(models.AnalysisGeneral, "x") {
		t.Errorf("text = %q", res.Text)
	}
}

// ════════════════════════════════════════════════════════════════════
// Balance
// ════════════════════════════════════════════════════════════════════

func TestFetchAccountBalance(t *testing.T) {
	tests := []struct {
		name    string
		balance func() (*llm.Balance, error)
		want    string
		wantOK  bool
	}{
		{
			name: "first entry",
			balance: func() (*llm.Balance, error) {
				return &llm.Balance{IsAvailable: true, Infos: []llm.BalanceInfo{
					{Currency: "CNY", TotalBalance: "110.00"},
					{Currency: "USD", TotalBalance: "5.00"},
				}}, nil
			},
			want: "CNY 110.00", wantOK: true,
		},
		{
			name:    "empty list",
			balance: func() (*llm.Balance, error) { return &llm.Balance{}, nil },
			want:    ZeroBalance, wantOK: true,
		},
		{
			name:    "call failure",
			balance: func() (*llm.Balance, error) { return nil, errors.New("boom") },
			want:    "", wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnalyst(&mockProvider{balance: tt.balance})
			got, ok := a.FetchAccountBalance(context.Background())
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FetchAccountBalance = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestFetchAccountBalanceWithoutCredential(t *testing.T) {
	if got, ok := NewAnalyst(nil).FetchAccountBalance(context.Background()); ok || got != "" {
		t.Errorf("no credential: got (%q, %v)", got, ok)
	}
	a := NewAnalyst(chatOnly{&mockProvider{}})
	if _, ok := a.FetchAccountBalance(context.Background()); ok {
		t.Error("provider without balance support should report false")
	}
}

// ════════════════════════════════════════════════════════════════════
// Reports and commentary
// ════════════════════════════════════════════════════════════════════

func TestReport(t *testing.T) {
	fixed := time.Date(2025, 1, 14, 3, 5, 0, 0, time.UTC)

	a := NewAnalyst(nil)
	a.now = func() time.Time { return fixed }
	rep, ok := a.Report(context.Background(), models.SlotMidday)
	if ok {
		t.Error("offline report should report false")
	}
	if rep.Title != prompts.ReportTitle(models.SlotMidday) || rep.Content != prompts.ReportFallback(models.SlotMidday) {
		t.Errorf("offline report = %+v", rep)
	}
	if rep.Time != "11:05" {
		t.Errorf("Time = %q, want 11:05", rep.Time)
	}

	mock := &mockProvider{}
	a = NewAnalyst(mock)
	rep, ok = a.Report(context.Background(), models.SlotClose)
	if !ok || rep.Content != "mock analysis" {
		t.Errorf("report = %+v, %v", rep, ok)
	}
	if len(mock.messages[0]) != 1 || mock.messages[0][0].Role != llm.RoleUser {
		t.Error("report prompt should be a single user message")
	}
}

func TestSectorOutlookUsesTopIndustry(t *testing.T) {
	mock := &mockProvider{}
	a := NewAnalyst(mock)

	v := news.View{Stats: news.Stats{TopIndustry: news.NoTopIndustry}}
	a.SectorOutlook(context.Background(), v)
	if !strings.Contains(mock.messages[0][1].Content, "全市场") {
		t.Errorf("no top industry should analyse the whole market, got %q", mock.messages[0][1].Content)
	}
}

func TestSentimentCommentOffline(t *testing.T) {
	res := NewAnalyst(nil).SentimentComment(context.Background(), models.SentimentSnapshot{Score: 55})
	if res.Type != models.AnalysisSentiment || !res.Fallback {
		t.Errorf("result = %+v", res)
	}
}

// ════════════════════════════════════════════════════════════════════
// End to end over HTTP
// ════════════════════════════════════════════════════════════════════

func TestAnalystFromConfigServerError(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"internal","type":"server_error"}}`)
	}))
	defer srv.Close()

	cfg := config.LLMConfig{Provider: "deepseek", BaseURL: srv.URL, APIKey: "sk-test", Model: "deepseek-chat", TimeoutSec: 5}
	a := NewAnalystFromConfig(cfg, nil)
	if !a.HasCredential() {
		t.Fatal("configured key should enable remote calls")
	}

	res := a.Analyze(context.Background(), "ctx", models.AnalysisSentiment)
	if !res.Fallback || res.Text != prompts.Fallback(models.AnalysisSentiment, "ctx") {
		t.Errorf("server error should yield the sentiment fallback, got %+v", res)
	}
	if _, ok := a.FetchAccountBalance(context.Background()); ok {
		t.Error("balance on server error should report false")
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("server saw %d requests, want 2 (no retries)", calls)
	}
}

func TestAnalystFromConfigWithoutKey(t *testing.T) {
	a := NewAnalystFromConfig(config.LLMConfig{Provider: "deepseek"}, nil)
	if a.HasCredential() {
		t.Error("empty key should yield an offline analyst")
	}
}

// ════════════════════════════════════════════════════════════════════
// News classification
// ════════════════════════════════════════════════════════════════════

func TestClassifyNews(t *testing.T) {
	item := models.NewsRecord{ID: "f1", Title: "中芯国际宣布扩产", Content: "12英寸产线"}
	tests := []struct {
		name         string
		provider     llm.LLMProvider
		wantIndustry string
		wantScore    float64
		wantReason   string
		wantOK       bool
	}{
		{
			name:         "offline",
			wantIndustry: "未分类", wantScore: 50, wantReason: "AI 分析服务暂时不可用",
		},
		{
			name: "model verdict in code fence",
			provider: &mockProvider{chatFunc: func([]llm.Message) (*llm.Response, error) {
				return &llm.Response{Content: "```json\n{\"industry\":\"电子-半导体\",\"score\":85.6,\"reason\":\"产能扩张\"}\n```"}, nil
			}},
			wantIndustry: "电子-半导体", wantScore: 85, wantReason: "产能扩张", wantOK: true,
		},
		{
			name: "missing fields",
			provider: &mockProvider{chatFunc: func([]llm.Message) (*llm.Response, error) {
				return &llm.Response{Content: `{"score":"140"}`}, nil
			}},
			wantIndustry: "综合", wantScore: 100, wantReason: "", wantOK: true,
		},
		{
			name: "unparsable reply",
			provider: &mockProvider{chatFunc: func([]llm.Message) (*llm.Response, error) {
				return &llm.Response{Content: "这条新闻属于半导体行业"}, nil
			}},
			wantIndustry: "未分类", wantScore: 50, wantReason: "解析结果失败",
		},
		{
			name: "backend error",
			provider: &mockProvider{chatFunc: func([]llm.Message) (*llm.Response, error) {
				return nil, llm.ErrProviderDown
			}},
			wantIndustry: "未分类", wantScore: 50, wantReason: "AI 分析服务暂时不可用",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewAnalyst(tt.provider).ClassifyNews(context.Background(), item)
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got.Industry != tt.wantIndustry || got.ScoreValue() != tt.wantScore || got.AIReason != tt.wantReason {
				t.Errorf("got %q %v %q, want %q %v %q",
					got.Industry, got.ScoreValue(), got.AIReason, tt.wantIndustry, tt.wantScore, tt.wantReason)
			}
			if got.ID != item.ID || got.Title != item.Title {
				t.Errorf("identity fields changed: %+v", got)
			}
		})
	}
}

func TestClassifyNewsSendsArticle(t *testing.T) {
	mock := &mockProvider{chatFunc: func([]llm.Message) (*llm.Response, error) {
		return &llm.Response{Content: `{"industry":"医药生物","score":60,"reason":"集采"}`}, nil
	}}
	NewAnalyst(mock).ClassifyNews(context.Background(), models.NewsRecord{Title: "集采结果公布", Content: "药品降价"})

	if mock.callCount() != 1 {
		t.Fatalf("calls = %d, want 1", mock.callCount())
	}
	msgs := mock.messages[0]
	if len(msgs) != 1 || msgs[0].Role != llm.RoleUser {
		t.Fatalf("unexpected message layout: %+v", msgs)
	}
	if !strings.Contains(msgs[0].Content, "集采结果公布") || !strings.Contains(msgs[0].Content, "药品降价") {
		t.Errorf("prompt should embed title and content, got %q", msgs[0].Content)
	}
}

func TestClassifyNewsOverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"deepseek-chat",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant",
			"content":"{\"industry\":\"宏观-货币政策\",\"score\":72,\"reason\":\"降准释放流动性\"}"}}],
			"usage":{"prompt_tokens":10,"completion_tokens":10,"total_tokens":20}}`)
	}))
	defer srv.Close()

	a := NewAnalystFromConfig(config.LLMConfig{Provider: "deepseek", BaseURL: srv.URL, APIKey: "sk-test", TimeoutSec: 5}, nil)
	got, ok := a.ClassifyNews(context.Background(), models.NewsRecord{ID: "x", Title: "央行宣布降准"})
	if !ok {
		t.Fatal("model verdict expected")
	}
	if got.Industry != "宏观-货币政策" || got.ScoreValue() != 72 || got.AIReason != "降准释放流动性" {
		t.Errorf("classified = %+v", got)
	}
}
