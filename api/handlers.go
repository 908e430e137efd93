package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/seenimoa/marketlens/internal/analysis/news"
	"github.com/seenimoa/marketlens/internal/analysis/sentiment"
	"github.com/seenimoa/marketlens/internal/config"
	"github.com/seenimoa/marketlens/internal/dashboard"
	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// defaultFilter is the unfiltered news view pushed to WebSocket clients.
var defaultFilter = models.DefaultFilterState()

// ============================================================
// Request / Response types
// ============================================================

// AnalyzeRequest is the body for POST /api/v1/analyze.
type AnalyzeRequest struct {
	Context string `json:"context"`
	Type    string `json:"type"`
}

// NewsResponse is returned by GET /api/v1/news.
type NewsResponse struct {
	news.View
	Status dashboard.Status `json:"status"`
}

// SentimentResponse is the sentiment snapshot with its gauge rendering.
type SentimentResponse struct {
	models.SentimentSnapshot
	Color        string           `json:"color"`
	BarWidth     int              `json:"bar_width"`
	AdvanceRatio float64          `json:"advance_ratio"`
	Volume       string           `json:"volume"`
	Status       dashboard.Status `json:"status"`
}

// ReportsResponse is returned by GET /api/v1/reports.
type ReportsResponse struct {
	Reports    models.ReportsSnapshot `json:"reports"`
	Available  []models.ReportSlot    `json:"available"`
	LatestSlot models.ReportSlot      `json:"latest_slot,omitempty"`
	Latest     *models.MarketReport   `json:"latest,omitempty"`
	Status     dashboard.Status       `json:"status"`
}

// BalanceResponse is returned by GET /api/v1/balance.
type BalanceResponse struct {
	Available bool   `json:"available"`
	Balance   string `json:"balance,omitempty"`
}

// StatusResponse is returned by GET /api/v1/status.
type StatusResponse struct {
	MarketStatus  string                                `json:"market_status"`
	MarketOpen    bool                                  `json:"market_open"`
	Time          string                                `json:"time"`
	PollerRunning bool                                  `json:"poller_running"`
	HasCredential bool                                  `json:"has_credential"`
	WSClients     int                                   `json:"ws_clients"`
	CacheEntries  int                                   `json:"cache_entries"`
	Snapshots     map[dashboard.Resource]dashboard.Status `json:"snapshots"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := utils.NowCST()
	writeData(w, map[string]any{
		"status":        "ok",
		"version":       Version,
		"market_status": utils.MarketStatusAt(now),
		"market_open":   utils.IsMarketOpenAt(now),
		"time_cst":      utils.FormatDateTimeCST(now),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	now := utils.NowCST()
	s.cache.Cleanup()
	writeData(w, StatusResponse{
		MarketStatus:  utils.MarketStatusAt(now),
		MarketOpen:    utils.IsMarketOpenAt(now),
		Time:          utils.FormatDateTimeCST(now),
		PollerRunning: s.poller.Running(),
		HasCredential: s.analyst.HasCredential(),
		WSClients:     s.wsHub.ClientCount(),
		CacheEntries:  s.cache.Len(),
		Snapshots:     s.dash.Snapshot().Status,
	})
}

// --- Dashboard ---

// filterFromQuery reads ?q=&tab=&mode= into a filter state.
func filterFromQuery(r *http.Request) models.FilterState {
	q := r.URL.Query()
	f := models.DefaultFilterState().
		WithQuery(strings.TrimSpace(q.Get("q"))).
		WithTab(models.ParseTab(q.Get("tab")))
	f.Mode = models.ParseFilterMode(q.Get("mode"))
	return f
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	writeData(w, NewsResponse{
		View:   s.dash.NewsView(filterFromQuery(r)),
		Status: s.dash.Status(dashboard.ResourceNews),
	})
}

func (s *Server) handleNewsSources(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.dash.Sources())
}

func (s *Server) sentimentResponse() SentimentResponse {
	snap := s.dash.Sentiment()
	return SentimentResponse{
		SentimentSnapshot: snap,
		Color:             sentiment.Color(snap.Score),
		BarWidth:          sentiment.BarWidth(snap.Score),
		AdvanceRatio:      sentiment.AdvanceRatio(snap.Stats),
		Volume:            utils.FormatYi(snap.Stats.MarketVolume),
		Status:            s.dash.Status(dashboard.ResourceSentiment),
	}
}

func (s *Server) handleSentiment(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.sentimentResponse())
}

func (s *Server) reportsResponse() ReportsResponse {
	reports := s.dash.Reports()
	resp := ReportsResponse{
		Reports:   reports,
		Available: reports.Available(),
		Status:    s.dash.Status(dashboard.ResourceReports),
	}
	if slot, rep, ok := reports.Latest(); ok {
		resp.LatestSlot = slot
		resp.Latest = rep
	}
	return resp
}

func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.reportsResponse())
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	slot, ok := parseSlot(chi.URLParam(r, "slot"))
	if !ok {
		writeError(w, http.StatusBadRequest, "slot must be one of early, midday, close")
		return
	}
	rep := s.dash.Reports().Get(slot)
	if rep == nil {
		writeError(w, http.StatusNotFound, "no "+string(slot)+" report yet")
		return
	}
	writeData(w, rep)
}

// handleRefresh reloads every snapshot, bypassing upstream caches, and
// drops the cached balance.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate(balanceCacheKey)
	snap := s.dash.Refresh(r.Context(), true)
	writeData(w, snap.Status)
}

// --- Analysis ---

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Context) == "" {
		writeError(w, http.StatusBadRequest, "context is required")
		return
	}

	res := s.analyst.Analyze(r.Context(), req.Context, models.AnalysisType(req.Type))
	s.wsHub.Broadcast(WSMessage{Type: "analysis_complete", Data: res})
	writeData(w, res)
}

func (s *Server) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.analyst.SentimentComment(r.Context(), s.dash.Sentiment()))
}

func (s *Server) handleAnalyzeSector(w http.ResponseWriter, r *http.Request) {
	writeData(w, s.analyst.SectorOutlook(r.Context(), s.dash.NewsView(filterFromQuery(r))))
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	slot, ok := parseSlot(chi.URLParam(r, "slot"))
	if !ok {
		writeError(w, http.StatusBadRequest, "slot must be one of early, midday, close")
		return
	}
	rep, generated := s.analyst.Report(r.Context(), slot)
	writeData(w, map[string]any{
		"slot":      slot,
		"generated": generated,
		"report":    rep,
	})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if v, ok := s.cache.Get(balanceCacheKey); ok {
		writeData(w, v)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 20*time.Second)
	defer cancel()
	bal, ok := s.analyst.FetchAccountBalance(ctx)
	resp := BalanceResponse{Available: ok, Balance: bal}
	if ok {
		s.cache.Set(balanceCacheKey, resp)
	}
	writeData(w, resp)
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeData(w, config.CheckAPIKeys(s.cfg))
}

func parseSlot(s string) (models.ReportSlot, bool) {
	for _, slot := range models.ReportSlots {
		if string(slot) == strings.ToLower(s) {
			return slot, true
		}
	}
	return "", false
}
