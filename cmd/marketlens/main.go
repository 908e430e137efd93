// MarketLens: A-share news, sentiment and AI commentary dashboard backend.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/marketlens/api"
	"github.com/seenimoa/marketlens/internal/agent"
	"github.com/seenimoa/marketlens/internal/analysis/news"
	"github.com/seenimoa/marketlens/internal/analysis/sentiment"
	"github.com/seenimoa/marketlens/internal/config"
	"github.com/seenimoa/marketlens/internal/dashboard"
	"github.com/seenimoa/marketlens/internal/logging"
	"github.com/seenimoa/marketlens/internal/snapshot"
	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "marketlens",
	Short: "MarketLens — A-share news, sentiment and AI commentary",
	Long: `MarketLens
Loads the news, sentiment and report snapshots produced by the market
crawler, classifies and filters the news feed, aggregates market breadth
into a sentiment score, and asks DeepSeek for commentary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("json", false, "print raw JSON instead of text")
	rootCmd.PersistentFlags().Bool("force", false, "bypass upstream caches when loading snapshots")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(sentimentCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Helpers ---

func newLoader() *snapshot.Loader {
	return snapshot.NewLoader(snapshot.Endpoints{
		News:      cfg.Snapshot.NewsURL,
		Sentiment: cfg.Snapshot.SentimentURL,
		Reports:   cfg.Snapshot.ReportsURL,
		Feeds:     cfg.Snapshot.FeedURLs,
	}, cfg.Snapshot.Timeout(), snapshot.WithLogger(logger))
}

// loadDashboard performs one refresh of every snapshot.
func loadDashboard(cmd *cobra.Command) *dashboard.Dashboard {
	force, _ := cmd.Flags().GetBool("force")
	d := dashboard.New(newLoader(),
		dashboard.WithLogger(logger),
		dashboard.WithKeepStale(cfg.Snapshot.KeepStale),
		dashboard.WithClassifier(newAnalyst()))
	d.Refresh(cmd.Context(), force)
	return d
}

func newAnalyst() *agent.Analyst {
	return agent.NewAnalystFromConfig(cfg.LLM, logger)
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func warnIfFailed(d *dashboard.Dashboard, r dashboard.Resource) {
	if st := d.Status(r); st.Failed {
		fmt.Fprintf(os.Stderr, "⚠️  %s snapshot unavailable: %s\n", r, st.Error)
	}
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MarketLens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and snapshot poller",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		api.Version = version
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting MarketLens API server on %s\n", addr)
		return api.NewServer(cfg, logger).ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Show the classified news feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, _ := cmd.Flags().GetString("query")
		tab, _ := cmd.Flags().GetString("tab")
		mode, _ := cmd.Flags().GetString("mode")
		limit, _ := cmd.Flags().GetInt("limit")

		d := loadDashboard(cmd)
		warnIfFailed(d, dashboard.ResourceNews)

		f := models.DefaultFilterState().WithQuery(q).WithTab(models.ParseTab(tab))
		f.Mode = models.ParseFilterMode(mode)
		v := d.NewsView(f)
		if wantJSON(cmd) {
			return printJSON(v)
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  新闻 %d 条 · 高影响 %d · 均分 %d · 热点 %s\n", v.Total, v.HighImpactCount, v.AvgScore, v.TopIndustry)
		fmt.Printf("  tab=%s mode=%s\n", v.Tab, v.Mode)
		fmt.Println("═══════════════════════════════════════")
		for i, r := range v.Items {
			if limit > 0 && i >= limit {
				fmt.Printf("  … %d more\n", len(v.Items)-limit)
				break
			}
			score := "  -"
			if r.HasScore() {
				score = fmt.Sprintf("%3.0f", r.ScoreValue())
			}
			fmt.Printf("  [%s] %s  %-8s %s\n", score, r.PublishTime, r.Sector(), utils.Truncate(r.Title, 40))
		}

		if len(v.Ranking) > 0 {
			fmt.Println()
			fmt.Println("  行业热度:")
			for _, rc := range v.Ranking {
				fmt.Printf("    %-10s %d\n", rc.Sector, rc.Count)
			}
		}
		if srcs := d.Sources(); len(srcs) > 0 {
			fmt.Printf("\n  来源: %s\n", strings.Join(srcs, ", "))
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().StringP("query", "q", "", "free-text filter")
	newsCmd.Flags().String("tab", "all", "tab: all, macro, industry")
	newsCmd.Flags().String("mode", "all", "mode: all, high_impact, top_sector, band:<high|medium|low>")
	newsCmd.Flags().Int("limit", 30, "max items to print (0 = all)")
}

// --- Sentiment Command ---

var sentimentCmd = &cobra.Command{
	Use:   "sentiment",
	Short: "Show market sentiment",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := loadDashboard(cmd)
		warnIfFailed(d, dashboard.ResourceSentiment)
		s := d.Sentiment()

		withComment, _ := cmd.Flags().GetBool("comment")
		var comment *models.AnalysisResult
		if withComment {
			res := newAnalyst().SentimentComment(cmd.Context(), s)
			comment = &res
		}

		if wantJSON(cmd) {
			return printJSON(map[string]any{"sentiment": s, "comment": comment})
		}

		fmt.Printf("😶 情绪分 %d (%s, %s)  更新 %s\n", s.Score, s.Level, sentiment.Color(s.Score), s.UpdatedAt)
		fmt.Printf("   上涨 %d · 下跌 %d · 平盘 %d · 涨停 %d · 跌停 %d\n",
			s.Stats.Up, s.Stats.Down, s.Stats.Flat, s.Stats.LimitUp, s.Stats.LimitDown)
		fmt.Printf("   成交额 %s\n", utils.FormatYi(s.Stats.MarketVolume))
		for _, idx := range s.Indices {
			fmt.Printf("   %-6s %10.2f %s\n", idx.Name, idx.Price, utils.FormatPercent(idx.Change))
		}
		if comment != nil {
			fmt.Printf("\n%s\n", comment.Text)
		}
		return nil
	},
}

func init() {
	sentimentCmd.Flags().Bool("comment", false, "ask the analyst to interpret the snapshot")
}

// --- Reports Command ---

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show the daily market reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		slotFlag, _ := cmd.Flags().GetString("slot")
		generate, _ := cmd.Flags().GetBool("generate")

		if generate {
			slot := models.ReportSlot(strings.ToLower(slotFlag))
			if slot == "" {
				slot = models.SlotClose
			}
			rep, ok := newAnalyst().Report(cmd.Context(), slot)
			if !ok {
				fmt.Fprintln(os.Stderr, "⚠️  analysis unavailable, showing placeholder")
			}
			if wantJSON(cmd) {
				return printJSON(rep)
			}
			printReport(&rep)
			return nil
		}

		d := loadDashboard(cmd)
		warnIfFailed(d, dashboard.ResourceReports)
		reports := d.Reports()

		var rep *models.MarketReport
		if slotFlag != "" {
			rep = reports.Get(models.ReportSlot(strings.ToLower(slotFlag)))
		} else {
			_, rep, _ = reports.Latest()
		}
		if rep == nil {
			return fmt.Errorf("no report available")
		}
		if wantJSON(cmd) {
			return printJSON(rep)
		}
		printReport(rep)
		return nil
	},
}

func init() {
	reportsCmd.Flags().String("slot", "", "report slot: early, midday, close (default: latest)")
	reportsCmd.Flags().Bool("generate", false, "generate the report with the analyst instead of loading it")
}

func printReport(rep *models.MarketReport) {
	fmt.Printf("📰 %s  %s\n", rep.Title, rep.Time)
	if ix := rep.Indices; ix != nil {
		fmt.Printf("   上证 %.2f (%s) · 创业板 %.2f (%s)\n",
			ix.Shanghai.Price.Float(), utils.FormatPercent(ix.Shanghai.Change.Float()),
			ix.ChiNext.Price.Float(), utils.FormatPercent(ix.ChiNext.Change.Float()))
	}
	fmt.Printf("\n%s\n", rep.Content)
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [context]",
	Short: "Ask the analyst for commentary",
	Long: `Ask the analyst for commentary on a context string.

Types: stock (context is a stock name or code), sector (a sector name),
sentiment (market breadth summary) and general. With --from-news the
context is the hottest sector of the current news feed.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		typ, _ := cmd.Flags().GetString("type")
		fromNews, _ := cmd.Flags().GetBool("from-news")
		a := newAnalyst()

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.LLM.Timeout()+10*time.Second)
		defer cancel()

		var res models.AnalysisResult
		switch {
		case fromNews:
			d := loadDashboard(cmd)
			res = a.SectorOutlook(ctx, d.NewsView(models.DefaultFilterState()))
		case len(args) == 0:
			return fmt.Errorf("context is required unless --from-news is set")
		default:
			res = a.Analyze(ctx, strings.Join(args, " "), models.ParseAnalysisType(typ))
		}

		if wantJSON(cmd) {
			return printJSON(res)
		}
		if res.Fallback {
			fmt.Fprintln(os.Stderr, "⚠️  analysis backend unavailable, showing offline response")
		}
		fmt.Println(res.Text)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringP("type", "t", string(models.AnalysisGeneral), "analysis type: stock, sector, general, sentiment")
	analyzeCmd.Flags().Bool("from-news", false, "analyse the hottest sector of the news feed")
}

// --- Balance Command ---

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the analysis account balance",
	RunE: func(cmd *cobra.Command, args []string) error {
		bal, ok := newAnalyst().FetchAccountBalance(cmd.Context())
		if !ok {
			return fmt.Errorf("balance unavailable (no API key or request failed)")
		}
		fmt.Printf("💰 %s\n", bal)
		return nil
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  MarketLens — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Market Status: %s\n", utils.MarketStatus())
		fmt.Printf("  Time (CST):    %s\n", utils.FormatDateTimeCST(utils.NowCST()))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("    News:          %s (every %s)\n", cfg.Snapshot.NewsURL, cfg.Snapshot.NewsRefresh())
		fmt.Printf("    Sentiment:     %s (every %s)\n", cfg.Snapshot.SentimentURL, cfg.Snapshot.SentimentRefresh())
		fmt.Printf("    Reports:       %s (every %s)\n", cfg.Snapshot.ReportsURL, cfg.Snapshot.ReportsRefresh())
		fmt.Printf("    Feeds:         %d\n", len(cfg.Snapshot.FeedURLs))
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		// Snapshot reachability
		fmt.Println()
		fmt.Println("  Snapshots:")
		d := loadDashboard(cmd)
		for _, r := range dashboard.Resources {
			st := d.Status(r)
			mark := "✅"
			if st.Failed {
				mark = "❌ " + st.Error
			}
			fmt.Printf("    %-12s %s\n", string(r)+":", mark)
		}
		if v := d.NewsView(models.DefaultFilterState()); v.TopIndustry != news.NoTopIndustry {
			fmt.Printf("    Top sector:  %s\n", v.TopIndustry)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
