package agent

import (
	"context"

	"github.com/seenimoa/marketlens/internal/analysis/news"
	"github.com/seenimoa/marketlens/internal/analysis/sentiment"
	"github.com/seenimoa/marketlens/pkg/models"
)

// SentimentComment interprets a sentiment snapshot.
func (a *Analyst) SentimentComment(ctx context.Context, s models.SentimentSnapshot) models.AnalysisResult {
	return a.Analyze(ctx, sentiment.Context(s), models.AnalysisSentiment)
}

// SectorOutlook forecasts rotation for the hottest sector of a news view.
func (a *Analyst) SectorOutlook(ctx context.Context, v news.View) models.AnalysisResult {
	return a.Analyze(ctx, news.SectorContext(v), models.AnalysisSector)
}
