package sentiment

import (
	"math"

	"github.com/seenimoa/marketlens/pkg/models"
)

// ------------------------------------------------------------------
// Breadth-based market sentiment score (0-100).
//   50% advance/decline ratio, 0.1 → ~3, 3.0 → ~100
//   30% limit-up reward, 200 limit-ups saturate
//   20% breadth, share of advancers among movers
// ------------------------------------------------------------------

// Level labels.
const (
	LevelBullish = "偏乐观"
	LevelNeutral = "中性"
	LevelBearish = "偏悲观"
)

// ScoreFromBreadth computes the sentiment score from breadth counters,
// rounded to one decimal.
func ScoreFromBreadth(stats models.SentimentStats) float64 {
	down := stats.Down
	if down <= 0 {
		down = 1
	}
	ratio := float64(stats.Up) / float64(down)
	ratioScore := math.Min(100, math.Max(0, ratio*33))

	limitScore := math.Min(100, float64(stats.LimitUp)/100*50)

	breadthScore := AdvanceRatio(stats)

	final := ratioScore*0.5 + limitScore*0.3 + breadthScore*0.2
	return math.Round(final*10) / 10
}

// AdvanceRatio returns the percentage of advancers among advancers and
// decliners, or 50 when neither moved.
func AdvanceRatio(stats models.SentimentStats) float64 {
	total := stats.Up + stats.Down
	if total <= 0 {
		return 50
	}
	return float64(stats.Up) / float64(total) * 100
}

// LevelFor maps a score to its qualitative label.
func LevelFor(score float64) string {
	switch {
	case score > 60:
		return LevelBullish
	case score < 40:
		return LevelBearish
	default:
		return LevelNeutral
	}
}

// Color classes for the score gauge.
const (
	ColorHot     = "hot"
	ColorHealthy = "healthy"
	ColorCold    = "cold"
)

// Color classifies a score: >=70 hot, >=40 healthy, otherwise cold.
func Color(score int) string {
	switch {
	case score >= 70:
		return ColorHot
	case score >= 40:
		return ColorHealthy
	default:
		return ColorCold
	}
}

// BarWidth returns the gauge width in percent, the score clamped to [0,100].
func BarWidth(score int) int {
	return clampScore(score)
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
