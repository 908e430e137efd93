// Package sentiment normalizes market sentiment snapshots and derives the
// values renderers and the analysis prompt depend on.
package sentiment

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// Default returns the fixed fallback record every snapshot is merged over.
func Default() models.SentimentSnapshot {
	return models.SentimentSnapshot{
		UpdatedAt: "--:--",
		Score:     50,
		Level:     LevelNeutral,
		Indices: []models.IndexQuote{
			{Name: "上证指数"},
			{Name: "深证成指"},
			{Name: "创业板指"},
		},
	}
}

// Normalize merges raw over Default field by field. Present values override;
// indices are replaced only by a non-empty list. A missing score is computed
// from the breadth counters when those are present. When the level is
// missing but a score is known, the level is derived from the score.
func Normalize(raw models.RawSentiment) models.SentimentSnapshot {
	out := Default()

	if s := strings.TrimSpace(raw.UpdatedAt); s != "" {
		out.UpdatedAt = s
	}

	if st := raw.Stats; st != nil {
		setInt(&out.Stats.Up, st.Up)
		setInt(&out.Stats.Down, st.Down)
		setInt(&out.Stats.Flat, st.Flat)
		setInt(&out.Stats.LimitUp, st.LimitUp)
		setInt(&out.Stats.LimitDown, st.LimitDown)
		if st.TotalAmount.Present() {
			out.Stats.MarketVolume = st.TotalAmount.Float()
		}
	}
	if raw.MarketVolume.Present() {
		out.Stats.MarketVolume = raw.MarketVolume.Float()
	}

	scored := true
	switch {
	case raw.Score.Present():
		out.Score = roundScore(raw.Score.Float())
	case hasBreadth(raw.Stats):
		out.Score = roundScore(ScoreFromBreadth(out.Stats))
	default:
		scored = false
	}
	switch level := strings.TrimSpace(raw.Level); {
	case level != "":
		out.Level = level
	case scored:
		out.Level = LevelFor(float64(out.Score))
	}

	if len(raw.Indices) > 0 {
		out.Indices = make([]models.IndexQuote, 0, len(raw.Indices))
		for _, q := range raw.Indices {
			out.Indices = append(out.Indices, models.IndexQuote{
				Name:   strings.TrimSpace(q.Name),
				Price:  q.Price.Float(),
				Change: q.Change.Float(),
			})
		}
	}
	return out
}

func hasBreadth(st *models.RawStats) bool {
	return st != nil && (st.Up != nil || st.Down != nil || st.LimitUp != nil)
}

// roundScore rounds and clamps to [0,100] before the int conversion.
func roundScore(v float64) int {
	return int(math.Round(math.Min(100, math.Max(0, v))))
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// Context renders the snapshot as the data line embedded in the sentiment
// analysis prompt.
func Context(s models.SentimentSnapshot) string {
	return fmt.Sprintf("上涨: %d家, 下跌: %d家, 涨停: %d家, 跌停: %d家, 情绪分: %d, 市场成交额: %s",
		s.Stats.Up, s.Stats.Down, s.Stats.LimitUp, s.Stats.LimitDown, s.Score, utils.FormatYi(s.Stats.MarketVolume))
}
