// Package news classifies and aggregates scored news records into the
// filtered views, industry rollups and score histogram shown on the
// dashboard. Every function here is pure and total over its input.
package news

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/seenimoa/marketlens/pkg/models"
	"github.com/seenimoa/marketlens/pkg/utils"
)

// NoTopIndustry is reported when no record carries a qualifying industry.
const NoTopIndustry = "none"

// RankingSize caps the industry ranking.
const RankingSize = 7

// Markers that disqualify an industry label from sector statistics.
var systemMarkers = []string{"宏观", "系统", "未分类"}

// Keywords selecting the macro tab.
var macroKeywords = []string{"宏观", "银行", "非银"}

// Stats are the global statistics over the unfiltered record set.
type Stats struct {
	Total           int    `json:"total"`
	HighImpactCount int    `json:"high_impact_count"`
	AvgScore        int    `json:"avg_score"`
	TopIndustry     string `json:"top_industry"`
}

// IndustryCount is one row of the industry ranking.
type IndustryCount struct {
	Sector string `json:"sector"`
	Count  int    `json:"count"`
}

// BucketCount is one non-empty histogram bucket.
type BucketCount struct {
	Band  models.Band `json:"band"`
	Count int         `json:"count"`
}

// View is the derived news view model.
type View struct {
	Stats
	Items     []models.NewsRecord `json:"items"`
	Ranking   []IndustryCount     `json:"ranking"`
	Histogram []BucketCount       `json:"histogram"`
	Query     string              `json:"query"`
	Tab       models.Tab          `json:"tab"`
	Mode      string              `json:"mode"`
}

// ComputeView derives the complete view for records under f. The input
// slice is never modified.
func ComputeView(records []models.NewsRecord, f models.FilterState) View {
	stats := ComputeStats(records)
	items := Filter(records, f, stats.TopIndustry)
	SortRecords(items)

	tab := f.Tab
	if tab == "" {
		tab = models.TabAll
	}
	return View{
		Stats:     stats,
		Items:     items,
		Ranking:   Ranking(items),
		Histogram: Histogram(records),
		Query:     f.Query,
		Tab:       tab,
		Mode:      f.Mode.String(),
	}
}

// ComputeStats computes the global statistics.
func ComputeStats(records []models.NewsRecord) Stats {
	s := Stats{Total: len(records), TopIndustry: NoTopIndustry}
	if len(records) == 0 {
		return s
	}

	sum := 0.0
	for _, r := range records {
		v := r.ScoreValue()
		sum += v
		if v >= models.HighImpactThreshold {
			s.HighImpactCount++
		}
	}
	s.AvgScore = int(math.Round(sum / float64(len(records))))

	if top := countSectors(records); len(top) > 0 {
		s.TopIndustry = top[0].Sector
	}
	return s
}

// Ranking counts sectors over records, excluding macro/system labels,
// sorted by count with ties in first-seen order, capped at RankingSize.
func Ranking(records []models.NewsRecord) []IndustryCount {
	counts := countSectors(records)
	if len(counts) > RankingSize {
		counts = counts[:RankingSize]
	}
	return counts
}

// Histogram buckets records into the three score bands. Empty buckets are
// omitted.
func Histogram(records []models.NewsRecord) []BucketCount {
	var high, medium, low int
	for _, r := range records {
		switch models.BandOf(r.ScoreValue()) {
		case models.BandHigh:
			high++
		case models.BandMedium:
			medium++
		default:
			low++
		}
	}

	out := make([]BucketCount, 0, 3)
	for _, b := range []BucketCount{
		{Band: models.BandHigh, Count: high},
		{Band: models.BandMedium, Count: medium},
		{Band: models.BandLow, Count: low},
	} {
		if b.Count > 0 {
			out = append(out, b)
		}
	}
	return out
}

// SortRecords orders records newest first by parsed publish time, then by
// descending score. Unparsable times sort as the oldest.
func SortRecords(records []models.NewsRecord) {
	keys := make(map[string]time.Time, len(records))
	at := func(r models.NewsRecord) time.Time {
		t, ok := keys[r.PublishTime]
		if !ok {
			t = utils.ParsePublishTime(r.PublishTime)
			keys[r.PublishTime] = t
		}
		return t
	}
	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := at(records[i]), at(records[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return records[i].ScoreValue() > records[j].ScoreValue()
	})
}

// IsSystemIndustry reports whether the label is empty or carries a
// macro/system marker.
func IsSystemIndustry(industry string) bool {
	if strings.TrimSpace(industry) == "" {
		return true
	}
	return containsAny(industry, systemMarkers)
}

func countSectors(records []models.NewsRecord) []IndustryCount {
	index := make(map[string]int)
	var counts []IndustryCount
	for _, r := range records {
		if IsSystemIndustry(r.Industry) {
			continue
		}
		sector := r.Sector()
		if sector == "" {
			continue
		}
		if i, ok := index[sector]; ok {
			counts[i].Count++
			continue
		}
		index[sector] = len(counts)
		counts = append(counts, IndustryCount{Sector: sector, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
