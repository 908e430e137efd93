package news

import (
	"strings"

	"github.com/seenimoa/marketlens/pkg/models"
)

// Filter applies f to records in fixed precedence: quick filter, score band,
// tab (only while the mode is All), then the free-text query. topIndustry is
// the value from ComputeStats. The result is a new slice.
func Filter(records []models.NewsRecord, f models.FilterState, topIndustry string) []models.NewsRecord {
	keep := predicates(f, topIndustry)
	out := make([]models.NewsRecord, 0, len(records))
	for _, r := range records {
		if matchesAll(r, keep) {
			out = append(out, r)
		}
	}
	return out
}

type predicate func(models.NewsRecord) bool

func predicates(f models.FilterState, topIndustry string) []predicate {
	var keep []predicate

	switch f.Mode.QuickFilter() {
	case models.QuickHighImpact:
		keep = append(keep, func(r models.NewsRecord) bool {
			return r.ScoreValue() >= models.HighImpactThreshold
		})
	case models.QuickTopSector:
		keep = append(keep, func(r models.NewsRecord) bool {
			return topIndustry != NoTopIndustry && strings.Contains(r.Industry, topIndustry)
		})
	}

	if band, ok := f.Mode.ScoreBand(); ok {
		keep = append(keep, func(r models.NewsRecord) bool {
			return models.BandOf(r.ScoreValue()) == band
		})
	}

	if f.Mode.IsAll() {
		switch f.Tab {
		case models.TabMacro:
			keep = append(keep, func(r models.NewsRecord) bool {
				return r.ScoreValue() > models.MediumThreshold && containsAny(r.Industry, macroKeywords)
			})
		case models.TabIndustry:
			keep = append(keep, func(r models.NewsRecord) bool {
				return r.ScoreValue() >= models.MediumThreshold && !strings.Contains(r.Industry, "宏观")
			})
		}
	}

	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		keep = append(keep, func(r models.NewsRecord) bool {
			return strings.Contains(strings.ToLower(r.Title), q) ||
				strings.Contains(strings.ToLower(r.Content), q) ||
				strings.Contains(strings.ToLower(r.Industry), q)
		})
	}
	return keep
}

func matchesAll(r models.NewsRecord, keep []predicate) bool {
	for _, p := range keep {
		if !p(r) {
			return false
		}
	}
	return true
}
