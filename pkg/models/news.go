package models

import "strings"

// NewsRecord is a single scored news item as published by the news snapshot.
// Records are treated as immutable once decoded.
type NewsRecord struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content,omitempty"`
	URL         string   `json:"url,omitempty"`
	Source      string   `json:"source,omitempty"`      // e.g., "财联社"
	PublishTime string   `json:"publishTime,omitempty"` // free-form, may be "刚刚"
	Score       *float64 `json:"score,omitempty"`       // 0-100, nil when unscored
	Industry    string   `json:"industry,omitempty"`    // "<sector>-<subsector>", e.g. "食品饮料-白酒"
	AIReason    string   `json:"aiReason,omitempty"`
}

// HasScore reports whether the record carries an impact score.
func (r NewsRecord) HasScore() bool {
	return r.Score != nil
}

// ScoreValue returns the impact score, or 0 when the record is unscored.
func (r NewsRecord) ScoreValue() float64 {
	if r.Score == nil {
		return 0
	}
	return *r.Score
}

// Sector returns the industry prefix before the first '-'.
// A label without a separator is its own sector.
func (r NewsRecord) Sector() string {
	sector, _, _ := strings.Cut(r.Industry, "-")
	return strings.TrimSpace(sector)
}

// ── Filter state ──

// Tab is the exclusive tab selector of the news view.
type Tab string

const (
	TabAll      Tab = "all"
	TabMacro    Tab = "macro"
	TabIndustry Tab = "industry"
)

// QuickFilter is the legacy quick-filter selector.
type QuickFilter string

const (
	QuickNone       QuickFilter = "none"
	QuickHighImpact QuickFilter = "high_impact"
	QuickTopSector  QuickFilter = "top_sector"
)

// Band is one of the three fixed impact-score bands.
type Band string

const (
	BandHigh   Band = "high"   // score >= 80
	BandMedium Band = "medium" // 50 <= score < 80
	BandLow    Band = "low"    // score < 50
)

// Band thresholds.
const (
	HighImpactThreshold = 80.0
	MediumThreshold     = 50.0
)

// BandOf assigns a score to its band. Every score maps to exactly one band.
func BandOf(score float64) Band {
	switch {
	case score >= HighImpactThreshold:
		return BandHigh
	case score >= MediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// ParseBand parses a band name. The zero value and false are returned for
// unknown names.
func ParseBand(s string) (Band, bool) {
	switch Band(strings.ToLower(strings.TrimSpace(s))) {
	case BandHigh:
		return BandHigh, true
	case BandMedium:
		return BandMedium, true
	case BandLow:
		return BandLow, true
	}
	return "", false
}

type modeKind uint8

const (
	modeAll modeKind = iota
	modeHighImpact
	modeTopSector
	modeScoreBand
)

// FilterMode is the single selector replacing the separate quick-filter and
// score-band flags: All | HighImpact | TopSector | ScoreBand(band).
// Only one of them can be active at a time.
type FilterMode struct {
	kind modeKind
	band Band
}

// ModeAll disables both quick filters and score bands.
func ModeAll() FilterMode { return FilterMode{kind: modeAll} }

// ModeHighImpact keeps records scoring at least 80.
func ModeHighImpact() FilterMode { return FilterMode{kind: modeHighImpact} }

// ModeTopSector keeps records of the current top industry.
func ModeTopSector() FilterMode { return FilterMode{kind: modeTopSector} }

// ModeScoreBand keeps records within one score band.
func ModeScoreBand(b Band) FilterMode { return FilterMode{kind: modeScoreBand, band: b} }

// IsAll reports whether neither a quick filter nor a score band is active.
func (m FilterMode) IsAll() bool { return m.kind == modeAll }

// QuickFilter returns the active quick filter, or QuickNone.
func (m FilterMode) QuickFilter() QuickFilter {
	switch m.kind {
	case modeHighImpact:
		return QuickHighImpact
	case modeTopSector:
		return QuickTopSector
	}
	return QuickNone
}

// ScoreBand returns the active score band, if any.
func (m FilterMode) ScoreBand() (Band, bool) {
	if m.kind != modeScoreBand {
		return "", false
	}
	return m.band, true
}

// String renders the mode as accepted by ParseFilterMode.
func (m FilterMode) String() string {
	switch m.kind {
	case modeHighImpact:
		return string(QuickHighImpact)
	case modeTopSector:
		return string(QuickTopSector)
	case modeScoreBand:
		return "band:" + string(m.band)
	}
	return "all"
}

// ParseFilterMode parses "all", "high_impact", "top_sector" or
// "band:<high|medium|low>". Unknown input yields ModeAll.
func ParseFilterMode(s string) FilterMode {
	s = strings.ToLower(strings.TrimSpace(s))
	switch QuickFilter(s) {
	case QuickHighImpact:
		return ModeHighImpact()
	case QuickTopSector:
		return ModeTopSector()
	}
	if rest, ok := strings.CutPrefix(s, "band:"); ok {
		if b, ok := ParseBand(rest); ok {
			return ModeScoreBand(b)
		}
	}
	return ModeAll()
}

// ParseTab parses a tab name, defaulting to TabAll.
func ParseTab(s string) Tab {
	switch Tab(strings.ToLower(strings.TrimSpace(s))) {
	case TabMacro:
		return TabMacro
	case TabIndustry:
		return TabIndustry
	}
	return TabAll
}

// FilterState is the complete filter input of the news view.
type FilterState struct {
	Query string     `json:"query"`
	Tab   Tab        `json:"tab"`
	Mode  FilterMode `json:"-"`
}

// DefaultFilterState shows everything.
func DefaultFilterState() FilterState {
	return FilterState{Tab: TabAll, Mode: ModeAll()}
}

// WithQuickFilter activates a quick filter, clearing any score band.
// QuickNone clears the mode entirely.
func (f FilterState) WithQuickFilter(q QuickFilter) FilterState {
	switch q {
	case QuickHighImpact:
		f.Mode = ModeHighImpact()
	case QuickTopSector:
		f.Mode = ModeTopSector()
	default:
		f.Mode = ModeAll()
	}
	return f
}

// WithScoreBand activates a score band, clearing any quick filter.
func (f FilterState) WithScoreBand(b Band) FilterState {
	f.Mode = ModeScoreBand(b)
	return f
}

// ToggleQuickFilter activates q, or clears it when it is already active.
func (f FilterState) ToggleQuickFilter(q QuickFilter) FilterState {
	if f.Mode.QuickFilter() == q {
		f.Mode = ModeAll()
		return f
	}
	return f.WithQuickFilter(q)
}

// ToggleScoreBand activates b, or clears it when it is already active.
func (f FilterState) ToggleScoreBand(b Band) FilterState {
	if cur, ok := f.Mode.ScoreBand(); ok && cur == b {
		f.Mode = ModeAll()
		return f
	}
	return f.WithScoreBand(b)
}

// WithTab selects a tab. The tab only narrows results while the mode is All.
func (f FilterState) WithTab(t Tab) FilterState {
	f.Tab = t
	return f
}

// WithQuery sets the free-text query.
func (f FilterState) WithQuery(q string) FilterState {
	f.Query = q
	return f
}
