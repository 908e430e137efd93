package models

import (
	"encoding/json"
	"testing"
)

func score(v float64) *float64 { return &v }

// ── NewsRecord ──

func TestNewsRecordScore(t *testing.T) {
	r := NewsRecord{Title: "no score"}
	if r.HasScore() {
		t.Error("HasScore should be false for nil score")
	}
	if r.ScoreValue() != 0 {
		t.Errorf("ScoreValue: got %v, want 0", r.ScoreValue())
	}

	r.Score = score(0)
	if !r.HasScore() {
		t.Error("explicit zero score should count as present")
	}
}

func TestNewsRecordSector(t *testing.T) {
	tests := []struct {
		industry string
		want     string
	}{
		{"半导体-设备", "半导体"},
		{"食品饮料-白酒-高端", "食品饮料"},
		{"宏观", "宏观"},
		{" 医药 -创新药", "医药"},
		{"", ""},
	}
	for _, tt := range tests {
		r := NewsRecord{Industry: tt.industry}
		if got := r.Sector(); got != tt.want {
			t.Errorf("Sector(%q) = %q, want %q", tt.industry, got, tt.want)
		}
	}
}

func TestNewsRecordDecodeMissingScore(t *testing.T) {
	var r NewsRecord
	if err := json.Unmarshal([]byte(`{"title":"x","industry":"银行-国有行"}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.HasScore() {
		t.Error("missing score should decode as absent")
	}
}

// ── Bands ──

func TestBandOfPartition(t *testing.T) {
	tests := []struct {
		score float64
		want  Band
	}{
		{100, BandHigh},
		{80, BandHigh},
		{79.9, BandMedium},
		{50, BandMedium},
		{49.99, BandLow},
		{0, BandLow},
		{-3, BandLow},
	}
	for _, tt := range tests {
		if got := BandOf(tt.score); got != tt.want {
			t.Errorf("BandOf(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestParseBand(t *testing.T) {
	if b, ok := ParseBand(" HIGH "); !ok || b != BandHigh {
		t.Errorf("ParseBand(HIGH) = %q, %v", b, ok)
	}
	if _, ok := ParseBand("extreme"); ok {
		t.Error("ParseBand(extreme) should fail")
	}
}

// ── FilterMode / FilterState ──

func TestFilterModeExclusive(t *testing.T) {
	f := DefaultFilterState().WithScoreBand(BandLow)
	if f.Mode.QuickFilter() != QuickNone {
		t.Fatalf("score band should leave quick filter at none, got %q", f.Mode.QuickFilter())
	}

	f = f.WithQuickFilter(QuickHighImpact)
	if _, ok := f.Mode.ScoreBand(); ok {
		t.Error("activating a quick filter must clear the score band")
	}
	if f.Mode.QuickFilter() != QuickHighImpact {
		t.Errorf("QuickFilter: got %q", f.Mode.QuickFilter())
	}

	f = f.WithScoreBand(BandMedium)
	if f.Mode.QuickFilter() != QuickNone {
		t.Error("activating a score band must clear the quick filter")
	}
	if b, ok := f.Mode.ScoreBand(); !ok || b != BandMedium {
		t.Errorf("ScoreBand: got %q, %v", b, ok)
	}
}

func TestFilterStateToggle(t *testing.T) {
	f := DefaultFilterState().ToggleQuickFilter(QuickTopSector)
	if f.Mode.QuickFilter() != QuickTopSector {
		t.Fatalf("toggle on: got %q", f.Mode.QuickFilter())
	}
	f = f.ToggleQuickFilter(QuickTopSector)
	if !f.Mode.IsAll() {
		t.Error("second toggle should clear the quick filter")
	}

	f = f.ToggleScoreBand(BandHigh).ToggleScoreBand(BandHigh)
	if !f.Mode.IsAll() {
		t.Error("double score band toggle should clear the mode")
	}
	f = f.ToggleScoreBand(BandHigh).ToggleScoreBand(BandLow)
	if b, _ := f.Mode.ScoreBand(); b != BandLow {
		t.Errorf("switching bands: got %q, want low", b)
	}
}

func TestParseFilterModeRoundTrip(t *testing.T) {
	modes := []FilterMode{ModeAll(), ModeHighImpact(), ModeTopSector(), ModeScoreBand(BandMedium)}
	for _, m := range modes {
		if got := ParseFilterMode(m.String()); got != m {
			t.Errorf("ParseFilterMode(%q) = %v", m.String(), got)
		}
	}
	if !ParseFilterMode("band:bogus").IsAll() {
		t.Error("unknown band should parse as all")
	}
	if !ParseFilterMode("").IsAll() {
		t.Error("empty input should parse as all")
	}
}

func TestParseTab(t *testing.T) {
	if ParseTab("Macro") != TabMacro || ParseTab("industry") != TabIndustry || ParseTab("x") != TabAll {
		t.Error("ParseTab mapping mismatch")
	}
}

// ── FlexFloat ──

func TestFlexFloatDecode(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`3051.23`, 3051.23, false},
		{`"3051.23"`, 3051.23, false},
		{`"-0.52%"`, -0.52, false},
		{`"n/a"`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		var f FlexFloat
		err := json.Unmarshal([]byte(tt.in), &f)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && float64(f) != tt.want {
			t.Errorf("Unmarshal(%s) = %v, want %v", tt.in, float64(f), tt.want)
		}
	}

	var nilF *FlexFloat
	if nilF.Float() != 0 {
		t.Error("nil FlexFloat should read as 0")
	}
}

func TestFlexFloatPlaceholders(t *testing.T) {
	for _, in := range []string{`""`, `" "`, `"-"`, `"--"`} {
		var f FlexFloat
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Errorf("Unmarshal(%s) error = %v", in, err)
			continue
		}
		if f.Present() {
			t.Errorf("Unmarshal(%s) should be absent, got %v", in, float64(f))
		}
		if f.Float() != 0 {
			t.Errorf("absent value should read as 0, got %v", f.Float())
		}
		out, err := json.Marshal(f)
		if err != nil || string(out) != "null" {
			t.Errorf("Marshal(absent) = %s, %v; want null", out, err)
		}
	}
}

// ── Reports ──

func TestReportsLatest(t *testing.T) {
	var r ReportsSnapshot
	if _, _, ok := r.Latest(); ok {
		t.Error("empty snapshot should have no latest report")
	}

	r.Early = &MarketReport{Title: "早盘"}
	r.Midday = &MarketReport{Title: "午间"}
	slot, rep, ok := r.Latest()
	if !ok || slot != SlotMidday || rep.Title != "午间" {
		t.Errorf("Latest = %q, %v, %v", slot, rep, ok)
	}

	r.Close = &MarketReport{Title: "收盘"}
	if slot, _, _ := r.Latest(); slot != SlotClose {
		t.Errorf("Latest slot = %q, want close", slot)
	}
	if got := r.Available(); len(got) != 3 || got[0] != SlotEarly {
		t.Errorf("Available = %v", got)
	}
}

// ── Analysis ──

func TestParseAnalysisType(t *testing.T) {
	tests := map[string]AnalysisType{
		"stock":     AnalysisStock,
		"SECTOR":    AnalysisSector,
		"sentiment": AnalysisSentiment,
		"general":   AnalysisGeneral,
		"crypto":    AnalysisGeneral,
		"":          AnalysisGeneral,
	}
	for in, want := range tests {
		if got := ParseAnalysisType(in); got != want {
			t.Errorf("ParseAnalysisType(%q) = %q, want %q", in, got, want)
		}
	}
}
