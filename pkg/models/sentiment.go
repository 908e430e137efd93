package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SentimentSnapshot is the fully populated market sentiment record consumed
// by renderers. Every numeric field always carries a value.
type SentimentSnapshot struct {
	UpdatedAt string         `json:"updated_at"` // "HH:MM"
	Score     int            `json:"score"`      // 0-100
	Level     string         `json:"level"`      // e.g. "偏乐观", "中性", "偏悲观"
	Stats     SentimentStats `json:"stats"`
	Indices   []IndexQuote   `json:"indices"`
}

// SentimentStats holds the market breadth counters.
type SentimentStats struct {
	Up           int     `json:"up"`
	Down         int     `json:"down"`
	Flat         int     `json:"flat"`
	LimitUp      int     `json:"limit_up"`
	LimitDown    int     `json:"limit_down"`
	MarketVolume float64 `json:"market_volume"` // aggregate traded value, 亿元; 0 when unknown
}

// IndexQuote is a single index quote shown on the overview.
type IndexQuote struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Change float64 `json:"change"` // percent
}

// RawSentiment is the wire shape of the sentiment snapshot. Any field may be
// missing; nil means absent.
type RawSentiment struct {
	UpdatedAt    string          `json:"updated_at,omitempty"`
	Score        *FlexFloat      `json:"score,omitempty"`
	Level        string          `json:"level,omitempty"`
	Stats        *RawStats       `json:"stats,omitempty"`
	MarketVolume *FlexFloat      `json:"market_volume,omitempty"`
	Indices      []RawIndexQuote `json:"indices,omitempty"`
}

// RawStats is the wire shape of SentimentStats.
type RawStats struct {
	Up          *int       `json:"up,omitempty"`
	Down        *int       `json:"down,omitempty"`
	Flat        *int       `json:"flat,omitempty"`
	LimitUp     *int       `json:"limit_up,omitempty"`
	LimitDown   *int       `json:"limit_down,omitempty"`
	TotalAmount *FlexFloat `json:"total_amount,omitempty"`
}

// RawIndexQuote is the wire shape of IndexQuote.
type RawIndexQuote struct {
	Name   string     `json:"name"`
	Price  *FlexFloat `json:"price,omitempty"`
	Change *FlexFloat `json:"change,omitempty"`
}

// Raw converts a normalized snapshot back to its fully populated wire shape.
func (s SentimentSnapshot) Raw() RawSentiment {
	score := FlexFloat(s.Score)
	volume := FlexFloat(s.Stats.MarketVolume)
	up, down, flat := s.Stats.Up, s.Stats.Down, s.Stats.Flat
	limitUp, limitDown := s.Stats.LimitUp, s.Stats.LimitDown

	raw := RawSentiment{
		UpdatedAt: s.UpdatedAt,
		Score:     &score,
		Level:     s.Level,
		Stats: &RawStats{
			Up:        &up,
			Down:      &down,
			Flat:      &flat,
			LimitUp:   &limitUp,
			LimitDown: &limitDown,
		},
		MarketVolume: &volume,
	}
	for _, q := range s.Indices {
		price, change := FlexFloat(q.Price), FlexFloat(q.Change)
		raw.Indices = append(raw.Indices, RawIndexQuote{Name: q.Name, Price: &price, Change: &change})
	}
	return raw
}

// FlexFloat decodes a JSON number or a numeric string ("3051.23").
// Placeholder strings ("", "-", "--") decode as NaN, which Present
// reports as absent.
type FlexFloat float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		switch s {
		case "", "-", "--":
			*f = FlexFloat(math.NaN())
			return nil
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil || math.IsInf(v, 0) {
			return fmt.Errorf("not a number: %q", s)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// MarshalJSON implements json.Marshaler. An absent value encodes as null.
func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

// Present reports whether f carries a usable number.
func (f *FlexFloat) Present() bool {
	return f != nil && !math.IsNaN(float64(*f))
}

// Float returns the value as float64, or 0 when absent.
func (f *FlexFloat) Float() float64 {
	if !f.Present() {
		return 0
	}
	return float64(*f)
}
