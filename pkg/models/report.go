package models

// ReportSlot identifies the time-of-day slot of a market report.
type ReportSlot string

const (
	SlotEarly  ReportSlot = "early"  // 08:30 pre-market outlook
	SlotMidday ReportSlot = "midday" // 11:30 midday review
	SlotClose  ReportSlot = "close"  // post-close summary
)

// ReportSlots lists the slots in chronological order.
var ReportSlots = []ReportSlot{SlotEarly, SlotMidday, SlotClose}

// ReportsSnapshot is the daily reports document keyed by slot.
type ReportsSnapshot struct {
	Date   string        `json:"date,omitempty"`
	Early  *MarketReport `json:"early,omitempty"`
	Midday *MarketReport `json:"midday,omitempty"`
	Close  *MarketReport `json:"close,omitempty"`
}

// MarketReport is one generated market commentary.
type MarketReport struct {
	Title   string         `json:"title"`
	Time    string         `json:"time"`
	Content string         `json:"content"`
	Indices *ReportIndices `json:"indices,omitempty"`
}

// ReportIndices is the index snapshot captured when a report was generated.
type ReportIndices struct {
	Shanghai IndexPoint `json:"shanghai"`
	ChiNext  IndexPoint `json:"chinext"`
}

// IndexPoint is a price/change pair inside a report snapshot.
type IndexPoint struct {
	Price  FlexFloat `json:"price"`
	Change FlexFloat `json:"change"`
}

// Get returns the report for a slot, or nil.
func (r ReportsSnapshot) Get(slot ReportSlot) *MarketReport {
	switch slot {
	case SlotEarly:
		return r.Early
	case SlotMidday:
		return r.Midday
	case SlotClose:
		return r.Close
	}
	return nil
}

// Latest returns the most recent available slot (close, then midday, then
// early). ok is false when no report is available.
func (r ReportsSnapshot) Latest() (slot ReportSlot, report *MarketReport, ok bool) {
	for i := len(ReportSlots) - 1; i >= 0; i-- {
		if rep := r.Get(ReportSlots[i]); rep != nil {
			return ReportSlots[i], rep, true
		}
	}
	return "", nil, false
}

// Available returns the slots that carry a report, in chronological order.
func (r ReportsSnapshot) Available() []ReportSlot {
	var out []ReportSlot
	for _, s := range ReportSlots {
		if r.Get(s) != nil {
			out = append(out, s)
		}
	}
	return out
}
