// Package utils provides common utility functions for MarketLens.
package utils

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// CST is the China Standard Time location (UTC+8) used by A-share markets.
var CST *time.Location

func init() {
	var err error
	CST, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// Fallback: create fixed zone if tz database is not available
		CST = time.FixedZone("CST", 8*60*60)
	}
}

// NowCST returns the current time in CST.
func NowCST() time.Time {
	return time.Now().In(CST)
}

// ParsePublishTime parses a free-form publish timestamp in CST.
// Relative markers such as "刚刚" or "just now" and any unparsable input
// yield the Unix epoch, so they sort as the oldest items. A bare time of
// day is taken to be today in CST.
func ParsePublishTime(s string) time.Time {
	return ParsePublishTimeAt(s, NowCST())
}

var clockOnly = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)

// ParsePublishTimeAt is ParsePublishTime with "today" taken from now.
func ParsePublishTimeAt(s string, now time.Time) time.Time {
	epoch := time.Unix(0, 0)
	s = strings.TrimSpace(s)
	if s == "" {
		return epoch
	}
	if clockOnly.MatchString(s) {
		layout := "15:04"
		if strings.Count(s, ":") == 2 {
			layout = "15:04:05"
		}
		c, err := time.ParseInLocation(layout, s, CST)
		if err != nil {
			return epoch
		}
		d := now.In(CST)
		return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, CST)
	}
	t, err := dateparse.ParseIn(s, CST)
	if err != nil || t.Year() == 0 || t.Before(epoch) {
		return epoch
	}
	return t
}

// sessionBounds returns the morning and afternoon continuous-auction
// sessions (09:30-11:30, 13:00-15:00 CST) for a date.
func sessionBounds(date time.Time) (amOpen, amClose, pmOpen, pmClose time.Time) {
	d := date.In(CST)
	at := func(h, m int) time.Time {
		return time.Date(d.Year(), d.Month(), d.Day(), h, m, 0, 0, CST)
	}
	return at(9, 30), at(11, 30), at(13, 0), at(15, 0)
}

// IsMarketOpenAt checks if the A-share market is in a trading session at t.
// Exchange holidays are not tracked.
func IsMarketOpenAt(t time.Time) bool {
	t = t.In(CST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	amOpen, amClose, pmOpen, pmClose := sessionBounds(t)
	inAM := !t.Before(amOpen) && !t.After(amClose)
	inPM := !t.Before(pmOpen) && !t.After(pmClose)
	return inAM || inPM
}

// MarketStatusAt returns a short status label for t.
func MarketStatusAt(t time.Time) string {
	t = t.In(CST)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return "CLOSED (Weekend)"
	}
	amOpen, amClose, pmOpen, pmClose := sessionBounds(t)
	switch {
	case t.Before(amOpen):
		return "PRE-MARKET"
	case !t.After(amClose):
		return "OPEN"
	case t.Before(pmOpen):
		return "LUNCH BREAK"
	case !t.After(pmClose):
		return "OPEN"
	default:
		return "CLOSED"
	}
}

// MarketStatus returns the current market status string.
func MarketStatus() string {
	return MarketStatusAt(NowCST())
}

// FormatClock formats a time as "15:04" in CST, the format used by the
// sentiment and report snapshots.
func FormatClock(t time.Time) string {
	return t.In(CST).Format("15:04")
}

// FormatDateTimeCST formats a time.Time to "2006-01-02 15:04:05 CST".
func FormatDateTimeCST(t time.Time) string {
	return t.In(CST).Format("2006-01-02 15:04:05") + " CST"
}
