package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatYi formats an amount already expressed in 亿 (1e8) with two decimals,
// e.g. 8523.456 → "8523.46亿". Zero or negative input renders as "-".
func FormatYi(amount float64) string {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "-"
	}
	return fmt.Sprintf("%.2f亿", amount)
}

// FormatPercent formats a percent change with an explicit sign, e.g. "+1.25%".
func FormatPercent(pct float64) string {
	if pct > 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// Truncate shortens s to at most n runes, appending "…" when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "…"
}
