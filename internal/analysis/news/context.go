package news

import (
	"fmt"
	"strings"
)

// SectorContext summarizes a view as the context line for a sector
// analysis: the top industry followed by the ranking.
func SectorContext(v View) string {
	if v.TopIndustry == NoTopIndustry {
		return "全市场"
	}
	if len(v.Ranking) == 0 {
		return v.TopIndustry
	}
	parts := make([]string, 0, len(v.Ranking))
	for _, c := range v.Ranking {
		parts = append(parts, fmt.Sprintf("%s:%d", c.Sector, c.Count))
	}
	return fmt.Sprintf("%s（新闻热度：%s）", v.TopIndustry, strings.Join(parts, ", "))
}
