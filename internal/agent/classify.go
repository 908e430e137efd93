package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/seenimoa/marketlens/internal/agent/prompts"
	"github.com/seenimoa/marketlens/internal/llm"
	"github.com/seenimoa/marketlens/pkg/models"
)

// Classification is the model's verdict on one article.
type Classification struct {
	Industry string
	Score    float64
	Reason   string
}

type classificationWire struct {
	Industry string            `json:"industry"`
	Score    *models.FlexFloat `json:"score"`
	Reason   string            `json:"reason"`
}

var errNoJSON = errors.New("no JSON object in reply")

// ClassifyNews assigns an industry, an impact score and a one-line reason
// to rec. Without a working backend the record gets the unclassified
// fallback; ok reports whether the verdict came from the model.
func (a *Analyst) ClassifyNews(ctx context.Context, rec models.NewsRecord) (models.NewsRecord, bool) {
	c, ok := a.classify(ctx, rec.Title, rec.Content)
	score := c.Score
	rec.Industry = c.Industry
	rec.Score = &score
	rec.AIReason = c.Reason
	return rec, ok
}

func (a *Analyst) classify(ctx context.Context, title, content string) (Classification, bool) {
	unavailable := Classification{prompts.UnclassifiedIndustry, prompts.NeutralScore, prompts.ReasonUnavailable}
	if a.provider == nil {
		return unavailable, false
	}
	resp, err := a.provider.Chat(ctx, []llm.Message{llm.UserMessage(prompts.ClassifyNews(title, content))}, a.opts)
	if err != nil {
		a.logger.Warn("news classification failed", "title", title, "error", err)
		return unavailable, false
	}
	c, err := ParseClassification(resp.Content)
	if err != nil {
		a.logger.Warn("news classification unparsable", "title", title, "error", err)
		return Classification{prompts.UnclassifiedIndustry, prompts.NeutralScore, prompts.ReasonParseFailed}, false
	}
	return c, true
}

// ParseClassification decodes a {"industry","score","reason"} reply. Code
// fences around the object are tolerated; a missing industry reads as the
// default sector and a missing score as neutral. Scores are clamped to
// [0,100].
func ParseClassification(text string) (Classification, error) {
	start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return Classification{}, errNoJSON
	}
	var w classificationWire
	if err := json.Unmarshal([]byte(text[start:end+1]), &w); err != nil {
		return Classification{}, err
	}

	c := Classification{
		Industry: strings.TrimSpace(w.Industry),
		Score:    prompts.NeutralScore,
		Reason:   strings.TrimSpace(w.Reason),
	}
	if c.Industry == "" {
		c.Industry = prompts.DefaultIndustry
	}
	if w.Score.Present() {
		c.Score = float64(int(min(100, max(0, w.Score.Float()))))
	}
	return c, nil
}
