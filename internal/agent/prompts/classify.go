package prompts

import (
	"strings"

	"github.com/seenimoa/marketlens/pkg/utils"
)

// ── News Classification ──

// ClassifyContentChars caps the article body embedded in the prompt.
const ClassifyContentChars = 500

// Classification fallbacks.
const (
	UnclassifiedIndustry = "未分类"
	DefaultIndustry      = "综合"
	NeutralScore         = 50
	ReasonUnavailable    = "AI 分析服务暂时不可用"
	ReasonParseFailed    = "解析结果失败"
)

const classifyTemplate = `你是一个金融新闻分析师。请分析以下新闻：
标题：{title}
内容：{content}

任务：
1. 判断所属的申万行业（如：食品饮料-白酒，电子-半导体，宏观-货币政策）。
2. 给出重要性评分（0-100），0为无关噪音，100为重磅利好/利空。
3. 用一句话简述理由（30字以内）。

请严格且只返回 JSON 格式，不要包含 markdown 标记：
{"industry": "行业名称", "score": 85, "reason": "理由..."}`

// ClassifyNews renders the classification prompt for one article. The body
// is cut to ClassifyContentChars runes.
func ClassifyNews(title, content string) string {
	body := []rune(strings.TrimSpace(content))
	if len(body) > ClassifyContentChars {
		body = body[:ClassifyContentChars]
	}
	r := strings.NewReplacer("{title}", utils.Truncate(title, 200), "{content}", string(body))
	return r.Replace(classifyTemplate)
}
