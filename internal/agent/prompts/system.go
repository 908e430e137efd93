// Package prompts contains the system instruction, the per-type prompt
// templates and the canned offline responses used by the market analyst.
package prompts

import (
	"strings"

	"github.com/seenimoa/marketlens/pkg/models"
)

// ContextPlaceholder is replaced by the caller's context in every template.
const ContextPlaceholder = "{context}"

// SystemPrompt is the fixed system instruction sent with every request.
const SystemPrompt = "你是一个专业的金融量化分析助手，擅长A股市场分析。回答风格：专业、理性、数据驱动。"

// ── User Prompt Templates ──

const (
	StockTemplate = `作为一名资深的A股分析师，请分析股票 "{context}"。请结合技术面（趋势、支撑压力）和基本面逻辑，给出简明扼要的预测。请用专业、客观的中文回答，字数控制在200字以内。`

	SectorTemplate = `作为一名宏观策略分析师，请预测 "{context}" 行业的轮动趋势。下一季度哪些细分领域可能跑赢大盘？请用中文简要分析（200字以内）。`

	GeneralTemplate = `请提供关于 "{context}" 的简要市场展望。请用中文回答，150字以内。`

	SentimentTemplate = "你是一个A股市场情绪专家。请根据以下实时交易数据，对当前市场情绪进行解读，并给出短线操作建议（如：是否适合追高、是否需要止损）。\n\n实时数据：{context}\n\n要求：风格犀利，言简意赅，100字以内。"
)

var templates = map[models.AnalysisType]string{
	models.AnalysisStock:     StockTemplate,
	models.AnalysisSector:    SectorTemplate,
	models.AnalysisGeneral:   GeneralTemplate,
	models.AnalysisSentiment: SentimentTemplate,
}

// MaxChars is the length cap each template asks the model to respect.
var MaxChars = map[models.AnalysisType]int{
	models.AnalysisStock:     200,
	models.AnalysisSector:    200,
	models.AnalysisGeneral:   150,
	models.AnalysisSentiment: 100,
}

// Template returns the template for t. Unknown types use the general one.
func Template(t models.AnalysisType) string {
	if tpl, ok := templates[t]; ok {
		return tpl
	}
	return GeneralTemplate
}

// Build renders the user prompt for t with context embedded.
func Build(t models.AnalysisType, context string) string {
	return fill(Template(t), context)
}

func fill(tpl, context string) string {
	return strings.ReplaceAll(tpl, ContextPlaceholder, strings.TrimSpace(context))
}

// ── Market Reports ──

var slotLabels = map[models.ReportSlot]string{
	models.SlotEarly:  "早盘",
	models.SlotMidday: "午间",
	models.SlotClose:  "收盘",
}

// SlotLabel returns the Chinese label of a report slot.
func SlotLabel(slot models.ReportSlot) string {
	if l, ok := slotLabels[slot]; ok {
		return l
	}
	return string(slot)
}

// ReportTitle is the title given to a generated report.
func ReportTitle(slot models.ReportSlot) string {
	return SlotLabel(slot) + "点评"
}

// Report renders the report-writing prompt for a slot.
func Report(slot models.ReportSlot) string {
	return "请作为资深分析师，写一份A股" + SlotLabel(slot) + "复盘报告。重点分析指数走势、领涨板块和资金流向。200字以内。"
}
