package prompts

import "github.com/seenimoa/marketlens/pkg/models"

// OfflineMarker prefixes every canned response.
const OfflineMarker = "【本地演示模式】"

// ── Canned Responses ──

var fallbacks = map[models.AnalysisType]string{
	models.AnalysisStock: OfflineMarker + "关于 {context} 的 DeepSeek 模拟分析：\n\n" +
		"从技术形态来看，该股近期在60日均线附近获得支撑，成交量温和放大，MACD指标出现金叉迹象，显示短期动能转强。" +
		"基本面上，行业景气度回升带来业绩修复预期。建议关注上方压力位的突破情况，若未能有效突破，可能面临短期回调风险。",

	models.AnalysisSector: OfflineMarker + "关于 {context} 的 DeepSeek 模拟研判：\n\n" +
		"当前市场风格正在从防御板块向成长板块切换。{context} 作为本轮周期的核心受益方向，具备较高的配置价值。" +
		"建议重点关注该产业链中具备技术壁垒的上游核心零部件环节，以及受益于国产替代逻辑的龙头企业。",

	models.AnalysisSentiment: OfflineMarker + "当前市场数据显示情绪偏向震荡。上涨家数与下跌家数基本持平，资金观望情绪浓厚。" +
		"建议控制仓位，多看少动，等待明确的主线方向出现后再跟随操作。",

	models.AnalysisGeneral: OfflineMarker + "系统未检测到 API Key，已切换至 DeepSeek 本地演示模式。" +
		"请在环境变量中配置 DeepSeek API Key 以获取实时 AI 分析。",
}

// Fallback returns the canned response for t with context embedded. The
// result is deterministic and never empty; unknown types use the general
// response.
func Fallback(t models.AnalysisType, context string) string {
	tpl, ok := fallbacks[t]
	if !ok {
		tpl = fallbacks[models.AnalysisGeneral]
	}
	return fill(tpl, context)
}

// ReportFallback is the placeholder body for a report that could not be
// generated.
func ReportFallback(slot models.ReportSlot) string {
	return OfflineMarker + SlotLabel(slot) + "复盘暂不可用，请配置 DeepSeek API Key 后重试。"
}
