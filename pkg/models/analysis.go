package models

import "strings"

// AnalysisType selects the prompt template and canned fallback used by the
// analysis client.
type AnalysisType string

const (
	AnalysisStock     AnalysisType = "stock"
	AnalysisSector    AnalysisType = "sector"
	AnalysisGeneral   AnalysisType = "general"
	AnalysisSentiment AnalysisType = "sentiment"
)

// AnalysisTypes lists every supported analysis type.
var AnalysisTypes = []AnalysisType{AnalysisStock, AnalysisSector, AnalysisGeneral, AnalysisSentiment}

// ParseAnalysisType maps a tag to a known type. Unknown tags map to
// AnalysisGeneral.
func ParseAnalysisType(s string) AnalysisType {
	t := AnalysisType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AnalysisTypes {
		if t == known {
			return t
		}
	}
	return AnalysisGeneral
}

// AnalysisRequest is the input of a single analysis call.
type AnalysisRequest struct {
	Context string       `json:"context"`
	Type    AnalysisType `json:"type"`
}

// AnalysisResult is the output of an analysis call. Text is never empty.
// Fallback is true when Text is the local canned response.
type AnalysisResult struct {
	Type     AnalysisType `json:"type"`
	Text     string       `json:"text"`
	Fallback bool         `json:"fallback"`
	Model    string       `json:"model,omitempty"`
}
