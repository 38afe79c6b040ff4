package services

import "time"

// LegacyOutput is the nested output block of the pre-envelope response.
//
// Deprecated: clients should read AnalysisResult.Result instead.
type LegacyOutput struct {
	Analysis    string   `json:"analysis"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions"`
}

// LegacyResult is the response shape served before the result/metadata
// envelope. It is only produced when a caller asks for it explicitly.
//
// Deprecated: use AnalysisResult.
type LegacyResult struct {
	Success        bool         `json:"success"`
	Mode           Mode         `json:"mode"`
	Input          string       `json:"input"`
	Output         LegacyOutput `json:"output"`
	Timestamp      string       `json:"timestamp"`
	ProcessingTime int64        `json:"processingTime"`
}

type legacyProfile struct {
	confidence  float64
	suggestions []string
}

var legacyProfiles = map[Mode]legacyProfile{
	ModeMinimal: {
		confidence:  0.7,
		suggestions: []string{"Consider providing more context"},
	},
	ModeStandard: {
		confidence: 0.85,
		suggestions: []string{
			"Review for clarity",
			"Consider additional details",
		},
	},
	ModeAdvanced: {
		confidence: 0.95,
		suggestions: []string{
			"Expand on key points",
			"Consider alternative perspectives",
			"Add supporting evidence",
		},
	},
}

// AnalyzeLegacy runs the same validation and formatting as Analyze but
// returns the deprecated response shape.
//
// Deprecated: use Analyze.
func (a *Analyzer) AnalyzeLegacy(req *AnalysisRequest) (*LegacyResult, error) {
	start := a.now()

	res, err := a.Analyze(req)
	if err != nil {
		return nil, err
	}

	profile := legacyProfiles[res.Mode]
	suggestions := make([]string, len(profile.suggestions))
	copy(suggestions, profile.suggestions)

	return &LegacyResult{
		Success: true,
		Mode:    res.Mode,
		Input:   *req.Input,
		Output: LegacyOutput{
			Analysis:    res.Result,
			Confidence:  profile.confidence,
			Suggestions: suggestions,
		},
		Timestamp:      res.Metadata.Timestamp,
		ProcessingTime: elapsedMillis(start, a.now()),
	}, nil
}

// elapsedMillis clamps at zero for clocks that step backwards.
func elapsedMillis(start, end time.Time) int64 {
	if d := end.Sub(start); d > 0 {
		return d.Milliseconds()
	}
	return 0
}
