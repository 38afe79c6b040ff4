package services

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPreviewRunes is how much of the input is echoed back in a result.
	MaxPreviewRunes = 100
	// TimestampLayout renders UTC timestamps with millisecond precision.
	TimestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// AnalysisRequest is a single call to the analyzer.
// Input is nil when the caller omitted the field.
type AnalysisRequest struct {
	Input *string `json:"input"`
	Mode  string  `json:"mode,omitempty"`
}

// NewAnalysisRequest builds a request from plain values.
func NewAnalysisRequest(input, mode string) *AnalysisRequest {
	return &AnalysisRequest{Input: &input, Mode: mode}
}

// Metadata is attached to every result envelope.
type Metadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// AnalysisResult is the canonical response envelope.
type AnalysisResult struct {
	Success  bool     `json:"success"`
	Mode     Mode     `json:"mode"`
	Result   string   `json:"result"`
	Metadata Metadata `json:"metadata"`
}

// Analyzer validates requests and formats their summaries.
// It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	version string
	now     func() time.Time
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithClock replaces the wall clock used for result timestamps.
func WithClock(now func() time.Time) AnalyzerOption {
	return func(a *Analyzer) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAnalyzer creates an Analyzer that stamps results with version.
func NewAnalyzer(version string, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		version: version,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Version returns the version string stamped on every result.
func (a *Analyzer) Version() string {
	return a.version
}

// Metadata returns a fresh metadata block for the current instant.
func (a *Analyzer) Metadata() Metadata {
	return Metadata{
		Timestamp: a.now().UTC().Format(TimestampLayout),
		Version:   a.version,
	}
}

// isBlank matches the characters JavaScript's String.prototype.trim removes:
// the ECMAScript WhiteSpace and LineTerminator sets. Unlike unicode.IsSpace
// it includes U+FEFF and excludes U+0085.
func isBlank(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00a0', '\ufeff', '\u2028', '\u2029':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// Validate checks that req carries a usable input string.
// The mode is never validated; unknown modes are normalized instead.
func Validate(req *AnalysisRequest) error {
	if req == nil {
		return ErrRequestNotObject
	}
	if req.Input == nil || *req.Input == "" {
		return ErrInputMissing
	}
	if strings.TrimFunc(*req.Input, isBlank) == "" {
		return ErrInputEmpty
	}
	return nil
}

// Format renders the summary for input under mode.
func Format(input string, mode Mode) string {
	var sb strings.Builder
	sb.WriteString(`Analyzed input: "`)
	sb.WriteString(preview(input))
	sb.WriteString(`" `)
	sb.WriteString(mode.Suffix())
	return sb.String()
}

// preview cuts input to MaxPreviewRunes and marks the cut with "...".
func preview(input string) string {
	if utf8.RuneCountInString(input) <= MaxPreviewRunes {
		return input
	}
	runes := []rune(input)
	return string(runes[:MaxPreviewRunes]) + "..."
}

// Analyze validates req and wraps its formatted summary in a result envelope.
// It fails only when Validate does.
func (a *Analyzer) Analyze(req *AnalysisRequest) (*AnalysisResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	mode := NormalizeMode(req.Mode)

	return &AnalysisResult{
		Success:  true,
		Mode:     mode,
		Result:   Format(*req.Input, mode),
		Metadata: a.Metadata(),
	}, nil
}
