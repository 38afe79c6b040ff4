package services

// Mode selects the suffix appended to an analysis summary.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeAdvanced Mode = "advanced"
	ModeMinimal  Mode = "minimal"
)

// Modes lists every recognized mode in display order.
var Modes = []Mode{ModeStandard, ModeAdvanced, ModeMinimal}

// Valid returns true for the three recognized modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeStandard, ModeAdvanced, ModeMinimal:
		return true
	}
	return false
}

// Suffix returns the mode marker appended to the formatted result.
func (m Mode) Suffix() string {
	switch m {
	case ModeMinimal:
		return "(minimal mode)"
	case ModeAdvanced:
		return "(advanced mode with deep analysis)"
	default:
		return "(standard mode)"
	}
}

// NormalizeMode maps an optional mode to a recognized one.
// Empty and unknown values fall back to standard; matching is case-sensitive.
func NormalizeMode(mode string) Mode {
	m := Mode(mode)
	if m.Valid() {
		return m
	}
	return ModeStandard
}
