package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// LanguagesChanged is true when the speech-recognition language cycle
	// differs. New sessions pick up the new cycle; running ones keep theirs.
	LanguagesChanged bool
	NewLanguages     []string

	// AnalysisChanged is true when any analysis tuning knob differs
	// (min chars, byte caps, match count, strategy).
	AnalysisChanged bool
	NewSession      SessionConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Session.Languages, new.Session.Languages) {
		d.LanguagesChanged = true
		d.NewLanguages = slices.Clone(new.Session.Languages)
	}

	if analysisSettingsDiffer(old.Session, new.Session) {
		d.AnalysisChanged = true
		d.NewSession = new.Session
	}

	return d
}

// analysisSettingsDiffer compares the analysis tuning fields of two session configs.
func analysisSettingsDiffer(old, new SessionConfig) bool {
	return old.MatchStrategy != new.MatchStrategy ||
		old.AnalysisMinChars != new.AnalysisMinChars ||
		old.AnalysisDocumentBytes != new.AnalysisDocumentBytes ||
		old.AnalysisTranscriptBytes != new.AnalysisTranscriptBytes ||
		old.MaxMatches != new.MaxMatches ||
		old.MinExcerptChars != new.MinExcerptChars
}
