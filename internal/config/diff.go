package config

// ChangeSet describes what changed between two configs. Only fields that can
// be applied without a server restart are tracked; everything else requires a
// redeploy and is deliberately ignored here.
type ChangeSet struct {
	// LogLevelChanged is set when server.log_level changed; NewLogLevel
	// carries the new value.
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RecognitionChanged is set when any recognition tuning value changed.
	// New sessions pick up the new values; running sessions keep the old.
	RecognitionChanged bool

	// VoiceChanged is set when the synthesis provider block changed.
	VoiceChanged bool
}

// Any reports whether the change set contains any hot-applicable change.
func (c ChangeSet) Any() bool {
	return c.LogLevelChanged || c.RecognitionChanged || c.VoiceChanged
}

// Diff compares old and new configs and returns the hot-applicable changes.
func Diff(old, new *Config) ChangeSet {
	var c ChangeSet

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}
	if old.Recognition != new.Recognition {
		c.RecognitionChanged = true
	}
	if old.Voice.Primary != new.Voice.Primary || !voiceFallbackEqual(old.Voice.Fallback, new.Voice.Fallback) {
		c.VoiceChanged = true
	}

	return c
}

func voiceFallbackEqual(a, b *VoiceEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
