package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" {
			errs = append(errs, errors.New("server.tls.cert_file is required when tls is set"))
		}
		if cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls.key_file is required when tls is set"))
		}
	}

	// Recognition
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"recognition.silence_threshold", cfg.Recognition.SilenceThreshold},
		{"recognition.max_segment", cfg.Recognition.MaxSegment},
		{"recognition.watchdog_interval", cfg.Recognition.WatchdogInterval},
		{"recognition.restart_delay", cfg.Recognition.RestartDelay},
		{"recognition.network_restart_delay", cfg.Recognition.NetworkRestartDelay},
	} {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %v", d.name, d.value))
		}
	}
	if t, m := cfg.Recognition.SilenceThreshold, cfg.Recognition.MaxSegment; t > 0 && m > 0 && t > m {
		errs = append(errs, fmt.Errorf("recognition.silence_threshold %v exceeds max_segment %v", t, m))
	}

	// Voice providers
	validateVoiceEntry("voice.primary", cfg.Voice.Primary, &errs)
	if cfg.Voice.Fallback != nil {
		validateVoiceEntry("voice.fallback", *cfg.Voice.Fallback, &errs)
		if cfg.Voice.Primary.Provider != "" && cfg.Voice.Fallback.Provider == cfg.Voice.Primary.Provider {
			slog.Warn("voice fallback uses the same provider as the primary; an outage will take out both",
				"provider", cfg.Voice.Primary.Provider)
		}
	}

	// Storage availability
	if cfg.Storage.PostgresDSN == "" && cfg.Stories.Dir == "" {
		slog.Warn("neither storage.postgres_dsn nor stories.dir is set; the story library will be empty")
	}
	if cfg.Storage.PrefsPath == "" {
		slog.Warn("storage.prefs_path is empty; reader preferences will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateVoiceEntry appends validation failures for one voice provider block.
func validateVoiceEntry(prefix string, e VoiceEntry, errs *[]error) {
	if e.Provider == "" {
		return
	}
	if !e.Provider.IsValid() {
		*errs = append(*errs, fmt.Errorf("%s.provider %q is invalid; valid values: elevenlabs, openai", prefix, e.Provider))
	}
	if e.APIKey == "" {
		*errs = append(*errs, fmt.Errorf("%s.api_key is required when a provider is configured", prefix))
	}
	if e.Speed != 0 && (e.Speed < 0.5 || e.Speed > 2.0) {
		*errs = append(*errs, fmt.Errorf("%s.speed %.2f is out of range [0.5, 2.0]", prefix, e.Speed))
	}
}
