package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/LiorLearning/social-story/internal/config"
)

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  log_level: debug
recognition:
  language: en-GB
  silence_threshold: 3s
  max_segment: 25s
voice:
  primary:
    provider: elevenlabs
    api_key: el-key
    model: eleven_turbo_v2_5
    voice: narrator
  fallback:
    provider: openai
    api_key: oa-key
    model: gpt-4o-mini-tts
storage:
  postgres_dsn: "postgres://localhost/socialstory"
  prefs_path: "/var/lib/social-story/prefs.db"
stories:
  dir: "./stories"
events:
  nats_url: "nats://localhost:4222"
`
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Recognition.Language != "en-GB" {
		t.Errorf("Recognition.Language = %q, want en-GB", cfg.Recognition.Language)
	}
	if cfg.Recognition.SilenceThreshold != 3*time.Second {
		t.Errorf("Recognition.SilenceThreshold = %v, want 3s", cfg.Recognition.SilenceThreshold)
	}
	if cfg.Voice.Primary.Provider != config.VoiceElevenLabs {
		t.Errorf("Voice.Primary.Provider = %q, want elevenlabs", cfg.Voice.Primary.Provider)
	}
	if cfg.Voice.Fallback == nil || cfg.Voice.Fallback.Provider != config.VoiceOpenAI {
		t.Errorf("Voice.Fallback = %+v, want openai entry", cfg.Voice.Fallback)
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  listen_addr: ":8080"
  not_a_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: verbose
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidVoiceProvider(t *testing.T) {
	t.Parallel()
	yaml := `
voice:
  primary:
    provider: espeak
    api_key: key
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid voice provider, got nil")
	}
	if !strings.Contains(err.Error(), "voice.primary.provider") {
		t.Errorf("error should mention voice.primary.provider, got: %v", err)
	}
}

func TestValidate_VoiceProviderRequiresAPIKey(t *testing.T) {
	t.Parallel()
	yaml := `
voice:
  primary:
    provider: elevenlabs
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing api_key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_SilenceThresholdBoundedByMaxSegment(t *testing.T) {
	t.Parallel()
	yaml := `
recognition:
  silence_threshold: 30s
  max_segment: 25s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for silence_threshold > max_segment, got nil")
	}
	if !strings.Contains(err.Error(), "silence_threshold") {
		t.Errorf("error should mention silence_threshold, got: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: "/etc/certs/server.pem"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing key_file, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
voice:
  primary:
    provider: elevenlabs
    speed: 3.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "api_key", "speed"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_EmptyConfigIsValid(t *testing.T) {
	t.Parallel()
	if err := config.Validate(&config.Config{}); err != nil {
		t.Fatalf("empty config should validate, got: %v", err)
	}
}
