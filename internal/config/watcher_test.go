package config_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/LiorLearning/social-story/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
recognition:
  language: en-US
stories:
  dir: "./stories"
`

const watcherUpdatedYAML = `
server:
  log_level: debug
recognition:
  language: en-US
stories:
  dir: "./stories"
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %q: %v", path, err)
	}
}

func TestWatcher_InitialLoad(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil, config.WithInterval(50*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	cfg := w.Current()
	if cfg == nil {
		t.Fatal("Current() returned nil after initial load")
	}
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level: got %q, want %q", cfg.Server.LogLevel, config.LogInfo)
	}
}

func TestWatcher_DetectsChange(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var mu sync.Mutex
	var gotNew *config.Config
	onChange := func(old, new *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		gotNew = new
	}

	w, err := config.NewWatcher(cfgPath, onChange, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	// Backdate the mtime check by rewriting after a pause.
	time.Sleep(30 * time.Millisecond)
	writeFile(t, cfgPath, watcherUpdatedYAML)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := gotNew != nil
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotNew == nil {
		t.Fatal("onChange was never called after config update")
	}
	if gotNew.Server.LogLevel != config.LogDebug {
		t.Errorf("new log_level: got %q, want %q", gotNew.Server.LogLevel, config.LogDebug)
	}
	if w.Current().Server.LogLevel != config.LogDebug {
		t.Errorf("Current() log_level: got %q, want %q", w.Current().Server.LogLevel, config.LogDebug)
	}
}

func TestWatcher_IgnoresInvalidRewrite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	var mu sync.Mutex
	calls := 0
	onChange := func(old, new *config.Config) {
		mu.Lock()
		defer mu.Unlock()
		calls++
	}

	w, err := config.NewWatcher(cfgPath, onChange, config.WithInterval(20*time.Millisecond))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	writeFile(t, cfgPath, watcherInvalidYAML)
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if calls != 0 {
		t.Errorf("onChange called %d times for an invalid rewrite, want 0", calls)
	}
	if got := w.Current().Server.LogLevel; got != config.LogInfo {
		t.Errorf("Current() log_level after invalid rewrite: got %q, want %q", got, config.LogInfo)
	}
}

func TestWatcher_MissingFile(t *testing.T) {
	t.Parallel()
	_, err := config.NewWatcher(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err == nil {
		t.Fatal("expected error for missing config file, got nil")
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	writeFile(t, cfgPath, watcherValidYAML)

	w, err := config.NewWatcher(cfgPath, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	w.Stop()
	w.Stop()
}
