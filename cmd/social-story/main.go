// Command social-story is the main entry point for the read-along story server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/LiorLearning/social-story/internal/config"
	"github.com/LiorLearning/social-story/internal/events"
	"github.com/LiorLearning/social-story/internal/health"
	"github.com/LiorLearning/social-story/internal/observe"
	"github.com/LiorLearning/social-story/internal/prefs"
	"github.com/LiorLearning/social-story/internal/resilience"
	"github.com/LiorLearning/social-story/internal/server"
	"github.com/LiorLearning/social-story/internal/story"
	"github.com/LiorLearning/social-story/pkg/voice"
	"github.com/LiorLearning/social-story/pkg/voice/elevenlabs"
	"github.com/LiorLearning/social-story/pkg/voice/openai"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "social-story: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "social-story: %v\n", err)
		}
		return 1
	}

	// The level lives in a LevelVar so the config watcher can retune
	// verbosity without a restart.
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar})))

	slog.Info("social-story starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry providers first so every later component meters against the
	// real global provider.
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "social-story",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("telemetry init failed", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	var (
		checkers []health.Checker
		closers  []func()
	)
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	// Story library and reading progress.
	stories, progress, storyClosers, storyCheckers, err := buildStores(ctx, cfg)
	if err != nil {
		slog.Error("story store init failed", "err", err)
		return 1
	}
	closers = append(closers, storyClosers...)
	checkers = append(checkers, storyCheckers...)

	// Reader preferences.
	var prefStore prefs.Store
	if cfg.Storage.PrefsPath != "" {
		sqlStore, err := prefs.OpenSQLite(ctx, cfg.Storage.PrefsPath)
		if err != nil {
			slog.Error("prefs store init failed", "path", cfg.Storage.PrefsPath, "err", err)
			return 1
		}
		closers = append(closers, func() {
			if err := sqlStore.Close(); err != nil {
				slog.Warn("prefs store close error", "err", err)
			}
		})
		prefStore = sqlStore
		slog.Info("reader preferences persisted", "path", cfg.Storage.PrefsPath)
	} else {
		prefStore = prefs.NewMemStore()
	}

	// Narration synthesis.
	synth := &hotSynth{}
	var voices voice.Synthesizer
	defaultVoice, err := rebuildSynthesizer(synth, cfg.Voice)
	if err != nil {
		slog.Error("voice provider init failed", "err", err)
		return 1
	}
	if synth.ready() {
		voices = synth
	}

	// Session summary events.
	var publisher *events.Publisher
	if cfg.Events.NATSURL != "" {
		var opts []events.Option
		if cfg.Events.Subject != "" {
			opts = append(opts, events.WithSubject(cfg.Events.Subject))
		}
		publisher, err = events.Connect(cfg.Events.NATSURL, opts...)
		if err != nil {
			slog.Error("event stream init failed", "url", cfg.Events.NATSURL, "err", err)
			return 1
		}
		closers = append(closers, publisher.Close)
		checkers = append(checkers, health.Checker{Name: "nats", Check: publisher.Check})
		slog.Info("session events enabled", "url", cfg.Events.NATSURL)
	}

	srv, err := server.New(cfg, server.Deps{
		Stories:      stories,
		Progress:     progress,
		Prefs:        prefStore,
		Voices:       voices,
		DefaultVoice: defaultVoice,
		Publisher:    publisher,
		Metrics:      observe.DefaultMetrics(),
		Health:       health.New(checkers...),
	})
	if err != nil {
		slog.Error("server init failed", "err", err)
		return 1
	}

	// Hot-reload: log level applies immediately, recognition tuning applies
	// to new sessions, and voice provider changes swap the synthesizer.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		ch := config.Diff(old, new)
		if ch.LogLevelChanged {
			levelVar.Set(slogLevel(ch.NewLogLevel))
			slog.Info("log level changed", "level", ch.NewLogLevel)
		}
		if ch.RecognitionChanged {
			srv.ApplyRecognition(new.Recognition)
		}
		if ch.VoiceChanged {
			if _, err := rebuildSynthesizer(synth, new.Voice); err != nil {
				slog.Warn("voice provider reload failed, keeping previous", "err", err)
			} else {
				slog.Info("voice providers reloaded", "primary", new.Voice.Primary.Provider)
			}
		}
	})
	if err != nil {
		slog.Warn("config watcher unavailable, hot reload disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// buildStores constructs the story and progress stores from the storage
// config: Postgres when a DSN is configured, otherwise an in-memory library
// seeded from the YAML story directory.
func buildStores(ctx context.Context, cfg *config.Config) (story.Store, story.ProgressStore, []func(), []health.Checker, error) {
	if cfg.Storage.PostgresDSN != "" {
		pg, err := story.NewPostgresStore(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		if cfg.Stories.Dir != "" {
			slog.Warn("stories.dir is ignored when postgres is configured", "dir", cfg.Stories.Dir)
		}
		slog.Info("story library backed by postgres")
		return pg, pg.Progress(),
			[]func(){pg.Close},
			[]health.Checker{{Name: "postgres", Check: pg.Ping}},
			nil
	}

	mem := story.NewMemStore()
	if cfg.Stories.Dir != "" {
		n, err := story.LoadDir(ctx, mem, cfg.Stories.Dir)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		slog.Info("story library loaded", "dir", cfg.Stories.Dir, "stories", n)
	}
	return mem, story.NewMemProgressStore(), nil, nil, nil
}

// hotSynth holds the active synthesizer behind an atomic pointer so the
// config watcher can swap providers without tearing down the server.
type hotSynth struct {
	cur atomic.Pointer[voice.Synthesizer]
}

var _ voice.Synthesizer = (*hotSynth)(nil)

func (h *hotSynth) ready() bool { return h.cur.Load() != nil }

func (h *hotSynth) set(s voice.Synthesizer) { h.cur.Store(&s) }

func (h *hotSynth) SynthesizeStream(ctx context.Context, text <-chan string, profile voice.Profile) (<-chan []byte, error) {
	s := h.cur.Load()
	if s == nil {
		return nil, errors.New("no voice provider configured")
	}
	return (*s).SynthesizeStream(ctx, text, profile)
}

func (h *hotSynth) ListVoices(ctx context.Context) ([]voice.Profile, error) {
	s := h.cur.Load()
	if s == nil {
		return nil, errors.New("no voice provider configured")
	}
	return (*s).ListVoices(ctx)
}

// rebuildSynthesizer constructs the synthesizer chain described by set and
// installs it into h on success. When no primary provider is configured it
// leaves h untouched and returns a zero profile.
func rebuildSynthesizer(h *hotSynth, set config.VoiceProviderSet) (voice.Profile, error) {
	if set.Primary.Provider == "" {
		return voice.Profile{}, nil
	}

	primary, err := buildVoiceEntry(set.Primary)
	if err != nil {
		return voice.Profile{}, fmt.Errorf("voice primary: %w", err)
	}

	var active voice.Synthesizer = primary
	if set.Fallback != nil {
		fb, err := buildVoiceEntry(*set.Fallback)
		if err != nil {
			return voice.Profile{}, fmt.Errorf("voice fallback: %w", err)
		}
		vf := resilience.NewVoiceFallback(primary, string(set.Primary.Provider), resilience.FallbackConfig{})
		vf.AddFallback(string(set.Fallback.Provider), fb)
		active = vf
	}

	h.set(active)
	return voice.Profile{
		ID:       set.Primary.Voice,
		Provider: string(set.Primary.Provider),
		Speed:    set.Primary.Speed,
	}, nil
}

// buildVoiceEntry constructs one provider-backed synthesizer.
func buildVoiceEntry(e config.VoiceEntry) (voice.Synthesizer, error) {
	switch e.Provider {
	case config.VoiceElevenLabs:
		var opts []elevenlabs.Option
		if e.Model != "" {
			opts = append(opts, elevenlabs.WithModel(e.Model))
		}
		return elevenlabs.New(e.APIKey, opts...)
	case config.VoiceOpenAI:
		var opts []openai.Option
		if e.Model != "" {
			opts = append(opts, openai.WithModel(e.Model))
		}
		if e.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(e.BaseURL))
		}
		return openai.New(e.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown voice provider %q", e.Provider)
	}
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
