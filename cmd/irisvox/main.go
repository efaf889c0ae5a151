// Command irisvox runs a realtime audio/video assistant session against the
// configured conversational AI transport.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/irisvox/irisvox/internal/config"
	"github.com/irisvox/irisvox/internal/health"
	"github.com/irisvox/irisvox/internal/observe"
	"github.com/irisvox/irisvox/internal/playback"
	"github.com/irisvox/irisvox/internal/session"
	"github.com/irisvox/irisvox/pkg/location"
	mediaffmpeg "github.com/irisvox/irisvox/pkg/media/ffmpeg"
	"github.com/irisvox/irisvox/pkg/memlog"
	memlogpg "github.com/irisvox/irisvox/pkg/memlog/postgres"
	"github.com/irisvox/irisvox/pkg/transport"
	"github.com/irisvox/irisvox/pkg/transport/gemini"
)

// apiKeyEnv is the environment variable holding the transport API key.
const apiKeyEnv = "GEMINI_API_KEY"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	// The watcher keeps polling the file so log level changes apply without a
	// restart; anything else gets a warning that a restart is needed.
	levelVar := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(old, cfg *config.Config) {
		d := config.Diff(old, cfg)
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.PersonaChanged {
			slog.Info("persona or voice changed; takes effect on next session start")
		}
		if d.RestartRequired {
			slog.Warn("configuration change requires a restart to take effect")
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "irisvox: %v\n", err)
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	slog.Info("irisvox starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"transport", cfg.Transport.Name,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	shutdownObs, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "irisvox",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownObs(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Transport ─────────────────────────────────────────────────────────────
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		slog.Error("missing API key", "env", apiKeyEnv)
		return 1
	}

	reg := config.NewRegistry()
	reg.RegisterTransport("gemini", func(tc config.TransportConfig, key string) (transport.Transport, error) {
		var opts []gemini.Option
		if tc.Model != "" {
			opts = append(opts, gemini.WithModel(tc.Model))
		}
		if tc.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(tc.BaseURL))
		}
		return gemini.New(key, opts...), nil
	})

	tr, err := reg.CreateTransport(cfg.Transport, apiKey)
	if err != nil {
		slog.Error("failed to create transport", "err", err)
		return 1
	}

	// ── Memory store ──────────────────────────────────────────────────────────
	store, err := buildStore(ctx, cfg.Memory)
	if err != nil {
		slog.Error("failed to open memory store", "err", err)
		return 1
	}

	// ── Devices ───────────────────────────────────────────────────────────────
	var micOpts []mediaffmpeg.MicOption
	if cfg.Devices.FFmpegPath != "" {
		micOpts = append(micOpts, mediaffmpeg.WithFFmpegPath(cfg.Devices.FFmpegPath))
	}
	if len(cfg.Devices.MicInput) > 0 {
		micOpts = append(micOpts, mediaffmpeg.WithInput(cfg.Devices.MicInput...))
	}
	mic := mediaffmpeg.NewMicrophone(cfg.Session.InputSampleRate, micOpts...)

	var camOpts []mediaffmpeg.CamOption
	if cfg.Devices.FFmpegPath != "" {
		camOpts = append(camOpts, mediaffmpeg.WithCamFFmpegPath(cfg.Devices.FFmpegPath))
	}
	if len(cfg.Devices.CameraInput) > 0 {
		camOpts = append(camOpts, mediaffmpeg.WithCamInput(cfg.Devices.CameraInput...))
	}
	cam := mediaffmpeg.NewCamera(camOpts...)

	var outOpts []mediaffmpeg.OutOption
	if cfg.Devices.FFplayPath != "" {
		outOpts = append(outOpts, mediaffmpeg.WithFFplayPath(cfg.Devices.FFplayPath))
	}
	out, err := mediaffmpeg.OpenOutput(cfg.Session.OutputSampleRate, outOpts...)
	if err != nil {
		slog.Error("failed to open playback device", "err", err)
		return 1
	}
	defer out.Close()

	// ── Location ──────────────────────────────────────────────────────────────
	var loc location.Source = location.None{}
	if cfg.Location.Enabled {
		loc = location.Static{Coords: location.Coords{Lat: cfg.Location.Lat, Lng: cfg.Location.Lng}}
	}

	// ── Engine ────────────────────────────────────────────────────────────────
	engine, err := session.NewEngine(session.Config{
		InputSampleRate:  cfg.Session.InputSampleRate,
		OutputSampleRate: cfg.Session.OutputSampleRate,
		FrameRate:        cfg.Session.FrameRate,
		Voice:            cfg.Session.Voice,
		Persona:          cfg.Session.Persona,
		ConnectTimeout:   cfg.Session.ConnectTimeout,
		TranscriptCap:    cfg.Session.TranscriptCap,
		MemoryCap:        cfg.Session.MemoryCap,
	}, session.Deps{
		Transport:  tr,
		Microphone: mic,
		Camera:     cam,
		Playback:   playback.New(out, logger),
		Store:      store,
		Location:   loc,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("failed to build session engine", "err", err)
		return 1
	}

	if cfg.Server.ListenAddr != "" {
		hh := health.New(
			func() string { return engine.State().String() },
			health.Checker{Name: "memory", Check: func(ctx context.Context) error {
				_, err := store.Load(ctx)
				return err
			}},
		)
		go serveHTTP(cfg.Server.ListenAddr, hh)
	}

	if err := engine.Start(ctx); err != nil {
		slog.Error("session start failed", "err", err)
		return 1
	}

	slog.Info("session running; press Ctrl+C to stop")
	<-ctx.Done()

	slog.Info("shutdown signal received, stopping")
	if err := engine.Stop(); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildStore opens the configured memory log backend.
func buildStore(ctx context.Context, cfg config.MemoryConfig) (memlog.Store, error) {
	switch cfg.Backend {
	case config.MemoryPostgres:
		return memlogpg.New(ctx, cfg.PostgresDSN)
	default:
		return memlog.NewFileStore(cfg.Path)
	}
}

// serveHTTP exposes the Prometheus /metrics endpoint plus health probes.
func serveHTTP(addr string, hh *health.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	hh.Register(mux)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server error", "err", err)
	}
}

// slogLevel maps a configured log level onto its slog equivalent.
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
