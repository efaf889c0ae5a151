package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

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

// Validate checks that cfg contains a coherent set of values and fills in
// defaults for zero-valued fields. It returns a joined error listing all
// validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Session defaults and ranges.
	if cfg.Session.InputSampleRate == 0 {
		cfg.Session.InputSampleRate = DefaultInputSampleRate
	} else if cfg.Session.InputSampleRate < 8000 || cfg.Session.InputSampleRate > 48000 {
		errs = append(errs, fmt.Errorf("session.input_sample_rate %d is out of range [8000, 48000]", cfg.Session.InputSampleRate))
	}
	if cfg.Session.OutputSampleRate == 0 {
		cfg.Session.OutputSampleRate = DefaultOutputSampleRate
	} else if cfg.Session.OutputSampleRate < 8000 || cfg.Session.OutputSampleRate > 48000 {
		errs = append(errs, fmt.Errorf("session.output_sample_rate %d is out of range [8000, 48000]", cfg.Session.OutputSampleRate))
	}
	if cfg.Session.FrameRate == 0 {
		cfg.Session.FrameRate = DefaultFrameRate
	} else if cfg.Session.FrameRate < 0.1 || cfg.Session.FrameRate > 30 {
		errs = append(errs, fmt.Errorf("session.frame_rate %.2f is out of range [0.1, 30]", cfg.Session.FrameRate))
	}
	if cfg.Session.ConnectTimeout == 0 {
		cfg.Session.ConnectTimeout = DefaultConnectTimeout
	} else if cfg.Session.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.connect_timeout must be positive"))
	}
	if cfg.Session.TranscriptCap == 0 {
		cfg.Session.TranscriptCap = DefaultTranscriptCap
	} else if cfg.Session.TranscriptCap < 0 {
		errs = append(errs, fmt.Errorf("session.transcript_cap must be positive"))
	}
	if cfg.Session.MemoryCap == 0 {
		cfg.Session.MemoryCap = DefaultMemoryCap
	} else if cfg.Session.MemoryCap < 0 {
		errs = append(errs, fmt.Errorf("session.memory_cap must be positive"))
	}

	// Transport
	if cfg.Transport.Name == "" {
		cfg.Transport.Name = "gemini"
	}

	// Memory backend
	if cfg.Memory.Backend == "" {
		cfg.Memory.Backend = MemoryFile
	}
	if !cfg.Memory.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("memory.backend %q is invalid; valid values: file, postgres", cfg.Memory.Backend))
	}
	switch cfg.Memory.Backend {
	case MemoryFile:
		if cfg.Memory.Path == "" {
			cfg.Memory.Path = DefaultMemoryPath
			slog.Warn("memory.path is empty; using default", "path", DefaultMemoryPath)
		}
	case MemoryPostgres:
		if cfg.Memory.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("memory.postgres_dsn is required when memory.backend is postgres"))
		}
	}

	// Location
	if cfg.Location.Enabled {
		if cfg.Location.Lat < -90 || cfg.Location.Lat > 90 {
			errs = append(errs, fmt.Errorf("location.lat %.5f is out of range [-90, 90]", cfg.Location.Lat))
		}
		if cfg.Location.Lng < -180 || cfg.Location.Lng > 180 {
			errs = append(errs, fmt.Errorf("location.lng %.5f is out of range [-180, 180]", cfg.Location.Lng))
		}
	}

	return errors.Join(errs...)
}
