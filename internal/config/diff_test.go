package config_test

import (
	"testing"

	"github.com/irisvox/irisvox/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":9090",
			LogLevel:   config.LogInfo,
		},
		Session: config.SessionConfig{
			InputSampleRate:  16000,
			OutputSampleRate: 24000,
			Voice:            "Puck",
			Persona:          "You are a helpful assistant.",
		},
		Transport: config.TransportConfig{Name: "gemini"},
		Memory:    config.MemoryConfig{Backend: config.MemoryFile, Path: "/tmp/m.json"},
	}
}

func TestDiff_NoChange(t *testing.T) {
	t.Parallel()
	d := config.Diff(baseConfig(), baseConfig())
	if d.LogLevelChanged || d.PersonaChanged || d.RestartRequired {
		t.Errorf("identical configs produced diff %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged = false")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change should not require restart")
	}
}

func TestDiff_Persona(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Session.Persona = "You are a grumpy assistant."

	d := config.Diff(old, new)
	if !d.PersonaChanged {
		t.Error("PersonaChanged = false")
	}
	if d.RestartRequired {
		t.Error("persona change should not require restart")
	}
}

func TestDiff_Voice(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Session.Voice = "Kore"

	if d := config.Diff(old, new); !d.PersonaChanged {
		t.Error("voice change should set PersonaChanged")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"transport model", func(c *config.Config) { c.Transport.Model = "other-model" }},
		{"memory backend", func(c *config.Config) { c.Memory.Backend = config.MemoryPostgres }},
		{"sample rate", func(c *config.Config) { c.Session.InputSampleRate = 48000 }},
		{"location", func(c *config.Config) { c.Location.Enabled = true }},
		{"mic input", func(c *config.Config) { c.Devices.MicInput = []string{"-f", "alsa", "-i", "hw:1"} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old, new := baseConfig(), baseConfig()
			tc.mutate(new)
			if d := config.Diff(old, new); !d.RestartRequired {
				t.Errorf("%s change should require restart", tc.name)
			}
		})
	}
}
