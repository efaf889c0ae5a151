package config

import "slices"

// ConfigDiff describes what changed between two configs. Log level changes
// can be applied to a running process; persona and voice changes take effect
// on the next session start; everything else requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PersonaChanged means the system instruction or voice differs; it takes
	// effect on the next session start.
	PersonaChanged bool

	// RestartRequired means transport, memory, location, or device settings
	// differ and cannot be applied without restarting the process.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Session.Persona != new.Session.Persona ||
		old.Session.Voice != new.Session.Voice {
		d.PersonaChanged = true
	}

	if old.Transport != new.Transport ||
		old.Memory != new.Memory ||
		old.Location != new.Location ||
		!devicesEqual(old.Devices, new.Devices) ||
		sessionRestartFields(old.Session) != sessionRestartFields(new.Session) {
		d.RestartRequired = true
	}

	return d
}

// sessionRestartFields projects the session settings that cannot be changed
// without a restart into a comparable value.
func sessionRestartFields(s SessionConfig) SessionConfig {
	s.Persona = ""
	s.Voice = ""
	return s
}

func devicesEqual(a, b DevicesConfig) bool {
	return a.FFmpegPath == b.FFmpegPath &&
		a.FFplayPath == b.FFplayPath &&
		slices.Equal(a.MicInput, b.MicInput) &&
		slices.Equal(a.CameraInput, b.CameraInput)
}
