package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked; anything else
// (backend, buffer sizes, aggregation mode) requires a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	GateChanged bool
	NewGate     float64

	RefreshChanged bool
	NewRefreshMS   int

	// RestartRequired reports that a non-reloadable field changed, so the
	// running pipeline no longer matches the file on disk.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Capture.GateThreshold != new.Capture.GateThreshold {
		d.GateChanged = true
		d.NewGate = new.Capture.GateThreshold
	}

	if old.Visualizer.RefreshMS != new.Visualizer.RefreshMS {
		d.RefreshChanged = true
		d.NewRefreshMS = new.Visualizer.RefreshMS
	}

	oldRest, newRest := *old, *new
	oldRest.Server.LogLevel = newRest.Server.LogLevel
	oldRest.Capture.GateThreshold = newRest.Capture.GateThreshold
	oldRest.Visualizer.RefreshMS = newRest.Visualizer.RefreshMS
	if oldRest != newRest {
		d.RestartRequired = true
	}

	return d
}
