package application

import "log/slog"

// ModuleName tags every log line and event emitted by the engine.
const ModuleName = "community-experience/engagement-engine"

// ResolveLogger guarantees a non-nil logger for application/worker code paths.
func ResolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
