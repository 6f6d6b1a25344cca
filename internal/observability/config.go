package observability

import "log/slog"

const defaultServiceName = "tsfeatures"

// Config holds the settings for tracing and logging.
type Config struct {
	// ServiceName is reported as the OTel service.name resource attribute
	// and attached to every log record.
	ServiceName string
	// OTLPEndpoint is the gRPC collector address. Empty disables export.
	OTLPEndpoint string
	// OTLPInsecure disables TLS for the OTLP connection.
	OTLPInsecure bool
	LogLevel     slog.Level
	LogJSON      bool
}

// DefaultConfig returns a Config with no-op tracing and info-level text logs.
func DefaultConfig() Config {
	return Config{
		ServiceName: defaultServiceName,
		LogLevel:    slog.LevelInfo,
	}
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a
// slog.Level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
