package logger

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// New returns a logger configured with the provided level. The instance is
// constructed once in main and passed explicitly to every component that
// needs it; there is no package-level singleton.
func New(level string) *Logger {
	return newZapLogger(level)
}
