package circulation

// Logger is the logging interface the components accept.
// It matches the leveled methods of log/slog, so a *slog.Logger satisfies
// it directly. Components treat a nil logger as "no logging".
//
// Debug level: generated SQL with execution timing (development use)
// Info level: operation outcomes, row counts, durations (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
