package statecache

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// LevelTrace is the most verbose level accepted by GOGPU_LOG_LEVEL.
const LevelTrace = slog.LevelDebug - 4

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// NewLogger returns a text logger writing to w, filtered by the level named
// in GOGPU_LOG_LEVEL: trace, debug, info, warn, error or none. Unknown or
// empty values select info. "none" returns a silent logger.
//
// Log levels used by the cache:
//   - [slog.LevelDebug]: pipeline construction failures, shutdown details
//   - [slog.LevelInfo]: worker count, number of loaded entries
//   - [slog.LevelWarn]: missing or outdated cache file, invalid records,
//     memory-only fallback, write failures
//
// Example:
//
//	cache := statecache.Open(mgr, mgr,
//	    statecache.WithLogger(statecache.NewLogger(statecache.OSEnvironment(), os.Stderr)))
func NewLogger(env Environment, w io.Writer) *slog.Logger {
	level, ok := parseLogLevel(env.Getenv(EnvLogLevel))
	if !ok {
		return newNopLogger()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, isLevel := a.Value.Any().(slog.Level); isLevel && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}))
}

// parseLogLevel maps a GOGPU_LOG_LEVEL value to a slog level. It returns
// false for "none".
func parseLogLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return slog.LevelDebug, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	case "none":
		return 0, false
	default:
		return slog.LevelInfo, true
	}
}
