// Package logx configures the process logger and provides small helpers
// for logging errors inline.
package logx

import (
	"io"
	"log/slog"
)

// LevelFromFlags returns the [slog.Level] corresponding to the given
// user flag options:
//   - v: [slog.LevelDebug]
//   - q: [slog.LevelError]
//   - (default: [slog.LevelInfo])
//
// The flags are evaluated in that order, so if both v and q are
// specified it still returns [slog.LevelDebug].
func LevelFromFlags(v, q bool) slog.Level {
	switch {
	case v:
		return slog.LevelDebug
	case q:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses a level name such as "debug" or "WARN". Unknown names
// yield [slog.LevelInfo].
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// New builds a logger writing to w at the given level, as JSON when json
// is set and as logfmt style text otherwise.
func New(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetDefault installs a logger built by [New] as the slog default and
// returns it.
func SetDefault(w io.Writer, level slog.Level, json bool) *slog.Logger {
	l := New(w, level, json)
	slog.SetDefault(l)
	return l
}

// Log takes the given error and logs it if it is non-nil.
// The intended usage is:
//
//	logx.Log(MyFunc(v))
//	// or
//	return logx.Log(MyFunc(v))
func Log(err error) error {
	if err != nil {
		slog.Error(err.Error())
	}
	return err
}

// Or returns l, or the default logger when l is nil.
func Or(l *slog.Logger) *slog.Logger {
	if l != nil {
		return l
	}
	return slog.Default()
}
