// Package slog adapts a *log/slog.Logger to gencache.Logger.
package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	"github.com/unkn0wn-root/gencache"
)

var _ gencache.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New wraps l with a "component" attribute.
// A nil l yields a NopLogger.
func New(l *stdslog.Logger, component string) gencache.Logger {
	if l == nil {
		return gencache.NopLogger{}
	}
	if component != "" {
		l = l.With("component", component)
	}
	return Logger{L: l}
}

func (s Logger) Debug(msg string, f gencache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f gencache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f gencache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f gencache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f gencache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, level) {
		return
	}
	s.L.LogAttrs(ctx, level, msg, attrs(f)...)
}

func attrs(f gencache.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range keys {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
