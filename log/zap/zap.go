// Package zap adapts a *zap.Logger to gencache.Logger.
package zap

import (
	"sort"

	"go.uber.org/zap"

	"github.com/unkn0wn-root/gencache"
)

var _ gencache.Logger = Logger{}

type Logger struct{ L *zap.Logger }

// New wraps l, naming it after the component. A nil l yields a NopLogger.
func New(l *zap.Logger, component string) gencache.Logger {
	if l == nil {
		return gencache.NopLogger{}
	}
	if component != "" {
		l = l.Named(component)
	}
	return Logger{L: l}
}

func (z Logger) Debug(msg string, f gencache.Fields) { z.L.Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f gencache.Fields)  { z.L.Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f gencache.Fields)  { z.L.Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f gencache.Fields) { z.L.Error(msg, fields(f)...) }

// fields sorts keys so output is stable; errors are logged with zap.NamedError.
func fields(f gencache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(f))
	for _, k := range keys {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
