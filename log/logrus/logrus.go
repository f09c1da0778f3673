// Package logrus adapts a *logrus.Entry to gencache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/gencache"
)

var _ gencache.Logger = Logger{}

type Logger struct{ E *logrus.Entry }

// New wraps l with a "component" field. A nil l yields a NopLogger.
func New(l *logrus.Logger, component string) gencache.Logger {
	if l == nil {
		return gencache.NopLogger{}
	}
	e := logrus.NewEntry(l)
	if component != "" {
		e = e.WithField("component", component)
	}
	return Logger{E: e}
}

func (l Logger) Debug(msg string, f gencache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f gencache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f gencache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f gencache.Fields) { l.with(f).Error(msg) }

// with maps an "err" field onto logrus' ErrorKey.
func (l Logger) with(f gencache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	lf := make(logrus.Fields, len(f))
	for k, v := range f {
		if err, ok := v.(error); ok && k == "err" {
			lf[logrus.ErrorKey] = err
			continue
		}
		lf[k] = v
	}
	return l.E.WithFields(lf)
}
