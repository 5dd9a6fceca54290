// Package zapadapter adapts *zap.SugaredLogger to sobj.Logger.
package zapadapter

import (
	"go.uber.org/zap"

	sobj "github.com/Stiffstream/sobjectizer-sub000"
)

// Logger wraps a *zap.SugaredLogger as an sobj.Logger.
type Logger struct {
	l *zap.SugaredLogger
}

// New wraps l. Passing a nil l builds a zap production logger (or a no-op
// logger if that fails) instead of panicking on first use.
func New(l *zap.SugaredLogger) Logger {
	if l == nil {
		base, err := zap.NewProduction()
		if err != nil {
			base = zap.NewNop()
		}
		l = base.Sugar()
	}
	return Logger{l: l}
}

func (a Logger) Info(msg string, args ...any)  { a.l.Infow(msg, args...) }
func (a Logger) Warn(msg string, args ...any)  { a.l.Warnw(msg, args...) }
func (a Logger) Error(msg string, args ...any) { a.l.Errorw(msg, args...) }
func (a Logger) Debug(msg string, args ...any) { a.l.Debugw(msg, args...) }

var _ sobj.Logger = Logger{}
