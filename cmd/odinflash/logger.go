package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bee1002/Odin-Flash/session"
)

// consoleLogger adapts zerolog to the session.Logger surface.
type consoleLogger struct {
	log zerolog.Logger
}

func newConsoleLogger(verbose bool) *consoleLogger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", "odinflash").Logger()
	return &consoleLogger{log: logger}
}

func (l *consoleLogger) Debug(msg string, kv ...interface{}) {
	l.emit(l.log.Debug(), msg, kv)
}

func (l *consoleLogger) Info(msg string, kv ...interface{}) {
	l.emit(l.log.Info(), msg, kv)
}

func (l *consoleLogger) Warn(msg string, kv ...interface{}) {
	l.emit(l.log.Warn(), msg, kv)
}

func (l *consoleLogger) Error(msg string, kv ...interface{}) {
	l.emit(l.log.Error(), msg, kv)
}

func (l *consoleLogger) Success(msg string, kv ...interface{}) {
	l.emit(l.log.Info().Str("status", "success"), msg, kv)
}

func (l *consoleLogger) emit(ev *zerolog.Event, msg string, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		ev = ev.Interface(fmt.Sprint(kv[i]), kv[i+1])
	}
	ev.Msg(msg)
}

var _ session.Logger = (*consoleLogger)(nil)
