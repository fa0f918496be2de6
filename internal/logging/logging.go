// Package logging configures the process-wide zerolog logger and carries
// component loggers through context.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process-wide logger. Init replaces it.
var Logger = log.Logger

// Config selects level and output format.
type Config struct {
	Level        string    `json:"level" yaml:"level"`
	Format       string    `json:"format" yaml:"format"` // json or pretty
	TimeFormat   string    `json:"time_format" yaml:"time_format"`
	ReportCaller bool      `json:"report_caller" yaml:"report_caller"`
	Output       io.Writer `json:"-" yaml:"-"`
}

// Init builds the global logger from cfg. Unknown levels fall back to info.
// Logs go to stderr unless cfg.Output is set so stdout stays free for
// conversation output.
func Init(cfg Config) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format == "pretty" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: timeFormat(cfg.TimeFormat)}
	}
	zerolog.TimeFieldFormat = timeFormat(cfg.TimeFormat)

	zctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.ReportCaller {
		zctx = zctx.Caller()
	}
	Logger = zctx.Logger()
	log.Logger = Logger
}

func timeFormat(f string) string {
	if f == "" {
		return time.RFC3339
	}
	return f
}

// Component returns a child of the global logger tagged with component.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// FromContext returns the logger stored in ctx, or the global logger when
// none was attached.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &Logger
	}
	return l
}

// WithContext attaches the global logger to ctx.
func WithContext(ctx context.Context) context.Context {
	return Logger.WithContext(ctx)
}

// WithComponent attaches a component-tagged child of the context logger to ctx.
func WithComponent(ctx context.Context, name string) context.Context {
	l := FromContext(ctx).With().Str("component", name).Logger()
	return l.WithContext(ctx)
}
