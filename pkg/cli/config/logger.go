package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/urfave/cli/v3"

	"github.com/aseriousbiz/abbot/pkg/utils/logging"
)

// Logger holds CLI flags for the process-wide logger
type Logger struct {
	level  string
	format string
	output string
}

func (x *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Category:    "Logging",
			Value:       "info",
			Sources:     cli.EnvVars("ABBOT_LOG_LEVEL"),
			Destination: &x.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Category:    "Logging",
			Value:       "console",
			Sources:     cli.EnvVars("ABBOT_LOG_FORMAT"),
			Destination: &x.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output (stdout, stderr, or a file path)",
			Category:    "Logging",
			Value:       "stdout",
			Sources:     cli.EnvVars("ABBOT_LOG_OUTPUT"),
			Destination: &x.output,
		},
	}
}

func (x Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", x.level),
		slog.String("format", x.format),
		slog.String("output", x.output),
	)
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewRedactor returns the ReplaceAttr hook that hides secrets in log output.
// Fields tagged `masq:"secret"` and fields named like credentials are masked.
func NewRedactor() func(groups []string, a slog.Attr) slog.Attr {
	return masq.New(
		masq.WithTag("secret"),
		masq.WithFieldName("APIToken"),
		masq.WithFieldName("ClientSecret"),
		masq.WithFieldName("SigningSecret"),
		masq.WithFieldPrefix("secret_"),
	)
}

// Configure builds the logger and installs it as the default. The returned
// function closes the log file, if any.
func (x *Logger) Configure() (func(), error) {
	level, ok := logLevels[x.level]
	if !ok {
		return nil, goerr.New("invalid log level", goerr.V("level", x.level))
	}

	var (
		w      io.Writer
		closer = func() {}
	)
	switch x.output {
	case "", "stdout", "-":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		// #nosec G304 - path is provided by the operator
		f, err := os.OpenFile(x.output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log file", goerr.V("path", x.output))
		}
		w = f
		closer = func() {
			if err := f.Close(); err != nil {
				logging.Default().Error("failed to close log file", "error", err)
			}
		}
	}

	logger, err := newLogger(w, x.format, level)
	if err != nil {
		closer()
		return nil, err
	}
	logging.SetDefault(logger)

	return closer, nil
}

func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	redactor := NewRedactor()

	switch format {
	case "console":
		return slog.New(clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(redactor),
			clog.WithSource(true),
		)), nil

	case "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       level,
			ReplaceAttr: redactor,
		})), nil

	default:
		return nil, goerr.New("invalid log format", goerr.V("format", format))
	}
}
