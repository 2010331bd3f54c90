package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	log  zerolog.Logger
)

// L returns the process-wide logger. JSON output by default; set
// LOG_FORMAT=console for human-readable output and LOG_LEVEL to adjust
// verbosity (debug, info, warn, error).
func L() *zerolog.Logger {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		var out io.Writer = os.Stdout
		if os.Getenv("LOG_FORMAT") == "console" {
			out = zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: "15:04:05",
			}
		}

		log = zerolog.New(out).
			With().
			Timestamp().
			Str("service", "lawyers-sub").
			Logger().
			Level(parseLevel(os.Getenv("LOG_LEVEL")))
	})
	return &log
}

func parseLevel(value string) zerolog.Level {
	s := strings.ToLower(strings.TrimSpace(value))
	if s == "" {
		return zerolog.InfoLevel
	}
	if lvl, err := zerolog.ParseLevel(s); err == nil {
		return lvl
	}
	return zerolog.InfoLevel
}
