package ctl

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339, NoColor: envBool("NO_COLOR", false)}).
	With().Timestamp().Logger().Level(zerolog.InfoLevel)

func init() {
	// default from env if present
	SetLogLevel(envStr("PREDICTCTL_LOG_LEVEL", "info"))
}

// SetLogLevel sets the CLI log level: debug|info|warn|error. Unknown values
// mean info.
func SetLogLevel(level string) {
	lvl := zerolog.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn", "warning":
		lvl = zerolog.WarnLevel
	case "error", "err":
		lvl = zerolog.ErrorLevel
	}
	logger = logger.Level(lvl)
}

func debug(format string, a ...any) { logger.Debug().Msg(fmt.Sprintf(format, a...)) }
func info(format string, a ...any)  { logger.Info().Msg(fmt.Sprintf(format, a...)) }
func warn(format string, a ...any)  { logger.Warn().Msg(fmt.Sprintf(format, a...)) }

// Env helpers
func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	s := strings.ToLower(v)
	return s == "1" || s == "true" || s == "yes"
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return def
}
