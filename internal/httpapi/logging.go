package httpapi

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("PREDICTD_REQUEST_LOG"))

// SetDefaultLogLevel changes the level used when a request carries no override.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// predictLog describes one prediction call for the request log.
type predictLog struct {
	service   string
	instances int
	// predictions is only logged at debug.
	predictions []any
	status      int
	err         error
	start       time.Time
}

// logPredict writes the end-of-request line. Errors (status >= 500) are
// logged from LevelError, everything else from LevelInfo.
func logPredict(r *http.Request, lvl LogLevel, p predictLog) {
	need := LevelInfo
	if p.status >= 500 {
		need = LevelError
	}
	if lvl < need {
		return
	}
	dur := time.Since(p.start)
	rid := middleware.GetReqID(r.Context())
	if zlog == nil {
		log.Printf("predict service=%s instances=%d status=%d dur=%s err=%v rid=%s", p.service, p.instances, p.status, dur, p.err, rid)
		return
	}
	ev := zlog.Info()
	if p.status >= 500 {
		ev = zlog.Error()
	}
	ev = ev.Str("path", r.URL.Path).Str("service", p.service).Int("instances", p.instances).Int("status", p.status).Dur("dur", dur)
	if rid != "" {
		ev = ev.Str("request_id", rid)
	}
	if lvl >= LevelDebug && p.predictions != nil {
		ev = ev.Interface("predictions", p.predictions)
	}
	if p.err != nil {
		ev = ev.Err(p.err)
	}
	ev.Msg("predict")
}
