package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, request logging is off.
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
var defaultLogLevel = func() LogLevel {
	if os.Getenv("STTD_LOG_REQUESTS") == "1" {
		return LevelDebug
	}
	return parseLevel(os.Getenv("STTD_LOG_LEVEL"))
}()

// SetDefaultRequestLogLevel overrides the level used when a request carries no
// override of its own.
func SetDefaultRequestLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	// Per-request overrides
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

// logRequest emits one line for a control operation when the effective
// request level is at least lvl.
func logRequest(r *http.Request, lvl LogLevel, op string, start time.Time, fields func(e *zerolog.Event)) {
	if zlog == nil || requestLogLevel(r) < lvl {
		return
	}
	var e *zerolog.Event
	switch lvl {
	case LevelError:
		e = zlog.Error()
	case LevelDebug:
		e = zlog.Debug()
	default:
		e = zlog.Info()
	}
	e = e.Str("op", op).
		Str("request_id", middleware.GetReqID(r.Context())).
		Dur("elapsed", time.Since(start))
	if fields != nil {
		fields(e)
	}
	e.Msg("request")
}
