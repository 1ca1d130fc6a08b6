package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sttd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Status() types.StatusResponse
	EnsureReady(ctx context.Context) types.StatusResponse
	Restart(ctx context.Context) types.StatusResponse
	Stop() types.StatusResponse
	Transcribe(ctx context.Context, payload []byte) types.TranscribeResponse
	Watch(ctx context.Context) <-chan types.SttStatus
	Ready() bool
}

// NewMux builds the control API router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsAllowedOrigins,
			AllowedMethods:   orDefault(corsAllowedMethods, []string{"GET", "POST", "OPTIONS"}),
			AllowedHeaders:   orDefault(corsAllowedHeaders, []string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"}),
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Route("/stt", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Status())
		})

		r.Post("/ensure", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			st := svc.EnsureReady(ctx)
			logRequest(r, LevelInfo, "ensure", start, func(e *zerolog.Event) { e.Str("state", st.State) })
			writeJSON(w, http.StatusOK, st)
		})

		r.Post("/restart", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			st := svc.Restart(ctx)
			logRequest(r, LevelInfo, "restart", start, func(e *zerolog.Event) { e.Str("state", st.State) })
			writeJSON(w, http.StatusOK, st)
		})

		r.Post("/stop", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, svc.Stop())
		})

		r.Post("/transcribe", func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			payload, err := io.ReadAll(r.Body)
			if err != nil {
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
					return
				}
				writeJSONError(w, http.StatusBadRequest, "failed to read body")
				return
			}
			ctx, cancel := joinContexts(serverBaseCtx, r.Context())
			defer cancel()
			res := svc.Transcribe(ctx, payload)
			logRequest(r, LevelInfo, "transcribe", start, func(e *zerolog.Event) {
				e.Int("bytes", len(payload))
				if res.Error != "" {
					e.Str("error", res.Error)
				}
			})
			writeJSON(w, http.StatusOK, res)
		})

		r.Get("/events", func(w http.ResponseWriter, r *http.Request) {
			serveEvents(w, r, svc)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Status().State))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && zlog != nil {
		zlog.Error().Err(err).Msg("encode response")
	}
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
