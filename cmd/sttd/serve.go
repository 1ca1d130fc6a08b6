package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sttd/internal/httpapi"
)

func newServeCmd(o *options) *cobra.Command {
	var (
		addr        string
		corsOrigins string
		ensure      bool
	)
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Run the HTTP control API",
		Example: "  sttd serve --addr 127.0.0.1:8080\n  sttd serve --ensure --cors-origins http://localhost:5173",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				o.cfg.Server.Addr = addr
			}
			if corsOrigins != "" {
				o.cfg.Server.CORSOrigins = splitCSV(corsOrigins)
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			return runServe(ctx, o, ensure, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (defaults to server.addr, STTD_ADDR or 127.0.0.1:8080)")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated list of allowed CORS origins")
	cmd.Flags().BoolVar(&ensure, "ensure", false, "Start the runtime in the background right away")
	return cmd
}

// runServe serves the control API until ctx is canceled. The bound address
// is sent on bound once listening.
func runServe(ctx context.Context, o *options, ensure bool, bound chan<- string) error {
	cfg, log := o.cfg, o.log
	eng := buildEngine(cfg, log)
	defer eng.Close()

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)
	httpapi.SetCORSOptions(len(cfg.Server.CORSOrigins) > 0, cfg.Server.CORSOrigins, nil, nil)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           httpapi.NewMux(eng),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", ln.Addr().String()).Str("data_dir", cfg.DataDir).Msg("sttd listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	if bound != nil {
		bound <- ln.Addr().String()
	}
	if ensure {
		go eng.EnsureReady(ctx)
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// splitCSV splits a comma-separated list, dropping empty entries.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
