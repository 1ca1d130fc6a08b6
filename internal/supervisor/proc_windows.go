//go:build windows

package supervisor

import (
	"context"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

func setProcAttrs(*exec.Cmd) {}

// terminate kills the child; Windows has no SIGTERM.
func terminate(p *os.Process, exited <-chan struct{}, grace time.Duration) {
	select {
	case <-exited:
		return
	default:
	}
	_ = p.Kill()
	select {
	case <-exited:
	case <-time.After(grace):
	}
}

// killStale removes runtime processes left behind by an earlier session
// that still hold the port.
func killStale(ctx context.Context, exe string, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "taskkill", "/IM", exe, "/F").CombinedOutput()
	if err != nil {
		// exit status 128: no such process
		log.Debug().Str("event", "kill_stale").Err(err).Bytes("output", out).Msg("taskkill")
		return
	}
	log.Info().Str("event", "kill_stale").Str("image", exe).Msg("terminated stale runtime processes")
}
