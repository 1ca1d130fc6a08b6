package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"sttd/internal/probe"
)

// launch starts the runtime with stdout and stderr appended to a fresh log
// file and installs an exit watcher.
func (s *Supervisor) launch(exe string, rt RuntimeConfig) (*exec.Cmd, chan struct{}, error) {
	// a child left over from a failed sequence must not outlive its handle
	s.stopChild()

	for _, d := range []string{s.paths.models, s.paths.logs} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	logPath := filepath.Join(s.paths.logs, fmt.Sprintf("stt-%d.log", time.Now().UnixMilli()))
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}

	args := rt.Args.Resolve(map[string]string{
		PHHost:        rt.Host,
		PHPort:        strconv.Itoa(rt.Port),
		PHModel:       rt.Model,
		PHDevice:      rt.Device,
		PHComputeType: rt.ComputeType,
		PHModelDir:    s.paths.models,
	})
	cmd := exec.Command(exe, args...)
	cmd.Dir = s.paths.runtime
	cmd.Stdout = lf
	cmd.Stderr = lf
	setProcAttrs(cmd)
	if err := cmd.Start(); err != nil {
		_ = lf.Close()
		return nil, nil, fmt.Errorf("start %s: %w", exe, err)
	}
	exited := make(chan struct{})

	s.mu.Lock()
	s.cmd = cmd
	s.exited = exited
	s.logFile = lf
	s.logPath = logPath
	s.mu.Unlock()

	s.log.Info().Str("event", "spawn").Int("pid", cmd.Process.Pid).Str("host", rt.Host).Int("port", rt.Port).
		Str("log", logPath).Msg("STT runtime started")
	go s.watch(cmd, exited)
	return cmd, exited, nil
}

// watch waits for the child to exit. An exit of the current child while
// running is a crash.
func (s *Supervisor) watch(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()
	close(exited)
	ev := s.log.Info().Str("event", "exit").Int("pid", cmd.Process.Pid)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("STT runtime exited")

	s.transitionIf(func() bool {
		return s.cmd == cmd && s.status.State == StateRunning
	}, Status{State: StateError, Message: MsgStopped})
}

// waitReady polls the health endpoints until one answers, the budget runs
// out, or the child exits.
func (s *Supervisor) waitReady(ctx context.Context, rt RuntimeConfig, exited <-chan struct{}) bool {
	hctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-exited:
			cancel()
		case <-hctx.Done():
		}
	}()
	return probe.WaitHealthy(hctx, s.client, baseURL(rt), probe.HealthOptions{
		Paths:        s.cfg.HealthPaths,
		Timeout:      s.cfg.HealthTimeout,
		Interval:     s.cfg.HealthInterval,
		ProbeTimeout: s.cfg.ProbeTimeout,
	})
}

// stopChild terminates and forgets the current child, if any. It reports
// whether there was one.
func (s *Supervisor) stopChild() bool {
	s.mu.Lock()
	cmd, exited, lf := s.cmd, s.exited, s.logFile
	s.cmd, s.exited, s.logFile = nil, nil, nil
	s.mu.Unlock()

	if cmd != nil && cmd.Process != nil {
		terminate(cmd.Process, exited, s.cfg.StopGrace)
	}
	if lf != nil {
		_ = lf.Close()
	}
	return cmd != nil
}
