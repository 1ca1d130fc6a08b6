package supervisor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"sttd/internal/probe"
)

// Supervisor downloads, launches and health-checks the STT runtime and keeps
// one child process alive on behalf of its callers.
type Supervisor struct {
	cfg           Config
	log           zerolog.Logger
	client        *http.Client
	preferredPort int
	paths         layout

	baseCtx context.Context
	cancel  context.CancelFunc

	starts singleflight.Group

	mu      sync.RWMutex
	rt      RuntimeConfig // live copy; only Port changes
	status  Status
	cmd     *exec.Cmd
	exited  chan struct{}
	logFile *os.File
	logPath string

	// pubMu serializes transitions so subscribers see them in order.
	pubMu   sync.Mutex
	subMu   sync.Mutex
	subs    map[uint64]func(Status)
	nextSub uint64
}

type layout struct {
	root, runtime, models, downloads, logs string
}

func newLayout(dataDir string) layout {
	root := filepath.Join(dataDir, "stt")
	return layout{
		root:      root,
		runtime:   filepath.Join(root, "runtime"),
		models:    filepath.Join(root, "models"),
		downloads: filepath.Join(root, "downloads"),
		logs:      filepath.Join(root, "logs"),
	}
}

// New returns a supervisor with default settings rooted at dataDir.
func New(dataDir string) *Supervisor {
	return NewWithConfig(Config{DataDir: dataDir})
}

// NewWithConfig constructs a Supervisor in the idle state.
func NewWithConfig(cfg Config) *Supervisor {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Supervisor{
		cfg:           cfg,
		log:           cfg.Logger.With().Str("component", "supervisor").Logger(),
		client:        cfg.HTTPClient,
		preferredPort: cfg.Runtime.Port,
		paths:         newLayout(cfg.DataDir),
		baseCtx:       ctx,
		cancel:        cancel,
		rt:            cfg.Runtime,
		status:        Status{State: StateIdle},
		subs:          make(map[uint64]func(Status)),
	}
	observeState(StateIdle)
	return s
}

// Status returns the current status without waiting on a start sequence.
func (s *Supervisor) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Snapshot returns the status together with live process details.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Status:           s.status,
		Host:             s.rt.Host,
		Port:             s.rt.Port,
		RuntimeVersion:   s.rt.Version,
		TranscriptionURL: transcriptionURL(s.rt),
		LogPath:          s.logPath,
	}
	if s.cmd != nil && s.cmd.Process != nil && s.status.State == StateRunning {
		snap.PID = s.cmd.Process.Pid
	}
	return snap
}

// TranscriptionURL is the runtime's transcription endpoint on the live port.
func (s *Supervisor) TranscriptionURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return transcriptionURL(s.rt)
}

func transcriptionURL(rt RuntimeConfig) string {
	return baseURL(rt) + "/v1/audio/transcriptions"
}

func baseURL(rt RuntimeConfig) string {
	return "http://" + rt.Host + ":" + strconv.Itoa(rt.Port)
}

// EnsureReady returns immediately when the runtime is running. Otherwise it
// joins the in-flight start sequence, or begins one, and returns the status it
// produced. The sequence itself is not bound to ctx: a caller whose ctx ends
// only stops waiting.
func (s *Supervisor) EnsureReady(ctx context.Context) Status {
	if st := s.Status(); st.State == StateRunning {
		return st
	}
	ch := s.starts.DoChan("start", func() (interface{}, error) {
		s.start(s.baseCtx)
		return nil, nil
	})
	select {
	case <-ch:
	case <-ctx.Done():
	}
	return s.Status()
}

// Restart stops the child and runs a fresh start sequence.
func (s *Supervisor) Restart(ctx context.Context) Status {
	s.log.Info().Str("event", "restart").Msg("restarting STT runtime")
	s.Stop()
	return s.EnsureReady(ctx)
}

// Stop terminates the child if one is alive and moves to idle. It is safe to
// call at any time, any number of times.
func (s *Supervisor) Stop() {
	if s.stopChild() {
		s.log.Info().Str("event", "stop").Msg("STT runtime stopped")
	}
	s.setStatus(Status{State: StateIdle})
}

// Close aborts any in-flight start sequence and stops the child. The
// supervisor must not be used afterwards.
func (s *Supervisor) Close() {
	s.cancel()
	s.Stop()
}

// start runs acquisition, port resolution, launch and readiness in order.
// It never returns an error; every outcome ends as a status.
func (s *Supervisor) start(ctx context.Context) {
	began := time.Now()
	outcome := "error"
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("event", "start").Interface("panic", r).Msg("start sequence panicked")
			s.stopChild()
			s.setStatus(Status{State: StateError, Message: fmt.Sprintf("STT service failed: %v", r)})
		}
		startsTotal.WithLabelValues(outcome).Inc()
		startDuration.Observe(time.Since(began).Seconds())
	}()

	if s.Status().State == StateRunning {
		outcome = "already_running"
		return
	}
	if ctx.Err() != nil {
		outcome = "canceled"
		return
	}

	exe, err := s.ensureRuntime(ctx)
	if err != nil {
		s.log.Error().Str("event", "install").Err(err).Msg("runtime unavailable")
		s.setStatus(Status{State: StateError, Message: statusMessage(err)})
		return
	}

	if ctx.Err() != nil {
		outcome = "canceled"
		s.setStatus(Status{State: StateIdle})
		return
	}

	s.setStatus(Status{State: StateStarting, Message: MsgStarting})
	killStale(ctx, s.cfg.Runtime.Executable, s.log)

	rt := s.resolvePort()

	cmd, exited, err := s.launch(exe, rt)
	if err != nil {
		s.log.Error().Str("event", "spawn").Err(err).Msg("spawn failed")
		s.setStatus(Status{State: StateError, Message: MsgFailedToStart})
		return
	}

	if !s.waitReady(ctx, rt, exited) {
		s.log.Error().Str("event", "ready").Int("pid", cmd.Process.Pid).Msg("runtime did not become healthy")
		s.stopChild()
		s.setStatus(Status{State: StateError, Message: MsgFailedToStart})
		return
	}

	outcome = "ready"
	s.log.Info().Str("event", "ready").Int("pid", cmd.Process.Pid).Int("port", rt.Port).
		Dur("took", time.Since(began)).Msg("STT runtime ready")
	s.setStatus(Status{State: StateRunning, Message: MsgReady})
}

// resolvePort re-probes from the preferred port and records the result in
// the live config.
func (s *Supervisor) resolvePort() RuntimeConfig {
	s.mu.RLock()
	host := s.rt.Host
	s.mu.RUnlock()

	port, fallback := probe.ResolvePort(host, s.preferredPort, s.cfg.PortSpan, s.cfg.PortAvailable)
	if fallback {
		s.log.Warn().Str("event", "port").Int("port", port).Msg("no free port in range, using preferred")
	}

	s.mu.Lock()
	s.rt.Port = port
	rt := s.rt
	s.mu.Unlock()

	if port != s.preferredPort {
		s.setStatus(Status{State: StateStarting, Message: fmt.Sprintf("Port %d busy, using %d...", s.preferredPort, port)})
	}
	return rt
}
