// Package engine binds one runtime supervisor to one transcription
// orchestrator and exposes them in API terms.
package engine

import (
	"context"
	"time"

	"sttd/internal/supervisor"
	"sttd/internal/transcribe"
	"sttd/pkg/types"
)

// Engine is the voice front end's single entry point.
type Engine struct {
	sup  *supervisor.Supervisor
	orch *transcribe.Orchestrator
}

// New returns an engine that transcribes through orch against sup.
func New(sup *supervisor.Supervisor, orch *transcribe.Orchestrator) *Engine {
	return &Engine{sup: sup, orch: orch}
}

// Status reports the runtime status with process details.
func (e *Engine) Status() types.StatusResponse {
	return toResponse(e.sup.Snapshot())
}

// EnsureReady starts the runtime if needed and reports the outcome.
func (e *Engine) EnsureReady(ctx context.Context) types.StatusResponse {
	e.sup.EnsureReady(ctx)
	return e.Status()
}

// Restart stops and starts the runtime.
func (e *Engine) Restart(ctx context.Context) types.StatusResponse {
	e.sup.Restart(ctx)
	return e.Status()
}

// Stop terminates the runtime.
func (e *Engine) Stop() types.StatusResponse {
	e.sup.Stop()
	return e.Status()
}

// Ready reports whether the runtime is running.
func (e *Engine) Ready() bool {
	return e.sup.Status().State == supervisor.StateRunning
}

// Transcribe converts a WAV payload to text.
func (e *Engine) Transcribe(ctx context.Context, payload []byte) types.TranscribeResponse {
	res := e.orch.Transcribe(ctx, payload)
	return types.TranscribeResponse{Text: res.Text, Error: res.Error}
}

// OnStatus registers fn for every status transition.
func (e *Engine) OnStatus(fn func(types.SttStatus)) (unsubscribe func()) {
	return e.sup.OnStatus(func(st supervisor.Status) { fn(ToSttStatus(st)) })
}

// Watch streams the current status and later transitions until ctx ends.
func (e *Engine) Watch(ctx context.Context) <-chan types.SttStatus {
	in := e.sup.Watch(ctx)
	out := make(chan types.SttStatus)
	go func() {
		defer close(out)
		for st := range in {
			select {
			case out <- ToSttStatus(st):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Close stops the runtime and waits for background restarts to give up.
func (e *Engine) Close() {
	e.sup.Close()
	e.orch.Close()
}

// ToSttStatus converts a supervisor status to its API form.
func ToSttStatus(st supervisor.Status) types.SttStatus {
	out := types.SttStatus{State: string(st.State), Message: st.Message}
	if st.Progress != nil {
		p := *st.Progress
		out.Progress = &p
	}
	return out
}

func toResponse(s supervisor.Snapshot) types.StatusResponse {
	return types.StatusResponse{
		SttStatus:        ToSttStatus(s.Status),
		Host:             s.Host,
		Port:             s.Port,
		PID:              s.PID,
		RuntimeVersion:   s.RuntimeVersion,
		TranscriptionURL: s.TranscriptionURL,
		LogPath:          s.LogPath,
		ServerTimeUnix:   time.Now().Unix(),
	}
}
