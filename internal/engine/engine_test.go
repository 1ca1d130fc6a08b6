package engine

import (
	"context"
	"testing"
	"time"

	"sttd/internal/supervisor"
	"sttd/internal/transcribe"
	"sttd/pkg/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	sup := supervisor.NewWithConfig(supervisor.Config{DataDir: t.TempDir()})
	e := New(sup, transcribe.New(sup, transcribe.Config{}))
	t.Cleanup(e.Close)
	return e
}

func TestEngine_MissingRuntime(t *testing.T) {
	e := newTestEngine(t)
	if e.Ready() {
		t.Fatalf("fresh engine must not be ready")
	}
	st := e.EnsureReady(context.Background())
	if st.State != "error" || st.Message != supervisor.MsgMissing {
		t.Fatalf("unexpected status %+v", st)
	}
	if st.Port != supervisor.DefaultPort || st.RuntimeVersion != supervisor.DefaultVersion || st.PID != 0 {
		t.Fatalf("unexpected details %+v", st)
	}
	res := e.Transcribe(context.Background(), []byte("RIFF"))
	if res.Error != transcribe.CodeUnavailable {
		t.Fatalf("unexpected transcribe result %+v", res)
	}
	if res := e.Transcribe(context.Background(), nil); res.Error != transcribe.CodeEmptyAudio {
		t.Fatalf("unexpected transcribe result %+v", res)
	}
}

func TestEngine_StopAndWatch(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := e.Watch(ctx)
	if first := <-ch; first.State != "idle" {
		t.Fatalf("first=%+v", first)
	}
	if st := e.Stop(); st.State != "idle" {
		t.Fatalf("stop=%+v", st)
	}
	select {
	case st := <-ch:
		if st.State != "idle" {
			t.Fatalf("got %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no status after stop")
	}
}

func TestEngine_OnStatusConverts(t *testing.T) {
	e := newTestEngine(t)
	var got []types.SttStatus
	unsub := e.OnStatus(func(st types.SttStatus) { got = append(got, st) })
	e.EnsureReady(context.Background())
	unsub()
	e.Stop()
	if len(got) != 1 || got[0].State != "error" || got[0].Message != supervisor.MsgMissing {
		t.Fatalf("unexpected statuses %+v", got)
	}
}

func TestToSttStatus_CopiesProgress(t *testing.T) {
	p := 0.25
	out := ToSttStatus(supervisor.Status{State: supervisor.StateDownloading, Message: supervisor.MsgDownloading, Progress: &p})
	if out.State != "downloading" || out.Progress == nil || *out.Progress != 0.25 {
		t.Fatalf("unexpected %+v", out)
	}
	p = 0.9
	if *out.Progress != 0.25 {
		t.Fatalf("progress aliased")
	}
}
