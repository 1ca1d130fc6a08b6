package supervisor

import (
	"context"
	"testing"
	"time"
)

func TestOnStatus_UnsubscribeStopsDeliveryAndIsIdempotent(t *testing.T) {
	s := NewWithConfig(Config{DataDir: t.TempDir()})
	rec := NewStatusRecorder()
	other := NewStatusRecorder()
	unsub := s.OnStatus(rec.Record)
	s.OnStatus(other.Record)

	s.setStatus(Status{State: StateStarting, Message: MsgStarting})
	unsub()
	unsub()
	s.setStatus(Status{State: StateError, Message: MsgFailedToStart})

	if got := rec.Statuses(); len(got) != 1 || got[0].State != StateStarting {
		t.Fatalf("unexpected statuses after unsubscribe: %+v", got)
	}
	if got := other.Statuses(); len(got) != 2 {
		t.Fatalf("other subscriber should see both, got %+v", got)
	}
}

func TestOnStatus_OrderPreserved(t *testing.T) {
	s := NewWithConfig(Config{DataDir: t.TempDir()})
	rec := NewStatusRecorder()
	s.OnStatus(rec.Record)
	seq := []State{StateDownloading, StateStarting, StateRunning, StateError, StateIdle}
	for _, st := range seq {
		s.setStatus(Status{State: st})
	}
	got := rec.Statuses()
	if len(got) != len(seq) {
		t.Fatalf("got %d statuses", len(got))
	}
	for i := range seq {
		if got[i].State != seq[i] {
			t.Fatalf("order mismatch at %d: %+v", i, got)
		}
	}
}

func TestWatch_CurrentThenTransitions(t *testing.T) {
	s := NewWithConfig(Config{DataDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Watch(ctx)

	first := <-ch
	if first.State != StateIdle {
		t.Fatalf("first=%+v", first)
	}
	s.setStatus(Status{State: StateStarting, Message: MsgStarting})
	select {
	case st := <-ch:
		if st.State != StateStarting {
			t.Fatalf("got %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no transition delivered")
	}
	cancel()
	for range ch {
	}
	s.subMu.Lock()
	n := len(s.subs)
	s.subMu.Unlock()
	if n != 0 {
		t.Fatalf("watch did not unsubscribe, %d left", n)
	}
}

func TestWatch_SlowConsumerKeepsNewest(t *testing.T) {
	s := NewWithConfig(Config{DataDir: t.TempDir()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Watch(ctx)
	for i := 0; i < 100; i++ {
		p := float64(i) / 100
		s.setStatus(Status{State: StateDownloading, Progress: &p})
	}
	s.setStatus(Status{State: StateRunning, Message: MsgReady})
	deadline := time.After(2 * time.Second)
	for {
		select {
		case st := <-ch:
			if st.State == StateRunning {
				return
			}
		case <-deadline:
			t.Fatalf("final status never delivered")
		}
	}
}
