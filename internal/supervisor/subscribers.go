package supervisor

import "context"

// OnStatus registers fn for every subsequent transition. The returned func
// removes exactly this registration and may be called more than once.
// fn runs on the transitioning goroutine and must not call Stop, Restart or
// EnsureReady synchronously.
func (s *Supervisor) OnStatus(fn func(Status)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// Watch delivers the current status and every later transition on a channel
// until ctx ends. A consumer that falls behind loses the oldest pending
// status, never the newest.
func (s *Supervisor) Watch(ctx context.Context) <-chan Status {
	out := make(chan Status, 16)
	in := make(chan Status, 16)
	push := func(st Status) {
		for {
			select {
			case in <- st:
				return
			default:
			}
			select {
			case <-in:
			default:
			}
		}
	}
	s.pubMu.Lock()
	unsubscribe := s.OnStatus(push)
	push(s.Status())
	s.pubMu.Unlock()
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-in:
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// setStatus replaces the status and notifies subscribers.
func (s *Supervisor) setStatus(next Status) {
	s.transitionIf(nil, next)
}

// transitionIf applies next only when cond, evaluated under the state lock,
// holds. It reports whether the transition happened.
func (s *Supervisor) transitionIf(cond func() bool, next Status) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	if cond != nil && !cond() {
		s.mu.Unlock()
		return false
	}
	s.status = next
	s.mu.Unlock()

	observeState(next.State)
	ev := s.log.Debug().Str("event", "status").Str("state", string(next.State))
	if next.Message != "" {
		ev = ev.Str("message", next.Message)
	}
	if next.Progress != nil {
		ev = ev.Float64("progress", *next.Progress)
	}
	ev.Msg("status")

	s.subMu.Lock()
	fns := make([]func(Status), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
	return true
}
