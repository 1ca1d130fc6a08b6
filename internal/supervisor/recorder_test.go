package supervisor

import "sync"

// StatusRecorder keeps every status it receives. Attach it with
// Supervisor.OnStatus(rec.Record).
type StatusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func NewStatusRecorder() *StatusRecorder { return &StatusRecorder{} }

func (r *StatusRecorder) Record(st Status) {
	r.mu.Lock()
	r.statuses = append(r.statuses, st)
	r.mu.Unlock()
}

func (r *StatusRecorder) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Status, len(r.statuses))
	copy(out, r.statuses)
	return out
}

// Count returns how many recorded statuses have state st.
func (r *StatusRecorder) Count(st State) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.statuses {
		if s.State == st {
			n++
		}
	}
	return n
}

// HasMessage reports whether any recorded status carried msg.
func (r *StatusRecorder) HasMessage(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if s.Message == msg {
			return true
		}
	}
	return false
}
