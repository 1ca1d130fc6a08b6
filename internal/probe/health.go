package probe

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// DefaultHealthPaths are tried in order on every sweep.
var DefaultHealthPaths = []string{"/health", "/v1/models", "/"}

// HealthOptions bounds a readiness wait.
type HealthOptions struct {
	Paths        []string
	Timeout      time.Duration // total budget, default 30s
	Interval     time.Duration // pause between sweeps, default 500ms
	ProbeTimeout time.Duration // per request, default 1s
}

func (o HealthOptions) withDefaults() HealthOptions {
	if len(o.Paths) == 0 {
		o.Paths = DefaultHealthPaths
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 500 * time.Millisecond
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = time.Second
	}
	return o
}

// Ping issues a GET bounded by timeout and reports a 2xx answer.
func Ping(ctx context.Context, client *http.Client, url string, timeout time.Duration) bool {
	if client == nil {
		client = http.DefaultClient
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// WaitHealthy sweeps the health paths under baseURL until one answers 2xx,
// the total timeout elapses, or ctx ends.
func WaitHealthy(ctx context.Context, client *http.Client, baseURL string, opts HealthOptions) bool {
	opts = opts.withDefaults()
	base := strings.TrimRight(baseURL, "/")
	deadline := time.Now().Add(opts.Timeout)
	for time.Now().Before(deadline) {
		for _, p := range opts.Paths {
			if ctx.Err() != nil {
				return false
			}
			if Ping(ctx, client, base+p, opts.ProbeTimeout) {
				return true
			}
		}
		t := time.NewTimer(opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
	}
	return false
}
