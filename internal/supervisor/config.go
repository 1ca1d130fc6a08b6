package supervisor

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sttd/internal/artifact"
	"sttd/internal/probe"
)

// Fetcher obtains and unpacks the runtime archive.
type Fetcher interface {
	Download(ctx context.Context, url, dest string, onProgress func(float64)) error
	Extract(archive, destDir string) error
}

// Config carries supervisor settings. Zero values are replaced by defaults.
type Config struct {
	Runtime RuntimeConfig
	// DataDir is the application-private root; the supervisor owns DataDir/stt.
	DataDir string
	Fetcher Fetcher

	PortSpan      int
	PortAvailable func(host string, port int) bool

	HealthPaths    []string
	HealthTimeout  time.Duration
	HealthInterval time.Duration
	ProbeTimeout   time.Duration

	// StopGrace is how long a child gets after SIGTERM before it is killed.
	StopGrace time.Duration

	HTTPClient *http.Client
	Logger     zerolog.Logger
}

const (
	defaultHealthTimeout  = 30 * time.Second
	defaultHealthInterval = 500 * time.Millisecond
	defaultProbeTimeout   = time.Second
	defaultStopGrace      = 2 * time.Second
)

func (c Config) withDefaults() Config {
	c.Runtime = c.Runtime.withDefaults()
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.Fetcher == nil {
		c.Fetcher = artifact.NewFetcher(nil, "sttd/"+c.Runtime.Version)
	}
	if c.PortSpan <= 0 {
		c.PortSpan = probe.DefaultPortSpan
	}
	if c.PortAvailable == nil {
		c.PortAvailable = probe.PortAvailable
	}
	if len(c.HealthPaths) == 0 {
		c.HealthPaths = probe.DefaultHealthPaths
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = defaultHealthTimeout
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = defaultHealthInterval
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	if c.HTTPClient == nil {
		// per-probe deadlines come from contexts
		c.HTTPClient = &http.Client{Timeout: 0}
	}
	return c
}
