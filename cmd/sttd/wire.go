package main

import (
	"github.com/rs/zerolog"

	"sttd/internal/artifact"
	"sttd/internal/config"
	"sttd/internal/engine"
	"sttd/internal/supervisor"
	"sttd/internal/transcribe"
)

// buildEngine assembles the supervisor and orchestrator described by cfg.
func buildEngine(cfg config.Config, log zerolog.Logger) *engine.Engine {
	rt := cfg.SupervisorRuntime()
	sup := supervisor.NewWithConfig(supervisor.Config{
		Runtime:        rt,
		DataDir:        cfg.DataDir,
		Fetcher:        artifact.NewFetcher(nil, "sttd/"+version),
		HealthTimeout:  config.Millis(cfg.Health.TimeoutMS),
		HealthInterval: config.Millis(cfg.Health.IntervalMS),
		ProbeTimeout:   config.Millis(cfg.Health.ProbeTimeoutMS),
		Logger:         log,
	})
	model := cfg.Transcribe.Model
	if model == "" {
		model = rt.Model
	}
	orch := transcribe.New(sup, transcribe.Config{
		URL:      cfg.Transcribe.URL,
		Model:    model,
		Language: cfg.Transcribe.Language,
		Timeout:  config.Millis(cfg.Transcribe.TimeoutMS),
		Logger:   log,
	})
	return engine.New(sup, orch)
}
