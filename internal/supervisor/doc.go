// Package supervisor owns the lifecycle of the local STT runtime process.
//
// Files by concern:
//   - supervisor.go: Supervisor type, EnsureReady/Stop/Restart/Close and the start sequence
//   - install.go:    runtime acquisition (version marker, download, extract)
//   - launch.go:     spawning, log sink, exit watcher and readiness wait
//   - subscribers.go: status fan-out (OnStatus, Watch)
//   - types.go:      State, Status, Snapshot, RuntimeConfig, ArgTemplate
//   - config.go:     Config and defaults
//   - errors.go:     acquisition error kinds and their status messages
//   - metrics.go:    Prometheus collectors
//   - proc_*.go:     platform termination and stale-process cleanup
package supervisor
