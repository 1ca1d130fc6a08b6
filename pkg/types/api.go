package types

// SttStatus is one lifecycle status of the local STT runtime.
type SttStatus struct {
	// Lifecycle state: idle, downloading, starting, running or error.
	// example: running
	State string `json:"state" example:"running"`
	// Human-readable detail for the current state.
	// example: STT service ready.
	Message string `json:"message,omitempty" example:"STT service ready."`
	// Download progress in [0,1], present only while downloading with a known size.
	// example: 0.42
	Progress *float64 `json:"progress,omitempty" example:"0.42"`
}

// StatusResponse is returned by GET /stt/status and the lifecycle endpoints.
type StatusResponse struct {
	SttStatus
	// Host the runtime listens on.
	// example: 127.0.0.1
	Host string `json:"host" example:"127.0.0.1"`
	// Port the runtime listens on after conflict resolution.
	// example: 8000
	Port int `json:"port" example:"8000"`
	// Process ID of the runtime while running.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Installed runtime version identifier.
	// example: stt-runtime-v0.1.1
	RuntimeVersion string `json:"runtime_version" example:"stt-runtime-v0.1.1"`
	// Endpoint transcriptions are posted to.
	// example: http://127.0.0.1:8000/v1/audio/transcriptions
	TranscriptionURL string `json:"transcription_url" example:"http://127.0.0.1:8000/v1/audio/transcriptions"`
	// Log file of the current runtime process.
	LogPath string `json:"log_path,omitempty"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// TranscribeResponse is returned by POST /stt/transcribe. Error holds a code
// such as empty_audio, stt_unavailable, stt_http_<status> or
// stt_request_failed; Text is empty when Error is set.
type TranscribeResponse struct {
	// Transcript text.
	// example: turn on the kitchen lights
	Text string `json:"text" example:"turn on the kitchen lights"`
	// Error code, absent on success.
	// example: stt_unavailable
	Error string `json:"error,omitempty" example:"stt_unavailable"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: request body too large
	Error string `json:"error" example:"request body too large"`
	// HTTP status code.
	// example: 413
	Code int `json:"code" example:"413"`
}
