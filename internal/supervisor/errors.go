package supervisor

import (
	"errors"
	"fmt"
)

// Status messages shown to the user.
const (
	MsgDownloading   = "Downloading STT runtime..."
	MsgStarting      = "Starting STT service..."
	MsgReady         = "STT service ready."
	MsgFailedToStart = "STT service failed to start."
	MsgStopped       = "STT service stopped."
	MsgMissing       = "STT runtime missing."
	MsgInstallFailed = "STT runtime install failed."
)

var (
	// ErrRuntimeMissing means no runtime is installed and no URL is configured.
	ErrRuntimeMissing = errors.New("runtime missing")
	// ErrInstallFailed means the archive unpacked without the executable.
	ErrInstallFailed = errors.New("runtime install failed")
)

// acquireError wraps a download or extraction failure.
type acquireError struct{ err error }

func (e acquireError) Error() string { return "STT runtime download failed: " + e.err.Error() }
func (e acquireError) Unwrap() error { return e.err }

// IsAcquireError reports whether err came from fetching the runtime archive.
func IsAcquireError(err error) bool {
	var ae acquireError
	return errors.As(err, &ae)
}

// statusMessage maps a start-sequence error to the message the user sees.
func statusMessage(err error) string {
	switch {
	case errors.Is(err, ErrRuntimeMissing):
		return MsgMissing
	case errors.Is(err, ErrInstallFailed):
		return MsgInstallFailed
	case IsAcquireError(err):
		return err.Error()
	default:
		return fmt.Sprintf("STT service failed: %v", err)
	}
}
