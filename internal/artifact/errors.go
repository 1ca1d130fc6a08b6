package artifact

import (
	"errors"
	"fmt"
)

// ErrTooManyRedirects is returned when a download exceeds MaxRedirects hops.
var ErrTooManyRedirects = errors.New("too many redirects")

// DownloadError reports a terminal non-200 answer.
type DownloadError struct {
	URL        string
	StatusCode int
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download failed: %d", e.StatusCode)
}

// IsDownloadStatus reports whether err carries an HTTP status from the download server.
func IsDownloadStatus(err error) (int, bool) {
	var de *DownloadError
	if errors.As(err, &de) {
		return de.StatusCode, true
	}
	return 0, false
}

// ExtractError wraps any failure while unpacking an archive.
type ExtractError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ExtractError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("extract %s: %s: %v", e.Archive, e.Entry, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.Archive, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// errUnsafePath marks an archive entry that would land outside the target dir.
var errUnsafePath = errors.New("entry escapes destination")
