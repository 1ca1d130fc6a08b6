package supervisor

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
)

// MarkerFile records the installed runtime version inside the runtime dir.
const MarkerFile = "runtime-version.txt"

// ensureRuntime returns the path of an up-to-date runtime executable,
// downloading and unpacking the archive when needed.
func (s *Supervisor) ensureRuntime(ctx context.Context) (string, error) {
	rt := s.cfg.Runtime
	exe := filepath.Join(s.paths.runtime, rt.Executable)
	if fileExists(exe) && readMarker(s.paths.runtime) == rt.Version {
		return exe, nil
	}
	if strings.TrimSpace(rt.URL) == "" {
		return "", ErrRuntimeMissing
	}

	s.log.Info().Str("event", "install").Str("version", rt.Version).Str("url", rt.URL).Msg("installing STT runtime")
	if err := os.RemoveAll(s.paths.runtime); err != nil {
		return "", acquireError{fmt.Errorf("clear runtime dir: %w", err)}
	}
	if err := os.MkdirAll(s.paths.runtime, 0o755); err != nil {
		return "", acquireError{fmt.Errorf("create runtime dir: %w", err)}
	}

	s.setStatus(Status{State: StateDownloading, Message: MsgDownloading})
	archive := filepath.Join(s.paths.downloads, archiveName(rt.URL))
	err := s.cfg.Fetcher.Download(ctx, rt.URL, archive, func(p float64) {
		s.setStatus(Status{State: StateDownloading, Message: MsgDownloading, Progress: &p})
	})
	if err != nil {
		downloadsTotal.WithLabelValues("error").Inc()
		return "", acquireError{err}
	}
	downloadsTotal.WithLabelValues("ok").Inc()

	if err := s.cfg.Fetcher.Extract(archive, s.paths.runtime); err != nil {
		_ = os.Remove(archive)
		return "", acquireError{err}
	}
	_ = os.Remove(archive)
	if err := os.WriteFile(filepath.Join(s.paths.runtime, MarkerFile), []byte(rt.Version), 0o644); err != nil {
		return "", acquireError{fmt.Errorf("write version marker: %w", err)}
	}

	if !fileExists(exe) {
		return "", ErrInstallFailed
	}
	if runtime.GOOS != "windows" {
		if fi, err := os.Stat(exe); err == nil && fi.Mode().Perm()&0o100 == 0 {
			_ = os.Chmod(exe, fi.Mode().Perm()|0o755)
		}
	}
	s.log.Info().Str("event", "install").Str("version", rt.Version).Msg("STT runtime installed")
	return exe, nil
}

func readMarker(dir string) string {
	b, err := os.ReadFile(filepath.Join(dir, MarkerFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && !fi.IsDir()
}

// archiveName keeps the archive extension of the download URL so extraction
// can pick the right format.
func archiveName(rawURL string) string {
	ext := ".zip"
	if u, err := url.Parse(rawURL); err == nil {
		base := strings.ToLower(path.Base(u.Path))
		switch {
		case strings.HasSuffix(base, ".tar.gz"):
			ext = ".tar.gz"
		case strings.HasSuffix(base, ".tgz"):
			ext = ".tgz"
		}
	}
	return "stt-runtime" + ext
}
