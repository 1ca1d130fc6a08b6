package e2e

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"sttd/internal/artifact"
	"sttd/internal/engine"
	"sttd/internal/httpapi"
	"sttd/internal/supervisor"
	"sttd/internal/transcribe"
)

var (
	fakeOnce sync.Once
	fakeZip  []byte
	fakeErr  error
	fakeOut  []byte
)

// runtimeArchive builds the fake runtime and packs it as a release zip.
func runtimeArchive(t *testing.T) []byte {
	t.Helper()
	if testing.Short() {
		t.Skip("builds and spawns a runtime binary")
	}
	fakeOnce.Do(func() {
		dir, err := os.MkdirTemp("", "sttd-e2e-")
		if err != nil {
			fakeErr = err
			return
		}
		defer os.RemoveAll(dir)
		bin := filepath.Join(dir, supervisor.DefaultExecutable())
		cmd := exec.Command("go", "build", "-o", bin, "../supervisor/testdata/fake_stt_server.go")
		cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
		if fakeOut, fakeErr = cmd.CombinedOutput(); fakeErr != nil {
			return
		}
		fakeZip, fakeErr = zipFile(bin, supervisor.DefaultExecutable())
	})
	if fakeErr != nil {
		t.Fatalf("build fake runtime: %v: %s", fakeErr, string(fakeOut))
	}
	return fakeZip
}

func zipFile(path, name string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	hdr.SetMode(0o755)
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// releaseServer serves archive behind one redirect, the way release hosts
// hand out assets. It counts archive downloads.
func releaseServer(t *testing.T, archive []byte) (url string, downloads *int32) {
	t.Helper()
	var n int32
	mux := http.NewServeMux()
	mux.HandleFunc("/releases/stt-runtime.zip", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/assets/stt-runtime.zip", http.StatusFound)
	})
	mux.HandleFunc("/assets/stt-runtime.zip", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&n, 1)
		http.ServeContent(w, r, "stt-runtime.zip", time.Time{}, bytes.NewReader(archive))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL + "/releases/stt-runtime.zip", &n
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// newStack wires supervisor, orchestrator, engine and HTTP API the way
// `sttd serve` does, against dataDir.
func newStack(t *testing.T, dataDir, url, version string) (*httptest.Server, *engine.Engine) {
	t.Helper()
	sup := supervisor.NewWithConfig(supervisor.Config{
		DataDir: dataDir,
		Fetcher: artifact.NewFetcher(nil, "sttd-e2e"),
		Runtime: supervisor.RuntimeConfig{
			Port:    freePort(t),
			Version: version,
			URL:     url,
			Device:  "cpu",
		},
		HealthTimeout:  10 * time.Second,
		HealthInterval: 50 * time.Millisecond,
		StopGrace:      time.Second,
		Logger:         zerolog.Nop(),
	})
	orch := transcribe.New(sup, transcribe.Config{Language: "en", Timeout: 5 * time.Second})
	eng := engine.New(sup, orch)
	srv := httptest.NewServer(httpapi.NewMux(eng))
	t.Cleanup(func() {
		srv.Close()
		eng.Close()
	})
	return srv, eng
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPost(t *testing.T, url, contentType string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
