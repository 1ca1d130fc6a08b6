package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"sttd/pkg/types"
)

type mockService struct {
	mu       sync.Mutex
	status   types.StatusResponse
	ready    bool
	result   types.TranscribeResponse
	payload  []byte
	ensured  int
	restarts int
	stops    int
	watch    chan types.SttStatus
}

func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

func (m *mockService) EnsureReady(ctx context.Context) types.StatusResponse {
	m.mu.Lock()
	m.ensured++
	m.mu.Unlock()
	return m.status
}

func (m *mockService) Restart(ctx context.Context) types.StatusResponse {
	m.mu.Lock()
	m.restarts++
	m.mu.Unlock()
	return m.status
}

func (m *mockService) Stop() types.StatusResponse {
	m.mu.Lock()
	m.stops++
	m.mu.Unlock()
	return types.StatusResponse{SttStatus: types.SttStatus{State: "idle"}}
}

func (m *mockService) Transcribe(ctx context.Context, payload []byte) types.TranscribeResponse {
	m.mu.Lock()
	m.payload = append([]byte(nil), payload...)
	m.mu.Unlock()
	return m.result
}

func (m *mockService) Watch(ctx context.Context) <-chan types.SttStatus {
	if m.watch != nil {
		return m.watch
	}
	ch := make(chan types.SttStatus, 1)
	ch <- m.status.SttStatus
	return ch
}

func running() types.StatusResponse {
	return types.StatusResponse{
		SttStatus: types.SttStatus{State: "running", Message: "STT service ready."},
		Host:      "127.0.0.1",
		Port:      8001,
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: running()}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stt/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "running" || body.Port != 8001 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLifecycleHandlers(t *testing.T) {
	svc := &mockService{status: running()}
	r := NewMux(svc)
	for _, path := range []string{"/stt/ensure", "/stt/restart", "/stt/stop"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, w.Code)
		}
	}
	if svc.ensured != 1 || svc.restarts != 1 || svc.stops != 1 {
		t.Fatalf("calls ensure=%d restart=%d stop=%d", svc.ensured, svc.restarts, svc.stops)
	}
}

func TestLifecycleRequiresPost(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stt/ensure", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestTranscribeHandler(t *testing.T) {
	svc := &mockService{result: types.TranscribeResponse{Text: "hello"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/stt/transcribe", bytes.NewReader([]byte("RIFFdata")))
	req.Header.Set("Content-Type", "audio/wav")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.TranscribeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Text != "hello" || body.Error != "" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if string(svc.payload) != "RIFFdata" {
		t.Fatalf("payload=%q", svc.payload)
	}
}

func TestTranscribeErrorIsStillOK(t *testing.T) {
	svc := &mockService{result: types.TranscribeResponse{Error: "stt_unavailable"}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stt/transcribe", bytes.NewReader([]byte("x"))))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error":"stt_unavailable"`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestTranscribeBodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(8)
	defer SetMaxBodyBytes(0)
	svc := &mockService{}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/stt/transcribe", bytes.NewReader(make([]byte, 64))))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("unexpected body: %+v", body)
	}
	if svc.payload != nil {
		t.Fatalf("service should not be called")
	}
}

func TestHealthz(t *testing.T) {
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	svc := &mockService{ready: true}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{SttStatus: types.SttStatus{State: "downloading"}}}
	r := NewMux(svc)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "downloading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestEventsStreamsStatus(t *testing.T) {
	watch := make(chan types.SttStatus, 2)
	watch <- types.SttStatus{State: "starting", Message: "Starting STT service..."}
	watch <- types.SttStatus{State: "running", Message: "STT service ready."}
	svc := &mockService{watch: watch}
	srv := httptest.NewServer(NewMux(svc))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stt/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content-type=%q", ct)
	}

	var states []string
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() && len(states) < 2 {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var st types.SttStatus
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &st); err != nil {
			t.Fatalf("json: %v", err)
		}
		states = append(states, st.State)
	}
	if len(states) != 2 || states[0] != "starting" || states[1] != "running" {
		t.Fatalf("states=%v", states)
	}
}

func TestEventsEndsWhenWatchCloses(t *testing.T) {
	watch := make(chan types.SttStatus)
	close(watch)
	r := NewMux(&mockService{watch: watch})
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stt/events", nil))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end")
	}
}

func TestCORSPreflight(t *testing.T) {
	SetCORSOptions(true, []string{"http://localhost:5173"}, nil, nil)
	defer SetCORSOptions(false, nil, nil, nil)
	r := NewMux(&mockService{})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/stt/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow-origin=%q", got)
	}
}
