// Package transcribe turns a WAV payload into text by way of the local STT
// runtime, starting or restarting the runtime as needed.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sttd/internal/supervisor"
)

// Error codes carried in Result.Error.
const (
	CodeEmptyAudio      = "empty_audio"
	CodeUnavailable     = "stt_unavailable"
	CodeHTTPPrefix      = "stt_http_"
	CodeRequestFailed   = "stt_request_failed"
	CodeInvalidResponse = "stt_invalid_response"
)

const (
	defaultTimeout  = 15 * time.Second
	defaultModel    = supervisor.DefaultModel
	defaultLanguage = "en"
	maxErrorBody    = 500
)

// Supervisor is the part of the runtime supervisor the orchestrator needs.
type Supervisor interface {
	EnsureReady(ctx context.Context) supervisor.Status
	Restart(ctx context.Context) supervisor.Status
	TranscriptionURL() string
}

// Config for an Orchestrator. Zero values get defaults.
type Config struct {
	// URL overrides the supervisor's transcription endpoint.
	URL        string
	Model      string
	Language   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Result of one transcription. Error is empty on success.
type Result struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Orchestrator serves transcription requests against a supervised runtime.
type Orchestrator struct {
	sup    Supervisor
	cfg    Config
	client *http.Client
	log    zerolog.Logger

	restarts sync.WaitGroup
}

// New returns an Orchestrator bound to sup.
func New(sup Supervisor, cfg Config) *Orchestrator {
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	return &Orchestrator{
		sup:    sup,
		cfg:    cfg,
		client: client,
		log:    cfg.Logger.With().Str("component", "transcribe").Logger(),
	}
}

// Transcribe sends payload to the runtime and classifies the outcome.
func (o *Orchestrator) Transcribe(ctx context.Context, payload []byte) Result {
	start := time.Now()
	res := o.transcribe(ctx, payload)
	outcome := "ok"
	if res.Error != "" {
		outcome = outcomeLabel(res.Error)
	}
	requestsTotal.WithLabelValues(outcome).Inc()
	requestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	return res
}

func (o *Orchestrator) transcribe(ctx context.Context, payload []byte) Result {
	if len(payload) == 0 {
		return Result{Error: CodeEmptyAudio}
	}
	rid := uuid.NewString()
	log := o.log.With().Str("request_id", rid).Logger()

	st := o.sup.EnsureReady(ctx)
	if st.State != supervisor.StateRunning {
		log.Warn().Str("state", string(st.State)).Str("message", st.Message).Msg("runtime not ready")
		return Result{Error: CodeUnavailable}
	}

	target := o.cfg.URL
	if target == "" {
		target = o.sup.TranscriptionURL()
	}
	body, contentType, err := o.encodeForm(payload)
	if err != nil {
		return Result{Error: CodeRequestFailed + ": " + err.Error()}
	}

	rctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(rctx, http.MethodPost, target, body)
	if err != nil {
		return Result{Error: CodeRequestFailed + ": " + err.Error()}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-Id", rid)

	log.Debug().Str("url", target).Int("bytes", len(payload)).Msg("transcription request")
	resp, err := o.client.Do(req)
	if err != nil {
		return o.transportFailure(ctx, log, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*maxErrorBody))
		code := CodeHTTPPrefix + strconv.Itoa(resp.StatusCode)
		if msg := truncate(string(b), maxErrorBody); strings.TrimSpace(msg) != "" {
			code += ": " + msg
		}
		log.Warn().Int("status", resp.StatusCode).Msg("runtime rejected transcription")
		return Result{Error: code}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return o.transportFailure(ctx, log, err)
	}
	var out struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().Err(err).Msg("undecodable transcription response")
		return Result{Error: CodeInvalidResponse + ": " + err.Error()}
	}
	text := ""
	if out.Text != nil {
		text = *out.Text
	}
	log.Info().Int("chars", len(text)).Msg("transcribed")
	return Result{Text: text}
}

// transportFailure schedules a background restart unless the caller itself
// gave up, and reports the failure.
func (o *Orchestrator) transportFailure(ctx context.Context, log zerolog.Logger, err error) Result {
	if ctx.Err() == nil {
		log.Warn().Err(err).Msg("transcription transport failure, restarting runtime")
		o.restarts.Add(1)
		go func() {
			defer o.restarts.Done()
			st := o.sup.Restart(context.Background())
			o.log.Info().Str("event", "restart").Str("state", string(st.State)).Msg("runtime restarted")
		}()
	} else {
		log.Debug().Err(err).Msg("transcription abandoned by caller")
	}
	return Result{Error: CodeRequestFailed + ": " + causeOf(err)}
}

// Close waits for background restarts to finish.
func (o *Orchestrator) Close() {
	o.restarts.Wait()
}

func (o *Orchestrator) encodeForm(payload []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="audio.wav"`)
	h.Set("Content-Type", "audio/wav")
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}
	if err := w.WriteField("model", o.cfg.Model); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("language", o.cfg.Language); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// causeOf strips the "Post <url>:" prefix net/http puts on client errors.
func causeOf(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err.Error()
	}
	return err.Error()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func outcomeLabel(code string) string {
	switch {
	case strings.HasPrefix(code, CodeHTTPPrefix):
		return "http_error"
	case strings.HasPrefix(code, CodeRequestFailed):
		return "request_failed"
	case strings.HasPrefix(code, CodeInvalidResponse):
		return "invalid_response"
	default:
		return code
	}
}
