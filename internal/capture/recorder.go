// Package capture records push-to-talk utterances and encodes them as
// 16 kHz mono 16-bit PCM WAV.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-audio/audio"
	"github.com/rs/zerolog"
)

// BlockSize is the number of frames delivered per input callback.
const BlockSize = 4096

// ErrInputUnavailable is returned when no audio input backend is built in.
var ErrInputUnavailable = errors.New("audio input unavailable")

// Input opens a capture stream at the device's native format and calls
// onBlock with each block of interleaved frames in arrival order. onBlock
// may retain the slice.
type Input interface {
	Open(blockSize int, onBlock func([]float32)) (InputStream, error)
}

// InputStream is an open capture session.
type InputStream interface {
	Format() *audio.Format
	Close() error
}

// State of a Recorder.
type State int

const (
	StateIdle State = iota
	StateRecording
)

func (s State) String() string {
	if s == StateRecording {
		return "recording"
	}
	return "idle"
}

// Recorder buffers one utterance between Start and Stop.
type Recorder struct {
	in  Input
	log zerolog.Logger

	mu     sync.Mutex
	state  State
	stream InputStream
	blocks [][]float32
	// accepting spans from Open until the stream is closed, so blocks that
	// race with Start or Stop are kept.
	accepting bool
}

// NewRecorder returns an idle recorder reading from in.
func NewRecorder(in Input, log zerolog.Logger) *Recorder {
	return &Recorder{in: in, log: log.With().Str("component", "capture").Logger()}
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start opens the input and begins buffering. It is a no-op while recording.
// If the input cannot be opened the recorder stays idle.
func (r *Recorder) Start() error {
	r.mu.Lock()
	if r.state == StateRecording || r.accepting {
		r.mu.Unlock()
		return nil
	}
	r.blocks = nil
	r.accepting = true
	r.mu.Unlock()

	stream, err := r.in.Open(BlockSize, r.onBlock)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.accepting = false
		r.blocks = nil
		return fmt.Errorf("open input: %w", err)
	}
	r.stream = stream
	r.state = StateRecording
	f := stream.Format()
	r.log.Debug().Int("sample_rate", f.SampleRate).Int("channels", f.NumChannels).Msg("recording started")
	return nil
}

// onBlock runs on the input's goroutine.
func (r *Recorder) onBlock(block []float32) {
	data := make([]float32, len(block))
	copy(data, block)
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.accepting {
		return
	}
	r.blocks = append(r.blocks, data)
}

// Stop ends the utterance and returns it as a WAV payload. When not
// recording it returns an empty payload. A close failure is returned
// alongside the payload.
func (r *Recorder) Stop() ([]byte, error) {
	r.mu.Lock()
	if r.state != StateRecording {
		r.mu.Unlock()
		return nil, nil
	}
	r.state = StateIdle
	stream := r.stream
	r.mu.Unlock()

	// closed outside the lock: the input may be delivering a last block
	closeErr := stream.Close()

	r.mu.Lock()
	r.accepting = false
	r.stream = nil
	blocks := r.blocks
	r.blocks = nil
	r.mu.Unlock()

	payload := EncodeBuffer(&audio.Float32Buffer{
		Format:         stream.Format(),
		Data:           Merge(blocks),
		SourceBitDepth: 32,
	})
	r.log.Debug().Int("blocks", len(blocks)).Int("bytes", len(payload)).Msg("recording stopped")
	if closeErr != nil {
		return payload, fmt.Errorf("close input: %w", closeErr)
	}
	return payload, nil
}
