//go:build portaudio

package capture

import (
	"fmt"
	"sync"

	"github.com/go-audio/audio"
	"github.com/gordonklaus/portaudio"
)

// DefaultInput returns the system default microphone via PortAudio.
func DefaultInput() Input { return portaudioInput{} }

type portaudioInput struct{}

func (portaudioInput) Open(blockSize int, onBlock func([]float32)) (InputStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	dev, err := portaudio.DefaultInputDevice()
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("default input device: %w", err)
	}
	rate := int(dev.DefaultSampleRate)
	buf := make([]float32, blockSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, dev.DefaultSampleRate, len(buf), buf)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	s := &portaudioStream{stream: stream, format: &audio.Format{NumChannels: 1, SampleRate: rate}, done: make(chan struct{})}
	s.wg.Add(1)
	go s.readLoop(buf, onBlock)
	return s, nil
}

type portaudioStream struct {
	stream *portaudio.Stream
	format *audio.Format
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
	err    error
}

func (s *portaudioStream) Format() *audio.Format { return s.format }

func (s *portaudioStream) readLoop(buf []float32, onBlock func([]float32)) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		default:
		}
		if err := s.stream.Read(); err != nil {
			// input overflow drops a block but keeps the stream usable
			if err == portaudio.InputOverflowed {
				continue
			}
			return
		}
		onBlock(buf)
	}
}

func (s *portaudioStream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if err := s.stream.Stop(); err != nil {
			s.err = err
		}
		if err := s.stream.Close(); err != nil && s.err == nil {
			s.err = err
		}
		if err := portaudio.Terminate(); err != nil && s.err == nil {
			s.err = err
		}
	})
	return s.err
}
