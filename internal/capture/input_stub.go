//go:build !portaudio

package capture

// DefaultInput returns an input that always fails. Build with -tags=portaudio
// for microphone capture.
func DefaultInput() Input { return unavailableInput{} }

type unavailableInput struct{}

func (unavailableInput) Open(int, func([]float32)) (InputStream, error) {
	return nil, ErrInputUnavailable
}
